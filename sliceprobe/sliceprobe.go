// Package sliceprobe determines which LLC slice backs a physical
// address, using whichever of three techniques the running
// microarchitecture supports: the Xeon uncore CBo counters, the
// client-core per-core counters, or a clflush-timing side channel that
// needs no MSR access at all.
package sliceprobe

import (
	"fmt"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/llcslice/reverse/msr"
	"github.com/llcslice/reverse/pagemap"
	"github.com/llcslice/reverse/platform"
	"github.com/llcslice/reverse/poke"
	"github.com/llcslice/reverse/uarch"
)

// Result is a single address's slice assignment plus the diagnostic
// counter values a -v run prints alongside it.
type Result struct {
	PhysAddr   uintptr
	Slice      int
	Confidence float64 // ratio of the runner-up counter to the winner, as a percentage
	Counts     []int
}

// Sink receives a Result from every Probe* call when non-nil,
// collapsing the reference implementation's three near-identical
// printing variants of each backend into one optional diagnostic path.
type Sink func(Result)

const confidenceScale = 100.0

// ProbeXeon resolves addr's slice on a Xeon-class part by programming
// the uncore CBo (C-Box) counters across every slice, poking addr, and
// picking the counter with the largest post-poke delta.
func ProbeXeon(g *msr.Gateway, p *uarch.Profile, poker *poke.Poker, addr uintptr, sink Sink) (Result, error) {
	if p.Xeon == nil {
		return Result{}, fmt.Errorf("sliceprobe: profile has no Xeon registers")
	}

	r := p.Xeon
	const cpu = 0

	if err := g.WriteAll(cpu, r.BoxCtl, r.BoxFreeze); err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.BoxCtl, r.BoxReset); err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.Ctl0, r.EnableCounting); err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.Ctl0, r.SelectEvent); err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.BoxFilter, r.Filter); err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.BoxCtl, r.BoxUnfreeze); err != nil {
		return Result{}, err
	}

	phys, err := poker.Poke(addr)
	if err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.BoxCtl, r.BoxFreeze); err != nil {
		return Result{}, err
	}

	counts := make([]int, len(r.Ctr0))

	for i, reg := range r.Ctr0 {
		v, err := g.Read(cpu, reg)
		if err != nil {
			return Result{}, err
		}

		counts[i] = subtractPokes(v)
	}

	res := summarize(phys, counts)
	if sink != nil {
		sink(res)
	}

	return res, nil
}

// ProbeCore resolves addr's slice on a client-core part by the same
// freeze/reset/select/unfreeze/poke/read cycle against the per-CBox
// counters, collapsing the reference implementation's three
// near-identical core-side variants (silent, ratio-annotated, and
// raw-counter dump) into one backend with an optional Sink.
func ProbeCore(g *msr.Gateway, p *uarch.Profile, poker *poke.Poker, addr uintptr, sink Sink) (Result, error) {
	if p.Core == nil {
		return Result{}, fmt.Errorf("sliceprobe: profile has no Core registers")
	}

	r := p.Core
	const cpu = 0

	if err := g.Write(cpu, r.GlobalCtrl, r.DisableCtrs); err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.PerCtr0, r.ResetCtrs); err != nil {
		return Result{}, err
	}

	if err := g.WriteAll(cpu, r.PerfEvtSel0, r.SelectEvtCore); err != nil {
		return Result{}, err
	}

	if err := g.Write(cpu, r.GlobalCtrl, r.EnableCtrs); err != nil {
		return Result{}, err
	}

	phys, err := poker.Poke(addr)
	if err != nil {
		return Result{}, err
	}

	counts, err := g.ReadAll(cpu, r.PerCtr0)
	if err != nil {
		return Result{}, err
	}

	adjusted := make([]int, len(counts))
	for i, v := range counts {
		adjusted[i] = subtractPokes(v)
	}

	res := summarize(phys, adjusted)
	if sink != nil {
		sink(res)
	}

	return res, nil
}

func subtractPokes(raw uint64) int {
	v := int(raw) - poke.NbPokes
	if v < 0 {
		return 0
	}

	return v
}

func summarize(phys uintptr, counts []int) Result {
	slice := 0
	for i, c := range counts {
		if c > counts[slice] {
			slice = i
		}
	}

	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)

	var confidence float64
	if n := len(sorted); n >= 2 && sorted[n-1] > 0 {
		confidence = float64(sorted[n-2]) / float64(sorted[n-1]) * confidenceScale
	}

	return Result{PhysAddr: phys, Slice: slice, Confidence: confidence, Counts: counts}
}

// Clflush timing-based probe, the technique that needs no MSR access:
// it runs on every core in turn and asks whether addr's line evicts
// quickly there, which happens only on the core sharing addr's slice.
const (
	histogramBuckets = 600
	tHitRemote       = 160
	nbTries          = 50 * 1024
	sameSliceCount   = 50
)

// ProbeClflush determines which core shares addr's LLC slice by timing
// clflush hits from every core in turn and classifying each core's hit
// histogram as "same slice" or not. It needs no MSR access and so works
// without root, unlike ProbeXeon and ProbeCore.
func ProbeClflush(info *platform.Info, tr *pagemap.Translator, addr uintptr, sink Sink) (Result, error) {
	phys, err := tr.Translate(addr)
	if err != nil {
		return Result{}, err
	}

	coreUsed := make([]bool, info.NbCores)

	slice, err := FirstSameSliceCore(info.ThreadsPerPkg, coreUsed, func(thread int) (core int, same bool, err error) {
		if err := pinTo(thread); err != nil {
			return 0, false, err
		}

		core = currentCore(info)

		return core, sameSlice(clflushHistogram(addr)), nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{PhysAddr: phys, Slice: slice}
	if sink != nil {
		sink(res)
	}

	return res, nil
}

// FirstSameSliceCore walks threads 0..nbThreads-1, skipping threads whose
// core was already probed, and returns the core_id of the first core
// whose probeThread reports same-slice. If no core reports same-slice,
// the result is 0, not a sentinel like -1: 0 is a valid core_id and
// callers must not special-case it. probeThread returns the logical
// core for thread and whether it hit same-slice; core values outside
// [0, len(coreUsed)) are ignored. Exported so the no-match default can
// be exercised without real hardware.
func FirstSameSliceCore(nbThreads int, coreUsed []bool, probeThread func(thread int) (core int, same bool, err error)) (int, error) {
	for thread := 0; thread < nbThreads; thread++ {
		core, same, err := probeThread(thread)
		if err != nil {
			return 0, err
		}

		if core < 0 || core >= len(coreUsed) || coreUsed[core] {
			continue
		}

		coreUsed[core] = true

		if same {
			return core, nil
		}
	}

	return 0, nil
}

func pinTo(cpu int) error {
	var set unix.CPUSet

	set.Zero()
	set.Set(cpu)

	return unix.SchedSetaffinity(0, &set)
}

func currentCore(info *platform.Info) int {
	_, apicID := leafBThreadsAndAPIC()

	for _, m := range info.ApicCoreMapping {
		if m.ApicID == apicID {
			return m.CoreID
		}
	}

	return -1
}

func clflushHistogram(addr uintptr) [histogramBuckets]int {
	var hist [histogramBuckets]int

	for i := 0; i < nbTries; i++ {
		d := flushHit(addr)
		if d >= histogramBuckets {
			d = histogramBuckets - 1
		}

		hist[d]++

		unix.Sched_yield() //nolint:errcheck // best-effort scheduling hint
	}

	return hist
}

func sameSlice(hist [histogramBuckets]int) bool {
	count := 0
	for i := 0; i < tHitRemote; i++ {
		count += hist[i]
	}

	return count > sameSliceCount
}
