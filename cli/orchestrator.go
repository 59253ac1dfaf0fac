package cli

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/llcslice/reverse/msr"
	"github.com/llcslice/reverse/pagemap"
	"github.com/llcslice/reverse/pairgen"
	"github.com/llcslice/reverse/platform"
	"github.com/llcslice/reverse/poke"
	"github.com/llcslice/reverse/sliceprobe"
	"github.com/llcslice/reverse/uarch"
	"github.com/llcslice/reverse/voter"
)

// session holds everything a scan or reverse run needs after the
// one-time platform/µarch setup a full run of reverse.c's main
// performs before dispatching to scan_addresses/reverse_generic/
// reverse_xeon.
type session struct {
	info    *platform.Info
	class   uarch.Class
	arch    uarch.Microarch
	profile *uarch.Profile
	nbCores int

	gw    *msr.Gateway
	poker *poke.Poker
	tr    *pagemap.Translator

	clflush bool
	verbose bool
	out     io.Writer
}

func newSession(clflush, verbose bool) (*session, error) {
	if !platform.IsIntel() {
		return nil, platform.ErrNotIntel
	}

	if err := pinToCPU0(); err != nil {
		return nil, fmt.Errorf("cli: pinning to cpu 0: %w", err)
	}

	info, err := platform.Detect()
	if err != nil {
		return nil, err
	}

	s := &session{info: info, nbCores: info.NbCores, clflush: clflush, verbose: verbose, out: os.Stdout}

	if !clflush {
		class, arch, err := uarch.ClassifyModel(info.DisplayModel)
		if err != nil {
			return nil, err
		}

		profile, nbCores, err := uarch.Lookup(class, arch, info.NbCores)
		if err != nil {
			return nil, err
		}

		if err := uarch.CheckCoherent(profile, nbCores); err != nil {
			return nil, err
		}

		s.class, s.arch, s.profile, s.nbCores = class, arch, profile, nbCores
		s.gw = msr.New()
	}

	poker, err := poke.New()
	if err != nil {
		return nil, err
	}

	tr, err := pagemap.Open()
	if err != nil {
		poker.Close()

		return nil, err
	}

	s.poker, s.tr = poker, tr

	return s, nil
}

func (s *session) Close() {
	s.poker.Close()
	s.tr.Close()
}

func pinToCPU0() error {
	var set unix.CPUSet

	set.Zero()
	set.Set(0)

	return unix.SchedSetaffinity(0, &set)
}

// probe resolves addr's slice using whichever backend the session was
// configured for.
func (s *session) probe(addr uintptr) (sliceprobe.Result, error) {
	var sink sliceprobe.Sink
	if s.verbose {
		sink = func(r sliceprobe.Result) {
			fmt.Fprintf(s.out, "%s %d %6.2f", printBin(r.PhysAddr), r.Slice, r.Confidence)

			for _, c := range r.Counts {
				fmt.Fprintf(s.out, " %6d", c)
			}

			fmt.Fprintln(s.out)
		}
	}

	switch {
	case s.clflush:
		return sliceprobe.ProbeClflush(s.info, s.tr, addr, sink)
	case s.class == uarch.ClassCore:
		return sliceprobe.ProbeCore(s.gw, s.profile, s.poker, addr, sink)
	default:
		return sliceprobe.ProbeXeon(s.gw, s.profile, s.poker, addr, sink)
	}
}

func printBin(v uintptr) string {
	b := make([]byte, 64)
	for i := 0; i < 64; i++ {
		if v&(1<<uint(63-i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}

	return string(b)
}

const scanNbAddresses = 20

// runScan is scan_addresses: it probes 20 consecutive 64-byte offsets
// of a stack buffer and prints each one's slice.
func runScan(s *session) error {
	var mem [64 * scanNbAddresses]byte
	for i := range mem {
		mem[i] = 12
	}

	base := uintptr(unsafe.Pointer(&mem[0]))

	for i := 0; i < scanNbAddresses; i++ {
		addr := base + uintptr(i)*64

		res, err := s.probe(addr)
		if err != nil {
			return err
		}

		// s.probe already printed this line when verbose is set; avoid
		// printing it twice.
		if s.verbose {
			continue
		}

		if s.clflush {
			fmt.Fprintf(s.out, "%s %d\n", printBin(res.PhysAddr), res.Slice)

			continue
		}

		fmt.Fprintf(s.out, "%s %d %6.2f", printBin(res.PhysAddr), res.Slice, res.Confidence)

		for _, c := range res.Counts {
			fmt.Fprintf(s.out, " %6d", c)
		}

		fmt.Fprintln(s.out)
	}

	return nil
}

const addrBitOffset = 6

// runReverse is reverse_generic collapsed to one implementation shared
// by both classes: low bits are tested inside a single huge page, high
// bits via a reverse physical-page-number map across several.
func runReverse(s *session) error {
	nbits := outputBits(s.nbCores)

	pageSize := uintptr(pairgen.HugePage2M)
	if s.class == uarch.ClassXeon {
		pageSize = pairgen.HugePage1G
	}

	bitMax, err := highBitCeiling(pageSize)
	if err != nil {
		return err
	}

	m := voter.NewMatrix(nbits, bitMax)

	if err := s.reverseLowBits(m, pageSize); err != nil {
		return err
	}

	if err := s.reverseHighBits(m, pageSize, bitMax); err != nil {
		return err
	}

	threshold := voter.ThresholdCore
	if s.class == uarch.ClassXeon {
		threshold = voter.ThresholdXeon
	}

	fmt.Fprint(s.out, voter.FormatSupportSets(m.SupportSets(threshold), addrBitOffset))

	return nil
}

func (s *session) reverseLowBits(m *voter.Matrix, pageSize uintptr) error {
	region, err := pairgen.NewLowBitRegion(pageSize)
	if err != nil {
		return err
	}
	defer region.Close()

	// Every bit below the page's own size bit: 6..20 for 2MiB, 6..29 for 1GiB.
	lowBitCount := int(pageSize64Log2(pageSize)) - addrBitOffset

	for bit := 0; bit < lowBitCount; bit++ {
		if s.verbose {
			fmt.Fprintf(s.out, "Bit %d\n", bit+addrBitOffset)
		}

		for sample := 0; sample < voter.AddrPerBit; sample++ {
			pair := region.LowBitPair(bit+addrBitOffset, sample)

			if err := s.vote(m, pair.Addr1, pair.Addr2, bit); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *session) reverseHighBits(m *voter.Matrix, pageSize uintptr, bitMax int) error {
	free, err := pairgen.FreeHugePages()
	if err != nil {
		return err
	}

	nbPages := free
	if s.class == uarch.ClassXeon && nbPages > 11 {
		nbPages = 11
	}

	if nbPages < 2 {
		for bit := int(pageSize64Log2(pageSize)); bit < bitMax+addrBitOffset; bit++ {
			fmt.Fprintf(s.out, "Not able to test bit %d\n", bit)
		}

		return nil
	}

	region, err := pairgen.NewHighBitRegion(nbPages, pageSize, s.tr)
	if err != nil {
		return err
	}
	defer region.Close()

	pageBit := int(pageSize64Log2(pageSize))

	for bit := pageBit; bit < bitMax+addrBitOffset; bit++ {
		for sample := 0; sample < voter.AddrPerBit; sample++ {
			pair, err := region.HighBitPair(bit, sample)
			if err != nil {
				if sample == 0 {
					fmt.Fprintf(s.out, "Not able to test bit %d\n", bit)
				}

				break
			}

			if err := s.vote(m, pair.Addr1, pair.Addr2, bit-addrBitOffset); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *session) vote(m *voter.Matrix, addr1, addr2 uintptr, addrBit int) error {
	res1, err := s.probe(addr1)
	if err != nil {
		return err
	}

	res2, err := s.probe(addr2)
	if err != nil {
		return err
	}

	m.Record(addrBit, res1.Slice, res2.Slice)

	return nil
}

func outputBits(nbCores int) int {
	n := 0
	for (1 << n) < nbCores {
		n++
	}

	return n
}

func highBitCeiling(pageSize uintptr) (int, error) {
	free, err := pairgen.FreeHugePages()
	if err != nil {
		return 0, err
	}

	size := uint64(pageSize) * uint64(free)
	if size == 0 {
		size = uint64(pageSize)
	}

	bit := 0
	for (uint64(1) << bit) < size {
		bit++
	}

	return bit - addrBitOffset + 1, nil
}

func pageSize64Log2(pageSize uintptr) uint {
	bit := uint(0)
	for (uintptr(1) << bit) < pageSize {
		bit++
	}

	return bit
}
