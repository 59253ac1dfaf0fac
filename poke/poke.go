// Package poke repeatedly clflushes an address to generate last-level
// cache traffic attributable to a single physical line, and reports
// the physical address it just hammered.
package poke

import (
	"github.com/llcslice/reverse/asmops"
	"github.com/llcslice/reverse/pagemap"
)

// NbPokes is the number of clflush executions per call to Poke, enough
// LLC traffic for the uncore counters to accumulate a countable signal.
const NbPokes = 100000

// Poker clflushes addresses and resolves their physical backing,
// reusing a single Translator so repeated pokes of one page do not
// re-read /proc/self/pagemap.
type Poker struct {
	tr *pagemap.Translator
}

// New opens the pagemap translator a Poker needs.
func New() (*Poker, error) {
	tr, err := pagemap.Open()
	if err != nil {
		return nil, err
	}

	return &Poker{tr: tr}, nil
}

// Close releases the underlying pagemap handle.
func (p *Poker) Close() error {
	return p.tr.Close()
}

// Poke clflushes addr NbPokes times and returns the physical address
// it resolves to.
func (p *Poker) Poke(addr uintptr) (uintptr, error) {
	for i := 0; i < NbPokes; i++ {
		asmops.CLFlush(addr)
	}

	return p.tr.Translate(addr)
}
