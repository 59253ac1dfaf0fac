package voter_test

import (
	"strings"
	"testing"

	"github.com/llcslice/reverse/voter"
)

func TestMatrixRecordAndThreshold(t *testing.T) {
	t.Parallel()

	m := voter.NewMatrix(2, 4)

	for i := 0; i < voter.ThresholdCore+1; i++ {
		m.Record(2, 0, 1) // bit 2 flips output bit 0 every time
	}

	for i := 0; i < 5; i++ {
		m.Record(3, 0, 1) // bit 3 flips output bit 0 rarely: noise
	}

	sets := m.SupportSets(voter.ThresholdCore)

	if len(sets[0]) != 1 || sets[0][0] != 2 {
		t.Errorf("SupportSets()[0] = %v, want [2]", sets[0])
	}

	if len(sets[1]) != 0 {
		t.Errorf("SupportSets()[1] = %v, want empty", sets[1])
	}
}

func TestFormatSupportSets(t *testing.T) {
	t.Parallel()

	sets := [][]int{{0, 6}, {}}

	got := voter.FormatSupportSets(sets, 6)

	want := "o0 = b6 b12\no1 =\n"
	if got != want {
		t.Errorf("FormatSupportSets() = %q, want %q", got, want)
	}

	if !strings.Contains(got, "o0") {
		t.Fatalf("missing o0 line: %q", got)
	}
}

func TestMatrixRecordRejectsNegativeSlice(t *testing.T) {
	t.Parallel()

	// A negative slice label (e.g. from a probe backend's sentinel
	// error value) must not vote: Go's arithmetic right shift
	// sign-extends a negative int, so (-1>>k)&1 == 1 for every k and a
	// single bad sample would corrupt every output bit's vote row.
	// Record itself drops such samples, whatever the caller passes.
	m := voter.NewMatrix(3, 4)

	for i := 0; i < voter.ThresholdCore+1; i++ {
		m.Record(0, -1, 0)
	}

	sets := m.SupportSets(voter.ThresholdCore)
	for k, s := range sets {
		if len(s) != 0 {
			t.Errorf("SupportSets()[%d] = %v, want empty: a negative slice label must not vote", k, s)
		}
	}
}

func TestMatrixNoVotesYieldsEmptySets(t *testing.T) {
	t.Parallel()

	m := voter.NewMatrix(1, 4)

	sets := m.SupportSets(voter.ThresholdXeon)
	if len(sets) != 1 || len(sets[0]) != 0 {
		t.Errorf("SupportSets() = %v, want one empty set", sets)
	}
}
