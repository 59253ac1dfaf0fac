package platform

import (
	"strings"
	"testing"
)

func TestParseCPUInfoOrderAndFields(t *testing.T) {
	t.Parallel()

	data := `processor	: 0
core id		: 0
initial apicid	: 0

processor	: 1
core id		: 1
initial apicid	: 2

processor	: 2
core id		: 0
initial apicid	: 1
`

	mapping, err := parseCPUInfo(strings.NewReader(data), 3)
	if err != nil {
		t.Fatalf("parseCPUInfo: %v", err)
	}

	want := []ApicCore{
		{ApicID: 0, CoreID: 0},
		{ApicID: 2, CoreID: 1},
		{ApicID: 1, CoreID: 0},
	}

	if len(mapping) != len(want) {
		t.Fatalf("len(mapping) = %d, want %d", len(mapping), len(want))
	}

	for i := range want {
		if mapping[i] != want[i] {
			t.Errorf("mapping[%d] = %+v, want %+v", i, mapping[i], want[i])
		}
	}
}

func TestApicidToCoreID(t *testing.T) {
	t.Parallel()

	mapping := []ApicCore{{ApicID: 0, CoreID: 0}, {ApicID: 2, CoreID: 1}}

	if got := apicidToCoreID(2, mapping); got != 1 {
		t.Errorf("apicidToCoreID(2) = %d, want 1", got)
	}

	if got := apicidToCoreID(99, mapping); got != -1 {
		t.Errorf("apicidToCoreID(99) = %d, want -1", got)
	}
}

func TestVendorStringIsPlausible(t *testing.T) {
	t.Parallel()

	v := VendorString()
	if len(v) != 12 {
		t.Fatalf("VendorString() = %q, want length 12", v)
	}
}

func TestDisplayModelIsNonNegative(t *testing.T) {
	t.Parallel()

	if DisplayModel() < 0 {
		t.Fatalf("DisplayModel() < 0")
	}
}
