package diag_test

import (
	"strings"
	"testing"

	"github.com/llcslice/reverse/asmops"
	"github.com/llcslice/reverse/diag"
)

func TestDecodeSelfCLFlush(t *testing.T) {
	t.Parallel()

	fn := reflectFuncPC(asmops.CLFlush)

	asm, err := diag.DecodeSelf(fn)
	if err != nil {
		t.Fatalf("DecodeSelf: %v", err)
	}

	if asm == "" {
		t.Error("DecodeSelf returned empty instruction text")
	}
}

func TestBannerNeverPanics(t *testing.T) {
	t.Parallel()

	fn := reflectFuncPC(asmops.Mfence)

	banner := diag.Banner(fn)
	if !strings.Contains(banner, "decoded") {
		t.Errorf("Banner() = %q, want it to contain %q", banner, "decoded")
	}
}
