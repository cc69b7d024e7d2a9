package auth

import (
	"strings"
	"testing"
)

func TestGenerateVoucherCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := GenerateVoucherCode()
		if err != nil {
			t.Fatalf("GenerateVoucherCode failed: %v", err)
		}
		if len(code) != VoucherCodeLen {
			t.Fatalf("expected length %d, got %d (%q)", VoucherCodeLen, len(code), code)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("character %q outside alphabet in %q", c, code)
			}
		}
		seen[code] = true
	}

	// 100 draws from a 62^10 space should never collide.
	if len(seen) != 100 {
		t.Errorf("expected 100 distinct codes, got %d", len(seen))
	}
}
