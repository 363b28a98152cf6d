package common

import (
	"strings"
	"testing"
)

// ---------- RandomLowercase ----------

func TestRandomLowercase_Alphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, err := RandomLowercase(7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s) != 7 {
			t.Fatalf("expected 7 chars, got %q", s)
		}
		if strings.Trim(s, lowercaseLetters) != "" {
			t.Fatalf("unexpected characters in %q", s)
		}
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}
