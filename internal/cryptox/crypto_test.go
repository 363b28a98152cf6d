package cryptox

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestGenerateKey_Sizes(t *testing.T) {
	for _, bits := range []int{128, 192, 256} {
		key, err := GenerateKey(bits)
		if err != nil {
			t.Fatalf("bits=%d: unexpected error: %v", bits, err)
		}
		if len(key) != bits/8 {
			t.Fatalf("bits=%d: expected %d bytes, got %d", bits, bits/8, len(key))
		}
	}

	if _, err := GenerateKey(100); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestGenerateKeyHex_UpperCase(t *testing.T) {
	s, err := GenerateKeyHex(DefaultKeyBits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(s))
	}
	if s != strings.ToUpper(s) {
		t.Fatalf("expected upper-case hex, got %q", s)
	}
	key, err := DecodeKeyHex(s)
	if err != nil {
		t.Fatalf("DecodeKeyHex: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}
}

func TestDecodeKeyHex_Errors(t *testing.T) {
	if _, err := DecodeKeyHex("zz"); err == nil {
		t.Fatal("expected error for non-hex input")
	}
	if _, err := DecodeKeyHex("ABCD"); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key, _ := GenerateKey(256)
	msg := []byte(`{"hello":"world"}`)

	s, err := Seal(msg, key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(s.IV) != 12 || len(s.Tag) != 16 {
		t.Fatalf("unexpected iv/tag sizes: %d/%d", len(s.IV), len(s.Tag))
	}
	if len(s.Ciphertext) != len(msg) {
		t.Fatalf("ciphertext length mismatch: %d vs %d", len(s.Ciphertext), len(msg))
	}

	got, err := Open(s, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("round-trip mismatch: %q", got)
	}
}

func TestOpen_DetectsTampering(t *testing.T) {
	key, _ := GenerateKey(256)
	s, err := Seal([]byte("payload"), key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	s.Ciphertext[0] ^= 0xFF
	if _, err := Open(s, key); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	k1, _ := GenerateKey(256)
	k2, _ := GenerateKey(256)
	s, _ := Seal([]byte("payload"), k1)
	if _, err := Open(s, k2); err == nil {
		t.Fatal("expected error for wrong key")
	}
}

func TestSealJSON_OpenJSON(t *testing.T) {
	type doc struct {
		Number string `json:"number"`
	}
	key, _ := GenerateKey(256)
	s, err := SealJSON(doc{Number: "CO-1"}, key)
	if err != nil {
		t.Fatalf("SealJSON: %v", err)
	}
	var out doc
	if err := OpenJSON(s, key, &out); err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	if out.Number != "CO-1" {
		t.Fatalf("unexpected number %q", out.Number)
	}
}

func TestKeccak256_KnownVector(t *testing.T) {
	// keccak256 of the empty string
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got := Keccak256Hex(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := hex.EncodeToString(Keccak256([]byte("a"), []byte("b"))); got != Keccak256Hex([]byte("ab")) {
		t.Fatalf("multi-part hash mismatch: %s", got)
	}
}
