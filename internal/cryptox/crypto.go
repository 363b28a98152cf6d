// Package cryptox holds the symmetric crypto used by the OA envelope:
// key generation, AES-GCM sealing of document payloads and Keccak-256 hashing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// DefaultKeyBits is the key size used when none is configured.
	DefaultKeyBits = 256

	nonceSize = 12
	tagSize   = 16
)

var ErrInvalidKeySize = errors.New("invalid key size")

// Sealed is an AES-GCM ciphertext with its nonce and authentication tag kept
// apart, the layout OA verifiers expect.
type Sealed struct {
	IV         []byte
	Tag        []byte
	Ciphertext []byte
}

// GenerateKey returns bits/8 random bytes. Only AES key sizes are accepted.
func GenerateKey(bits int) ([]byte, error) {
	switch bits {
	case 128, 192, 256:
	default:
		return nil, fmt.Errorf("%w: %d bits", ErrInvalidKeySize, bits)
	}
	key := make([]byte, bits/8)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateKeyHex returns a fresh key as upper-case hex.
func GenerateKeyHex(bits int) (string, error) {
	key, err := GenerateKey(bits)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(key)), nil
}

// DecodeKeyHex parses a hex key in either case.
func DecodeKeyHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeySize, len(key))
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM under key using a fresh random 12-byte
// nonce.
func Seal(plaintext, key []byte) (*Sealed, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := aesgcm.Seal(nil, nonce, plaintext, nil)
	split := len(out) - tagSize

	return &Sealed{
		IV:         nonce,
		Tag:        out[split:],
		Ciphertext: out[:split],
	}, nil
}

// Open reverses Seal. Any tampering with the ciphertext, nonce or tag makes
// it fail.
func Open(s *Sealed, key []byte) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nothing to open")
	}
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(s.IV) != nonceSize || len(s.Tag) != tagSize {
		return nil, errors.New("malformed sealed payload")
	}

	buf := make([]byte, 0, len(s.Ciphertext)+len(s.Tag))
	buf = append(buf, s.Ciphertext...)
	buf = append(buf, s.Tag...)

	return aesgcm.Open(nil, s.IV, buf, nil)
}

// SealJSON serializes v to JSON and seals it.
func SealJSON(v any, key []byte) (*Sealed, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Seal(plaintext, key)
}

// OpenJSON opens s and unmarshals the plaintext into v.
func OpenJSON(s *Sealed, key []byte, v any) error {
	plaintext, err := Open(s, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

// Keccak256 returns the legacy (pre-FIPS) Keccak-256 digest used by
// OpenAttestation target hashes.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hex is Keccak256 as lower-case hex.
func Keccak256Hex(data ...[]byte) string {
	return hex.EncodeToString(Keccak256(data...))
}
