package common

import (
	"crypto/rand"
	"math/big"
)

const lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"

// RandomLowercase returns n letters drawn uniformly from a-z.
func RandomLowercase(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(lowercaseLetters)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = lowercaseLetters[idx.Int64()]
	}
	return string(out), nil
}

// WipeByteArray overwrites b with zeros. Used for key material.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
