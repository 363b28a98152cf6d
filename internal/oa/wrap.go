package oa

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/cryptox"
)

const (
	SchemaVersion  = "https://schema.openattestation.com/2.0/schema.json"
	ProofType      = "SHA3MerkleProof"
	EncryptionType = "OPEN-ATTESTATION-TYPE-1"
)

var ErrTargetHashMismatch = errors.New("target hash mismatch")

// Signature is the single-document merkle proof: the root equals the target
// hash and the proof is empty.
type Signature struct {
	Type       string   `json:"type"`
	TargetHash string   `json:"targetHash"`
	Proof      []string `json:"proof"`
	MerkleRoot string   `json:"merkleRoot"`
}

type WrappedDocument struct {
	Version   string          `json:"version"`
	Data      json.RawMessage `json:"data"`
	Signature Signature       `json:"signature"`
}

// EncryptedDocument is what a verifier downloads from a locator URI.
// The key is never part of it.
type EncryptedDocument struct {
	CipherText string `json:"cipherText"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Type       string `json:"type"`
}

// Wrap canonicalizes data and signs it with its Keccak-256 target hash.
func Wrap(data any) (*WrappedDocument, error) {
	canonical, err := canonicalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	hash := cryptox.Keccak256Hex(canonical)
	return &WrappedDocument{
		Version: SchemaVersion,
		Data:    canonical,
		Signature: Signature{
			Type:       ProofType,
			TargetHash: hash,
			Proof:      []string{},
			MerkleRoot: hash,
		},
	}, nil
}

// Verify recomputes the target hash over Data.
func (w *WrappedDocument) Verify() error {
	if w.Signature.Type != ProofType {
		return fmt.Errorf("unsupported proof type %q", w.Signature.Type)
	}
	canonical, err := canonicalJSON(w.Data)
	if err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}
	hash := cryptox.Keccak256Hex(canonical)
	if hash != w.Signature.TargetHash {
		return ErrTargetHashMismatch
	}
	if len(w.Signature.Proof) == 0 && w.Signature.MerkleRoot != hash {
		return ErrTargetHashMismatch
	}
	return nil
}

// Encrypt seals the wrapped document under the hex key of a locator.
func Encrypt(w *WrappedDocument, keyHex string) (*EncryptedDocument, error) {
	key, err := cryptox.DecodeKeyHex(keyHex)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)
	sealed, err := cryptox.SealJSON(w, key)
	if err != nil {
		return nil, err
	}
	enc := base64.StdEncoding
	return &EncryptedDocument{
		CipherText: enc.EncodeToString(sealed.Ciphertext),
		IV:         enc.EncodeToString(sealed.IV),
		Tag:        enc.EncodeToString(sealed.Tag),
		Type:       EncryptionType,
	}, nil
}

// Decrypt opens an EncryptedDocument with the locator key.
func Decrypt(d *EncryptedDocument, keyHex string) (*WrappedDocument, error) {
	if d.Type != "" && d.Type != EncryptionType {
		return nil, fmt.Errorf("unsupported encryption type %q", d.Type)
	}
	key, err := cryptox.DecodeKeyHex(keyHex)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	var sealed cryptox.Sealed
	enc := base64.StdEncoding
	if sealed.Ciphertext, err = enc.DecodeString(d.CipherText); err != nil {
		return nil, fmt.Errorf("cipherText: %w", err)
	}
	if sealed.IV, err = enc.DecodeString(d.IV); err != nil {
		return nil, fmt.Errorf("iv: %w", err)
	}
	if sealed.Tag, err = enc.DecodeString(d.Tag); err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}

	var w WrappedDocument
	if err := cryptox.OpenJSON(&sealed, key, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// canonicalJSON re-encodes v so that object keys are sorted and numbers keep
// their original text.
func canonicalJSON(v any) ([]byte, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
