// Package oa implements the OpenAttestation-style envelope around issued
// documents: minting URI+key locators, the verifier URL embedded in QR codes,
// and wrapping/encrypting rendered documents.
package oa

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/tradeportal/internal/cryptox"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	qrSize = 256

	actionTypeDocument = "DOCUMENT"
)

var ErrMalformedURL = errors.New("malformed verifier url")

// Config carries everything the envelope used to read from process settings.
type Config struct {
	// BaseURL is this portal's public address; locators resolve under it.
	BaseURL string
	// VerifierHost is the page QR scanners are sent to.
	VerifierHost string
	// KeyBits is the AES key size for new locators.
	KeyBits int
}

// Locator is the shareable pair that lets a verifier fetch and decrypt a
// wrapped document. Holding it is the verification credential.
type Locator struct {
	URI string `json:"uri"`
	Key string `json:"key"`
}

// Minted is a freshly generated locator together with its identifier.
type Minted struct {
	ID uuid.UUID
	Locator
}

type action struct {
	Type    string  `json:"type"`
	Payload Locator `json:"payload"`
}

type Envelope struct {
	cfg Config
}

func New(cfg Config) *Envelope {
	if cfg.KeyBits == 0 {
		cfg.KeyBits = cryptox.DefaultKeyBits
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Envelope{cfg: cfg}
}

// Mint generates a new identifier, URI and key. It makes no network calls;
// persisting the result is up to the caller.
func (e *Envelope) Mint() (*Minted, error) {
	key, err := cryptox.GenerateKeyHex(e.cfg.KeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	id := uuid.New()
	return &Minted{
		ID: id,
		Locator: Locator{
			URI: fmt.Sprintf("%s/oa/%s/", e.cfg.BaseURL, id),
			Key: key,
		},
	}, nil
}

// URLRepresentation builds "{verifier_host}?q=<urlencoded json>" where the
// JSON is {"type":"DOCUMENT","payload":{"uri":...,"key":...}}.
func (e *Envelope) URLRepresentation(loc Locator) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(action{Type: actionTypeDocument, Payload: loc}); err != nil {
		return "", err
	}
	payload := strings.TrimSuffix(buf.String(), "\n")
	return e.cfg.VerifierHost + "?q=" + quote(payload), nil
}

// DecodeURLRepresentation recovers the locator from a verifier URL.
func DecodeURLRepresentation(raw string) (Locator, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Locator{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	q, err := url.PathUnescape(rawParam(u.RawQuery, "q"))
	if err != nil {
		return Locator{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if q == "" {
		return Locator{}, fmt.Errorf("%w: missing q parameter", ErrMalformedURL)
	}

	var a action
	if err := json.Unmarshal([]byte(q), &a); err != nil {
		return Locator{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if a.Type != actionTypeDocument {
		return Locator{}, fmt.Errorf("%w: unexpected action type %q", ErrMalformedURL, a.Type)
	}
	return a.Payload, nil
}

// QRImage renders the verifier URL for loc as a PNG.
func (e *Envelope) QRImage(loc Locator) ([]byte, error) {
	s, err := e.URLRepresentation(loc)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(s, qrcode.Medium, qrSize)
}

func (e *Envelope) QRImageBase64(loc Locator) (string, error) {
	png, err := e.QRImage(loc)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// rawParam returns the still-escaped value of name from a raw query string.
// url.Values would turn '+' into a space, which quote never produces.
func rawParam(rawQuery, name string) string {
	for _, part := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(part, "=")
		if k == name {
			return v
		}
	}
	return ""
}

const upperhex = "0123456789ABCDEF"

// quote percent-encodes everything except unreserved characters and '/',
// which is what existing QR verifiers were built against.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
