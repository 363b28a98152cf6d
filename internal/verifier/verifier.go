// Package verifier checks a wrapped OA document the way a verifier page
// does: it decodes the QR link, downloads the encrypted document from the
// locator URI, decrypts it and recomputes the target hash.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/tradeportal/internal/netx"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
)

// Result of a successful check.
type Result struct {
	Locator    oa.Locator
	TargetHash string
	Data       json.RawMessage
}

type Verifier struct {
	client netx.Client
}

// New returns a Verifier using c, or netx.DefaultClient when c is nil.
func New(c netx.Client) *Verifier {
	return &Verifier{client: c}
}

// Check verifies the document behind link. link is either a verifier URL
// carrying the q parameter or the bare JSON locator {"uri":...,"key":...}.
func (v *Verifier) Check(ctx context.Context, link string) (*Result, error) {
	loc, err := ParseLink(link)
	if err != nil {
		return nil, err
	}

	body, err := netx.Fetch(ctx, v.client, loc.URI)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", loc.URI, err)
	}

	var enc oa.EncryptedDocument
	if err := json.Unmarshal(body, &enc); err != nil {
		return nil, fmt.Errorf("malformed encrypted document: %w", err)
	}

	w, err := oa.Decrypt(&enc, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	if err := w.Verify(); err != nil {
		return nil, err
	}

	return &Result{Locator: loc, TargetHash: w.Signature.TargetHash, Data: w.Data}, nil
}

// ParseLink accepts a verifier URL or a JSON locator.
func ParseLink(link string) (oa.Locator, error) {
	link = strings.TrimSpace(link)
	if strings.HasPrefix(link, "{") {
		var loc oa.Locator
		if err := json.Unmarshal([]byte(link), &loc); err != nil {
			return oa.Locator{}, fmt.Errorf("%w: %v", oa.ErrMalformedURL, err)
		}
		if loc.URI == "" || loc.Key == "" {
			return oa.Locator{}, fmt.Errorf("%w: uri and key are required", oa.ErrMalformedURL)
		}
		return loc, nil
	}
	return oa.DecodeURLRepresentation(link)
}

// Report writes a human readable outcome. pretty indents the document data.
func Report(w io.Writer, r *Result, err error, pretty bool) {
	switch {
	case errors.Is(err, oa.ErrTargetHashMismatch):
		fmt.Fprintln(w, "INVALID: document has been tampered with")
		return
	case errors.Is(err, netx.ErrNotFound):
		fmt.Fprintln(w, "NOT FOUND: the document is not published")
		return
	case err != nil:
		fmt.Fprintf(w, "ERROR: %v\n", err)
		return
	}

	fmt.Fprintln(w, "VALID")
	fmt.Fprintf(w, "uri:         %s\n", r.Locator.URI)
	fmt.Fprintf(w, "target hash: %s\n", r.TargetHash)

	data := []byte(r.Data)
	if pretty {
		var buf bytes.Buffer
		if json.Indent(&buf, r.Data, "", "  ") == nil {
			data = buf.Bytes()
		}
	}
	fmt.Fprintf(w, "%s\n", data)
}
