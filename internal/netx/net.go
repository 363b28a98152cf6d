// Package netx holds the plain HTTP calls made by the verifier tooling.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxDocumentSize bounds how much of a wrapped document Fetch will read.
const MaxDocumentSize = 16 << 20

var ErrNotFound = errors.New("document not found")

// Client is the subset of *http.Client used here.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultClient is used by Fetch when nil is passed.
var DefaultClient Client = &http.Client{Timeout: 30 * time.Second}

// Fetch GETs url and returns the body. 404 maps to ErrNotFound, any other
// non-200 status is an error carrying the response text.
func Fetch(ctx context.Context, c Client, url string) ([]byte, error) {
	if c == nil {
		c = DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch failed: %s; body: %s", resp.Status, string(b))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	return body, nil
}
