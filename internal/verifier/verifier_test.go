package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/tradeportal/internal/netx"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publish serves the wrapped document at a freshly minted locator and
// returns the verifier link of it.
func publish(t *testing.T, tamper bool) string {
	t.Helper()

	var payload []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if payload == nil {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(ts.Close)

	env := oa.New(oa.Config{BaseURL: ts.URL, VerifierHost: "https://verify.example/", KeyBits: 256})
	minted, err := env.Mint()
	require.NoError(t, err)

	wrapped, err := oa.Wrap(map[string]any{"certificateOfOrigin": map[string]any{"id": "WBC-1"}})
	require.NoError(t, err)
	if tamper {
		wrapped.Data = json.RawMessage(`{"certificateOfOrigin":{"id":"WBC-2"}}`)
	}
	enc, err := oa.Encrypt(wrapped, minted.Key)
	require.NoError(t, err)
	payload, err = json.Marshal(enc)
	require.NoError(t, err)

	link, err := env.URLRepresentation(minted.Locator)
	require.NoError(t, err)
	return link
}

func TestVerifier_CheckValid(t *testing.T) {
	link := publish(t, false)

	r, err := New(nil).Check(context.Background(), link)
	require.NoError(t, err)
	assert.Len(t, r.TargetHash, 64)
	assert.JSONEq(t, `{"certificateOfOrigin":{"id":"WBC-1"}}`, string(r.Data))

	var out bytes.Buffer
	Report(&out, r, nil, true)
	assert.Contains(t, out.String(), "VALID")
	assert.Contains(t, out.String(), r.TargetHash)
	assert.Contains(t, out.String(), "  \"certificateOfOrigin\"")
}

func TestVerifier_CheckTampered(t *testing.T) {
	link := publish(t, true)

	_, err := New(nil).Check(context.Background(), link)
	require.ErrorIs(t, err, oa.ErrTargetHashMismatch)

	var out bytes.Buffer
	Report(&out, nil, err, false)
	assert.Contains(t, out.String(), "INVALID")
}

func TestVerifier_CheckWrongKey(t *testing.T) {
	link := publish(t, false)
	loc, err := ParseLink(link)
	require.NoError(t, err)
	loc.Key = "00000000000000000000000000000000000000000000000000000000000000ff"
	raw, err := json.Marshal(loc)
	require.NoError(t, err)

	_, err = New(nil).Check(context.Background(), string(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestVerifier_CheckNotPublished(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	raw, err := json.Marshal(oa.Locator{URI: ts.URL + "/oa/x/", Key: "ab"})
	require.NoError(t, err)

	_, err = New(nil).Check(context.Background(), string(raw))
	require.ErrorIs(t, err, netx.ErrNotFound)

	var out bytes.Buffer
	Report(&out, nil, err, false)
	assert.Contains(t, out.String(), "NOT FOUND")
}

func TestParseLink(t *testing.T) {
	_, err := ParseLink(`{"uri":"https://portal.example/oa/1/"}`)
	assert.ErrorIs(t, err, oa.ErrMalformedURL)

	_, err = ParseLink("https://verify.example/?x=1")
	assert.ErrorIs(t, err, oa.ErrMalformedURL)

	loc, err := ParseLink(` {"uri":"https://portal.example/oa/1/","key":"ab"} `)
	require.NoError(t, err)
	assert.Equal(t, "ab", loc.Key)
}
