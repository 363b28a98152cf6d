package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWrapped map[string][]byte

func (f fakeWrapped) Serve(ctx context.Context, id string) ([]byte, error) {
	if id == "boom" {
		return nil, errors.New("storage offline")
	}
	b, ok := f[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

type fakeQR struct{}

func (fakeQR) QRImage(ctx context.Context, id string) ([]byte, error) {
	if id != "doc-1" {
		return nil, common.ErrorNotFound
	}
	return []byte("\x89PNG"), nil
}

func newTestRouter(t *testing.T) (http.Handler, *metrics.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	h := New(fakeWrapped{"oa-1": []byte(`{"cipherText":"x"}`)}, fakeQR{}, reg, logging.Discard())
	return h.Router(), m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Wrapped(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := get(t, h, "/oa/oa-1/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"cipherText":"x"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/oa/unknown/").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/oa/boom/").Code)
	assert.NotContains(t, get(t, h, "/oa/boom/").Body.String(), "storage offline")
}

func TestRouter_QR(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := get(t, h, "/documents/doc-1/qr.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte("\x89PNG"), rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/documents/draft/qr.png").Code)
}

func TestRouter_MetricsAndHealth(t *testing.T) {
	h, m := newTestRouter(t)
	m.IncIngested(true)

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tradeportal_node_messages_ingested_total")

	rec = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	h, _ := newTestRouter(t)
	srv := NewServer("127.0.0.1:0", h, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}
