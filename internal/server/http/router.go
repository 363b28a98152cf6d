// Package http serves the verifier-facing surface: encrypted OA documents
// under their locator URI, document QR codes and Prometheus metrics.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 30 * time.Second

// WrappedDocuments serves the encrypted document behind a locator.
type WrappedDocuments interface {
	Serve(ctx context.Context, locatorID string) ([]byte, error)
}

// QRImages renders the QR code of a document.
type QRImages interface {
	QRImage(ctx context.Context, documentID string) ([]byte, error)
}

type Handler struct {
	wrapped  WrappedDocuments
	qr       QRImages
	gatherer prometheus.Gatherer
	logger   logging.Logger
}

// New builds the handler. A nil gatherer serves the default registry.
func New(wrapped WrappedDocuments, qr QRImages, g prometheus.Gatherer, l logging.Logger) *Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Handler{wrapped: wrapped, qr: qr, gatherer: g, logger: l.With("module", "http")}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(h.logRequests)

	r.Get("/healthz", h.handleHealth)
	r.Get("/oa/{id}/", h.handleWrapped)
	r.Get("/documents/{id}/qr.png", h.handleQR)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// handleWrapped is fetched cross-origin by browser-based verifiers.
func (h *Handler) handleWrapped(w http.ResponseWriter, r *http.Request) {
	b, err := h.wrapped.Serve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	b, err := h.qr.QRImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(b)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, common.ErrorValidation):
		http.Error(w, "bad request", http.StatusBadRequest)
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
