package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tradeportal/internal/server/storage"
	"github.com/stretchr/testify/require"
)

const home = "AU"

type fakeSender struct {
	mu   sync.Mutex
	sent []*models.NodeMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, m *models.NodeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

type harness struct {
	rm      *repomanager.MemoryRepositoryManager
	blobs   *storage.MemoryStore
	env     *oa.Envelope
	sender  *fakeSender
	refs    *ReferenceService
	files   *FileService
	oa      *OAService
	docs    *DocumentService
	history *HistoryService
	rec     *ReconciliationService
	ver     *VerificationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	rm := repomanager.NewMemoryRepositoryManager()
	blobs := storage.NewMemoryStore()
	runner := dbx.NewLockingRunner()
	lc := models.Lifecycle{HomeJurisdiction: home}
	log := logging.Discard()
	ftas := cache.NewFTACache(time.Minute)
	env := oa.New(oa.Config{BaseURL: "https://portal.example", VerifierHost: "https://verify.example/", KeyBits: 256})

	h := &harness{rm: rm, blobs: blobs, env: env, sender: &fakeSender{}}
	h.refs = NewReferenceService(nil, rm, ftas)
	h.files = NewFileService(nil, rm, blobs, log)
	h.oa = NewOAService(nil, rm, env, lc, blobs, nil, nil, log)
	h.docs = NewDocumentService(nil, rm, runner, lc, h.oa, h.files, ftas, nil, log)
	h.history = NewHistoryService(nil, rm, runner, log)
	h.rec = NewReconciliationService(nil, rm, runner, lc, h.sender, ftas, nil, log)
	h.ver = NewVerificationService(nil, rm, runner, lc, h.oa, ftas, log)
	return h
}

func (h *harness) draft(t *testing.T) *models.Document {
	t.Helper()
	d, err := h.docs.Create(context.Background(), &models.Document{
		Type:             models.TypeNonPrefCOO,
		DocumentNumber:   "CO-123",
		ImportingCountry: "SG",
		CreatedByOrg:     "org-1",
	})
	require.NoError(t, err)
	return d
}

func (h *harness) issued(t *testing.T) *models.Document {
	t.Helper()
	d, err := h.docs.Issue(context.Background(), h.draft(t).ID, "alice")
	require.NoError(t, err)
	return d
}

// pending returns a document whose outbound message has been handed over.
func (h *harness) pending(t *testing.T) (*models.Document, *models.NodeMessage) {
	t.Helper()
	d := h.issued(t)
	m, err := h.rec.Deliver(context.Background(), d.ID)
	require.NoError(t, err)
	d, err = h.docs.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransportPending, d.Status)
	return d, m
}

func (h *harness) ledger(t *testing.T, documentID string) []*models.HistoryItem {
	t.Helper()
	items, err := h.history.List(context.Background(), documentID)
	require.NoError(t, err)
	return items
}
