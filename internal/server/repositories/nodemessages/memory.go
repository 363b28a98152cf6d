package nodemessages

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

// MemoryRepository keeps messages in a map with a sender_ref index. All
// mutations run under one mutex, which makes Upsert atomic.
type MemoryRepository struct {
	mu       sync.RWMutex
	seq      int64
	messages map[string]*stored
	byRef    map[string]string
}

type stored struct {
	models.NodeMessage
	seq int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		messages: make(map[string]*stored),
		byRef:    make(map[string]string),
	}
}

func copyMessage(m models.NodeMessage) *models.NodeMessage {
	m.Body = bytes.Clone(m.Body)
	m.History = append([]models.MessageEvent(nil), m.History...)
	return &m
}

func (r *MemoryRepository) insert(m *models.NodeMessage) {
	r.seq++
	m.CreatedAt = time.Now().UTC()
	r.messages[m.ID] = &stored{NodeMessage: *copyMessage(*m), seq: r.seq}
	r.byRef[m.SenderRef] = m.ID
}

func (r *MemoryRepository) Create(ctx context.Context, m *models.NodeMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byRef[m.SenderRef]; ok {
		return common.ErrorAlreadyExists
	}
	if _, ok := r.messages[m.ID]; ok {
		return common.ErrorAlreadyExists
	}
	r.insert(m)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.NodeMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.messages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyMessage(s.NodeMessage), nil
}

func (r *MemoryRepository) GetBySenderRef(ctx context.Context, senderRef string) (*models.NodeMessage, error) {
	r.mu.RLock()
	id, ok := r.byRef[senderRef]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, id string) (*models.NodeMessage, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.NodeMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []*stored
	for _, s := range r.messages {
		if s.DocumentID == documentID {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	result := make([]*models.NodeMessage, 0, len(list))
	for _, s := range list {
		result = append(result, copyMessage(s.NodeMessage))
	}
	return result, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, m *models.NodeMessage, ev models.MessageEvent) (*models.NodeMessage, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byRef[m.SenderRef]
	if !ok {
		fresh := copyMessage(*m)
		fresh.History = []models.MessageEvent{ev}
		r.insert(fresh)
		return copyMessage(r.messages[fresh.ID].NodeMessage), true, nil
	}

	s := r.messages[id]
	s.Body = bytes.Clone(m.Body)
	if m.Subject != "" {
		s.Subject = m.Subject
	}
	if s.DocumentID == "" {
		s.DocumentID = m.DocumentID
	}
	s.History = append(s.History, ev)
	return copyMessage(s.NodeMessage), false, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status models.MessageStatus, ev models.MessageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.messages[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.Status = status
	s.History = append(s.History, ev)
	return nil
}

// DeleteByDocument drops messages linked to a deleted document.
func (r *MemoryRepository) DeleteByDocument(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.messages {
		if s.DocumentID == documentID {
			delete(r.byRef, s.SenderRef)
			delete(r.messages, id)
		}
	}
}
