package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
)

// MessageEvent is a compact record in a NodeMessage's own history.
type MessageEvent struct {
	At     time.Time     `json:"at"`
	Kind   string        `json:"kind"`
	Status MessageStatus `json:"status"`
	Note   string        `json:"note,omitempty"`
}

const (
	EventReceived = "received"
	EventStatus   = "status"
	EventSent     = "sent"
)

// Message directions as carried by node callbacks.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// ParseDirection reports whether s is the outbound direction. An empty
// direction is inbound.
func ParseDirection(s string) (bool, error) {
	switch s {
	case "", DirectionInbound:
		return false, nil
	case DirectionOutbound:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown direction %q", common.ErrorValidation, s)
	}
}

// NodeMessage is one message exchanged with the peer network. SenderRef is
// globally unique and is the deduplication key. DocumentID may be empty until
// the message is correlated.
type NodeMessage struct {
	ID         string
	DocumentID string
	CreatedAt  time.Time
	Status     MessageStatus
	SenderRef  string
	Subject    string
	Body       json.RawMessage
	History    []MessageEvent
	IsOutbound bool
}

func (m *NodeMessage) String() string {
	if m.SenderRef != "" {
		return m.SenderRef
	}
	return m.ID
}
