package models

import "time"

// OaLocator is the persisted state of a document's OA envelope. Inbound
// documents start with a placeholder whose URI and key are learned later.
type OaLocator struct {
	ID         string
	CreatedAt  time.Time
	CreatedFor string
	URI        string
	Key        string
	IVBase64   string
	TagBase64  string
	Ciphertext string
	// OAFile is the storage key of the wrapped OA document, once known.
	OAFile string
}

func (l *OaLocator) IsPlaceholder() bool {
	return l.URI == "" && l.Key == ""
}

func (l *OaLocator) String() string {
	return l.URI
}
