package models

import (
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/filex"
)

// DocumentFile is an artifact attached to a document. File and OriginalFile
// are storage keys; Filename is the uploader's name, kept for display only.
type DocumentFile struct {
	ID           string
	DocumentID   string
	CreatedAt    time.Time
	CreatedBy    string
	File         string
	OriginalFile string
	Filename     string
	Size         int64
	// IsWatermarked: nil means not applicable, false pending, true done.
	IsWatermarked *bool
	Metadata      map[string]any
}

func (f *DocumentFile) String() string { return f.Filename }

func (f *DocumentFile) ShortFilename() string { return filex.ShortFilename(f.Filename) }

func (f *DocumentFile) Extension() string { return filex.DisplayExt(f.Filename) }

func (f *DocumentFile) MimeType() string { return filex.MimeType(f.Filename) }

func (f *DocumentFile) SizeDisplay() string { return filex.SizeDisplay(f.Size) }

// WatermarkState names the tri-state for display and logs.
func (f *DocumentFile) WatermarkState() string {
	switch {
	case f.IsWatermarked == nil:
		return "not-applicable"
	case *f.IsWatermarked:
		return "done"
	default:
		return "pending"
	}
}
