// Package models defines the trade portal entities, their closed status
// enumerations and the document lifecycle rules.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
)

const shortIDLen = 6

// IntergovDetails describes the peer-network exchange of a document.
// Keys we do not model are carried through untouched in Extra.
type IntergovDetails struct {
	// Obj is the filename of the inbound attachment holding the canonical
	// object.
	Obj string
	// OADoc is an already unwrapped OA document delivered by the peer.
	OADoc json.RawMessage
	Extra map[string]json.RawMessage
}

func (d IntergovDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+2)
	for k, v := range d.Extra {
		out[k] = v
	}
	if d.Obj != "" {
		b, err := json.Marshal(d.Obj)
		if err != nil {
			return nil, err
		}
		out["obj"] = b
	}
	if len(d.OADoc) > 0 {
		out["oa_doc"] = d.OADoc
	}
	return json.Marshal(out)
}

func (d *IntergovDetails) UnmarshalJSON(b []byte) error {
	*d = IntergovDetails{}
	if len(bytes.TrimSpace(b)) == 0 || bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["obj"]; ok {
		if err := json.Unmarshal(v, &d.Obj); err != nil {
			return fmt.Errorf("intergov obj: %w", err)
		}
		delete(raw, "obj")
	}
	if v, ok := raw["oa_doc"]; ok {
		d.OADoc = v
		delete(raw, "oa_doc")
	}
	if len(raw) > 0 {
		d.Extra = raw
	}
	return nil
}

// Document is one trade certificate and its three status axes.
type Document struct {
	ID            string
	OaID          string
	CreatedAt     time.Time
	CreatedByUser string
	CreatedByOrg  string

	Type                DocumentType
	DocumentNumber      string
	FTAID               int64
	SendingJurisdiction string
	ImportingCountry    string
	IssuerID            string
	ExporterID          string
	ImporterName        string
	ConsignmentRef      string

	IntergovDetails IntergovDetails

	Status             TransportStatus
	VerificationStatus VerificationStatus
	WorkflowStatus     WorkflowStatus

	ExtraData          map[string]any
	RawCertificateData map[string]any

	SearchField string
}

// ShortID is for display only and must not be used for lookups.
func (d *Document) ShortID() string {
	if len(d.ID) <= shortIDLen {
		return d.ID
	}
	return d.ID[len(d.ID)-shortIDLen:]
}

func (d *Document) IsIncoming(home string) bool {
	return d.SendingJurisdiction != home
}

// IsAPICreated reports documents submitted with their certificate payload.
func (d *Document) IsAPICreated() bool {
	v, ok := d.RawCertificateData["certificateOfOrigin"]
	if !ok || v == nil {
		return false
	}
	switch c := v.(type) {
	case map[string]any:
		return len(c) > 0
	case string:
		return c != ""
	case []any:
		return len(c) > 0
	default:
		return true
	}
}

func (d *Document) String() string {
	return fmt.Sprintf("%s #%s", d.Type.Display(), d.ShortID())
}

// Validate checks the fields every document must carry before it is saved.
func (d *Document) Validate() error {
	if _, err := ParseDocumentType(string(d.Type)); err != nil {
		return err
	}
	if d.SendingJurisdiction == "" {
		return fmt.Errorf("%w: sending jurisdiction is required", common.ErrorValidation)
	}
	if d.ImportingCountry == "" {
		return fmt.Errorf("%w: importing country is required", common.ErrorValidation)
	}
	var err error
	if d.SendingJurisdiction, err = NormalizeCountry(d.SendingJurisdiction); err != nil {
		return err
	}
	if d.ImportingCountry, err = NormalizeCountry(d.ImportingCountry); err != nil {
		return err
	}
	if _, err := ParseTransportStatus(string(d.Status)); err != nil {
		return err
	}
	if _, err := ParseVerificationStatus(string(d.VerificationStatus)); err != nil {
		return err
	}
	if _, err := ParseWorkflowStatus(string(d.WorkflowStatus)); err != nil {
		return err
	}
	if d.OaID == "" && d.WorkflowStatus != WorkflowDraft {
		return fmt.Errorf("%w: only draft documents may lack an OA locator", common.ErrorValidation)
	}
	return nil
}

// FillSearchField recomputes SearchField. Missing references contribute
// empty lines.
func (d *Document) FillSearchField(fta *FTA, exporter *Party) {
	d.SearchField = strings.Join([]string{
		d.Type.Display(),
		d.Status.Display(),
		d.ID,
		d.DocumentNumber,
		d.ConsignmentRef,
		CountryName(d.ImportingCountry),
		fta.String(),
		exporter.String(),
	}, "\n")
}
