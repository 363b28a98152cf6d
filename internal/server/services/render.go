package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

// RenderInput is what a Renderer gets: the document and the references it
// mentions. Missing references are nil.
type RenderInput struct {
	Document *models.Document
	Issuer   *models.Party
	Exporter *models.Party
	FTA      *models.FTA
}

// Renderer turns a document into its EDI3 certificate representation.
type Renderer interface {
	Render(ctx context.Context, in RenderInput) (map[string]any, error)
}

// CertificateRenderer produces a minimal UN/CEFACT certificate of origin.
type CertificateRenderer struct {
	Now func() time.Time
}

func (r CertificateRenderer) Render(ctx context.Context, in RenderInput) (map[string]any, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	d := in.Document

	coo := map[string]any{
		"id":             d.DocumentNumber,
		"name":           d.Type.Display(),
		"issueDateTime":  now().UTC().Format(time.RFC3339),
		"isPreferential": d.Type == models.TypePrefCOO,
		"exportCountry":  country(d.SendingJurisdiction),
		"importCountry":  country(d.ImportingCountry),
		"supplyChainConsignment": map[string]any{
			"id":          d.ConsignmentRef,
			"consignee":   map[string]any{"name": d.ImporterName},
			"consignor":   party(in.Exporter),
			"destination": country(d.ImportingCountry),
		},
	}
	if in.Issuer != nil {
		coo["issuer"] = party(in.Issuer)
	}
	if in.FTA != nil {
		coo["freeTradeAgreement"] = in.FTA.Name
	}
	return map[string]any{"certificateOfOrigin": coo}, nil
}

func country(code string) map[string]any {
	return map[string]any{"code": code, "name": models.CountryName(code)}
}

func party(p *models.Party) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return map[string]any{
		"id":   p.BusinessID,
		"name": p.Name,
		"postalAddress": map[string]any{
			"line1":       p.Line1,
			"line2":       p.Line2,
			"cityName":    p.CityName,
			"postcode":    p.Postcode,
			"countryCode": p.Country,
		},
	}
}
