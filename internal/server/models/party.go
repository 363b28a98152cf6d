package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
)

// Party is a trade participant profile. BusinessID may be compound
// ("abr.gov.au:abn:51824753556"); the part before the last colon is kept in
// BIDPrefix and the rest in ClearBusinessID.
type Party struct {
	ID              string
	CreatedByUser   string
	CreatedByOrg    string
	Type            PartyType
	BIDPrefix       string
	ClearBusinessID string
	BusinessID      string
	DotSeparatedID  string
	Name            string
	Country         string
	Postcode        string
	Line1           string
	Line2           string
	CityName        string
	SubDivisionName string
	CreatedAt       time.Time
}

type registry struct {
	prefix string
	name   string
	url    func(bareID string) string
}

var registries = []registry{
	{
		prefix: "abr.gov.au:abn",
		name:   "ABN",
		url:    func(id string) string { return "https://abr.business.gov.au/ABN/View?abn=" + id },
	},
	{
		prefix: "gov.sg:UEN",
		name:   "UEN",
		url:    func(string) string { return "https://www.uen.gov.sg/" },
	},
}

// SplitBusinessID fills BIDPrefix/ClearBusinessID from BusinessID. Components
// already stored are never touched, so calling it again is a no-op.
func (p *Party) SplitBusinessID() {
	if p.BIDPrefix != "" || p.ClearBusinessID != "" {
		return
	}
	if i := strings.LastIndex(p.BusinessID, ":"); i >= 0 {
		p.BIDPrefix, p.ClearBusinessID = p.BusinessID[:i], p.BusinessID[i+1:]
		return
	}
	p.ClearBusinessID = p.BusinessID
}

// JoinedBusinessID rebuilds the identifier from its stored components.
func (p *Party) JoinedBusinessID() string {
	if p.BIDPrefix == "" {
		return p.ClearBusinessID
	}
	return p.BIDPrefix + ":" + p.ClearBusinessID
}

// Validate rejects identifiers whose split would lose information and
// normalizes the party type and country.
func (p *Party) Validate() error {
	if strings.Contains(p.BusinessID, ":") {
		i := strings.LastIndex(p.BusinessID, ":")
		if i == 0 || i == len(p.BusinessID)-1 {
			return fmt.Errorf("%w: malformed business identifier %q", common.ErrorValidation, p.BusinessID)
		}
	}
	t, err := ParsePartyType(string(p.Type))
	if err != nil {
		return err
	}
	p.Type = t
	if p.Country != "" {
		c, err := NormalizeCountry(p.Country)
		if err != nil {
			return err
		}
		p.Country = c
	}
	return nil
}

// ContactInfo joins the non-empty address parts and the country name.
func (p *Party) ContactInfo() string {
	parts := []string{p.Line1, p.Line2, p.CityName, p.Postcode, p.SubDivisionName, CountryName(p.Country)}
	out := parts[:0]
	for _, v := range parts {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ", ")
}

// FullBusinessID prefixes parties of the home country with the home
// registry namespace.
func (p *Party) FullBusinessID(home, bidPrefix string) string {
	if p.Country != "" && p.Country == home {
		return bidPrefix + ":" + p.BusinessID
	}
	return p.BusinessID
}

func (p *Party) registry(home, bidPrefix string) *registry {
	full := p.FullBusinessID(home, bidPrefix)
	for i := range registries {
		if strings.HasPrefix(full, registries[i].prefix) {
			return &registries[i]
		}
	}
	return nil
}

// RegisterURL links to the public business register, or "" when unknown.
func (p *Party) RegisterURL(home, bidPrefix string) string {
	r := p.registry(home, bidPrefix)
	if r == nil {
		return ""
	}
	bare := p.BusinessID
	if i := strings.LastIndex(bare, ":"); i >= 0 {
		bare = bare[i+1:]
	}
	return r.url(bare)
}

func (p *Party) ReadableIdentifierName(home, bidPrefix string) string {
	if r := p.registry(home, bidPrefix); r != nil {
		return r.name
	}
	return "Government Identifier"
}

func (p *Party) String() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", p.Name, p.BusinessID, p.Country))
}
