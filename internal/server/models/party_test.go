package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParty_SplitBusinessID(t *testing.T) {
	cases := []struct {
		in, prefix, local string
	}{
		{"abr.gov.au:abn:51824753556", "abr.gov.au:abn", "51824753556"},
		{"gov.sg:UEN:T08GA0012B", "gov.sg:UEN", "T08GA0012B"},
		{"51824753556", "", "51824753556"},
		{"prefix:local", "prefix", "local"},
		{"", "", ""},
	}
	for _, c := range cases {
		p := &Party{BusinessID: c.in}
		p.SplitBusinessID()
		assert.Equal(t, c.prefix, p.BIDPrefix, c.in)
		assert.Equal(t, c.local, p.ClearBusinessID, c.in)

		// reconstruct and split again: nothing moves
		assert.Equal(t, c.in, p.JoinedBusinessID())
		p.SplitBusinessID()
		assert.Equal(t, c.prefix, p.BIDPrefix)
		assert.Equal(t, c.local, p.ClearBusinessID)
	}
}

func TestParty_SplitKeepsStoredComponents(t *testing.T) {
	p := &Party{BusinessID: "abr.gov.au:abn:1", BIDPrefix: "custom", ClearBusinessID: "x"}
	p.SplitBusinessID()
	assert.Equal(t, "custom", p.BIDPrefix)
	assert.Equal(t, "x", p.ClearBusinessID)
}

func TestParty_Validate(t *testing.T) {
	for _, bad := range []string{":123", "abr.gov.au:abn:"} {
		p := &Party{BusinessID: bad}
		err := p.Validate()
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, common.ErrorValidation))
	}

	p := &Party{BusinessID: "abr.gov.au:abn:1", Country: "au"}
	require.NoError(t, p.Validate())
	assert.Equal(t, "AU", p.Country)
	assert.Equal(t, PartyOther, p.Type)

	assert.Error(t, (&Party{Country: "XX1"}).Validate())
	assert.Error(t, (&Party{Type: "z"}).Validate())
}

func TestParty_Helpers(t *testing.T) {
	p := &Party{
		Name:       "Acme Exports",
		BusinessID: "51824753556",
		Country:    "AU",
		Line1:      "1 George St",
		CityName:   "Sydney",
		Postcode:   "2000",
	}

	assert.Equal(t, "1 George St, Sydney, 2000, Australia", p.ContactInfo())
	assert.Equal(t, "abr.gov.au:abn:51824753556", p.FullBusinessID("AU", "abr.gov.au:abn"))
	assert.Equal(t, "51824753556", p.FullBusinessID("SG", "gov.sg:UEN"))
	assert.Equal(t, "https://abr.business.gov.au/ABN/View?abn=51824753556", p.RegisterURL("AU", "abr.gov.au:abn"))
	assert.Equal(t, "ABN", p.ReadableIdentifierName("AU", "abr.gov.au:abn"))
	assert.Equal(t, "Acme Exports 51824753556 AU", p.String())

	sg := &Party{BusinessID: "gov.sg:UEN:T08GA0012B", Country: "SG"}
	assert.Equal(t, "https://www.uen.gov.sg/", sg.RegisterURL("AU", "abr.gov.au:abn"))
	assert.Equal(t, "UEN", sg.ReadableIdentifierName("AU", "abr.gov.au:abn"))

	other := &Party{BusinessID: "12345", Country: "CN"}
	assert.Equal(t, "", other.RegisterURL("AU", "abr.gov.au:abn"))
	assert.Equal(t, "Government Identifier", other.ReadableIdentifierName("AU", "abr.gov.au:abn"))

	var nilParty *Party
	assert.Equal(t, "", nilParty.String())
	assert.Equal(t, "", (&Party{}).ContactInfo())
}
