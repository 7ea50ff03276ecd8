// Package pricing implements the fixed peg between the internal token and
// EUR cents. Conversions are pure; the rate comes from the platform settings
// snapshot taken inside the calling transaction, never from ambient state.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/curavia/custodia/internal/models"
)

// Converter converts between EUR cents and tokens at one settings snapshot.
// Callers store both amounts on the resulting ledger entry and never
// re-derive one currency from the other after the fact.
type Converter struct {
	// priceCents is the price of one token in EUR cents.
	priceCents decimal.Decimal
}

// NewConverter builds a converter from the settings snapshot. A missing or
// non-positive token price is a peg configuration error, fatal to the
// request.
func NewConverter(settings *models.PlatformSettings) (*Converter, error) {
	if settings == nil || settings.TokenPriceCents.Cmp(decimal.Zero) <= 0 {
		return nil, models.ErrPegConfiguration
	}
	return &Converter{priceCents: settings.TokenPriceCents}, nil
}

// EurCentsToTokens converts an EUR-cent amount to tokens, rounding half away
// from zero, applied once.
func (c *Converter) EurCentsToTokens(cents int64) int64 {
	return decimal.NewFromInt(cents).Div(c.priceCents).Round(0).IntPart()
}

// TokensToEurCents converts a token amount to EUR cents, rounding half away
// from zero, applied once.
func (c *Converter) TokensToEurCents(tokens int64) int64 {
	return decimal.NewFromInt(tokens).Mul(c.priceCents).Round(0).IntPart()
}
