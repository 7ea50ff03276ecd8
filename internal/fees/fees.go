// Package fees computes contract totals and the platform-fee split.
package fees

import "github.com/shopspring/decimal"

// ContractQuote is the fee breakdown for a contract's total value.
// PlatformFeeCents + CaregiverCents always equals TotalCents exactly.
type ContractQuote struct {
	TotalCents       int64 `json:"total_cents"`
	PlatformFeeCents int64 `json:"platform_fee_cents"`
	CaregiverCents   int64 `json:"caregiver_cents"`
}

// QuoteContract computes the split for a contract. The caregiver amount is
// the remainder after the platform fee, never an independently rounded
// percentage, so the two parts always sum exactly to the total even for
// odd-cent values.
func QuoteContract(hourlyRateCents, totalHours, platformFeePercent int64) ContractQuote {
	total := hourlyRateCents * totalHours
	fee := decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(platformFeePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart()
	return ContractQuote{
		TotalCents:       total,
		PlatformFeeCents: fee,
		CaregiverCents:   total - fee,
	}
}
