package models

import "github.com/shopspring/decimal"

// SettingsID is the primary key of the singleton platform settings row.
const SettingsID = 1

// PlatformSettings is the singleton configuration record. It is read inside
// each ledger transaction, never cached indefinitely, and passed explicitly
// into the pricing and fee computations.
type PlatformSettings struct {
	ID uint `json:"id" gorm:"column:id;primaryKey"`
	// ActivationCostCents is the account activation fee in EUR cents.
	ActivationCostCents int64 `json:"activation_cost_cents" gorm:"column:activation_cost_cents;not null"`
	// ContractFeeCents is the per-party contract acceptance fee in EUR cents.
	ContractFeeCents int64 `json:"contract_fee_cents" gorm:"column:contract_fee_cents;not null"`
	// PlatformFeePercent is the platform share of a contract's total value.
	PlatformFeePercent int64 `json:"platform_fee_percent" gorm:"column:platform_fee_percent;not null"`
	// TokenPriceCents is the price of one token in EUR cents. The peg is
	// fixed at 1 token = 0.01 EUR unless explicitly changed for a future
	// cohort; past ledger entries are unaffected because they store both
	// amounts as applied.
	TokenPriceCents decimal.Decimal `json:"token_price_cents" gorm:"column:token_price_cents;type:numeric;not null"`
	// TotalTokensMinted and TotalTokensBurned are only mutated inside
	// wallet-accessor transactions.
	TotalTokensMinted int64 `json:"total_tokens_minted" gorm:"column:total_tokens_minted;not null;default:0"`
	TotalTokensBurned int64 `json:"total_tokens_burned" gorm:"column:total_tokens_burned;not null;default:0"`
	// ReserveEurCents is the EUR held at the payment provider backing the
	// tokens in circulation. A shortfall against circulation is reportable,
	// never silently corrected.
	ReserveEurCents int64 `json:"reserve_eur_cents" gorm:"column:reserve_eur_cents;not null;default:0"`
	// Version bumps on every admin settings update.
	Version   int64 `json:"version" gorm:"column:version;not null;default:1"`
	UpdatedAt int64 `json:"updated_at" gorm:"column:updated_at"`
}

func (PlatformSettings) TableName() string {
	return "platform_settings"
}

// TokensInCirculation returns minted minus burned.
func (s *PlatformSettings) TokensInCirculation() int64 {
	return s.TotalTokensMinted - s.TotalTokensBurned
}
