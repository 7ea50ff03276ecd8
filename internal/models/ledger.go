package models

import "gorm.io/gorm"

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

// Ledger entry reasons.
const (
	ReasonActivationBonus = "ACTIVATION_BONUS"
	ReasonContractFee     = "CONTRACT_FEE"
	ReasonServicePayment  = "SERVICE_PAYMENT"
	ReasonTipSent         = "TIP_SENT"
	ReasonTipReceived     = "TIP_RECEIVED"
	ReasonTokenPurchase   = "TOKEN_PURCHASE"
	ReasonTokenRedemption = "TOKEN_REDEMPTION"
	ReasonPlatformFee     = "PLATFORM_FEE"
	ReasonReferralBonus   = "REFERRAL_BONUS"
	ReasonAdjustment      = "ADJUSTMENT"
)

// ValidReason reports whether reason is one of the enumerated ledger reasons.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonActivationBonus, ReasonContractFee, ReasonServicePayment,
		ReasonTipSent, ReasonTipReceived, ReasonTokenPurchase,
		ReasonTokenRedemption, ReasonPlatformFee, ReasonReferralBonus,
		ReasonAdjustment:
		return true
	}
	return false
}

// LedgerEntry is one immutable balance change. Entries are append-only:
// corrections are new ADJUSTMENT entries, never edits.
type LedgerEntry struct {
	ID     string    `json:"id" gorm:"column:id;primaryKey"`
	UserID string    `json:"user_id" gorm:"column:user_id;index;not null"`
	Type   EntryType `json:"type" gorm:"column:type;not null"`
	Reason string    `json:"reason" gorm:"column:reason;index;not null"`
	// AmountTokens is signed: positive for credits, negative for debits.
	AmountTokens int64 `json:"amount_tokens" gorm:"column:amount_tokens;not null"`
	// AmountEurCents is the EUR-cent equivalent captured at creation time.
	// It is never re-derived from the token amount afterwards.
	AmountEurCents int64 `json:"amount_eur_cents" gorm:"column:amount_eur_cents;not null"`
	// ReferenceID optionally points at the entity that caused the entry
	// (contract id, payment id).
	ReferenceID string `json:"reference_id,omitempty" gorm:"column:reference_id;index"`
	// ExternalRef is the provider-assigned intent reference for entries
	// caused by an external payment event. The unique index is the
	// idempotency backstop for at-least-once webhook delivery.
	ExternalRef *string `json:"external_ref,omitempty" gorm:"column:external_ref;uniqueIndex"`
	// TxHash is a computed reference string for display. Nothing settles
	// on-chain.
	TxHash      string `json:"tx_hash" gorm:"column:tx_hash"`
	Description string `json:"description" gorm:"column:description"`
	CreatedAt   int64  `json:"created_at" gorm:"column:created_at;index"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// BeforeUpdate rejects mutation of ledger entries at the data-access layer.
func (LedgerEntry) BeforeUpdate(*gorm.DB) error {
	return gorm.ErrInvalidData
}

// BeforeDelete rejects deletion of ledger entries at the data-access layer.
func (LedgerEntry) BeforeDelete(*gorm.DB) error {
	return gorm.ErrInvalidData
}

// LedgerChange is the input for a single balance-affecting write. Amounts are
// positive magnitudes; the entry type determines the sign.
type LedgerChange struct {
	UserID         string
	Type           EntryType
	Reason         string
	AmountTokens   int64
	AmountEurCents int64
	ReferenceID    string
	ExternalRef    *string
	Description    string
}
