package models

// Wallet statuses.
const (
	WalletStatusPending  = "PENDING"
	WalletStatusActive   = "ACTIVE"
	WalletStatusArchived = "ARCHIVED"
)

// PlatformUserID owns the internal settlement wallet that collects platform
// fees. It is seeded together with the platform settings.
const PlatformUserID = "platform"

// Wallet represents a custodial token balance for one user.
// The balance is a cache over the ledger: at all times it must equal the
// signed sum of the user's ledger entries.
type Wallet struct {
	// UserID is the owning user identifier.
	UserID string `json:"user_id" gorm:"column:user_id;primaryKey"`
	// Address is the display address of the wallet. It is derived from the
	// user id and is not an account on any chain.
	Address string `json:"address" gorm:"column:address;uniqueIndex;not null"`
	// BalanceTokens is the cached token balance.
	BalanceTokens int64 `json:"balance_tokens" gorm:"column:balance_tokens;not null;default:0"`
	// BalanceEurCents is the EUR-cent equivalent kept for display.
	BalanceEurCents int64 `json:"balance_eur_cents" gorm:"column:balance_eur_cents;not null;default:0"`
	// Custodial indicates the platform holds the keys. Always true until a
	// wallet export flow exists.
	Custodial bool `json:"custodial" gorm:"column:custodial;default:true"`
	// Status is PENDING until KYC plus the activation payment complete.
	// Wallets are never deleted, only ARCHIVED with the user.
	Status    string `json:"status" gorm:"column:status;index;not null"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;index"`
	UpdatedAt int64  `json:"updated_at" gorm:"column:updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
