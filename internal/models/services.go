package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// Checkout purposes accepted by the payment provider client.
const (
	CheckoutPurposeActivation    = "activation"
	CheckoutPurposeTokenPurchase = "token_purchase"
	CheckoutPurposeContractFee   = "contract_fee"
	CheckoutPurposeEscrow        = "escrow"
)

// CheckoutSession is the provider-hosted payment page for one intent.
type CheckoutSession struct {
	URL             string `json:"url"`
	IntentReference string `json:"intent_reference"`
}

// PaymentProvider creates checkout sessions at the external payment rail.
// Calls happen strictly outside ledger transactions; only the webhook that
// confirms the outcome opens one.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, amountCents int64, purpose string, metadata map[string]string) (*CheckoutSession, error)
}

// KYC verification statuses as reported by the provider.
const (
	KYCStatusUnverified = "UNVERIFIED"
	KYCStatusPending    = "PENDING"
	KYCStatusVerified   = "VERIFIED"
	KYCStatusRejected   = "REJECTED"
)

// KYCService is the read-only verification signal gating wallet activation.
type KYCService interface {
	VerificationStatus(ctx context.Context, userID string) (string, error)
}

// AlertService delivers operational alerts (reserve shortfall, reconciliation
// mismatches) to the configured ops channels.
type AlertService interface {
	Alert(subject, message string)
}

// WalletMismatch is one wallet whose cached balance disagrees with the
// signed sum of its ledger entries.
type WalletMismatch struct {
	UserID          string `json:"user_id"`
	BalanceTokens   int64  `json:"balance_tokens"`
	LedgerSumTokens int64  `json:"ledger_sum_tokens"`
}

// ReconciliationReport is the aggregate health check over the ledger.
// Mismatches are reported, never auto-corrected.
type ReconciliationReport struct {
	TotalMinted         int64           `json:"total_minted"`
	TotalBurned         int64           `json:"total_burned"`
	InCirculation       int64           `json:"in_circulation"`
	CirculationEurCents int64           `json:"circulation_eur_cents"`
	ReserveEurCents     int64           `json:"reserve_eur_cents"`
	CoveragePercent     decimal.Decimal `json:"coverage_percent"`
	ReserveShortfall    bool            `json:"reserve_shortfall"`
	WalletMismatches    []WalletMismatch `json:"wallet_mismatches,omitempty"`
	GeneratedAt         int64           `json:"generated_at"`
}

// CheckoutRequest asks for a provider session for one of the user-facing
// payment purposes.
type CheckoutRequest struct {
	UserID      string
	Purpose     string
	ContractID  string
	AmountCents int64
}

// SettingsUpdate carries the admin-mutable platform settings fields. Nil
// fields are left unchanged.
type SettingsUpdate struct {
	ActivationCostCents *int64 `json:"activation_cost_cents,omitempty"`
	ContractFeeCents    *int64 `json:"contract_fee_cents,omitempty"`
	PlatformFeePercent  *int64 `json:"platform_fee_percent,omitempty"`
}

// APIServer serves the HTTP surface.
type APIServer interface {
	Start()
	Shutdown() error
}

// CustodiaService is the application surface consumed by the HTTP layer.
type CustodiaService interface {
	// Start runs the periodic reconciliation sweep until the service stops.
	Start()

	GetWallet(userID string) (*Wallet, error)
	GetWalletByAddress(address string) (*Wallet, error)
	ListLedger(userID string, limit, offset int) ([]*LedgerEntry, error)

	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	// HandlePaymentEvent processes one raw provider webhook payload exactly
	// once. Duplicate deliveries return ErrDuplicateEvent.
	HandlePaymentEvent(ctx context.Context, payload []byte) error

	SendTip(fromUserID, toUserID string, amountTokens int64, note string) error
	RequestRedemption(userID string, amountTokens int64) error

	RegisterContract(contract *Contract) error
	// AcceptContract opens the escrow hold for a contract and returns the
	// provider checkout session funding it.
	AcceptContract(ctx context.Context, contractID string) (*CheckoutSession, error)
	CompleteContract(contractID string) error
	CancelContract(contractID string) error

	AdjustTokens(actor *AdminActor, userID string, entryType EntryType, amountTokens int64, reason string) (*LedgerEntry, error)
	ResolveEscrow(actor *AdminActor, contractID, resolution string, familyShareCents int64, notes string) (*EscrowHold, error)
	UpdateSettings(actor *AdminActor, update *SettingsUpdate) (*PlatformSettings, error)
	Reconcile() (*ReconciliationReport, error)
}
