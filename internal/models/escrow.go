package models

// Escrow hold statuses. Transitions are one-directional:
// HELD -> CAPTURED -> {RELEASED | REFUNDED | SPLIT}, with REFUNDED also
// reachable directly from HELD (cancellation before capture).
const (
	EscrowStatusHeld     = "HELD"
	EscrowStatusCaptured = "CAPTURED"
	EscrowStatusReleased = "RELEASED"
	EscrowStatusRefunded = "REFUNDED"
	EscrowStatusSplit    = "SPLIT"
)

// Escrow resolutions accepted by the escrow manager.
const (
	ResolutionFavorCaregiver = "favor_caregiver"
	ResolutionFavorFamily    = "favor_family"
	ResolutionSplit          = "split"
)

// EscrowTerminal reports whether status is a terminal escrow state.
func EscrowTerminal(status string) bool {
	switch status {
	case EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusSplit:
		return true
	}
	return false
}

// EscrowHold reserves a contract's funds pending resolution.
// Invariant: PlatformFeeCents + CaregiverCents == TotalCents.
type EscrowHold struct {
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// ContractID is the owning contract. One hold per contract.
	ContractID string `json:"contract_id" gorm:"column:contract_id;uniqueIndex;not null"`
	// IntentReference is the provider payment-intent reference. It is the
	// idempotency key for capture events.
	IntentReference  string `json:"intent_reference" gorm:"column:intent_reference;uniqueIndex;not null"`
	TotalCents       int64  `json:"total_cents" gorm:"column:total_cents;not null"`
	PlatformFeeCents int64  `json:"platform_fee_cents" gorm:"column:platform_fee_cents;not null"`
	CaregiverCents   int64  `json:"caregiver_cents" gorm:"column:caregiver_cents;not null"`
	Status           string `json:"status" gorm:"column:status;index;not null"`
	// FamilyShareCents records the family share of a SPLIT resolution.
	FamilyShareCents int64 `json:"family_share_cents,omitempty" gorm:"column:family_share_cents"`
	CreatedAt        int64 `json:"created_at" gorm:"column:created_at"`
	// CapturedAt and ResolvedAt are zero until the transition happens.
	CapturedAt int64 `json:"captured_at,omitempty" gorm:"column:captured_at"`
	ResolvedAt int64 `json:"resolved_at,omitempty" gorm:"column:resolved_at"`
}

func (EscrowHold) TableName() string {
	return "escrow_holds"
}

// EscrowResolution is a request to move a hold to a terminal state.
// Actor is nil when the transition is system-triggered (contract completion,
// provider refund); admin-triggered resolutions are audited.
type EscrowResolution struct {
	ContractID string
	Resolution string
	// FamilyShareCents is the family share for a split. The 50/50 option in
	// the UI is just one caller-chosen value.
	FamilyShareCents int64
	Notes            string
	Actor            *AdminActor
	// ContractStatus, when set, is the contract transition that commits
	// together with the hold resolution (COMPLETED on release, CANCELLED on
	// refund). Empty leaves the contract untouched.
	ContractStatus string
}
