package models

// Contract statuses tracked by the ledger core. The full contract lifecycle
// lives in the contract service; only the payment-relevant states are kept.
const (
	ContractStatusPendingPayment = "PENDING_PAYMENT"
	ContractStatusActive         = "ACTIVE"
	ContractStatusCompleted      = "COMPLETED"
	ContractStatusCancelled      = "CANCELLED"
)

// Contract holds the payment-relevant slice of a care contract: the parties,
// the value inputs for the fee engine, and the per-party acceptance fee state.
type Contract struct {
	ID          string `json:"id" gorm:"column:id;primaryKey"`
	FamilyID    string `json:"family_id" gorm:"column:family_id;index;not null"`
	CaregiverID string `json:"caregiver_id" gorm:"column:caregiver_id;index;not null"`
	// HourlyRateCents and TotalHours are provided by the contract service
	// and drive the fee engine.
	HourlyRateCents int64  `json:"hourly_rate_cents" gorm:"column:hourly_rate_cents;not null"`
	TotalHours      int64  `json:"total_hours" gorm:"column:total_hours;not null"`
	Status          string `json:"status" gorm:"column:status;index;not null"`
	// FamilyFeePaid and CaregiverFeePaid flip on the contract-fee payment
	// callbacks. Once both are set the contract moves to ACTIVE.
	FamilyFeePaid    bool  `json:"family_fee_paid" gorm:"column:family_fee_paid;default:false"`
	CaregiverFeePaid bool  `json:"caregiver_fee_paid" gorm:"column:caregiver_fee_paid;default:false"`
	CreatedAt        int64 `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        int64 `json:"updated_at" gorm:"column:updated_at"`
}

func (Contract) TableName() string {
	return "contracts"
}
