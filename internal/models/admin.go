package models

import "gorm.io/gorm"

// Admin action kinds.
const (
	AdminActionTokenAdjustment  = "token_adjustment"
	AdminActionEscrowResolution = "escrow_resolution"
	AdminActionSettingsUpdate   = "settings_update"
)

// AdminActor identifies the administrator behind a privileged mutation,
// with the request metadata captured for the audit trail.
type AdminActor struct {
	ID        string
	IP        string
	UserAgent string
}

// AdminAction is one audited privileged mutation. The table is append-only.
type AdminAction struct {
	ID      string `json:"id" gorm:"column:id;primaryKey"`
	ActorID string `json:"actor_id" gorm:"column:actor_id;index;not null"`
	Action  string `json:"action" gorm:"column:action;index;not null"`
	// TargetID is the affected entity (user id, contract id).
	TargetID string `json:"target_id" gorm:"column:target_id;index"`
	// Before and After are JSON snapshots of the affected record.
	Before    string `json:"before" gorm:"column:before_snapshot;type:text"`
	After     string `json:"after" gorm:"column:after_snapshot;type:text"`
	Reason    string `json:"reason" gorm:"column:reason"`
	IP        string `json:"ip" gorm:"column:ip"`
	UserAgent string `json:"user_agent" gorm:"column:user_agent"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;index"`
}

func (AdminAction) TableName() string {
	return "admin_actions"
}

// BeforeUpdate rejects mutation of audit records at the data-access layer.
func (AdminAction) BeforeUpdate(*gorm.DB) error {
	return gorm.ErrInvalidData
}

// BeforeDelete rejects deletion of audit records at the data-access layer.
func (AdminAction) BeforeDelete(*gorm.DB) error {
	return gorm.ErrInvalidData
}
