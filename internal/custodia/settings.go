package custodia

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curavia/custodia/internal/models"
)

// UpdateSettings applies an admin settings change and records it in the
// audit log. The token price itself is not mutable here: changing the peg is
// a deliberate migration, not a dashboard toggle.
func (c *Custodia) UpdateSettings(actor *models.AdminActor, update *models.SettingsUpdate) (*models.PlatformSettings, error) {
	if actor == nil {
		return nil, fmt.Errorf("settings update requires an admin actor")
	}

	// Snapshots and the audit record commit with the settings change.
	action := &models.AdminAction{
		ID:        uuid.NewString(),
		ActorID:   actor.ID,
		Action:    models.AdminActionSettingsUpdate,
		TargetID:  fmt.Sprint(models.SettingsID),
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		CreatedAt: time.Now().Unix(),
	}

	settings, err := c.repo.UpdateSettings(func(s *models.PlatformSettings) error {
		if update.ActivationCostCents != nil {
			if *update.ActivationCostCents < 0 {
				return models.ErrInvalidAmount
			}
			s.ActivationCostCents = *update.ActivationCostCents
		}
		if update.ContractFeeCents != nil {
			if *update.ContractFeeCents < 0 {
				return models.ErrInvalidAmount
			}
			s.ContractFeeCents = *update.ContractFeeCents
		}
		if update.PlatformFeePercent != nil {
			if *update.PlatformFeePercent < 0 || *update.PlatformFeePercent > 100 {
				return fmt.Errorf("platform fee percent out of range: %w", models.ErrInvalidAmount)
			}
			s.PlatformFeePercent = *update.PlatformFeePercent
		}
		return nil
	}, action)
	if err != nil {
		return nil, err
	}

	return settings, nil
}
