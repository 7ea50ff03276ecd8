package custodia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curavia/custodia/internal/fees"
	"github.com/curavia/custodia/internal/models"
)

// RegisterContract records the payment-relevant slice of a contract coming
// from the contract service.
func (c *Custodia) RegisterContract(contract *models.Contract) error {
	if contract.HourlyRateCents <= 0 || contract.TotalHours <= 0 {
		return models.ErrInvalidAmount
	}
	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	contract.Status = models.ContractStatusPendingPayment
	now := time.Now().Unix()
	contract.CreatedAt = now
	contract.UpdatedAt = now
	return c.repo.CreateContract(contract)
}

// AcceptContract opens the escrow hold for a contract. The provider call
// happens before any database write; the hold enters HELD and only a
// verified capture webhook moves it forward.
func (c *Custodia) AcceptContract(ctx context.Context, contractID string) (*models.CheckoutSession, error) {
	contract, err := c.repo.GetContract(contractID)
	if err != nil {
		return nil, err
	}

	if _, err := c.repo.GetEscrowHold(contractID); err == nil {
		return nil, fmt.Errorf("contract %s already has an escrow hold", contractID)
	} else if !errors.Is(err, models.ErrEscrowNotFound) {
		return nil, err
	}

	settings, err := c.repo.GetSettings()
	if err != nil {
		return nil, err
	}
	quote := fees.QuoteContract(contract.HourlyRateCents, contract.TotalHours, settings.PlatformFeePercent)
	if quote.TotalCents <= 0 {
		return nil, models.ErrInvalidAmount
	}

	session, err := c.provider.CreateCheckoutSession(ctx, quote.TotalCents, models.CheckoutPurposeEscrow, map[string]string{
		"contract_id": contractID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create escrow checkout: %s", err)
	}

	hold := &models.EscrowHold{
		ID:               uuid.NewString(),
		ContractID:       contractID,
		IntentReference:  session.IntentReference,
		TotalCents:       quote.TotalCents,
		PlatformFeeCents: quote.PlatformFeeCents,
		CaregiverCents:   quote.CaregiverCents,
		Status:           models.EscrowStatusHeld,
		CreatedAt:        time.Now().Unix(),
	}
	if err := c.repo.CreateEscrowHold(hold); err != nil {
		return nil, err
	}

	c.logger.Info("Escrow hold opened ", "contract ", contractID, " total_cents ", quote.TotalCents, " intent ", session.IntentReference)
	return session, nil
}

// CompleteContract releases the escrow to the caregiver and marks the
// contract COMPLETED. The payouts, the hold transition and the contract
// transition commit together.
func (c *Custodia) CompleteContract(contractID string) error {
	_, err := c.resolveHold(&models.EscrowResolution{
		ContractID:     contractID,
		Resolution:     models.ResolutionFavorCaregiver,
		Notes:          "contract completed",
		ContractStatus: models.ContractStatusCompleted,
	})
	return err
}

// CancelContract refunds the family and marks the contract CANCELLED in one
// transaction. A contract cancelled before it was ever accepted has no hold
// to refund.
func (c *Custodia) CancelContract(contractID string) error {
	_, err := c.resolveHold(&models.EscrowResolution{
		ContractID:     contractID,
		Resolution:     models.ResolutionFavorFamily,
		Notes:          "contract cancelled before service",
		ContractStatus: models.ContractStatusCancelled,
	})
	if errors.Is(err, models.ErrEscrowNotFound) {
		return c.repo.SetContractStatus(contractID, models.ContractStatusCancelled)
	}
	return err
}

// ResolveEscrow drives the escrow state machine on an admin decision. Every
// admin resolution is audited.
func (c *Custodia) ResolveEscrow(actor *models.AdminActor, contractID, resolution string, familyShareCents int64, notes string) (*models.EscrowHold, error) {
	if actor == nil {
		return nil, fmt.Errorf("escrow resolution requires an admin actor")
	}
	switch resolution {
	case models.ResolutionFavorCaregiver, models.ResolutionFavorFamily, models.ResolutionSplit:
	default:
		return nil, fmt.Errorf("unknown escrow resolution %q", resolution)
	}

	return c.resolveHold(&models.EscrowResolution{
		ContractID:       contractID,
		Resolution:       resolution,
		FamilyShareCents: familyShareCents,
		Notes:            notes,
		Actor:            actor,
	})
}

// resolveAttempts bounds the re-reads of a hold whose status moved between
// the payout computation and the transition.
const resolveAttempts = 3

// resolveHold computes the payout ledger writes for a resolution and applies
// them together with the terminal transition. Payouts depend on the status
// the hold was observed in, so the repository transition is conditional on
// exactly that status; when a concurrent transition (a capture racing a
// refund) invalidates the read, the hold is re-read and re-priced.
func (c *Custodia) resolveHold(res *models.EscrowResolution) (*models.EscrowHold, error) {
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		resolved, err := c.resolveHoldOnce(res)
		if errors.Is(err, models.ErrEscrowStateChanged) {
			c.logger.Warn("Escrow hold moved during resolution ", "contract ", res.ContractID, " attempt ", attempt+1)
			continue
		}
		return resolved, err
	}
	return nil, models.ErrEscrowStateChanged
}

func (c *Custodia) resolveHoldOnce(res *models.EscrowResolution) (*models.EscrowHold, error) {
	hold, err := c.repo.GetEscrowHold(res.ContractID)
	if err != nil {
		return nil, err
	}
	if models.EscrowTerminal(hold.Status) {
		return nil, models.ErrAlreadyResolved
	}
	// RELEASED and SPLIT pay out funds the provider never confirmed taking;
	// only a refund may resolve a hold still in HELD.
	if hold.Status == models.EscrowStatusHeld && res.Resolution != models.ResolutionFavorFamily {
		return nil, models.ErrEscrowNotCaptured
	}

	contract, err := c.repo.GetContract(res.ContractID)
	if err != nil {
		return nil, err
	}
	_, converter, err := c.settingsAndConverter()
	if err != nil {
		return nil, err
	}

	var toStatus string
	var payouts []*models.LedgerChange

	switch res.Resolution {
	case models.ResolutionFavorCaregiver:
		toStatus = models.EscrowStatusReleased
		if hold.CaregiverCents > 0 {
			payouts = append(payouts, &models.LedgerChange{
				UserID:         contract.CaregiverID,
				Type:           models.EntryTypeCredit,
				Reason:         models.ReasonServicePayment,
				AmountTokens:   converter.EurCentsToTokens(hold.CaregiverCents),
				AmountEurCents: hold.CaregiverCents,
				ReferenceID:    res.ContractID,
				Description:    "escrow release",
			})
		}
		if hold.PlatformFeeCents > 0 {
			payouts = append(payouts, &models.LedgerChange{
				UserID:         models.PlatformUserID,
				Type:           models.EntryTypeCredit,
				Reason:         models.ReasonPlatformFee,
				AmountTokens:   converter.EurCentsToTokens(hold.PlatformFeeCents),
				AmountEurCents: hold.PlatformFeeCents,
				ReferenceID:    res.ContractID,
				Description:    "platform fee",
			})
		}
		res.FamilyShareCents = 0

	case models.ResolutionFavorFamily:
		// Full refund of the principal, fee included. No caregiver credit.
		// A hold still in HELD was never funded, so cancelling it writes no
		// refund credit either.
		toStatus = models.EscrowStatusRefunded
		if hold.Status == models.EscrowStatusCaptured {
			payouts = []*models.LedgerChange{
				{
					UserID:         contract.FamilyID,
					Type:           models.EntryTypeCredit,
					Reason:         models.ReasonAdjustment,
					AmountTokens:   converter.EurCentsToTokens(hold.TotalCents),
					AmountEurCents: hold.TotalCents,
					ReferenceID:    res.ContractID,
					Description:    "escrow refund",
				},
			}
			res.FamilyShareCents = hold.TotalCents
		} else {
			res.FamilyShareCents = 0
		}

	case models.ResolutionSplit:
		if res.FamilyShareCents < 0 || res.FamilyShareCents > hold.CaregiverCents {
			return nil, fmt.Errorf("split family share %d out of range [0, %d]: %w",
				res.FamilyShareCents, hold.CaregiverCents, models.ErrInvalidAmount)
		}
		toStatus = models.EscrowStatusSplit
		caregiverShare := hold.CaregiverCents - res.FamilyShareCents
		if hold.PlatformFeeCents > 0 {
			payouts = append(payouts, &models.LedgerChange{
				UserID:         models.PlatformUserID,
				Type:           models.EntryTypeCredit,
				Reason:         models.ReasonPlatformFee,
				AmountTokens:   converter.EurCentsToTokens(hold.PlatformFeeCents),
				AmountEurCents: hold.PlatformFeeCents,
				ReferenceID:    res.ContractID,
				Description:    "platform fee",
			})
		}
		if res.FamilyShareCents > 0 {
			payouts = append(payouts, &models.LedgerChange{
				UserID:         contract.FamilyID,
				Type:           models.EntryTypeCredit,
				Reason:         models.ReasonAdjustment,
				AmountTokens:   converter.EurCentsToTokens(res.FamilyShareCents),
				AmountEurCents: res.FamilyShareCents,
				ReferenceID:    res.ContractID,
				Description:    "dispute split refund",
			})
		}
		if caregiverShare > 0 {
			payouts = append(payouts, &models.LedgerChange{
				UserID:         contract.CaregiverID,
				Type:           models.EntryTypeCredit,
				Reason:         models.ReasonServicePayment,
				AmountTokens:   converter.EurCentsToTokens(caregiverShare),
				AmountEurCents: caregiverShare,
				ReferenceID:    res.ContractID,
				Description:    "dispute split payout",
			})
		}

	default:
		return nil, fmt.Errorf("unknown escrow resolution %q", res.Resolution)
	}

	resolved, err := c.repo.ResolveEscrowHold(res, payouts, toStatus, hold.Status)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Escrow hold resolved ", "contract ", res.ContractID, " resolution ", res.Resolution, " status ", resolved.Status)
	return resolved, nil
}
