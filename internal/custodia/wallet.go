package custodia

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curavia/custodia/internal/models"
)

// SendTip moves tokens from one user to another. The debit and the credit
// commit in one transaction; an insufficient balance rejects the whole tip.
func (c *Custodia) SendTip(fromUserID, toUserID string, amountTokens int64, note string) error {
	if amountTokens <= 0 {
		return models.ErrInvalidAmount
	}
	if fromUserID == toUserID {
		return fmt.Errorf("cannot tip yourself: %w", models.ErrInvalidAmount)
	}

	_, converter, err := c.settingsAndConverter()
	if err != nil {
		return err
	}
	eurCents := converter.TokensToEurCents(amountTokens)

	debit := &models.LedgerChange{
		UserID:         fromUserID,
		Type:           models.EntryTypeDebit,
		Reason:         models.ReasonTipSent,
		AmountTokens:   amountTokens,
		AmountEurCents: eurCents,
		ReferenceID:    toUserID,
		Description:    note,
	}
	credit := &models.LedgerChange{
		UserID:         toUserID,
		Type:           models.EntryTypeCredit,
		Reason:         models.ReasonTipReceived,
		AmountTokens:   amountTokens,
		AmountEurCents: eurCents,
		ReferenceID:    fromUserID,
		Description:    note,
	}

	if _, err := c.repo.ApplyTransfer(debit, credit); err != nil {
		return err
	}
	c.logger.Info("Tip sent ", "from ", fromUserID, " to ", toUserID, " tokens ", amountTokens)
	return nil
}

// RequestRedemption burns tokens back into EUR. The debit, the burned
// counter and the reserve decrement commit together; the actual EUR payout
// is an operations task outside the ledger.
func (c *Custodia) RequestRedemption(userID string, amountTokens int64) error {
	if amountTokens <= 0 {
		return models.ErrInvalidAmount
	}

	_, converter, err := c.settingsAndConverter()
	if err != nil {
		return err
	}
	eurCents := converter.TokensToEurCents(amountTokens)

	change := &models.LedgerChange{
		UserID:         userID,
		Type:           models.EntryTypeDebit,
		Reason:         models.ReasonTokenRedemption,
		AmountTokens:   amountTokens,
		AmountEurCents: eurCents,
		Description:    "token redemption request",
	}
	if _, err := c.repo.ApplyLedgerChange(change); err != nil {
		return err
	}
	c.logger.Info("Redemption requested ", "user ", userID, " tokens ", amountTokens, " eur_cents ", eurCents)
	return nil
}

// AdjustTokens is the admin correction path. It always writes an ADJUSTMENT
// ledger entry plus an audited admin action with before/after wallet
// snapshots; the ledger itself is never edited.
func (c *Custodia) AdjustTokens(actor *models.AdminActor, userID string, entryType models.EntryType, amountTokens int64, reason string) (*models.LedgerEntry, error) {
	if actor == nil {
		return nil, fmt.Errorf("adjustment requires an admin actor")
	}
	if amountTokens <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if entryType != models.EntryTypeCredit && entryType != models.EntryTypeDebit {
		return nil, fmt.Errorf("unknown entry type %q", entryType)
	}

	_, converter, err := c.settingsAndConverter()
	if err != nil {
		return nil, err
	}

	// The repository fills the before/after snapshots inside the same
	// transaction as the ledger write; an adjustment can never commit
	// without its audit record.
	entry, err := c.repo.ApplyAdjustment(&models.LedgerChange{
		UserID:         userID,
		Type:           entryType,
		Reason:         models.ReasonAdjustment,
		AmountTokens:   amountTokens,
		AmountEurCents: converter.TokensToEurCents(amountTokens),
		Description:    reason,
	}, &models.AdminAction{
		ID:        uuid.NewString(),
		ActorID:   actor.ID,
		Action:    models.AdminActionTokenAdjustment,
		TargetID:  userID,
		Reason:    reason,
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Tokens adjusted ", "user ", userID, " type ", entryType, " tokens ", amountTokens, " actor ", actor.ID)
	return entry, nil
}
