package custodia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/internal/payments"
	"github.com/curavia/custodia/pkg/validation"
)

// CreateCheckout asks the provider for a checkout session for one of the
// user-facing purposes. The provider call happens strictly outside any
// ledger transaction; the ledger only moves when the webhook confirms the
// payment.
func (c *Custodia) CreateCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutSession, error) {
	settings, err := c.repo.GetSettings()
	if err != nil {
		return nil, err
	}

	var amountCents int64
	metadata := map[string]string{"user_id": req.UserID}

	switch req.Purpose {
	case models.CheckoutPurposeActivation:
		amountCents = settings.ActivationCostCents
	case models.CheckoutPurposeContractFee:
		if _, err := c.repo.GetContract(req.ContractID); err != nil {
			return nil, err
		}
		amountCents = settings.ContractFeeCents
		metadata["contract_id"] = req.ContractID
	case models.CheckoutPurposeTokenPurchase:
		if req.AmountCents <= 0 {
			return nil, models.ErrInvalidAmount
		}
		amountCents = req.AmountCents
	default:
		return nil, fmt.Errorf("unknown checkout purpose %q", req.Purpose)
	}

	return c.provider.CreateCheckoutSession(ctx, amountCents, req.Purpose, metadata)
}

// HandlePaymentEvent processes one raw provider webhook payload. Delivery is
// at-least-once: the provider intent reference is checked against the ledger
// and the escrow holds before any mutation, so a duplicate delivery is a
// safe no-op reported as ErrDuplicateEvent.
func (c *Custodia) HandlePaymentEvent(ctx context.Context, payload []byte) error {
	event, err := payments.ParseEvent(payload)
	if err != nil {
		c.logger.Error("Failed to parse payment event ", "error ", err)
		return err
	}

	if event.Kind == payments.KindUnknown {
		c.logger.Warn("Ignoring unknown payment event kind ", "intent ", event.IntentReference)
		return nil
	}

	processed, err := c.repo.HasExternalRef(event.IntentReference)
	if err != nil {
		return err
	}
	if processed {
		c.logger.Info("Duplicate payment event ", "intent ", event.IntentReference, " kind ", event.Kind)
		return models.ErrDuplicateEvent
	}

	switch event.Kind {
	case payments.KindActivationPaid:
		return c.processActivation(ctx, event)
	case payments.KindTokenPurchase:
		return c.processTokenPurchase(event)
	case payments.KindContractFeePaid:
		return c.processContractFee(event)
	case payments.KindEscrowCaptured:
		return c.processEscrowCapture(event)
	case payments.KindEscrowRefunded:
		return c.processEscrowRefund(event)
	}
	return nil
}

// processActivation creates the wallet if absent, credits the activation
// bonus and marks the wallet ACTIVE, as one transaction. Activation requires
// a VERIFIED KYC status; anything else leaves the event to the provider's
// retry policy.
func (c *Custodia) processActivation(ctx context.Context, event *payments.Event) error {
	if event.UserID == "" {
		return fmt.Errorf("activation event %s has no user: %w", event.IntentReference, models.ErrUnknownPaymentReference)
	}

	status, err := c.kyc.VerificationStatus(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to check KYC status: %s", err)
	}
	if status != models.KYCStatusVerified {
		return fmt.Errorf("user %s is not KYC verified (status %s)", event.UserID, status)
	}

	_, converter, err := c.settingsAndConverter()
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	wallet := &models.Wallet{
		UserID:    event.UserID,
		Address:   validation.DeriveAddress(event.UserID),
		Custodial: true,
		Status:    models.WalletStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ref := event.IntentReference
	if _, err := c.repo.ActivateWallet(wallet, &models.LedgerChange{
		UserID:         event.UserID,
		Type:           models.EntryTypeCredit,
		Reason:         models.ReasonActivationBonus,
		AmountTokens:   converter.EurCentsToTokens(event.AmountCents),
		AmountEurCents: event.AmountCents,
		ExternalRef:    &ref,
		Description:    "account activation",
	}); err != nil {
		return err
	}

	c.logger.Info("Wallet activated ", "user ", event.UserID, " intent ", event.IntentReference)
	return nil
}

func (c *Custodia) processTokenPurchase(event *payments.Event) error {
	if event.UserID == "" {
		return fmt.Errorf("purchase event %s has no user: %w", event.IntentReference, models.ErrUnknownPaymentReference)
	}
	if event.AmountCents <= 0 {
		return models.ErrInvalidAmount
	}

	_, converter, err := c.settingsAndConverter()
	if err != nil {
		return err
	}

	ref := event.IntentReference
	if _, err := c.repo.ApplyLedgerChange(&models.LedgerChange{
		UserID:         event.UserID,
		Type:           models.EntryTypeCredit,
		Reason:         models.ReasonTokenPurchase,
		AmountTokens:   converter.EurCentsToTokens(event.AmountCents),
		AmountEurCents: event.AmountCents,
		ExternalRef:    &ref,
		Description:    "token purchase",
	}); err != nil {
		return err
	}

	c.logger.Info("Tokens purchased ", "user ", event.UserID, " eur_cents ", event.AmountCents)
	return nil
}

// processContractFee debits the acceptance fee from the paying party and
// flips that party's fee flag in one transaction; once both parties have
// paid the contract moves to ACTIVE. An event from a non-party commits
// nothing.
func (c *Custodia) processContractFee(event *payments.Event) error {
	if event.UserID == "" || event.ContractID == "" {
		return fmt.Errorf("contract fee event %s lacks party or contract: %w", event.IntentReference, models.ErrUnknownPaymentReference)
	}

	settings, converter, err := c.settingsAndConverter()
	if err != nil {
		return err
	}

	ref := event.IntentReference
	contract, err := c.repo.ApplyContractFee(&models.LedgerChange{
		UserID:         event.UserID,
		Type:           models.EntryTypeDebit,
		Reason:         models.ReasonContractFee,
		AmountTokens:   converter.EurCentsToTokens(settings.ContractFeeCents),
		AmountEurCents: settings.ContractFeeCents,
		ReferenceID:    event.ContractID,
		ExternalRef:    &ref,
		Description:    "contract acceptance fee",
	}, event.ContractID, event.UserID)
	if err != nil {
		return err
	}

	c.logger.Info("Contract fee paid ", "contract ", event.ContractID, " party ", event.UserID, " status ", contract.Status)
	return nil
}

// processEscrowCapture confirms the provider actually took the funds. The
// transition is idempotent on the intent reference: a capture event for a
// hold no longer in HELD is logged and absorbed, never an error back to the
// provider.
func (c *Custodia) processEscrowCapture(event *payments.Event) error {
	captured, err := c.repo.CaptureEscrowHold(event.IntentReference, time.Now().Unix())
	if err != nil {
		if errors.Is(err, models.ErrEscrowNotFound) {
			return fmt.Errorf("capture event %s matches no hold: %w", event.IntentReference, models.ErrUnknownPaymentReference)
		}
		return err
	}
	if !captured {
		c.logger.Info("Capture event for already-captured hold ", "intent ", event.IntentReference)
		return models.ErrDuplicateEvent
	}

	c.logger.Info("Escrow hold captured ", "intent ", event.IntentReference)
	return nil
}

// processEscrowRefund handles a provider-initiated refund as a full
// favor-family resolution.
func (c *Custodia) processEscrowRefund(event *payments.Event) error {
	hold, err := c.repo.GetEscrowHoldByIntent(event.IntentReference)
	if err != nil {
		if errors.Is(err, models.ErrEscrowNotFound) {
			return fmt.Errorf("refund event %s matches no hold: %w", event.IntentReference, models.ErrUnknownPaymentReference)
		}
		return err
	}

	if _, err := c.resolveHold(&models.EscrowResolution{
		ContractID: hold.ContractID,
		Resolution: models.ResolutionFavorFamily,
		Notes:      "provider refund " + event.IntentReference,
	}); err != nil {
		if errors.Is(err, models.ErrAlreadyResolved) {
			c.logger.Info("Refund event for already-resolved hold ", "intent ", event.IntentReference)
			return models.ErrDuplicateEvent
		}
		return err
	}

	c.logger.Info("Escrow hold refunded ", "intent ", event.IntentReference, " contract ", hold.ContractID)
	return nil
}
