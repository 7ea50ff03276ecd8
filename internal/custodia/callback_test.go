package custodia

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/internal/payments"
	"github.com/curavia/custodia/pkg/logger"
)

// haltingRepo fails the first atomic webhook write the way a dropped
// database connection would, then recovers.
type haltingRepo struct {
	models.Repository
	failures int
}

func (r *haltingRepo) ActivateWallet(wallet *models.Wallet, change *models.LedgerChange) (*models.LedgerEntry, error) {
	if r.failures > 0 {
		r.failures--
		return nil, fmt.Errorf("connection reset during activation")
	}
	return r.Repository.ActivateWallet(wallet, change)
}

func (r *haltingRepo) ApplyContractFee(change *models.LedgerChange, contractID, partyUserID string) (*models.Contract, error) {
	if r.failures > 0 {
		r.failures--
		return nil, fmt.Errorf("connection reset during contract fee")
	}
	return r.Repository.ApplyContractFee(change, contractID, partyUserID)
}

func eventPayload(kind, reference string, amountCents int64, userID, contractID string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":%q,"reference":%q,"amount_cents":%d,"metadata":{"user_id":%q,"contract_id":%q}}`,
		kind, reference, amountCents, userID, contractID))
}

func TestActivationCreditsBonusAndActivatesWallet(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	payload := eventPayload("activation.paid", "pi_act_1", 3500, "family-1", "")
	if err := env.svc.HandlePaymentEvent(ctx, payload); err != nil {
		t.Fatalf("failed to process activation: %s", err)
	}

	wallet, err := env.repo.GetWallet("family-1")
	if err != nil {
		t.Fatalf("expected wallet after activation, got error: %s", err)
	}
	if wallet.Status != models.WalletStatusActive {
		t.Errorf("expected wallet ACTIVE, got %s", wallet.Status)
	}
	if wallet.BalanceTokens != 3500 {
		t.Errorf("expected balance 3500, got %d", wallet.BalanceTokens)
	}
	if !wallet.Custodial {
		t.Error("expected custodial wallet")
	}

	settings := env.settings(t)
	if settings.TotalTokensMinted != 3500 {
		t.Errorf("expected minted 3500, got %d", settings.TotalTokensMinted)
	}
	if settings.ReserveEurCents != 3500 {
		t.Errorf("expected reserve 3500, got %d", settings.ReserveEurCents)
	}
}

func TestDuplicateActivationIsNoOp(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	payload := eventPayload("activation.paid", "pi_act_1", 3500, "family-1", "")
	if err := env.svc.HandlePaymentEvent(ctx, payload); err != nil {
		t.Fatalf("failed to process activation: %s", err)
	}
	err := env.svc.HandlePaymentEvent(ctx, payload)
	if !errors.Is(err, models.ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}

	if got := env.balance(t, "family-1"); got != 3500 {
		t.Errorf("expected balance still 3500 after duplicate, got %d", got)
	}
	if got := env.settings(t).TotalTokensMinted; got != 3500 {
		t.Errorf("expected minted still 3500 after duplicate, got %d", got)
	}
}

func TestActivationRequiresVerifiedKYC(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.kyc.status = models.KYCStatusPending

	payload := eventPayload("activation.paid", "pi_act_1", 3500, "family-1", "")
	if err := env.svc.HandlePaymentEvent(context.Background(), payload); err == nil {
		t.Fatal("expected error for unverified user")
	}
	if _, err := env.repo.GetWallet("family-1"); !errors.Is(err, models.ErrWalletNotFound) {
		t.Errorf("expected no wallet for unverified user, got %v", err)
	}
}

func TestTokenPurchaseCreditsAtPeg(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 0)

	payload := eventPayload("tokens.purchased", "pi_buy_1", 2000, "family-1", "")
	if err := env.svc.HandlePaymentEvent(context.Background(), payload); err != nil {
		t.Fatalf("failed to process purchase: %s", err)
	}

	if got := env.balance(t, "family-1"); got != 2000 {
		t.Errorf("expected balance 2000, got %d", got)
	}
	if got := env.settings(t).ReserveEurCents; got != 2000 {
		t.Errorf("expected reserve 2000, got %d", got)
	}
}

func TestContractFeeActivatesAfterBothParties(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 1000)
	env.createWallet(t, "caregiver-1", 1000)

	contract := &models.Contract{ID: "ct-1", FamilyID: "family-1", CaregiverID: "caregiver-1", HourlyRateCents: 2500, TotalHours: 20}
	if err := env.svc.RegisterContract(contract); err != nil {
		t.Fatalf("failed to register contract: %s", err)
	}

	ctx := context.Background()
	if err := env.svc.HandlePaymentEvent(ctx, eventPayload("contract_fee.paid", "pi_fee_f", 500, "family-1", "ct-1")); err != nil {
		t.Fatalf("failed to process family fee: %s", err)
	}

	got, err := env.repo.GetContract("ct-1")
	if err != nil {
		t.Fatalf("failed to get contract: %s", err)
	}
	if got.Status != models.ContractStatusPendingPayment {
		t.Errorf("expected contract still PENDING_PAYMENT, got %s", got.Status)
	}

	if err := env.svc.HandlePaymentEvent(ctx, eventPayload("contract_fee.paid", "pi_fee_c", 500, "caregiver-1", "ct-1")); err != nil {
		t.Fatalf("failed to process caregiver fee: %s", err)
	}

	got, err = env.repo.GetContract("ct-1")
	if err != nil {
		t.Fatalf("failed to get contract: %s", err)
	}
	if got.Status != models.ContractStatusActive {
		t.Errorf("expected contract ACTIVE, got %s", got.Status)
	}
	if !got.FamilyFeePaid || !got.CaregiverFeePaid {
		t.Error("expected both fee flags set")
	}

	if got := env.balance(t, "family-1"); got != 500 {
		t.Errorf("expected family balance 500 after fee, got %d", got)
	}
	if got := env.balance(t, "caregiver-1"); got != 500 {
		t.Errorf("expected caregiver balance 500 after fee, got %d", got)
	}
}

func TestContractFeeFromStrangerRejected(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 1000)
	env.createWallet(t, "stranger", 1000)

	contract := &models.Contract{ID: "ct-1", FamilyID: "family-1", CaregiverID: "caregiver-1", HourlyRateCents: 2500, TotalHours: 20}
	if err := env.svc.RegisterContract(contract); err != nil {
		t.Fatalf("failed to register contract: %s", err)
	}

	err := env.svc.HandlePaymentEvent(context.Background(), eventPayload("contract_fee.paid", "pi_fee_x", 500, "stranger", "ct-1"))
	if !errors.Is(err, models.ErrUnknownPaymentReference) {
		t.Fatalf("expected ErrUnknownPaymentReference, got %v", err)
	}
	if got := env.balance(t, "stranger"); got != 1000 {
		t.Errorf("expected stranger balance untouched at 1000, got %d", got)
	}
}

func TestUnknownEventKindIgnored(t *testing.T) {
	env := newTestEnv(t, testConfig())

	payload := eventPayload("invoice.finalized", "pi_other_1", 100, "family-1", "")
	if err := env.svc.HandlePaymentEvent(context.Background(), payload); err != nil {
		t.Fatalf("expected unknown kind to be ignored, got %v", err)
	}
}

func TestMalformedPayloadRejected(t *testing.T) {
	env := newTestEnv(t, testConfig())

	cases := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("not json")},
		{"missing reference", []byte(`{"type":"activation.paid","amount_cents":3500}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.svc.HandlePaymentEvent(context.Background(), tc.payload)
			if !errors.Is(err, payments.ErrMalformedEvent) {
				t.Errorf("expected ErrMalformedEvent, got %v", err)
			}
		})
	}
}

func TestCreateCheckoutAmounts(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 0)

	contract := &models.Contract{ID: "ct-1", FamilyID: "family-1", CaregiverID: "caregiver-1", HourlyRateCents: 2500, TotalHours: 20}
	if err := env.svc.RegisterContract(contract); err != nil {
		t.Fatalf("failed to register contract: %s", err)
	}

	ctx := context.Background()
	cases := []struct {
		name string
		req  *models.CheckoutRequest
		ok   bool
	}{
		{"activation", &models.CheckoutRequest{UserID: "family-1", Purpose: models.CheckoutPurposeActivation}, true},
		{"contract fee", &models.CheckoutRequest{UserID: "family-1", Purpose: models.CheckoutPurposeContractFee, ContractID: "ct-1"}, true},
		{"contract fee unknown contract", &models.CheckoutRequest{UserID: "family-1", Purpose: models.CheckoutPurposeContractFee, ContractID: "nope"}, false},
		{"purchase", &models.CheckoutRequest{UserID: "family-1", Purpose: models.CheckoutPurposeTokenPurchase, AmountCents: 1500}, true},
		{"purchase without amount", &models.CheckoutRequest{UserID: "family-1", Purpose: models.CheckoutPurposeTokenPurchase}, false},
		{"unknown purpose", &models.CheckoutRequest{UserID: "family-1", Purpose: "subscription"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session, err := env.svc.CreateCheckout(ctx, tc.req)
			if tc.ok && (err != nil || session.IntentReference == "") {
				t.Errorf("expected session, got %v %v", session, err)
			}
			if !tc.ok && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestActivationFailedDeliveryLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t, testConfig())
	svc, err := NewCustodia(&haltingRepo{Repository: env.repo, failures: 1},
		env.provider, env.kyc, env.alerter, logger.NewNopLogger(), testConfig())
	if err != nil {
		t.Fatalf("failed to build service: %s", err)
	}
	ctx := context.Background()

	payload := eventPayload("activation.paid", "pi_act_retry", 3500, "family-1", "")
	if err := svc.HandlePaymentEvent(ctx, payload); err == nil {
		t.Fatal("expected first delivery to fail")
	}

	// Nothing may survive the failed delivery: no wallet, no credit, no
	// consumed intent reference.
	if _, err := env.repo.GetWallet("family-1"); !errors.Is(err, models.ErrWalletNotFound) {
		t.Fatalf("expected no wallet after failed delivery, got %v", err)
	}
	if got := env.ledgerSum(t, "family-1"); got != 0 {
		t.Errorf("expected empty ledger after failed delivery, got %d", got)
	}

	// The provider redelivers the same event. It must apply in full
	// instead of being absorbed as a duplicate.
	if err := svc.HandlePaymentEvent(ctx, payload); err != nil {
		t.Fatalf("expected redelivery to succeed, got %v", err)
	}
	wallet, err := env.repo.GetWallet("family-1")
	if err != nil {
		t.Fatalf("expected wallet after redelivery, got error: %s", err)
	}
	if wallet.Status != models.WalletStatusActive {
		t.Errorf("expected wallet ACTIVE, got %s", wallet.Status)
	}
	if wallet.BalanceTokens != 3500 {
		t.Errorf("expected balance 3500, got %d", wallet.BalanceTokens)
	}
	if got := env.ledgerSum(t, "family-1"); got != 3500 {
		t.Errorf("expected ledger sum 3500, got %d", got)
	}
}

func TestContractFeeFailedDeliveryLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 1000)
	env.createWallet(t, "caregiver-1", 1000)
	contract := &models.Contract{ID: "ct-1", FamilyID: "family-1", CaregiverID: "caregiver-1", HourlyRateCents: 2500, TotalHours: 20}
	if err := env.svc.RegisterContract(contract); err != nil {
		t.Fatalf("failed to register contract: %s", err)
	}

	svc, err := NewCustodia(&haltingRepo{Repository: env.repo, failures: 1},
		env.provider, env.kyc, env.alerter, logger.NewNopLogger(), testConfig())
	if err != nil {
		t.Fatalf("failed to build service: %s", err)
	}
	ctx := context.Background()

	payload := eventPayload("contract_fee.paid", "pi_fee_retry", 500, "family-1", "ct-1")
	if err := svc.HandlePaymentEvent(ctx, payload); err == nil {
		t.Fatal("expected first delivery to fail")
	}
	if got := env.balance(t, "family-1"); got != 1000 {
		t.Errorf("expected balance untouched at 1000, got %d", got)
	}

	if err := svc.HandlePaymentEvent(ctx, payload); err != nil {
		t.Fatalf("expected redelivery to succeed, got %v", err)
	}
	if got := env.balance(t, "family-1"); got != 500 {
		t.Errorf("expected balance 500 after fee, got %d", got)
	}
	got, err := env.repo.GetContract("ct-1")
	if err != nil {
		t.Fatalf("failed to get contract: %s", err)
	}
	if !got.FamilyFeePaid {
		t.Error("expected family fee flag set after redelivery")
	}
}
