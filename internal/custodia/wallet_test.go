package custodia

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/curavia/custodia/internal/models"
)

func TestSendTip(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 100)
	env.createWallet(t, "caregiver-1", 0)

	if err := env.svc.SendTip("family-1", "caregiver-1", 30, "thank you"); err != nil {
		t.Fatalf("failed to send tip: %s", err)
	}

	if got := env.balance(t, "family-1"); got != 70 {
		t.Errorf("expected sender balance 70, got %d", got)
	}
	if got := env.balance(t, "caregiver-1"); got != 30 {
		t.Errorf("expected recipient balance 30, got %d", got)
	}

	// The cached balances must agree with the signed ledger sums.
	for _, userID := range []string{"family-1", "caregiver-1"} {
		if env.balance(t, userID) != env.ledgerSum(t, userID) {
			t.Errorf("wallet %s disagrees with its ledger sum", userID)
		}
	}
}

func TestSendTipRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 100)
	env.createWallet(t, "caregiver-1", 0)

	cases := []struct {
		name   string
		from   string
		to     string
		amount int64
	}{
		{"zero amount", "family-1", "caregiver-1", 0},
		{"negative amount", "family-1", "caregiver-1", -5},
		{"self tip", "family-1", "family-1", 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.svc.SendTip(tc.from, tc.to, tc.amount, "")
			if !errors.Is(err, models.ErrInvalidAmount) {
				t.Errorf("expected ErrInvalidAmount, got %v", err)
			}
		})
	}

	if got := env.balance(t, "family-1"); got != 100 {
		t.Errorf("expected sender balance unchanged at 100, got %d", got)
	}
}

func TestSendTipInsufficientFundsRollsBack(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 10)
	env.createWallet(t, "caregiver-1", 0)

	err := env.svc.SendTip("family-1", "caregiver-1", 50, "")
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if got := env.balance(t, "family-1"); got != 10 {
		t.Errorf("expected sender balance unchanged at 10, got %d", got)
	}
	if got := env.balance(t, "caregiver-1"); got != 0 {
		t.Errorf("expected recipient balance unchanged at 0, got %d", got)
	}
	if got := env.ledgerSum(t, "caregiver-1"); got != 0 {
		t.Errorf("expected no ledger writes for recipient, got sum %d", got)
	}
}

func TestRequestRedemptionBurnsAndShrinksReserve(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "caregiver-1", 0)

	// Fund through a purchase so the mint counters move first.
	if _, err := env.repo.ApplyLedgerChange(&models.LedgerChange{
		UserID:         "caregiver-1",
		Type:           models.EntryTypeCredit,
		Reason:         models.ReasonTokenPurchase,
		AmountTokens:   100,
		AmountEurCents: 100,
	}); err != nil {
		t.Fatalf("failed to fund wallet: %s", err)
	}

	if err := env.svc.RequestRedemption("caregiver-1", 40); err != nil {
		t.Fatalf("failed to request redemption: %s", err)
	}

	if got := env.balance(t, "caregiver-1"); got != 60 {
		t.Errorf("expected balance 60, got %d", got)
	}
	settings := env.settings(t)
	if settings.TotalTokensMinted != 100 {
		t.Errorf("expected minted 100, got %d", settings.TotalTokensMinted)
	}
	if settings.TotalTokensBurned != 40 {
		t.Errorf("expected burned 40, got %d", settings.TotalTokensBurned)
	}
	if settings.ReserveEurCents != 60 {
		t.Errorf("expected reserve 60 cents, got %d", settings.ReserveEurCents)
	}
	if got := settings.TokensInCirculation(); got != 60 {
		t.Errorf("expected 60 tokens in circulation, got %d", got)
	}
}

func TestRequestRedemptionInsufficientFunds(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "caregiver-1", 5)

	err := env.svc.RequestRedemption("caregiver-1", 50)
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := env.balance(t, "caregiver-1"); got != 5 {
		t.Errorf("expected balance unchanged at 5, got %d", got)
	}
}

func TestAdjustTokensWritesAuditTrail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "user-1", 0)

	actor := &models.AdminActor{ID: "admin-1", IP: "10.0.0.1", UserAgent: "curl"}
	entry, err := env.svc.AdjustTokens(actor, "user-1", models.EntryTypeCredit, 25, "support credit")
	if err != nil {
		t.Fatalf("failed to adjust tokens: %s", err)
	}

	if entry.Reason != models.ReasonAdjustment {
		t.Errorf("expected reason ADJUSTMENT, got %s", entry.Reason)
	}
	if entry.AmountTokens != 25 {
		t.Errorf("expected signed amount 25, got %d", entry.AmountTokens)
	}
	if got := env.balance(t, "user-1"); got != 25 {
		t.Errorf("expected balance 25, got %d", got)
	}

	// Adjustments never move the mint counters.
	settings := env.settings(t)
	if settings.TotalTokensMinted != 0 || settings.ReserveEurCents != 0 {
		t.Errorf("expected counters untouched, got minted %d reserve %d",
			settings.TotalTokensMinted, settings.ReserveEurCents)
	}

	actions := env.adminActions(t, "user-1")
	if len(actions) != 1 {
		t.Fatalf("expected 1 admin action, got %d", len(actions))
	}
	if actions[0].Action != models.AdminActionTokenAdjustment {
		t.Errorf("expected token adjustment action, got %s", actions[0].Action)
	}
	var after models.Wallet
	if err := json.Unmarshal([]byte(actions[0].After), &after); err != nil {
		t.Fatalf("failed to decode after snapshot: %s", err)
	}
	if after.BalanceTokens != 25 {
		t.Errorf("expected after snapshot balance 25, got %d", after.BalanceTokens)
	}
}

func TestAdjustTokensAuditCommitsWithLedger(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "user-1", 10)

	// A rejected debit must roll back the whole adjustment, audit record
	// included.
	actor := &models.AdminActor{ID: "admin-1", IP: "10.0.0.1", UserAgent: "curl"}
	if _, err := env.svc.AdjustTokens(actor, "user-1", models.EntryTypeDebit, 50, "clawback"); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := len(env.adminActions(t, "user-1")); got != 0 {
		t.Errorf("expected no admin actions after failed adjustment, got %d", got)
	}
	if got := env.balance(t, "user-1"); got != 10 {
		t.Errorf("expected balance unchanged at 10, got %d", got)
	}
}

func TestAdjustTokensRequiresActor(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "user-1", 0)

	if _, err := env.svc.AdjustTokens(nil, "user-1", models.EntryTypeCredit, 25, "no actor"); err == nil {
		t.Fatal("expected error for missing actor")
	}
	if got := env.balance(t, "user-1"); got != 0 {
		t.Errorf("expected balance unchanged at 0, got %d", got)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.createWallet(t, "family-1", 100)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.repo.ApplyLedgerChange(&models.LedgerChange{
				UserID:         "family-1",
				Type:           models.EntryTypeDebit,
				Reason:         models.ReasonTipSent,
				AmountTokens:   80,
				AmountEurCents: 80,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %s", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one debit to succeed, got %d success %d rejected", succeeded, rejected)
	}
	if got := env.balance(t, "family-1"); got != 20 {
		t.Errorf("expected final balance 20, got %d", got)
	}
	if env.balance(t, "family-1") != env.ledgerSum(t, "family-1") {
		t.Error("wallet disagrees with its ledger sum after concurrent debits")
	}
}
