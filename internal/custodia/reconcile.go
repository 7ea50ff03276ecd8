package custodia

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/internal/pricing"
)

// Reconcile re-derives the aggregate platform metrics from the ledger and
// checks every wallet's cached balance against its ledger sum. Mismatches
// are reported, never auto-corrected; the fix is an explicit, audited
// ADJUSTMENT entry.
func (c *Custodia) Reconcile() (*models.ReconciliationReport, error) {
	settings, err := c.repo.GetSettings()
	if err != nil {
		return nil, err
	}
	converter, err := pricing.NewConverter(settings)
	if err != nil {
		return nil, err
	}

	inCirculation := settings.TokensInCirculation()
	circulationEur := converter.TokensToEurCents(inCirculation)

	coverage := decimal.NewFromInt(100)
	if circulationEur > 0 {
		coverage = decimal.NewFromInt(settings.ReserveEurCents).
			Div(decimal.NewFromInt(circulationEur)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	report := &models.ReconciliationReport{
		TotalMinted:         settings.TotalTokensMinted,
		TotalBurned:         settings.TotalTokensBurned,
		InCirculation:       inCirculation,
		CirculationEurCents: circulationEur,
		ReserveEurCents:     settings.ReserveEurCents,
		CoveragePercent:     coverage,
		ReserveShortfall:    settings.ReserveEurCents < circulationEur,
		GeneratedAt:         time.Now().Unix(),
	}

	wallets, err := c.repo.AllWallets()
	if err != nil {
		return nil, err
	}
	for _, wallet := range wallets {
		sum, err := c.repo.SumLedgerTokens(wallet.UserID)
		if err != nil {
			return nil, err
		}
		if sum != wallet.BalanceTokens {
			report.WalletMismatches = append(report.WalletMismatches, models.WalletMismatch{
				UserID:          wallet.UserID,
				BalanceTokens:   wallet.BalanceTokens,
				LedgerSumTokens: sum,
			})
		}
	}

	return report, nil
}

// runReconciliationSweep runs one reconciliation pass and raises ops alerts
// for anything off.
func (c *Custodia) runReconciliationSweep() {
	report, err := c.Reconcile()
	if err != nil {
		c.logger.Error("Reconciliation sweep failed ", "error ", err)
		return
	}

	if report.ReserveShortfall {
		c.alerter.Alert("Token reserve shortfall",
			fmt.Sprintf("reserve %d cents covers %s%% of %d cents in circulation",
				report.ReserveEurCents, report.CoveragePercent.String(), report.CirculationEurCents))
	}
	if len(report.WalletMismatches) > 0 {
		c.alerter.Alert("Wallet balance mismatch",
			fmt.Sprintf("%d wallet(s) disagree with their ledger sum; first: %+v",
				len(report.WalletMismatches), report.WalletMismatches[0]))
	}

	c.logger.Info("Reconciliation sweep done ",
		"in_circulation ", report.InCirculation,
		" coverage ", report.CoveragePercent.String(),
		" mismatches ", len(report.WalletMismatches))
}
