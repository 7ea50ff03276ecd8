package custodia

import (
	"time"

	"github.com/curavia/custodia/internal/config"
	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/internal/pricing"
	"github.com/curavia/custodia/pkg/logger"
	"github.com/curavia/custodia/pkg/validation"
)

const (
	// defaultLedgerPageSize caps ledger listing when the caller asks for
	// nothing or too much.
	defaultLedgerPageSize = 50
	maxLedgerPageSize     = 200
)

// Custodia is the token ledger and escrow engine. It owns every
// balance-affecting operation and serves all business logic.
type Custodia struct {
	logger *logger.Logger
	config *config.Config

	repo     models.Repository
	provider models.PaymentProvider
	kyc      models.KYCService
	alerter  models.AlertService
}

// NewCustodia creates a new Custodia instance and seeds the platform
// settings and the internal settlement wallet on first run.
func NewCustodia(
	repo models.Repository,
	provider models.PaymentProvider,
	kyc models.KYCService,
	alerter models.AlertService,
	logger *logger.Logger,
	config *config.Config,
) (models.CustodiaService, error) {
	c := &Custodia{
		repo:     repo,
		provider: provider,
		kyc:      kyc,
		alerter:  alerter,
		logger:   logger,
		config:   config,
	}
	if err := c.seed(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Custodia) seed() error {
	now := time.Now().Unix()
	if err := c.repo.SeedSettings(&models.PlatformSettings{
		ActivationCostCents: c.config.ActivationCostCents,
		ContractFeeCents:    c.config.ContractFeeCents,
		PlatformFeePercent:  c.config.PlatformFeePercent,
		TokenPriceCents:     c.config.TokenPriceCents,
		Version:             1,
		UpdatedAt:           now,
	}); err != nil {
		return err
	}

	_, err := c.repo.GetWallet(models.PlatformUserID)
	if err == models.ErrWalletNotFound {
		return c.repo.CreateWallet(&models.Wallet{
			UserID:    models.PlatformUserID,
			Address:   validation.DeriveAddress(models.PlatformUserID),
			Custodial: true,
			Status:    models.WalletStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return err
}

// Start runs the periodic reconciliation sweep. It blocks until the process
// exits.
func (c *Custodia) Start() {
	ticker := time.NewTicker(c.config.ReconcileInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.logger.Debug("Running reconciliation sweep")
		c.runReconciliationSweep()
	}
}

// GetWallet returns the wallet for a user.
func (c *Custodia) GetWallet(userID string) (*models.Wallet, error) {
	wallet, err := c.repo.GetWallet(userID)
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// GetWalletByAddress resolves a wallet from its display address.
func (c *Custodia) GetWalletByAddress(address string) (*models.Wallet, error) {
	normalized, err := validation.ValidateAndNormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return c.repo.GetWalletByAddress(normalized)
}

// ListLedger returns a page of the user's ledger, newest first.
func (c *Custodia) ListLedger(userID string, limit, offset int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultLedgerPageSize
	}
	if limit > maxLedgerPageSize {
		limit = maxLedgerPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return c.repo.ListLedgerEntries(userID, limit, offset)
}

// settingsAndConverter reads the settings row and builds the peg converter
// for this operation. Settings are read per call, never cached.
func (c *Custodia) settingsAndConverter() (*models.PlatformSettings, *pricing.Converter, error) {
	settings, err := c.repo.GetSettings()
	if err != nil {
		return nil, nil, err
	}
	converter, err := pricing.NewConverter(settings)
	if err != nil {
		return nil, nil, err
	}
	return settings, converter, nil
}
