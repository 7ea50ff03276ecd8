package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/pkg/logger"
)

type Database struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (models.Repository, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	repo, err := NewWithConn(db, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return repo, nil
}

// NewWithConn wraps an existing gorm connection. Tests use it with an
// in-memory sqlite database.
func NewWithConn(db *gorm.DB, logger *logger.Logger) (models.Repository, error) {
	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.EscrowHold{},
		&models.Contract{},
		&models.PlatformSettings{},
		&models.AdminAction{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	return &Database{Conn: db, logger: logger}, nil
}

func (db *Database) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *Database) CreateWallet(wallet *models.Wallet) error {
	if err := db.Conn.Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %s", err)
	}

	return nil
}

func (db *Database) GetWallet(userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.Conn.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %s", err)
	}

	return &wallet, nil
}

func (db *Database) GetWalletByAddress(address string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.Conn.Where("address = ?", address).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by address: %s", err)
	}

	return &wallet, nil
}

func (db *Database) AllWallets() ([]*models.Wallet, error) {
	var wallets []*models.Wallet
	if err := db.Conn.Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %s", err)
	}
	return wallets, nil
}

// ActivateWallet runs the whole activation as one transaction: create the
// wallet if it does not exist yet, credit the bonus, move the wallet to
// ACTIVE. A failure at any step rolls back every other step, so a provider
// retry starts from a clean slate instead of ErrDuplicateEvent on a wallet
// stuck in PENDING.
func (db *Database) ActivateWallet(wallet *models.Wallet, change *models.LedgerChange) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", wallet.UserID).FirstOrCreate(wallet).Error; err != nil {
			return fmt.Errorf("failed to create wallet: %s", err)
		}

		var txErr error
		entry, txErr = applyChange(tx, change)
		if txErr != nil {
			return txErr
		}

		result := tx.Model(&models.Wallet{}).
			Where("user_id = ?", wallet.UserID).
			Updates(map[string]interface{}{"status": models.WalletStatusActive, "updated_at": time.Now().Unix()})
		if result.Error != nil {
			return fmt.Errorf("failed to activate wallet: %s", result.Error)
		}
		wallet.Status = models.WalletStatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (db *Database) ApplyLedgerChange(change *models.LedgerChange) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = applyChange(tx, change)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (db *Database) ApplyTransfer(debit, credit *models.LedgerChange) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		debitEntry, txErr := applyChange(tx, debit)
		if txErr != nil {
			return txErr
		}
		creditEntry, txErr := applyChange(tx, credit)
		if txErr != nil {
			return txErr
		}
		entries = []*models.LedgerEntry{debitEntry, creditEntry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ApplyAdjustment writes the adjustment entry and the admin action that
// explains it in one transaction. The before/after wallet snapshots are
// taken inside the transaction, so the audit record always matches what the
// adjustment actually did.
func (db *Database) ApplyAdjustment(change *models.LedgerChange, action *models.AdminAction) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := tx.Where("user_id = ?", change.UserID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrWalletNotFound
			}
			return fmt.Errorf("failed to get wallet: %s", err)
		}
		before, err := json.Marshal(&wallet)
		if err != nil {
			return fmt.Errorf("failed to snapshot wallet: %s", err)
		}

		var txErr error
		entry, txErr = applyChange(tx, change)
		if txErr != nil {
			return txErr
		}

		if err := tx.Where("user_id = ?", change.UserID).First(&wallet).Error; err != nil {
			return fmt.Errorf("failed to get wallet: %s", err)
		}
		after, err := json.Marshal(&wallet)
		if err != nil {
			return fmt.Errorf("failed to snapshot wallet: %s", err)
		}

		action.Before = string(before)
		action.After = string(after)
		if err := tx.Create(action).Error; err != nil {
			return fmt.Errorf("failed to record admin action: %s", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// applyChange writes one ledger entry, moves the cached wallet balance and
// updates the settings counters implied by the reason, all on the supplied
// transaction. Debits use a conditional update on the balance so that two
// concurrent debits can never both succeed past the funds.
func applyChange(tx *gorm.DB, change *models.LedgerChange) (*models.LedgerEntry, error) {
	if change.AmountTokens <= 0 || change.AmountEurCents < 0 {
		return nil, models.ErrInvalidAmount
	}
	if !models.ValidReason(change.Reason) {
		return nil, fmt.Errorf("unknown ledger reason %q", change.Reason)
	}

	now := time.Now().Unix()

	switch change.Type {
	case models.EntryTypeCredit:
		result := tx.Model(&models.Wallet{}).
			Where("user_id = ?", change.UserID).
			Updates(map[string]interface{}{
				"balance_tokens":    gorm.Expr("balance_tokens + ?", change.AmountTokens),
				"balance_eur_cents": gorm.Expr("balance_eur_cents + ?", change.AmountEurCents),
				"updated_at":        now,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to credit wallet: %s", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, models.ErrWalletNotFound
		}
	case models.EntryTypeDebit:
		var wallet models.Wallet
		if err := tx.Where("user_id = ?", change.UserID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.ErrWalletNotFound
			}
			return nil, fmt.Errorf("failed to get wallet: %s", err)
		}
		// Conditional update: the balance check and the write are one
		// statement, so a concurrent debit cannot slip between them.
		result := tx.Model(&models.Wallet{}).
			Where("user_id = ? AND balance_tokens >= ?", change.UserID, change.AmountTokens).
			Updates(map[string]interface{}{
				"balance_tokens":    gorm.Expr("balance_tokens - ?", change.AmountTokens),
				"balance_eur_cents": gorm.Expr("balance_eur_cents - ?", change.AmountEurCents),
				"updated_at":        now,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to debit wallet: %s", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, models.ErrInsufficientFunds
		}
	default:
		return nil, fmt.Errorf("unknown entry type %q", change.Type)
	}

	signTokens := change.AmountTokens
	signCents := change.AmountEurCents
	if change.Type == models.EntryTypeDebit {
		signTokens = -signTokens
		signCents = -signCents
	}

	entry := &models.LedgerEntry{
		ID:             uuid.NewString(),
		UserID:         change.UserID,
		Type:           change.Type,
		Reason:         change.Reason,
		AmountTokens:   signTokens,
		AmountEurCents: signCents,
		ReferenceID:    change.ReferenceID,
		ExternalRef:    change.ExternalRef,
		Description:    change.Description,
		CreatedAt:      now,
	}
	entry.TxHash = entryHash(entry)

	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %s", err)
	}

	if err := applyCounters(tx, change, now); err != nil {
		return nil, err
	}

	return entry, nil
}

// applyCounters keeps the minted/burned/reserve counters in the same
// transaction as the ledger write. They are never updated elsewhere.
func applyCounters(tx *gorm.DB, change *models.LedgerChange, now int64) error {
	updates := map[string]interface{}{}

	switch {
	case change.Type == models.EntryTypeCredit &&
		(change.Reason == models.ReasonActivationBonus || change.Reason == models.ReasonTokenPurchase):
		updates["total_tokens_minted"] = gorm.Expr("total_tokens_minted + ?", change.AmountTokens)
		updates["reserve_eur_cents"] = gorm.Expr("reserve_eur_cents + ?", change.AmountEurCents)
	case change.Type == models.EntryTypeDebit && change.Reason == models.ReasonTokenRedemption:
		updates["total_tokens_burned"] = gorm.Expr("total_tokens_burned + ?", change.AmountTokens)
		updates["reserve_eur_cents"] = gorm.Expr("reserve_eur_cents - ?", change.AmountEurCents)
	default:
		return nil
	}

	updates["updated_at"] = now
	result := tx.Model(&models.PlatformSettings{}).Where("id = ?", models.SettingsID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update settings counters: %s", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("platform settings row missing")
	}
	return nil
}

// entryHash computes the display reference string of a ledger entry. It is a
// content hash, not an on-chain transaction.
func entryHash(entry *models.LedgerEntry) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%d",
		entry.ID, entry.UserID, entry.Reason, entry.AmountTokens, entry.CreatedAt)))
	return "0x" + hex.EncodeToString(sum[:])
}

func (db *Database) ListLedgerEntries(userID string, limit, offset int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	if err := db.Conn.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %s", err)
	}
	return entries, nil
}

func (db *Database) SumLedgerTokens(userID string) (int64, error) {
	var sum int64
	if err := db.Conn.Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount_tokens), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %s", err)
	}
	return sum, nil
}

func (db *Database) HasExternalRef(ref string) (bool, error) {
	var count int64
	if err := db.Conn.Model(&models.LedgerEntry{}).
		Where("external_ref = ?", ref).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check external reference: %s", err)
	}
	return count > 0, nil
}

func (db *Database) GetSettings() (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	if err := db.Conn.Where("id = ?", models.SettingsID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrPegConfiguration
		}
		return nil, fmt.Errorf("failed to get platform settings: %s", err)
	}
	return &settings, nil
}

func (db *Database) SeedSettings(defaults *models.PlatformSettings) error {
	defaults.ID = models.SettingsID
	if err := db.Conn.Where("id = ?", models.SettingsID).FirstOrCreate(defaults).Error; err != nil {
		return fmt.Errorf("failed to seed platform settings: %s", err)
	}
	return nil
}

func (db *Database) UpdateSettings(apply func(*models.PlatformSettings) error, action *models.AdminAction) (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", models.SettingsID).First(&settings).Error; err != nil {
			return fmt.Errorf("failed to get platform settings: %s", err)
		}
		before, err := json.Marshal(&settings)
		if err != nil {
			return fmt.Errorf("failed to snapshot settings: %s", err)
		}
		if err := apply(&settings); err != nil {
			return err
		}
		settings.Version++
		settings.UpdatedAt = time.Now().Unix()
		if err := tx.Save(&settings).Error; err != nil {
			return fmt.Errorf("failed to update platform settings: %s", err)
		}
		if action != nil {
			after, err := json.Marshal(&settings)
			if err != nil {
				return fmt.Errorf("failed to snapshot settings: %s", err)
			}
			action.Before = string(before)
			action.After = string(after)
			if err := tx.Create(action).Error; err != nil {
				return fmt.Errorf("failed to record admin action: %s", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (db *Database) CreateContract(contract *models.Contract) error {
	if err := db.Conn.Create(contract).Error; err != nil {
		return fmt.Errorf("failed to create contract: %s", err)
	}
	return nil
}

func (db *Database) GetContract(id string) (*models.Contract, error) {
	var contract models.Contract
	if err := db.Conn.Where("id = ?", id).First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %s", err)
	}
	return &contract, nil
}

func (db *Database) SetContractStatus(id, status string) error {
	result := db.Conn.Model(&models.Contract{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().Unix()})
	if result.Error != nil {
		return fmt.Errorf("failed to set contract status: %s", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrContractNotFound
	}
	return nil
}

// ApplyContractFee debits the acceptance fee and flips the paying party's
// fee flag as one transaction. The party check runs before the debit, so an
// event from a non-party commits nothing, and a debit failure leaves the
// flag untouched for the provider retry.
func (db *Database) ApplyContractFee(change *models.LedgerChange, contractID, partyUserID string) (*models.Contract, error) {
	var contract models.Contract
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", contractID).First(&contract).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrContractNotFound
			}
			return fmt.Errorf("failed to get contract: %s", err)
		}

		switch partyUserID {
		case contract.FamilyID:
			contract.FamilyFeePaid = true
		case contract.CaregiverID:
			contract.CaregiverFeePaid = true
		default:
			return fmt.Errorf("user %s is not a party of contract %s: %w", partyUserID, contractID, models.ErrUnknownPaymentReference)
		}

		if _, err := applyChange(tx, change); err != nil {
			return err
		}

		if contract.FamilyFeePaid && contract.CaregiverFeePaid && contract.Status == models.ContractStatusPendingPayment {
			contract.Status = models.ContractStatusActive
		}
		contract.UpdatedAt = time.Now().Unix()

		if err := tx.Save(&contract).Error; err != nil {
			return fmt.Errorf("failed to update contract: %s", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (db *Database) CreateEscrowHold(hold *models.EscrowHold) error {
	if err := db.Conn.Create(hold).Error; err != nil {
		return fmt.Errorf("failed to create escrow hold: %s", err)
	}
	return nil
}

func (db *Database) GetEscrowHold(contractID string) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	if err := db.Conn.Where("contract_id = ?", contractID).First(&hold).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to get escrow hold: %s", err)
	}
	return &hold, nil
}

func (db *Database) GetEscrowHoldByIntent(intentRef string) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	if err := db.Conn.Where("intent_reference = ?", intentRef).First(&hold).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to get escrow hold by intent: %s", err)
	}
	return &hold, nil
}

func (db *Database) CaptureEscrowHold(intentRef string, capturedAt int64) (bool, error) {
	result := db.Conn.Model(&models.EscrowHold{}).
		Where("intent_reference = ? AND status = ?", intentRef, models.EscrowStatusHeld).
		Updates(map[string]interface{}{
			"status":      models.EscrowStatusCaptured,
			"captured_at": capturedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to capture escrow hold: %s", result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// Not in HELD: either already captured (idempotent no-op) or unknown.
	if _, err := db.GetEscrowHoldByIntent(intentRef); err != nil {
		return false, err
	}
	return false, nil
}

func (db *Database) ResolveEscrowHold(res *models.EscrowResolution, payouts []*models.LedgerChange, toStatus, fromStatus string) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_id = ?", res.ContractID).First(&hold).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrEscrowNotFound
			}
			return fmt.Errorf("failed to get escrow hold: %s", err)
		}
		if models.EscrowTerminal(hold.Status) {
			return models.ErrAlreadyResolved
		}

		before, err := json.Marshal(hold)
		if err != nil {
			return fmt.Errorf("failed to snapshot escrow hold: %s", err)
		}

		// The payouts were priced from fromStatus, so the transition is
		// conditional on exactly that status. A capture that landed after
		// the caller's read would otherwise turn a refund of captured funds
		// into a zero-credit refund.
		now := time.Now().Unix()
		result := tx.Model(&models.EscrowHold{}).
			Where("contract_id = ? AND status = ?", res.ContractID, fromStatus).
			Updates(map[string]interface{}{
				"status":             toStatus,
				"resolved_at":        now,
				"family_share_cents": res.FamilyShareCents,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to resolve escrow hold: %s", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.ErrEscrowStateChanged
		}

		for _, payout := range payouts {
			if _, err := applyChange(tx, payout); err != nil {
				return err
			}
		}

		if res.ContractStatus != "" {
			contractResult := tx.Model(&models.Contract{}).
				Where("id = ?", res.ContractID).
				Updates(map[string]interface{}{"status": res.ContractStatus, "updated_at": now})
			if contractResult.Error != nil {
				return fmt.Errorf("failed to set contract status: %s", contractResult.Error)
			}
			if contractResult.RowsAffected == 0 {
				return models.ErrContractNotFound
			}
		}

		hold.Status = toStatus
		hold.ResolvedAt = now
		hold.FamilyShareCents = res.FamilyShareCents

		if res.Actor != nil {
			after, err := json.Marshal(hold)
			if err != nil {
				return fmt.Errorf("failed to snapshot escrow hold: %s", err)
			}
			action := &models.AdminAction{
				ID:        uuid.NewString(),
				ActorID:   res.Actor.ID,
				Action:    models.AdminActionEscrowResolution,
				TargetID:  res.ContractID,
				Before:    string(before),
				After:     string(after),
				Reason:    res.Notes,
				IP:        res.Actor.IP,
				UserAgent: res.Actor.UserAgent,
				CreatedAt: now,
			}
			if err := tx.Create(action).Error; err != nil {
				return fmt.Errorf("failed to record admin action: %s", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &hold, nil
}
