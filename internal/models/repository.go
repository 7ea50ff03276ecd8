package models

// Repository is the persistence boundary of the ledger core. Every method
// that writes balance-affecting state runs as a single database transaction;
// the ledger entry, the cached wallet balance and the settings counters
// either all commit or none do.
type Repository interface {
	Close() error

	CreateWallet(wallet *Wallet) error
	GetWallet(userID string) (*Wallet, error)
	GetWalletByAddress(address string) (*Wallet, error)
	AllWallets() ([]*Wallet, error)
	// ActivateWallet creates the wallet if absent, credits the activation
	// bonus and moves the wallet to ACTIVE, all in one transaction. A failed
	// delivery leaves no trace, so the provider retry replays the whole
	// activation instead of finding a half-applied one.
	ActivateWallet(wallet *Wallet, change *LedgerChange) (*LedgerEntry, error)

	// ApplyLedgerChange atomically writes one ledger entry, moves the cached
	// wallet balance, and updates the minted/burned/reserve counters implied
	// by the change's reason. Debits fail with ErrInsufficientFunds when the
	// amount exceeds the balance; concurrent debits against one wallet can
	// never both succeed past the balance.
	ApplyLedgerChange(change *LedgerChange) (*LedgerEntry, error)
	// ApplyTransfer applies a debit and a credit in one transaction. Used
	// for tips.
	ApplyTransfer(debit, credit *LedgerChange) ([]*LedgerEntry, error)
	// ApplyAdjustment writes an adjustment ledger entry and its admin audit
	// record in one transaction, filling the action's before/after wallet
	// snapshots inside it. The entry can never commit without the action
	// that explains it.
	ApplyAdjustment(change *LedgerChange, action *AdminAction) (*LedgerEntry, error)
	ListLedgerEntries(userID string, limit, offset int) ([]*LedgerEntry, error)
	SumLedgerTokens(userID string) (int64, error)
	// HasExternalRef reports whether a ledger entry already references the
	// provider intent reference.
	HasExternalRef(ref string) (bool, error)

	GetSettings() (*PlatformSettings, error)
	SeedSettings(defaults *PlatformSettings) error
	// UpdateSettings applies a settings mutation and, when action is
	// non-nil, its audit record in the same transaction, filling the
	// action's before/after snapshots inside it.
	UpdateSettings(apply func(*PlatformSettings) error, action *AdminAction) (*PlatformSettings, error)

	CreateContract(contract *Contract) error
	GetContract(id string) (*Contract, error)
	SetContractStatus(id, status string) error
	// ApplyContractFee debits the acceptance fee from a contract party and
	// flips that party's fee flag in one transaction; once both parties
	// have paid the contract moves to ACTIVE. A non-party fails with
	// ErrUnknownPaymentReference before any write.
	ApplyContractFee(change *LedgerChange, contractID, partyUserID string) (*Contract, error)

	CreateEscrowHold(hold *EscrowHold) error
	GetEscrowHold(contractID string) (*EscrowHold, error)
	GetEscrowHoldByIntent(intentRef string) (*EscrowHold, error)
	// CaptureEscrowHold moves a hold from HELD to CAPTURED. It returns false
	// without error when the hold is not in HELD, so repeated capture events
	// stay no-ops.
	CaptureEscrowHold(intentRef string, capturedAt int64) (bool, error)
	// ResolveEscrowHold moves a hold to a terminal state and writes the
	// payout ledger entries and, when the resolution carries a contract
	// status, the contract transition, all in one transaction. The payouts
	// were computed from fromStatus, so the transition is conditional on
	// exactly that status: a hold that moved since that read fails with
	// ErrEscrowStateChanged and no writes, and the caller re-reads and
	// re-prices. A hold already in a terminal state fails with
	// ErrAlreadyResolved and no writes.
	ResolveEscrowHold(res *EscrowResolution, payouts []*LedgerChange, toStatus, fromStatus string) (*EscrowHold, error)
}
