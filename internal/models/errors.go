package models

import "errors"

var (
	// ErrInsufficientFunds is returned when a debit exceeds the wallet balance.
	// The wallet and the ledger are left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyResolved is returned when a terminal escrow transition is
	// attempted on a hold that already reached a terminal state.
	ErrAlreadyResolved = errors.New("escrow hold already resolved")

	// ErrUnknownPaymentReference is returned when a provider callback cannot
	// be matched to any wallet, contract or escrow hold. The provider is
	// expected to retry.
	ErrUnknownPaymentReference = errors.New("unknown payment reference")

	// ErrDuplicateEvent is returned when a provider event was already
	// processed. It is a safe no-op, not a failure.
	ErrDuplicateEvent = errors.New("duplicate payment event")

	// ErrPegConfiguration is returned when the token price in the platform
	// settings is missing or non-positive.
	ErrPegConfiguration = errors.New("invalid token peg configuration")

	// ErrEscrowNotCaptured is returned when a release or split is attempted
	// on a hold whose funds were never confirmed captured.
	ErrEscrowNotCaptured = errors.New("escrow hold not captured")

	// ErrEscrowStateChanged is returned when an escrow transition was
	// computed against a status the hold no longer has, for example a
	// capture landing between the read and the resolution. Callers re-read
	// the hold and retry.
	ErrEscrowStateChanged = errors.New("escrow hold state changed")

	ErrWalletNotFound   = errors.New("wallet not found")
	ErrContractNotFound = errors.New("contract not found")
	ErrEscrowNotFound   = errors.New("escrow hold not found")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)
