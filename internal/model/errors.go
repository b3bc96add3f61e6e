package model

import "errors"

// Error taxonomy (spec.md §7). Each sentinel's Error() string is the
// stable, user-visible error kind; callers that need the caller-facing
// string (for JSON error envelopes) use errors.Is against these plus
// Error() for the message, the idiomatic Go analogue of the Rust
// source's expect("CONSTANT_STRING") convention.
var (
	ErrAccountNotFound       = errors.New("ACCOUNT_NOT_FOUND")
	ErrTokenNotRegistered    = errors.New("TOKEN_NOT_REGISTERED")
	ErrSaleNotFound          = errors.New("SALE_NOT_FOUND")
	ErrBalanceOverflow       = errors.New("BALANCE_OVERFLOW")
	ErrNotEnoughBalance      = errors.New("NOT_ENOUGH_BALANCE")
	ErrSharesOverflow        = errors.New("SHARES_OVERFLOW")
	ErrNeedAtLeastOneYocto   = errors.New("NEED_AT_LEAST_ONE_YOCTO")
	ErrNotEnoughAttached     = errors.New("NOT_ENOUGH_ATTACHED_BALANCE")
	ErrStartsTooSoon         = errors.New("STARTS_TOO_SOON")
	ErrMaxDurationToStart    = errors.New("MAX_DURATION_TO_START")
	ErrMaxDuration           = errors.New("MAX_DURATION")
	ErrMinDuration           = errors.New("MIN_DURATION")
	ErrMaxNumOutTokens       = errors.New("MAX_NUM_OUT_TOKENS")
	ErrTooLongTitle          = errors.New("TOO_LONG_TITLE")
	ErrTooLongURL            = errors.New("TOO_LONG_URL")
	ErrZeroOutAmount         = errors.New("ZERO_OUT_AMOUNT")
	ErrSameTokens            = errors.New("SAME_TOKENS")
	ErrNonUniqueOutTokens    = errors.New("NON_UNIQUE_OUT_TOKENS")
	ErrMaxReferralBpt        = errors.New("MAX_REFERRAL_BPT")
	ErrSaleEnded             = errors.New("SALE_ENDED")
	ErrNoPermission          = errors.New("NO_PERMISSION")
	ErrNotApproved           = errors.New("NOT_APPROVED")
	ErrTreasuryCannotHoldSky = errors.New("TREASURY_CAN_NOT_CONTAIN_SKYWARD")
	ErrZeroSkyward           = errors.New("ZERO_SKYWARD")

	// ErrTokenWithdrawFailed is logged only; an async transfer failure
	// never aborts the transaction that already committed (spec.md §7).
	ErrTokenWithdrawFailed = errors.New("TOKEN_WITHDRAW_FAILED")
)
