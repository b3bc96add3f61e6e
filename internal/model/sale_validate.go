package model

import (
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// SaleInput is the caller-supplied shape for sale_create (spec.md §4.7).
type SaleInput struct {
	Title                 string
	URL                   *string
	PermissionsContractID *string
	OutTokens             []SaleOutTokenInput
	InTokenID             string
	StartTime             time.Time
	Duration              time.Duration
}

// NewSaleFromInput builds a Sale from a validated SaleInput. Callers
// must run ValidateForCreate first; this constructor does not
// re-validate.
func NewSaleFromInput(in SaleInput, ownerID string, protocolTokenID string, now time.Time, blockHeight uint64) *Sale {
	outTokens := make([]SaleOutToken, len(in.OutTokens))
	for i, o := range in.OutTokens {
		outTokens[i] = NewSaleOutToken(o, protocolTokenID)
	}
	return &Sale{
		SchemaVersion:        SchemaV2,
		OwnerID:              ownerID,
		Title:                in.Title,
		URL:                  in.URL,
		PermissionsContractID: in.PermissionsContractID,
		OutTokens:            outTokens,
		InTokenID:            in.InTokenID,
		InTokenRemaining:     money.Zero(),
		InTokenPaidUnclaimed: money.Zero(),
		InTokenPaid:          money.Zero(),
		StartTime:            in.StartTime,
		Duration:             in.Duration,
		TotalShares:          money.Zero(),
		LastTimestamp:        in.StartTime,
		StartBlockHeight:     blockHeight,
	}
}

// ValidateForCreate checks the ordered assertions from spec.md §4.7, in
// the exact order §4.7 lists them (out-token count/distinctness/
// same-token before title/url length, ahead of the original Rust
// source's assert_valid_not_started, which checks title/url first).
// The first failing check aborts.
func (in *SaleInput) ValidateForCreate(ownerID, engineAccountID string, now time.Time) error {
	if ownerID != engineAccountID && in.StartTime.Before(now.Add(MinDurationBeforeStart)) {
		return ErrStartsTooSoon
	}
	if !in.StartTime.Before(now.Add(MaxDurationBeforeStart)) {
		return ErrMaxDurationToStart
	}
	if in.Duration > MaxDuration {
		return ErrMaxDuration
	}
	if in.Duration < MinDuration {
		return ErrMinDuration
	}
	if len(in.OutTokens) > MaxNumOutTokens {
		return ErrMaxNumOutTokens
	}
	seen := make(map[string]struct{}, len(in.OutTokens))
	for _, o := range in.OutTokens {
		if o.TokenID == in.InTokenID {
			return ErrSameTokens
		}
		if _, dup := seen[o.TokenID]; dup {
			return ErrNonUniqueOutTokens
		}
		seen[o.TokenID] = struct{}{}
	}

	if len(in.Title) > MaxTitleLength {
		return ErrTooLongTitle
	}
	if in.URL != nil && len(*in.URL) > MaxURLLength {
		return ErrTooLongURL
	}

	for _, o := range in.OutTokens {
		if o.Balance.IsZero() {
			return ErrZeroOutAmount
		}
		if o.ReferralBpt != nil && *o.ReferralBpt > MaxReferralBpt {
			return ErrMaxReferralBpt
		}
	}
	return nil
}
