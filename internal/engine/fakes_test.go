package engine

import (
	"context"
	"strconv"

	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// fakeTokenClient records every transfer it's asked to make and lets
// a test force a given call to fail, driving the compensating
// re-credit path (spec.md §5 suspension point (i)).
type fakeTokenClient struct {
	failNext map[string]bool
	calls    []fakeTransferCall
}

type fakeTransferCall struct {
	tokenID, receiverID string
	amount              money.Amount
}

func newFakeTokenClient() *fakeTokenClient {
	return &fakeTokenClient{failNext: make(map[string]bool)}
}

func (f *fakeTokenClient) Transfer(_ context.Context, tokenID, receiverID string, amount money.Amount, _ string) error {
	f.calls = append(f.calls, fakeTransferCall{tokenID: tokenID, receiverID: receiverID, amount: amount})
	if f.failNext[tokenID+"|"+receiverID] {
		delete(f.failNext, tokenID+"|"+receiverID)
		return errTransferFailed
	}
	return nil
}

var errTransferFailed = &fakeError{"fake transfer failure"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }

// fakePermissionsClient answers is_approved with a single configured
// boolean per (contract, account, sale) key, driving the two-phase
// admission scenario (S3).
type fakePermissionsClient struct {
	approvals map[string]bool
}

func newFakePermissionsClient() *fakePermissionsClient {
	return &fakePermissionsClient{approvals: make(map[string]bool)}
}

func (f *fakePermissionsClient) set(contractID, accountID string, saleID uint64, approved bool) {
	f.approvals[admissionKey(contractID, accountID, saleID)] = approved
}

func (f *fakePermissionsClient) IsApproved(_ context.Context, contractID, accountID string, saleID uint64) (bool, error) {
	return f.approvals[admissionKey(contractID, accountID, saleID)], nil
}

func admissionKey(contractID, accountID string, saleID uint64) string {
	return contractID + "|" + accountID + "|" + strconv.FormatUint(saleID, 10)
}
