package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

func pathUint64(r *http.Request, key string) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)[key], 10, 64)
}

// --- accounts -----------------------------------------------------

type registerTokenRequest struct {
	TokenID string `json:"token_id"`
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]
	var req registerTokenRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	refund, err := s.engine.RegisterToken(r.Context(), accountID, req.TokenID, attached)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"refund": amountString(refund)})
}

type registerTokensRequest struct {
	TokenIDs []string `json:"token_ids"`
}

func (s *Server) handleRegisterTokens(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]
	var req registerTokensRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	refund, err := s.engine.RegisterTokens(r.Context(), accountID, req.TokenIDs, attached)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"refund": amountString(refund)})
}

type withdrawTokenRequest struct {
	TokenID string  `json:"token_id"`
	Amount  *string `json:"amount,omitempty"`
}

func (s *Server) handleWithdrawToken(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]
	var req withdrawTokenRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	var amount *money.Amount
	if req.Amount != nil {
		a, err := money.NewFromString(*req.Amount)
		if err != nil {
			writeError(w, errValidation{err.Error()})
			return
		}
		amount = &a
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := s.engine.WithdrawToken(r.Context(), accountID, req.TokenID, amount, attached); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleBalanceOf(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bal, err := s.engine.BalanceOf(r.Context(), vars["account_id"], vars["token_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": amountString(bal)})
}

func (s *Server) handleBalancesOf(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]
	tokenIDs := r.URL.Query()["token_id"]
	bals, err := s.engine.BalancesOf(r.Context(), accountID, tokenIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]string, len(bals))
	for tokenID, bal := range bals {
		out[tokenID] = amountString(bal)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetNumBalances(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.GetNumBalances(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"num_balances": n})
}

func (s *Server) handleGetAccountSales(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.GetAccountSales(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleGetSubscribedSales(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.GetSubscribedSales(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

type ftOnTransferRequest struct {
	TokenID string `json:"token_id"`
	Amount  string `json:"amount"`
	Msg     string `json:"msg"`
}

func (s *Server) handleFtOnTransfer(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]
	var req ftOnTransferRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if req.Msg != `{"AccountDeposit"}` && req.Msg != "AccountDeposit" {
		writeError(w, errValidation{"unsupported ft_on_transfer payload"})
		return
	}
	amount, err := money.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := s.engine.OnFtTransfer(r.Context(), req.TokenID, accountID, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- sales ----------------------------------------------------------

type saleInputBody struct {
	Title                 string                    `json:"title"`
	URL                   *string                   `json:"url,omitempty"`
	PermissionsContractID *string                   `json:"permissions_contract_id,omitempty"`
	InTokenID             string                    `json:"in_token_account_id"`
	StartTime             time.Time                 `json:"start_time"`
	DurationNs            int64                     `json:"duration_ns"`
	OutTokens             []saleOutTokenInputBody   `json:"out_tokens"`
	OwnerID               string                    `json:"owner_id"`
}

type saleOutTokenInputBody struct {
	TokenID     string  `json:"token_account_id"`
	Balance     string  `json:"balance"`
	ReferralBpt *uint16 `json:"referral_bpt,omitempty"`
}

func (b saleInputBody) toModel() (model.SaleInput, error) {
	out := make([]model.SaleOutTokenInput, len(b.OutTokens))
	for i, o := range b.OutTokens {
		bal, err := money.NewFromString(o.Balance)
		if err != nil {
			return model.SaleInput{}, err
		}
		out[i] = model.SaleOutTokenInput{TokenID: o.TokenID, Balance: bal, ReferralBpt: o.ReferralBpt}
	}
	return model.SaleInput{
		Title:                 b.Title,
		URL:                   b.URL,
		PermissionsContractID: b.PermissionsContractID,
		OutTokens:             out,
		InTokenID:             b.InTokenID,
		StartTime:             b.StartTime,
		Duration:              time.Duration(b.DurationNs),
	}, nil
}

func (s *Server) handleSaleCreate(w http.ResponseWriter, r *http.Request) {
	raw, err := readRawBody(r)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := validateBody(r.Context(), "saleInput", raw); err != nil {
		writeError(w, err)
		return
	}
	var body saleInputBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	in, err := body.toModel()
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	ownerID := body.OwnerID
	if ownerID == "" {
		ownerID = s.engine.EngineAccountID()
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	result, err := s.engine.SaleCreate(r.Context(), ownerID, in, attached, s.now(), s.height())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sale_id": result.SaleID,
		"refund":  amountString(result.Refund),
	})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	sale, err := s.engine.GetSaleView(r.Context(), saleID, s.now(), s.height())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSaleView(sale))
}

func (s *Server) handleGetSales(w http.ResponseWriter, r *http.Request) {
	q, err := decodeListQuery(r)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	views := make([]saleView, 0, q.Limit)
	err = s.engine.ListSales(r.Context(), q.FromIndex, q.Limit, func(sale *model.Sale) error {
		views = append(views, newSaleView(sale))
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSalesByID(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["sale_id"]
	out := make([]saleView, 0, len(ids))
	for _, idStr := range ids {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			writeError(w, errValidation{err.Error()})
			return
		}
		sale, err := s.engine.GetSaleView(r.Context(), id, s.now(), s.height())
		if err != nil {
			continue
		}
		out = append(out, newSaleView(sale))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRequiresAdmission(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	accountID := r.URL.Query().Get("account_id")
	requires, err := s.engine.RequiresAdmission(r.Context(), saleID, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"requires_admission": requires})
}

type depositRequest struct {
	Amount     string  `json:"amount"`
	ReferralID *string `json:"referral_id,omitempty"`
}

func (s *Server) handleSaleDepositInToken(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	raw, err := readRawBody(r)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := validateBody(r.Context(), "deposit", raw); err != nil {
		writeError(w, err)
		return
	}
	var req depositRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	accountID := r.URL.Query().Get("account_id")
	inAmount, err := money.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	refund, err := s.engine.SaleDepositInToken(r.Context(), accountID, saleID, inAmount, req.ReferralID, s.now(), s.height())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"refund": amountString(refund)})
}

func (s *Server) handleBeginAdmission(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	var req depositRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	accountID := r.URL.Query().Get("account_id")
	inAmount, err := money.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := s.engine.BeginAdmission(r.Context(), accountID, saleID, inAmount, req.ReferralID, attached); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

type resolveAdmissionRequest struct {
	AccountID   string `json:"account_id"`
	ContractID  string `json:"contract_id"`
	Approved    *bool  `json:"approved,omitempty"`
}

func (s *Server) handleResolveAdmission(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	var req resolveAdmissionRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}

	approved := false
	if req.Approved != nil {
		approved = *req.Approved
	} else {
		approved, err = s.engine.FireIsApproved(r.Context(), req.ContractID, req.AccountID, saleID)
		if err != nil {
			s.log.Warnf("server: is_approved query failed for %s/%d: %v", req.AccountID, saleID, err)
			approved = false
		}
	}

	refund, err := s.engine.ResolveAdmission(r.Context(), req.AccountID, saleID, approved, s.now(), s.height())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"approved": approved,
		"refund":   amountString(refund),
	})
}

type withdrawSharesRequest struct {
	Shares *string `json:"shares,omitempty"`
}

func (s *Server) handleWithdrawShares(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	var req withdrawSharesRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	accountID := r.URL.Query().Get("account_id")
	var shares *money.Amount
	if req.Shares != nil {
		sh, err := money.NewFromString(*req.Shares)
		if err != nil {
			writeError(w, errValidation{err.Error()})
			return
		}
		shares = &sh
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := s.engine.WithdrawShares(r.Context(), accountID, saleID, shares, attached, s.now(), s.height()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type withdrawExactRequest struct {
	InAmount string `json:"in_amount"`
}

func (s *Server) handleWithdrawInExact(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	var req withdrawExactRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	accountID := r.URL.Query().Get("account_id")
	inAmount, err := money.NewFromString(req.InAmount)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := s.engine.WithdrawInExact(r.Context(), accountID, saleID, inAmount, attached, s.now(), s.height()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleClaimOutTokens(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	accountID := r.URL.Query().Get("account_id")
	if err := s.engine.SaleClaimOutTokens(r.Context(), accountID, saleID, s.now(), s.height()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDistributeUnclaimed(w http.ResponseWriter, r *http.Request) {
	saleID, err := pathUint64(r, "sale_id")
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := s.engine.SaleDistributeUnclaimedTokens(r.Context(), saleID, s.now(), s.height()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- treasury ---------------------------------------------------------

func (s *Server) handleGetTreasury(w http.ResponseWriter, r *http.Request) {
	tr, err := s.engine.GetTreasuryView(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTreasuryView(tr))
}

func (s *Server) handleGetTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	tokenID := mux.Vars(r)["token_id"]
	bal, err := s.engine.GetTreasuryBalance(r.Context(), tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": amountString(bal)})
}

func (s *Server) handleGetListingFee(w http.ResponseWriter, r *http.Request) {
	fee, err := s.engine.GetListingFee(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"listing_fee": amountString(fee)})
}

func (s *Server) handleGetCirculatingSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := s.engine.GetSkywardCirculatingSupply(r.Context(), s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"circulating_supply": amountString(supply)})
}

func (s *Server) handleClaimTreasury(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClaimTreasury(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type redeemSkywardRequest struct {
	AccountID string   `json:"account_id"`
	Amount    string   `json:"amount"`
	TokenIDs  []string `json:"token_ids"`
}

func (s *Server) handleRedeemSkyward(w http.ResponseWriter, r *http.Request) {
	var req redeemSkywardRequest
	if _, err := decodeJSONBody(r, &req); err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	amount, err := money.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	attached, err := money.NewFromString(attachedFromHeader(r))
	if err != nil {
		writeError(w, errValidation{err.Error()})
		return
	}
	if err := s.engine.RedeemSkyward(r.Context(), req.AccountID, amount, req.TokenIDs, attached, s.now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
