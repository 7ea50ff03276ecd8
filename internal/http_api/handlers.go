package http_api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/internal/payments"
	"github.com/curavia/custodia/pkg/validation"
)

// CheckoutRequest represents the JSON body for creating a checkout session
type CheckoutRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Purpose     string `json:"purpose" binding:"required,oneof=activation token_purchase contract_fee"`
	ContractID  string `json:"contract_id"`
	AmountCents int64  `json:"amount_cents"`
}

// TipRequest represents the JSON body for sending a tip
type TipRequest struct {
	FromUserID   string `json:"from_user_id" binding:"required"`
	ToUserID     string `json:"to_user_id" binding:"required"`
	AmountTokens int64  `json:"amount_tokens" binding:"required,gt=0"`
	Note         string `json:"note"`
}

// RedemptionRequest represents the JSON body for a token redemption
type RedemptionRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	AmountTokens int64  `json:"amount_tokens" binding:"required,gt=0"`
}

// ContractRequest represents the JSON body for registering a contract
type ContractRequest struct {
	ID              string `json:"id"`
	FamilyID        string `json:"family_id" binding:"required"`
	CaregiverID     string `json:"caregiver_id" binding:"required"`
	HourlyRateCents int64  `json:"hourly_rate_cents" binding:"required,gt=0"`
	TotalHours      int64  `json:"total_hours" binding:"required,gt=0"`
}

// statusForError maps service errors to HTTP statuses. Caller mistakes are
// surfaced to the UI; infrastructure errors stay generic.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrWalletNotFound),
		errors.Is(err, models.ErrContractNotFound),
		errors.Is(err, models.ErrEscrowNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrEscrowNotCaptured):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// getWallet is a handler for the wallet endpoint.
func (s *HTTPServer) getWallet(c *gin.Context) {
	userID := c.Param("user_id")

	wallet, err := s.custodia.GetWallet(userID)
	if err != nil {
		s.logger.Debug("Failed to get wallet ", "error ", err, " user ", userID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// getWalletByAddress is a handler for the address lookup endpoint.
func (s *HTTPServer) getWalletByAddress(c *gin.Context) {
	address := c.Param("address")

	if _, err := validation.ValidateAndNormalizeAddress(address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := s.custodia.GetWalletByAddress(address)
	if err != nil {
		s.logger.Debug("Failed to get wallet by address ", "error ", err, " address ", address)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// getLedger is a handler for the paginated ledger endpoint.
func (s *HTTPServer) getLedger(c *gin.Context) {
	userID := c.Param("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := s.custodia.ListLedger(userID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list ledger ", "error ", err, " user ", userID)
		c.JSON(statusForError(err), gin.H{"error": "failed to list ledger"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "limit": limit, "offset": offset})
}

// createCheckout is a handler for creating a provider checkout session.
func (s *HTTPServer) createCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body ", "error ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if req.Purpose == models.CheckoutPurposeContractFee && req.ContractID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract_id is required for contract fee checkout"})
		return
	}

	session, err := s.custodia.CreateCheckout(c.Request.Context(), &models.CheckoutRequest{
		UserID:      req.UserID,
		Purpose:     req.Purpose,
		ContractID:  req.ContractID,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		s.logger.Error("Failed to create checkout session ", "error ", err, " user ", req.UserID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// sendTip is a handler for the user-to-user token transfer.
func (s *HTTPServer) sendTip(c *gin.Context) {
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body ", "error ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := s.custodia.SendTip(req.FromUserID, req.ToUserID, req.AmountTokens, req.Note); err != nil {
		s.logger.Debug("Failed to send tip ", "error ", err, " from ", req.FromUserID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// requestRedemption is a handler for the token redemption request.
func (s *HTTPServer) requestRedemption(c *gin.Context) {
	var req RedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body ", "error ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := s.custodia.RequestRedemption(req.UserID, req.AmountTokens); err != nil {
		s.logger.Debug("Failed to request redemption ", "error ", err, " user ", req.UserID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// registerContract is a handler for registering a contract's payment slice.
func (s *HTTPServer) registerContract(c *gin.Context) {
	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body ", "error ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	contract := &models.Contract{
		ID:              req.ID,
		FamilyID:        req.FamilyID,
		CaregiverID:     req.CaregiverID,
		HourlyRateCents: req.HourlyRateCents,
		TotalHours:      req.TotalHours,
	}
	if err := s.custodia.RegisterContract(contract); err != nil {
		s.logger.Error("Failed to register contract ", "error ", err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// acceptContract opens the escrow hold and returns the funding checkout.
func (s *HTTPServer) acceptContract(c *gin.Context) {
	contractID := c.Param("id")

	session, err := s.custodia.AcceptContract(c.Request.Context(), contractID)
	if err != nil {
		s.logger.Error("Failed to accept contract ", "error ", err, " contract ", contractID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// completeContract releases the escrow to the caregiver.
func (s *HTTPServer) completeContract(c *gin.Context) {
	contractID := c.Param("id")

	if err := s.custodia.CompleteContract(contractID); err != nil {
		s.logger.Error("Failed to complete contract ", "error ", err, " contract ", contractID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// cancelContract refunds the escrow to the family.
func (s *HTTPServer) cancelContract(c *gin.Context) {
	contractID := c.Param("id")

	if err := s.custodia.CancelContract(contractID); err != nil {
		s.logger.Error("Failed to cancel contract ", "error ", err, " contract ", contractID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handlePaymentWebhook is the single entry point for provider events.
// Duplicates answer success so the provider stops retrying; everything the
// provider should retry answers 503.
func (s *HTTPServer) handlePaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	err = s.custodia.HandlePaymentEvent(c.Request.Context(), payload)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, models.ErrDuplicateEvent):
		c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
	case errors.Is(err, payments.ErrMalformedEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Failed to process payment event ", "error ", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "processing failed, retry"})
	}
}
