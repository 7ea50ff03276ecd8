package http_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curavia/custodia/internal/models"
)

// AdjustTokensRequest represents the JSON body for a manual ledger adjustment
type AdjustTokensRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	Type         string `json:"type" binding:"required,oneof=CREDIT DEBIT"`
	AmountTokens int64  `json:"amount_tokens" binding:"required,gt=0"`
	Reason       string `json:"reason" binding:"required"`
}

// ResolveEscrowRequest represents the JSON body for an admin escrow resolution
type ResolveEscrowRequest struct {
	ContractID       string `json:"contract_id" binding:"required"`
	Resolution       string `json:"resolution" binding:"required,oneof=favor_caregiver favor_family split"`
	FamilyShareCents int64  `json:"family_share_cents"`
	Notes            string `json:"notes"`
}

// adminAuthMiddleware guards the admin group with a static API key. Every
// admin mutation records the acting operator from the request headers.
func (s *HTTPServer) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminAPIKey == "" || c.GetHeader("X-Admin-Key") != s.adminAPIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// actorFromRequest builds the audit identity for an admin mutation.
func (s *HTTPServer) actorFromRequest(c *gin.Context) *models.AdminActor {
	actorID := c.GetHeader("X-Admin-Actor")
	if actorID == "" {
		actorID = "unknown"
	}
	return &models.AdminActor{
		ID:        actorID,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// adjustTokens is a handler for the manual credit/debit endpoint.
func (s *HTTPServer) adjustTokens(c *gin.Context) {
	var req AdjustTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body ", "error ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	entry, err := s.custodia.AdjustTokens(s.actorFromRequest(c), req.UserID, models.EntryType(req.Type), req.AmountTokens, req.Reason)
	if err != nil {
		s.logger.Error("Failed to adjust tokens ", "error ", err, " user ", req.UserID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// resolveEscrow is a handler for the admin dispute resolution endpoint.
func (s *HTTPServer) resolveEscrow(c *gin.Context) {
	var req ResolveEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body ", "error ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	hold, err := s.custodia.ResolveEscrow(s.actorFromRequest(c), req.ContractID, req.Resolution, req.FamilyShareCents, req.Notes)
	if err != nil {
		s.logger.Error("Failed to resolve escrow ", "error ", err, " contract ", req.ContractID)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, hold)
}

// updateSettings is a handler for the platform settings endpoint.
func (s *HTTPServer) updateSettings(c *gin.Context) {
	var req models.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body ", "error ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	settings, err := s.custodia.UpdateSettings(s.actorFromRequest(c), &req)
	if err != nil {
		s.logger.Error("Failed to update settings ", "error ", err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// getReconciliation is a handler for the on-demand reconciliation report.
func (s *HTTPServer) getReconciliation(c *gin.Context) {
	report, err := s.custodia.Reconcile()
	if err != nil {
		s.logger.Error("Failed to run reconciliation ", "error ", err)
		c.JSON(statusForError(err), gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}
