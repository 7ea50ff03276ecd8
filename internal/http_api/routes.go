package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	v1 := s.router.Group("/api/v1")

	v1.GET("/wallet/:user_id", s.getWallet)
	v1.GET("/wallet/:user_id/ledger", s.getLedger)
	v1.GET("/address/:address", s.getWalletByAddress)
	v1.POST("/checkout", s.createCheckout)
	v1.POST("/tips", s.sendTip)
	v1.POST("/redemptions", s.requestRedemption)

	v1.POST("/contracts", s.registerContract)
	v1.POST("/contracts/:id/accept", s.acceptContract)
	v1.POST("/contracts/:id/complete", s.completeContract)
	v1.POST("/contracts/:id/cancel", s.cancelContract)

	v1.POST("/webhooks/payments", s.handlePaymentWebhook)

	admin := v1.Group("/admin", s.adminAuthMiddleware())
	admin.POST("/tokens/adjust", s.adjustTokens)
	admin.POST("/escrow/resolve", s.resolveEscrow)
	admin.PUT("/settings", s.updateSettings)
	admin.GET("/reconciliation", s.getReconciliation)
}
