package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	// === System Admin Routes ===
	adminGroup := g.Group("/escrow")
	adminGroup.Use(authMiddleware, adminMiddleware)
	{
		adminGroup.GET("/financials", h.Financials)
		adminGroup.GET("/bookings/:id/transactions", h.Transactions)
		adminGroup.POST("/release-check", h.ReleaseCheck)
	}
}
