package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	// === Public Routes ===
	g.GET("/listings/:id/availability", h.Availability)

	// === Authenticated Routes ===
	authed := g.Group("")
	authed.Use(authMiddleware)
	{
		authed.POST("/quotes", h.Quote)
		authed.GET("/host/bookings", h.ListHosted)
	}

	group := g.Group("/bookings")
	group.Use(authMiddleware)
	{
		group.GET("", h.ListMine)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.POST("/:id/pay", h.Pay)
		group.POST("/:id/confirm", h.Confirm)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/release", h.Release)
	}
}
