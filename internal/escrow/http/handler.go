package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/space-booking-backend/internal/escrow"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/space-booking-backend/internal/scheduler"
)

// ReleaseChecker runs one release pass on demand.
type ReleaseChecker interface {
	TriggerCheck(ctx context.Context, onRelease scheduler.OnRelease) (scheduler.Result, error)
}

type Handler struct {
	ledger  escrow.Ledger
	checker ReleaseChecker
	logger  *logrus.Logger
}

func NewHandler(ledger escrow.Ledger, checker ReleaseChecker, logger *logrus.Logger) *Handler {
	return &Handler{ledger: ledger, checker: checker, logger: logger}
}

func (h *Handler) Financials(c *gin.Context) {
	f, err := h.ledger.PlatformFinancials(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewFinancialsResponse(f))
}

func (h *Handler) Transactions(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	txs, err := h.ledger.Transactions(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		items[i] = NewTransactionResponse(tx)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, 1, len(items), len(items)))
}

func (h *Handler) ReleaseCheck(c *gin.Context) {
	res, err := h.checker.TriggerCheck(c.Request.Context(), func(bookingID string, amount float64) {
		h.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"amount":     amount,
		}).Info("escrow released by manual check")
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, ReleaseCheckResponse{
		Due:      res.Due,
		Released: res.Released,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
	})
}
