package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-booking-backend/internal/auth"
	"github.com/nekogravitycat/space-booking-backend/internal/availability"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
)

type Handler struct {
	service reservation.Service
}

func NewHandler(service reservation.Service) *Handler {
	return &Handler{service: service}
}

func writeError(c *gin.Context, err error) {
	var conflict *availability.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:  conflict.Error(),
			Date:   conflict.Date,
			Hour:   conflict.Hour,
			Status: string(conflict.Status),
		})
		return
	}
	response.Error(c, err)
}

func (h *Handler) Availability(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	var query AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	day, err := h.service.Availability(c.Request.Context(), uri.ID, query.Date)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{
		ListingID:   uri.ID,
		Date:        day.Date,
		Status:      string(day.Status),
		OpenHours:   day.OpenHours,
		BookedHours: day.BookedHours,
	})
}

func (h *Handler) Quote(c *gin.Context) {
	var body BookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	q, err := h.service.Quote(c.Request.Context(), body.toRequest(auth.GetUserID(c)))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewQuoteResponse(q))
}

func (h *Handler) Create(c *gin.Context) {
	var body BookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.service.Create(c.Request.Context(), body.toRequest(auth.GetUserID(c)))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateBookingResponse{
		GroupID:          res.GroupID,
		PaymentReference: res.PaymentReference,
		Breakdown:        NewBreakdownResponse(res.Breakdown),
		Bookings:         NewBookingResponses(res.Bookings),
	})
}

func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	items := NewBookingResponses(list)
	c.JSON(http.StatusOK, response.NewPageResponse(items, 1, len(items), len(items)))
}

func (h *Handler) ListHosted(c *gin.Context) {
	list, err := h.service.ListHosted(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	items := NewBookingResponses(list)
	c.JSON(http.StatusOK, response.NewPageResponse(items, 1, len(items), len(items)))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	b, err := h.service.Get(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Pay(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	var body PaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.service.Pay(c.Request.Context(), uri.ID, auth.GetUserID(c), body.toDetails())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Confirm(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	b, err := h.service.Confirm(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	var body CancelRequest
	// The body is optional; an empty one refunds in full.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	b, err := h.service.Cancel(c.Request.Context(), uri.ID, auth.GetUserID(c), body.RefundAmount)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Release(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	tx, err := h.service.Release(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PayoutResponse{
		TransactionID: tx.ID,
		BookingID:     tx.BookingID,
		Amount:        tx.Amount,
		ToUserID:      tx.ToUserID,
		Timestamp:     tx.Timestamp,
	})
}
