// Package payment authorizes guest charges before a booking is persisted.
// The rail itself is external; MockGateway stands in for it with a card path
// and a wallet path.
package payment

import (
	"context"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var (
	ErrInsufficientFunds = apperror.New(http.StatusPaymentRequired, "insufficient wallet balance")
	ErrCardDeclined      = apperror.New(http.StatusPaymentRequired, "card was declined")
	ErrInvalidMethod     = apperror.New(http.StatusBadRequest, "unsupported payment method")
	ErrInvalidAmount     = apperror.New(http.StatusBadRequest, "charge amount must be positive")
	ErrUnknownReference  = apperror.New(http.StatusNotFound, "payment reference not found")
)

type Method string

const (
	MethodCard   Method = "card"
	MethodWallet Method = "wallet"
)

type Charge struct {
	UserID    string
	Method    Method
	Amount    float64
	CardToken string
}

type Authorization struct {
	Reference string
	Method    Method
	Amount    float64
}

type Gateway interface {
	Authorize(ctx context.Context, charge Charge) (*Authorization, error)
	// Void returns an authorized charge that could not be used.
	Void(ctx context.Context, reference string) error
}

// declinedTokenPrefix marks test card tokens the mock rejects.
const declinedTokenPrefix = "tok_declined"

type MockGateway struct {
	mu       sync.Mutex
	balances map[string]float64
	charges  map[string]Charge
}

func NewMockGateway(balances map[string]float64) *MockGateway {
	b := make(map[string]float64, len(balances))
	for k, v := range balances {
		b[k] = v
	}
	return &MockGateway{balances: b, charges: make(map[string]Charge)}
}

func (g *MockGateway) Authorize(ctx context.Context, charge Charge) (*Authorization, error) {
	if charge.Amount <= 0 || math.IsNaN(charge.Amount) {
		return nil, ErrInvalidAmount
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch charge.Method {
	case MethodCard:
		if strings.HasPrefix(charge.CardToken, declinedTokenPrefix) {
			return nil, ErrCardDeclined
		}
	case MethodWallet:
		if g.balances[charge.UserID] < charge.Amount {
			return nil, ErrInsufficientFunds
		}
		g.balances[charge.UserID] -= charge.Amount
	default:
		return nil, ErrInvalidMethod
	}

	ref := "PSK_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g.charges[ref] = charge
	return &Authorization{Reference: ref, Method: charge.Method, Amount: charge.Amount}, nil
}

func (g *MockGateway) Void(ctx context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	charge, ok := g.charges[reference]
	if !ok {
		return ErrUnknownReference
	}
	if charge.Method == MethodWallet {
		g.balances[charge.UserID] += charge.Amount
	}
	delete(g.charges, reference)
	return nil
}

// TopUp credits a wallet.
func (g *MockGateway) TopUp(userID string, amount float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balances[userID] += amount
}

func (g *MockGateway) Balance(userID string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[userID]
}
