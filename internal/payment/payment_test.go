package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGatewayWallet(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway(map[string]float64{"guest-1": 500})

	auth, err := g.Authorize(ctx, Charge{UserID: "guest-1", Method: MethodWallet, Amount: 399.5})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Reference)
	assert.InDelta(t, 100.5, g.Balance("guest-1"), 1e-9)

	_, err = g.Authorize(ctx, Charge{UserID: "guest-1", Method: MethodWallet, Amount: 200})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.InDelta(t, 100.5, g.Balance("guest-1"), 1e-9, "failed charge leaves the balance untouched")

	require.NoError(t, g.Void(ctx, auth.Reference))
	assert.InDelta(t, 500.0, g.Balance("guest-1"), 1e-9)
	assert.ErrorIs(t, g.Void(ctx, auth.Reference), ErrUnknownReference)
}

func TestMockGatewayCard(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway(nil)

	auth, err := g.Authorize(ctx, Charge{UserID: "guest-1", Method: MethodCard, Amount: 50, CardToken: "tok_visa"})
	require.NoError(t, err)
	assert.Equal(t, MethodCard, auth.Method)

	_, err = g.Authorize(ctx, Charge{UserID: "guest-1", Method: MethodCard, Amount: 50, CardToken: "tok_declined_insufficient"})
	assert.ErrorIs(t, err, ErrCardDeclined)
}

func TestMockGatewayRejectsBadCharges(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway(map[string]float64{"guest-1": 100})

	_, err := g.Authorize(ctx, Charge{UserID: "guest-1", Method: "crypto", Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = g.Authorize(ctx, Charge{UserID: "guest-1", Method: MethodWallet, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	g.TopUp("guest-2", 20)
	assert.Equal(t, 20.0, g.Balance("guest-2"))
}
