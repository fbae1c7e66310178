package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type cartSubtotalKey struct{}

// WithCartSubtotal attaches the shopper's current cart subtotal.
func WithCartSubtotal(ctx context.Context, subtotal decimal.Decimal) context.Context {
	return context.WithValue(ctx, cartSubtotalKey{}, subtotal)
}

// CartReader exposes the cart subtotal used by order_total pricing rules.
type CartReader interface {
	Subtotal(ctx context.Context) decimal.Decimal
}

// ContextCart reads the subtotal placed on the request context. No cart
// means a subtotal of 0.
type ContextCart struct{}

func (ContextCart) Subtotal(ctx context.Context) decimal.Decimal {
	if ctx == nil {
		return decimal.Zero
	}
	if v, ok := ctx.Value(cartSubtotalKey{}).(decimal.Decimal); ok {
		return v
	}
	return decimal.Zero
}

// OrderItem is one line of a completed order.
type OrderItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}
