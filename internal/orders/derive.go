package orders

import (
	"time"

	"github.com/commercezen/engine/pkg/config"
	"github.com/commercezen/engine/pkg/enums"
)

// DeliveryPolicy holds the thresholds that map elapsed delivery time onto a
// lifecycle status.
type DeliveryPolicy struct {
	// ShippedFraction of the delivery window after which the order reads
	// as shipped.
	ShippedFraction float64
	// OutForDeliveryFraction of the window after which it reads as out
	// for delivery.
	OutForDeliveryFraction float64
	// NearDeliveryWindow promotes to out for delivery when the estimate
	// is at most this close, regardless of the elapsed fraction.
	NearDeliveryWindow time.Duration
}

// DefaultDeliveryPolicy mirrors the configuration defaults.
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		ShippedFraction:        0.25,
		OutForDeliveryFraction: 0.75,
		NearDeliveryWindow:     24 * time.Hour,
	}
}

// PolicyFromConfig maps the delivery configuration onto a policy.
func PolicyFromConfig(cfg config.DeliveryConfig) DeliveryPolicy {
	return DeliveryPolicy{
		ShippedFraction:        cfg.ShippedFraction,
		OutForDeliveryFraction: cfg.OutForDeliveryFraction,
		NearDeliveryWindow:     cfg.NearDeliveryWindow,
	}
}

// DeriveStatus computes the lifecycle status an order should show at the
// given instant. Delivered is sticky: once an order reaches it, no clock
// reading can move it back. Orders without a delivery estimate keep whatever
// status is stored.
func (p DeliveryPolicy) DeriveStatus(order Order, now time.Time) enums.OrderStatus {
	if order.Status == enums.OrderStatusDelivered {
		return enums.OrderStatusDelivered
	}
	if order.EstimatedDeliveryDate.IsZero() {
		return order.Status
	}
	if !now.Before(order.EstimatedDeliveryDate) {
		return enums.OrderStatusDelivered
	}

	window := order.EstimatedDeliveryDate.Sub(order.Date)
	if window <= 0 {
		return enums.OrderStatusOutForDelivery
	}

	elapsed := now.Sub(order.Date)
	fraction := float64(elapsed) / float64(window)
	remaining := order.EstimatedDeliveryDate.Sub(now)

	switch {
	case fraction >= p.OutForDeliveryFraction || remaining <= p.NearDeliveryWindow:
		return enums.OrderStatusOutForDelivery
	case fraction >= p.ShippedFraction:
		return enums.OrderStatusShipped
	default:
		return enums.OrderStatusProcessing
	}
}
