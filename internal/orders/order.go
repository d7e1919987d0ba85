package orders

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/commercezen/engine/pkg/enums"
	"github.com/commercezen/engine/pkg/types"
	"github.com/shopspring/decimal"
)

// OrderItem captures a purchased line with the price in effect at checkout.
// Later catalog price changes never alter a placed order.
type OrderItem struct {
	ProductID       string          `json:"productId"`
	Name            string          `json:"name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

// Subtotal returns the captured price multiplied by quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is one placed order. The JSON field names are the persisted wire
// format and must stay stable across releases.
type Order struct {
	ID                    string            `json:"id"`
	UserID                string            `json:"userId"`
	Date                  time.Time         `json:"date"`
	Items                 []OrderItem       `json:"items"`
	TotalAmount           decimal.Decimal   `json:"totalAmount"`
	ShippingAddress       types.Address     `json:"shippingAddress"`
	Status                enums.OrderStatus `json:"status"`
	EstimatedDeliveryDate time.Time         `json:"estimatedDeliveryDate"`
}

// Terminal reports whether the order finished its lifecycle.
func (o Order) Terminal() bool {
	return o.Status.Terminal()
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewOrderID builds an id from the creation time plus a short random suffix,
// e.g. "order_1735689600123_x9k2m". Ids embed the timestamp so a lexical tie
// break still tracks creation order.
func NewOrderID(now time.Time, rng *rand.Rand) string {
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = idAlphabet[rng.Intn(len(idAlphabet))]
	}
	return fmt.Sprintf("order_%d_%s", now.UnixMilli(), suffix)
}

// SortNewestFirst orders by placement date descending, id descending as the
// tie break, matching the persisted layout.
func SortNewestFirst(list []Order) {
	sort.Slice(list, func(i, j int) bool {
		return newer(list[i], list[j])
	})
}

func newer(a, b Order) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}
