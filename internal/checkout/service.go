package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/commercezen/engine/internal/cart"
	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/internal/orders"
	"github.com/commercezen/engine/pkg/config"
	"github.com/commercezen/engine/pkg/enums"
	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/logger"
	"github.com/commercezen/engine/pkg/sessionstore"
	"github.com/commercezen/engine/pkg/types"
	"github.com/shopspring/decimal"
)

// CardDetails is the payment form input. The number is validated for shape
// only; no real processor sits behind this service.
type CardDetails struct {
	Name   string `json:"name" validate:"required,min=2"`
	Number string `json:"cardNumber" validate:"required,numeric,min=13,max=19"`
	Expiry string `json:"expiryDate" validate:"required,min=4"`
	CVC    string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Provider *identity.Provider
	Cart     *cart.Manager
	Engine   *orders.Engine
	Sessions sessionstore.Store
	Payment  config.PaymentConfig
	Delivery config.DeliveryConfig
	Logger   *logger.Logger
	// Now and Rand are injectable for tests. They default to time.Now and
	// a time-seeded source.
	Now  func() time.Time
	Rand *rand.Rand
}

// Service runs the two-step purchase flow. Checkout snapshots the cart into
// a short-lived pending order; Pay settles or declines that snapshot. The
// cart is only cleared after a successful payment, so a decline or an
// abandoned checkout loses nothing.
type Service struct {
	provider *identity.Provider
	cart     *cart.Manager
	engine   *orders.Engine
	sessions sessionstore.Store
	payment  config.PaymentConfig
	delivery config.DeliveryConfig
	logg     *logger.Logger
	validate *validator.Validate
	now      func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart manager required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("order engine required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	rng := params.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		provider: params.Provider,
		cart:     params.Cart,
		engine:   params.Engine,
		sessions: params.Sessions,
		payment:  params.Payment,
		delivery: params.Delivery,
		logg:     params.Logger,
		validate: validator.New(),
		now:      now,
		rand:     rng,
	}, nil
}

// Checkout snapshots the current cart into a pending order for the shipping
// address. The snapshot captures today's prices; later catalog changes do
// not reprice it. Nothing is committed to the order history yet.
func (s *Service) Checkout(ctx context.Context, address types.Address) (*orders.Order, error) {
	current, ok := s.provider.Current()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeLoginRequired, "log in to check out")
	}
	if err := s.validate.Struct(address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	lines := s.cart.Items(ctx)
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	now := s.now()
	items := make([]orders.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		items = append(items, orders.OrderItem{
			ProductID:       line.ID,
			Name:            line.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Price,
		})
		total = total.Add(line.Subtotal())
	}

	order := orders.Order{
		ID:                    s.newOrderID(now),
		UserID:                current.ID,
		Date:                  now,
		Items:                 items,
		TotalAmount:           total,
		ShippingAddress:       address,
		Status:                enums.OrderStatusProcessing,
		EstimatedDeliveryDate: now.AddDate(0, 0, s.deliveryDays()),
	}

	doc, err := json.Marshal(order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending order")
	}
	if err := s.sessions.Put(ctx, sessionstore.NamespacePendingOrder, current.ID, doc, s.payment.PendingTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage pending order")
	}
	return &order, nil
}

// PendingOrder returns the staged checkout snapshot, if one exists.
func (s *Service) PendingOrder(ctx context.Context) (*orders.Order, error) {
	current, ok := s.provider.Current()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeLoginRequired, "log in to check out")
	}
	return s.loadPending(ctx, current.ID)
}

// Pay settles the pending order. A declined card keeps both the pending
// order and the cart intact so the shopper can retry; success commits the
// order to the history, discards the snapshot, and empties the cart.
func (s *Service) Pay(ctx context.Context, card CardDetails) (*orders.Order, error) {
	current, ok := s.provider.Current()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeLoginRequired, "log in to check out")
	}

	card.Number = strings.ReplaceAll(card.Number, " ", "")
	if err := s.validate.Struct(card); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid card details")
	}

	order, err := s.loadPending(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	if s.payment.ProcessingDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.payment.ProcessingDelay):
		}
	}

	if s.payment.DeclinePrefix != "" && strings.HasPrefix(card.Number, s.payment.DeclinePrefix) {
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "card declined")
	}

	if err := s.engine.Add(ctx, *order); err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, sessionstore.NamespacePendingOrder, current.ID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to discard settled pending order", err)
	}
	s.cart.Clear(ctx)
	return order, nil
}

func (s *Service) loadPending(ctx context.Context, identityID string) (*orders.Order, error) {
	doc, err := s.sessions.Get(ctx, sessionstore.NamespacePendingOrder, identityID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no pending order to pay for")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
	}
	var order orders.Order
	if err := json.Unmarshal(doc, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode pending order")
	}
	return &order, nil
}

// deliveryDays picks a whole number of days within the configured window.
func (s *Service) deliveryDays() int {
	minDays, maxDays := s.delivery.MinDays, s.delivery.MaxDays
	if minDays <= 0 {
		minDays = 5
	}
	if maxDays < minDays {
		maxDays = minDays
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return minDays + s.rand.Intn(maxDays-minDays+1)
}

func (s *Service) newOrderID(now time.Time) string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return orders.NewOrderID(now, s.rand)
}
