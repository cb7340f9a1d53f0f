package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

// Store is the persistence the materializer needs. Lookups return (nil, nil)
// when nothing matches.
type Store interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	InsertUser(ctx context.Context, u domain.User) (bool, error)
	UpsertUser(ctx context.Context, u domain.User) error
	FindOrder(ctx context.Context, basketID, userID string) (*domain.Order, error)
	CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error)
	FindItem(ctx context.Context, orderID, productID string) (*domain.OrderItem, error)
	CreateItem(ctx context.Context, item *domain.OrderItem) (bool, error)
	OrderByBasketID(ctx context.Context, basketID string) (*domain.Order, error)
}

// UnknownUserPolicy decides what a UserUpdated event does for a user that
// was never created.
type UnknownUserPolicy string

const (
	UnknownUserCreate UnknownUserPolicy = "create"
	UnknownUserDrop   UnknownUserPolicy = "drop"
)

const (
	outcomeCreated   = "created"
	outcomeUpdated   = "updated"
	outcomeDuplicate = "duplicate"
	outcomeIgnored   = "ignored"
	outcomeMalformed = "malformed"
	outcomeFailed    = "failed"
)

// Materializer builds orders from ProductCheckedOut events and keeps the
// user address snapshots used for delivery.
type Materializer struct {
	store  Store
	policy UnknownUserPolicy
	logger *slog.Logger
	events metric.Int64Counter
	now    func() time.Time
}

type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

func NewMaterializer(store Store, policy UnknownUserPolicy, logger *slog.Logger, opts ...Option) (*Materializer, error) {
	o := options{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	events, err := o.meterProvider.Meter("orders/materializer").Int64Counter("materializer.events",
		metric.WithDescription("Events handled by the order materializer"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create events counter")
	}
	if policy == "" {
		policy = UnknownUserCreate
	}
	return &Materializer{
		store:  store,
		policy: policy,
		logger: logger,
		events: events,
		now:    time.Now,
	}, nil
}

func (m *Materializer) record(ctx context.Context, kind domain.EventType, outcome string) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}

// decode drops payloads that cannot be decoded; ok is false for those.
func (m *Materializer) decode(ctx context.Context, payload []byte) (domain.Event, bool) {
	event, err := domain.DecodeEvent(payload)
	if err != nil {
		m.logger.WarnContext(ctx, "dropping malformed event", "error", err)
		m.record(ctx, "", outcomeMalformed)
		return nil, false
	}
	return event, true
}

func (m *Materializer) ignore(ctx context.Context, event domain.Event) error {
	m.logger.InfoContext(ctx, "ignoring event", "type", event.EventType())
	m.record(ctx, event.EventType(), outcomeIgnored)
	return nil
}

// HandleUserEvent consumes user.events.
func (m *Materializer) HandleUserEvent(ctx context.Context, payload []byte) error {
	event, ok := m.decode(ctx, payload)
	if !ok {
		return nil
	}

	switch e := event.(type) {
	case domain.UserEvent:
		outcome, err := m.applyUser(ctx, e)
		if err != nil {
			m.record(ctx, e.Type, outcomeFailed)
			return err
		}
		m.record(ctx, e.Type, outcome)
		return nil
	default:
		return m.ignore(ctx, event)
	}
}

// HandleBasketEvent consumes basket.checkout. A FatalProcessingError means
// the message must not be committed.
func (m *Materializer) HandleBasketEvent(ctx context.Context, payload []byte) error {
	event, ok := m.decode(ctx, payload)
	if !ok {
		return nil
	}

	switch e := event.(type) {
	case domain.ProductCheckedOutEvent:
		outcome, err := m.applyCheckedOut(ctx, e)
		if err != nil {
			m.record(ctx, e.Type, outcomeFailed)
			return err
		}
		m.record(ctx, e.Type, outcome)
		return nil
	default:
		return m.ignore(ctx, event)
	}
}

func (m *Materializer) applyUser(ctx context.Context, e domain.UserEvent) (string, error) {
	if e.ID == "" {
		m.logger.WarnContext(ctx, "dropping user event without id", "type", e.Type)
		return outcomeMalformed, nil
	}
	user := e.User()

	if e.Type == domain.EventTypeUserCreated {
		created, err := m.store.InsertUser(ctx, user)
		if err != nil {
			return "", errors.Wrap(err, "insert user")
		}
		if !created {
			m.logger.InfoContext(ctx, "user already exists", "user_id", user.ID)
			return outcomeDuplicate, nil
		}
		m.logger.InfoContext(ctx, "user snapshot created", "user_id", user.ID)
		return outcomeCreated, nil
	}

	existing, err := m.store.GetUser(ctx, user.ID)
	if err != nil {
		return "", errors.Wrap(err, "get user")
	}
	if existing == nil && m.policy == UnknownUserDrop {
		m.logger.WarnContext(ctx, "dropping update of unknown user", "user_id", user.ID)
		return outcomeIgnored, nil
	}

	if err := m.store.UpsertUser(ctx, user); err != nil {
		return "", errors.Wrap(err, "upsert user")
	}
	if existing == nil {
		m.logger.InfoContext(ctx, "user snapshot created from update", "user_id", user.ID)
		return outcomeCreated, nil
	}
	m.logger.InfoContext(ctx, "user snapshot updated", "user_id", user.ID)
	return outcomeUpdated, nil
}

func (m *Materializer) applyCheckedOut(ctx context.Context, e domain.ProductCheckedOutEvent) (string, error) {
	if e.BasketID == "" || e.UserID == "" || e.ProductID == "" {
		m.logger.WarnContext(ctx, "dropping checkout event with missing keys",
			"basket_id", e.BasketID, "user_id", e.UserID, "product_id", e.ProductID)
		return outcomeMalformed, nil
	}
	if e.Quantity < 1 {
		m.logger.WarnContext(ctx, "dropping checkout event with non-positive quantity",
			"basket_id", e.BasketID, "product_id", e.ProductID, "quantity", e.Quantity)
		return outcomeMalformed, nil
	}

	order, err := m.store.FindOrder(ctx, e.BasketID, e.UserID)
	if err != nil {
		return "", errors.Wrap(err, "find order")
	}
	if order == nil {
		order, err = m.createOrder(ctx, e)
		if err != nil {
			return "", err
		}
	}

	existing, err := m.store.FindItem(ctx, order.ID, e.ProductID)
	if err != nil {
		return "", errors.Wrap(err, "find order item")
	}
	if existing != nil {
		m.logger.InfoContext(ctx, "duplicate checkout event",
			"order_id", order.ID, "product_id", e.ProductID, "correlation_id", e.CorrelationID)
		return outcomeDuplicate, nil
	}

	item := &domain.OrderItem{
		OrderID:           order.ID,
		ProductID:         e.ProductID,
		Name:              e.Name,
		Description:       e.Description,
		Quantity:          e.Quantity,
		Price:             e.Price,
		DiscountedPrice:   e.DiscountedPrice,
		DiscountPercent:   e.DiscountPercent,
		IncludeInDelivery: e.IncludeInDelivery,
	}
	created, err := m.store.CreateItem(ctx, item)
	if err != nil {
		return "", errors.Wrap(err, "create order item")
	}
	if !created {
		return outcomeDuplicate, nil
	}

	m.logger.InfoContext(ctx, "order item materialized",
		"order_id", order.ID,
		"basket_id", e.BasketID,
		"product_id", e.ProductID,
		"quantity", e.Quantity,
		"correlation_id", e.CorrelationID,
	)
	return outcomeCreated, nil
}

func (m *Materializer) createOrder(ctx context.Context, e domain.ProductCheckedOutEvent) (*domain.Order, error) {
	user, err := m.store.GetUser(ctx, e.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	if user == nil {
		m.logger.ErrorContext(ctx, "no user snapshot for checkout event",
			"basket_id", e.BasketID, "user_id", e.UserID)
		return nil, &domain.FatalProcessingError{
			Reason: fmt.Sprintf("user %s unknown for basket %s", e.UserID, e.BasketID),
		}
	}

	order, err := m.store.CreateOrder(ctx, &domain.Order{
		ID:              domain.NewOrderID(),
		BasketID:        e.BasketID,
		UserID:          e.UserID,
		DeliveryAddress: deliveryAddress(user),
		CreatedAt:       m.now().UTC(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	m.logger.InfoContext(ctx, "order created", "order_id", order.ID, "basket_id", e.BasketID, "user_id", e.UserID)
	return order, nil
}

func deliveryAddress(u *domain.User) domain.Address {
	if a := u.ShippingAddress(); a != nil {
		return *a
	}
	return domain.Address{}
}
