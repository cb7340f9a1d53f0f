// Package basket implements the basket aggregate: line mutations, checkout
// with the promotion discount, and the read-side preview.
package basket

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/joao-fontenele/groceryflow/internal/discount"
	"github.com/joao-fontenele/groceryflow/internal/domain"
	"github.com/joao-fontenele/groceryflow/internal/messaging"
	"github.com/joao-fontenele/groceryflow/internal/telemetry"
)

// ErrVersionConflict is returned by Store.Save when the stored basket was
// modified after it was loaded.
var ErrVersionConflict = errors.New("basket version conflict")

// Store persists baskets. Get returns (nil, nil) when the basket does not
// exist. Save must reject the write with ErrVersionConflict unless the stored
// version equals b.Version, and on success increments b.Version.
type Store interface {
	Get(ctx context.Context, id string) (*domain.Basket, error)
	Save(ctx context.Context, b *domain.Basket) error
}

// UserLookup returns (nil, nil) for unknown users.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// ProductLookup returns (nil, nil) for unknown products.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Publisher interface {
	PublishBatch(ctx context.Context, msgs []messaging.Message) error
}

type Config struct {
	// DiscountPercentBP is the checkout discount in basis points.
	DiscountPercentBP  int64
	MaxConflictRetries uint64
	RetryInitialWait   time.Duration
}

func DefaultConfig() Config {
	return Config{
		DiscountPercentBP:  2000,
		MaxConflictRetries: 5,
		RetryInitialWait:   10 * time.Millisecond,
	}
}

type Service struct {
	store     Store
	users     UserLookup
	products  ProductLookup
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, users UserLookup, products ProductLookup, publisher Publisher, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		users:     users,
		products:  products,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

type AddItemRequest struct {
	BasketID  string `json:"basketId,omitempty"`
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type RemoveItemRequest struct {
	BasketID  string `json:"basketId"`
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type PreviewProduct struct {
	ProductID       string       `json:"productId"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Quantity        int64        `json:"quantity"`
	Price           domain.Money `json:"price"`
	DiscountedPrice domain.Money `json:"discountedPrice"`
	DiscountPercent int64        `json:"discountPercent"`
}

type Preview struct {
	BasketID        string           `json:"basketId"`
	UserID          string           `json:"userId"`
	BasketValue     domain.Money     `json:"basketValue"`
	Products        []PreviewProduct `json:"products"`
	DeliveryAddress *domain.Address  `json:"deliveryAddress,omitempty"`
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validateItem(userID, productID string, quantity int64) error {
	if blank(userID) {
		return domain.NewValidationError("userId", "is required")
	}
	if blank(productID) {
		return domain.NewValidationError("productId", "is required")
	}
	if quantity < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	return nil
}

func (s *Service) AddItem(ctx context.Context, req AddItemRequest) (*domain.Basket, error) {
	if err := validateItem(req.UserID, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.requireUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	product, err := s.requireProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Category.IsPromotion() && req.Quantity > 1 {
		return nil, domain.Conflictf("cannot apply multiple promotions")
	}

	var result *domain.Basket
	err = s.withRetry(ctx, func() error {
		var b *domain.Basket
		if blank(req.BasketID) {
			b = domain.NewBasket(req.UserID, s.now())
		} else {
			b, err = s.loadOwned(ctx, req.BasketID, req.UserID)
			if err != nil {
				return err
			}
		}

		if idx := b.LineIndex(product.ID); idx >= 0 {
			if b.Lines[idx].Category.IsPromotion() {
				return domain.Conflictf("cannot apply multiple promotions")
			}
			if err := requireMutable(b); err != nil {
				return err
			}
			b.Lines[idx].Quantity += req.Quantity
		} else {
			if product.Category.IsPromotion() && b.HasPromotion() {
				return domain.Conflictf("cannot apply multiple promotions")
			}
			if err := requireMutable(b); err != nil {
				return err
			}
			b.Lines = append(b.Lines, domain.NewBasketLine(*product, req.Quantity))
		}

		b.Status = domain.BasketStatusActive
		b.UpdatedAt = s.now()
		if err := s.store.Save(ctx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to basket",
		"basket_id", result.ID,
		"product_id", product.ID,
		"quantity", req.Quantity,
	)
	return result, nil
}

func (s *Service) RemoveItem(ctx context.Context, req RemoveItemRequest) (*domain.Basket, error) {
	if blank(req.BasketID) {
		return nil, domain.NewValidationError("basketId", "is required")
	}
	if err := validateItem(req.UserID, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.requireUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if _, err := s.requireProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	var result *domain.Basket
	err := s.withRetry(ctx, func() error {
		b, err := s.loadOwned(ctx, req.BasketID, req.UserID)
		if err != nil {
			return err
		}
		if err := requireMutable(b); err != nil {
			return err
		}

		idx := b.LineIndex(req.ProductID)
		if idx < 0 {
			return domain.Conflictf("intended product to remove not found")
		}
		switch line := b.Lines[idx]; {
		case req.Quantity > line.Quantity:
			return domain.Conflictf("insufficient quantity to remove")
		case req.Quantity == line.Quantity:
			b.Lines = append(b.Lines[:idx], b.Lines[idx+1:]...)
		default:
			b.Lines[idx].Quantity -= req.Quantity
		}

		b.RecomputeStatus()
		b.UpdatedAt = s.now()
		if err := s.store.Save(ctx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from basket",
		"basket_id", result.ID,
		"product_id", req.ProductID,
		"quantity", req.Quantity,
		"status", result.Status,
	)
	return result, nil
}

// Checkout applies the promotion discount, freezes the basket as CheckedOut
// and then publishes one ProductCheckedOut event per line from the saved
// snapshot. If publishing fails the basket stays frozen with EventsPending
// set and a repeated Checkout publishes the same snapshot again.
func (s *Service) Checkout(ctx context.Context, basketID string) (*domain.Basket, error) {
	if blank(basketID) {
		return nil, domain.NewValidationError("basketId", "is required")
	}

	correlationID := telemetry.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	var frozen *domain.Basket
	err := s.withRetry(ctx, func() error {
		b, err := s.store.Get(ctx, basketID)
		if err != nil {
			return errors.Wrap(err, "get basket")
		}
		if b == nil {
			return domain.NotFoundf("basket %s not found", basketID)
		}
		if b.Status == domain.BasketStatusCheckedOut && b.EventsPending {
			frozen = b
			return nil
		}
		if b.Status != domain.BasketStatusActive {
			return domain.Conflictf("basket %s cannot be checked out in status %s", basketID, b.Status)
		}

		b.Lines = discount.Apply(b.Lines, s.cfg.DiscountPercentBP)
		b.Status = domain.BasketStatusCheckedOut
		b.EventsPending = len(b.Lines) > 0
		b.CorrelationID = correlationID
		b.UpdatedAt = s.now()

		if err := s.store.Save(ctx, b); err != nil {
			return err
		}
		frozen = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if frozen.EventsPending {
		if err := s.publishCheckout(ctx, frozen); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "basket checked out",
		"basket_id", frozen.ID,
		"user_id", frozen.UserID,
		"lines", len(frozen.Lines),
		"promotion", discount.HasPromotion(frozen.Lines),
		"correlation_id", frozen.CorrelationID,
	)
	return frozen, nil
}

// publishCheckout sends the batch for a frozen basket and clears its
// EventsPending flag. Only Checkout writes a frozen basket, so a conflict
// here means another Checkout already cleared the flag.
func (s *Service) publishCheckout(ctx context.Context, b *domain.Basket) error {
	msgs := make([]messaging.Message, 0, len(b.Lines))
	for _, l := range b.Lines {
		msgs = append(msgs, messaging.Message{
			Key:   b.ID,
			Event: domain.NewProductCheckedOutEvent(b, l, b.CorrelationID),
		})
	}
	if err := s.publisher.PublishBatch(ctx, msgs); err != nil {
		s.logger.ErrorContext(ctx, "checkout events not published, basket left pending",
			"basket_id", b.ID, "error", err)
		return errors.Wrap(err, "publish checkout events")
	}

	return s.withRetry(ctx, func() error {
		current, err := s.store.Get(ctx, b.ID)
		if err != nil {
			return errors.Wrap(err, "get basket")
		}
		if current == nil || !current.EventsPending {
			b.EventsPending = false
			return nil
		}
		current.EventsPending = false
		if err := s.store.Save(ctx, current); err != nil {
			return err
		}
		*b = *current
		return nil
	})
}

func (s *Service) Preview(ctx context.Context, basketID string) (*Preview, error) {
	if blank(basketID) {
		return nil, domain.NewValidationError("basketId", "is required")
	}

	b, err := s.store.Get(ctx, basketID)
	if err != nil {
		return nil, errors.Wrap(err, "get basket")
	}
	if b == nil {
		return nil, domain.NotFoundf("basket %s not found", basketID)
	}

	user, err := s.users.GetUser(ctx, b.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	if user == nil {
		return nil, domain.NotFoundf("user with userId: %s not found", b.UserID)
	}

	p := &Preview{
		BasketID:        b.ID,
		UserID:          b.UserID,
		BasketValue:     b.Value(),
		Products:        []PreviewProduct{},
		DeliveryAddress: user.ShippingAddress(),
	}
	for _, l := range b.Lines {
		if !l.IncludeInDelivery {
			continue
		}
		p.Products = append(p.Products, PreviewProduct{
			ProductID:       l.ProductID,
			Name:            l.Name,
			Description:     l.Description,
			Quantity:        l.Quantity,
			Price:           l.UnitPrice,
			DiscountedPrice: l.DiscountedUnitPrice,
			DiscountPercent: l.DiscountPercent,
		})
	}
	return p, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get user")
	}
	if user == nil {
		return domain.NotFoundf("user with userId: %s not found", userID)
	}
	return nil
}

func (s *Service) requireProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	if product == nil {
		return nil, domain.NotFoundf("product with productId: %s not found", productID)
	}
	return product, nil
}

// loadOwned reports a basket owned by another user as not found.
func (s *Service) loadOwned(ctx context.Context, basketID, userID string) (*domain.Basket, error) {
	b, err := s.store.Get(ctx, basketID)
	if err != nil {
		return nil, errors.Wrap(err, "get basket")
	}
	if b == nil || b.UserID != userID {
		return nil, domain.NotFoundf("basket %s not found", basketID)
	}
	return b, nil
}

func requireMutable(b *domain.Basket) error {
	if b.Status == domain.BasketStatusCheckedOut {
		return domain.Conflictf("basket %s is already checked out", b.ID)
	}
	return nil
}

// withRetry runs op until it succeeds, fails with anything other than
// ErrVersionConflict, or exhausts the conflict budget.
func (s *Service) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInitialWait
	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.cfg.MaxConflictRetries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrVersionConflict) {
			s.logger.WarnContext(ctx, "basket modified concurrently, retrying", "attempt", attempt)
			return err
		}
		return backoff.Permanent(err)
	}, b)
	if errors.Is(err, ErrVersionConflict) {
		return domain.Conflictf("basket was modified concurrently, please retry")
	}
	return err
}
