package basket

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/groceryflow/internal/domain"
	"github.com/joao-fontenele/groceryflow/internal/messaging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clone(b *domain.Basket) *domain.Basket {
	cp := *b
	cp.Lines = append([]domain.BasketLine(nil), b.Lines...)
	return &cp
}

// memStore enforces the same version contract as MongoStore.
type memStore struct {
	mu        sync.Mutex
	baskets   map[string]*domain.Basket
	saves     int
	conflicts int // number of upcoming saves to reject
}

func newMemStore() *memStore {
	return &memStore{baskets: map[string]*domain.Basket{}}
}

func (s *memStore) Get(_ context.Context, id string) (*domain.Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.baskets[id]
	if !ok {
		return nil, nil
	}
	return clone(b), nil
}

func (s *memStore) Save(_ context.Context, b *domain.Basket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts > 0 {
		s.conflicts--
		return ErrVersionConflict
	}
	current, ok := s.baskets[b.ID]
	switch {
	case !ok && b.Version != 0:
		return ErrVersionConflict
	case ok && current.Version != b.Version:
		return ErrVersionConflict
	}
	b.Version++
	s.baskets[b.ID] = clone(b)
	s.saves++
	return nil
}

func (s *memStore) put(b *domain.Basket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baskets[b.ID] = clone(b)
}

type memCatalog struct {
	mu       sync.Mutex
	users    map[string]domain.User
	products map[string]domain.Product
	err      error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{users: map[string]domain.User{}, products: map[string]domain.Product{}}
}

func (c *memCatalog) GetUser(_ context.Context, id string) (*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	u, ok := c.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (c *memCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memCatalog) SaveUser(_ context.Context, u domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
	return nil
}

func (c *memCatalog) SaveProduct(_ context.Context, p domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
	return nil
}

type fakePublisher struct {
	calls [][]messaging.Message
	err   error
	// during runs inside PublishBatch, before the batch is recorded.
	during func()
}

func (p *fakePublisher) PublishBatch(_ context.Context, msgs []messaging.Message) error {
	if p.during != nil {
		p.during()
	}
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, msgs)
	return nil
}

var errBoom = errors.New("boom")

var (
	testUser = domain.User{
		ID:        "u_1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		DefaultDeliveryAddress: &domain.Address{
			Line1:    "1 Main St",
			Postcode: "AB1 2CD",
		},
	}
	milk = domain.Product{
		ID: "p_milk", SKU: "DAIRY-1", Category: domain.CategoryDairy, Name: "Milk",
		Price: domain.NewMoney(domain.CurrencyGBP, 10), DiscountApplicable: true, IncludeInDelivery: true,
	}
	bread = domain.Product{
		ID: "p_bread", SKU: "BREAD-1", Category: domain.CategoryBreads, Name: "Bread",
		Price: domain.NewMoney(domain.CurrencyGBP, 15), DiscountApplicable: true, IncludeInDelivery: true,
	}
	oats = domain.Product{
		ID: "p_oats", SKU: "CEREAL-1", Category: domain.CategoryCereals, Name: "Oats",
		Price: domain.NewMoney(domain.CurrencyGBP, 30), DiscountApplicable: false, IncludeInDelivery: true,
	}
	coupon = domain.Product{
		ID: "p_coupon", SKU: "PROMO-1", Category: domain.CategoryPromotionCoupon, Name: "20% off",
		Price: domain.NewMoney(domain.CurrencyGBP, 5), IncludeInDelivery: true,
	}
	coupon2 = domain.Product{
		ID: "p_coupon2", SKU: "PROMO-2", Category: domain.CategoryPromotionCoupon, Name: "Another coupon",
		Price: domain.NewMoney(domain.CurrencyGBP, 5),
	}
)

func newTestCatalog() *memCatalog {
	c := newMemCatalog()
	c.users[testUser.ID] = testUser
	for _, p := range []domain.Product{milk, bread, oats, coupon, coupon2} {
		c.products[p.ID] = p
	}
	return c
}
