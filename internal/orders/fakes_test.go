package orders

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBoom = errors.New("boom")

type orderKey struct{ basketID, userID string }
type itemKey struct{ orderID, productID string }

// memStore keeps the same uniqueness keys as the Postgres schema.
type memStore struct {
	mu     sync.Mutex
	users  map[string]domain.User
	orders map[orderKey]domain.Order
	items  map[itemKey]domain.OrderItem
	err    error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]domain.User{},
		orders: map[orderKey]domain.Order{},
		items:  map[itemKey]domain.OrderItem{},
	}
}

func (s *memStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memStore) InsertUser(_ context.Context, u domain.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.users[u.ID]; ok {
		return false, nil
	}
	s.users[u.ID] = u
	return true, nil
}

func (s *memStore) UpsertUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.users[u.ID] = u
	return nil
}

func (s *memStore) FindOrder(_ context.Context, basketID, userID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.orders[orderKey{basketID, userID}]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *memStore) CreateOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orderKey{o.BasketID, o.UserID}
	if _, ok := s.orders[key]; !ok {
		s.orders[key] = *o
	}
	stored := s.orders[key]
	return &stored, nil
}

func (s *memStore) FindItem(_ context.Context, orderID, productID string) (*domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemKey{orderID, productID}]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *memStore) CreateItem(_ context.Context, item *domain.OrderItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := itemKey{item.OrderID, item.ProductID}
	if _, ok := s.items[key]; ok {
		return false, nil
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	s.items[key] = *item
	return true, nil
}

func (s *memStore) OrderByBasketID(_ context.Context, basketID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for key, o := range s.orders {
		if key.basketID != basketID {
			continue
		}
		o.Items = []domain.OrderItem{}
		for ik, item := range s.items {
			if ik.orderID == o.ID {
				o.Items = append(o.Items, item)
			}
		}
		return &o, nil
	}
	return nil, nil
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
