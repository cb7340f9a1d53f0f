package orders

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

// Repository is the Postgres-backed Store. Lookups return (nil, nil) when
// nothing matches.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// marshalAddress returns an untyped nil for a missing address so the
// driver writes NULL.
func marshalAddress(a *domain.Address) (any, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func unmarshalAddress(raw []byte) (*domain.Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a domain.Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var (
		u                 domain.User
		billing, delivery []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone_number, billing_address, delivery_address
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &billing, &delivery)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select user")
	}

	if u.DefaultBillingAddress, err = unmarshalAddress(billing); err != nil {
		return nil, errors.Wrap(err, "decode billing address")
	}
	if u.DefaultDeliveryAddress, err = unmarshalAddress(delivery); err != nil {
		return nil, errors.Wrap(err, "decode delivery address")
	}
	return &u, nil
}

func (r *Repository) writeUser(ctx context.Context, query string, u domain.User) (int64, error) {
	billing, err := marshalAddress(u.DefaultBillingAddress)
	if err != nil {
		return 0, errors.Wrap(err, "encode billing address")
	}
	delivery, err := marshalAddress(u.DefaultDeliveryAddress)
	if err != nil {
		return 0, errors.Wrap(err, "encode delivery address")
	}

	result, err := r.db.ExecContext(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Email, u.PhoneNumber, billing, delivery)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// InsertUser reports false when the user already existed.
func (r *Repository) InsertUser(ctx context.Context, u domain.User) (bool, error) {
	n, err := r.writeUser(ctx, `
		INSERT INTO users (id, first_name, last_name, email, phone_number, billing_address, delivery_address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO NOTHING
	`, u)
	if err != nil {
		return false, errors.Wrap(err, "insert user")
	}
	return n > 0, nil
}

func (r *Repository) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := r.writeUser(ctx, `
		INSERT INTO users (id, first_name, last_name, email, phone_number, billing_address, delivery_address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone_number = EXCLUDED.phone_number,
			billing_address = EXCLUDED.billing_address,
			delivery_address = EXCLUDED.delivery_address,
			updated_at = NOW()
	`, u)
	if err != nil {
		return errors.Wrap(err, "upsert user")
	}
	return nil
}

func (r *Repository) scanOrder(row *sql.Row) (*domain.Order, error) {
	var (
		o       domain.Order
		address []byte
	)
	if err := row.Scan(&o.ID, &o.BasketID, &o.UserID, &address, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select order")
	}
	a, err := unmarshalAddress(address)
	if err != nil {
		return nil, errors.Wrap(err, "decode order address")
	}
	if a != nil {
		o.DeliveryAddress = *a
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

// FindOrder returns the order for (basketID, userID) without its items.
func (r *Repository) FindOrder(ctx context.Context, basketID, userID string) (*domain.Order, error) {
	return r.scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, basket_id, user_id, delivery_address, created_at
		FROM orders
		WHERE basket_id = $1 AND user_id = $2
	`, basketID, userID))
}

// CreateOrder inserts o unless an order for the same basket and user exists,
// and returns whichever row is stored.
func (r *Repository) CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	address, err := marshalAddress(&o.DeliveryAddress)
	if err != nil {
		return nil, errors.Wrap(err, "encode order address")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, basket_id, user_id, delivery_address, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (basket_id, user_id) DO NOTHING
	`, o.ID, o.BasketID, o.UserID, address, o.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	stored, err := r.FindOrder(ctx, o.BasketID, o.UserID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.Errorf("order for basket %s vanished after insert", o.BasketID)
	}
	return stored, nil
}

const itemColumns = `id, order_id, product_id, name, description, quantity, currency,
	price, discounted_price, discount_percent, include_in_delivery`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.OrderItem, error) {
	var (
		item     domain.OrderItem
		currency string
	)
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Description, &item.Quantity,
		&currency, &item.Price.AmountMinorUnits, &item.DiscountedPrice.AmountMinorUnits,
		&item.DiscountPercent, &item.IncludeInDelivery)
	item.Price.Currency = domain.Currency(currency)
	item.DiscountedPrice.Currency = domain.Currency(currency)
	return item, err
}

func (r *Repository) FindItem(ctx context.Context, orderID, productID string) (*domain.OrderItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select order item")
	}
	return &item, nil
}

// CreateItem reports false when the order already holds the product.
func (r *Repository) CreateItem(ctx context.Context, item *domain.OrderItem) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO order_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (order_id, product_id) DO NOTHING
	`, item.ID, item.OrderID, item.ProductID, item.Name, item.Description, item.Quantity,
		string(item.Price.Currency), item.Price.AmountMinorUnits, item.DiscountedPrice.AmountMinorUnits,
		item.DiscountPercent, item.IncludeInDelivery)
	if err != nil {
		return false, errors.Wrap(err, "insert order item")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

// OrderByBasketID loads the order materialized for basketID with its items.
func (r *Repository) OrderByBasketID(ctx context.Context, basketID string) (*domain.Order, error) {
	order, err := r.scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, basket_id, user_id, delivery_address, created_at
		FROM orders
		WHERE basket_id = $1
		ORDER BY created_at
		LIMIT 1
	`, basketID))
	if err != nil || order == nil {
		return order, err
	}

	items, err := r.itemsFor(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return order, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY product_id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, errors.Wrap(err, "select order items")
	}
	defer func() { _ = rows.Close() }()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order items")
	}
	return items, nil
}
