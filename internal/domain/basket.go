package domain

import (
	"time"

	"github.com/google/uuid"
)

const BasketIDPrefix = "b_"

type BasketStatus string

const (
	BasketStatusEmpty      BasketStatus = "Empty"
	BasketStatusActive     BasketStatus = "Active"
	BasketStatusCheckedOut BasketStatus = "CheckedOut"
)

// BasketLine is one product entry in a basket. Prices are snapshotted when
// the line is first added.
type BasketLine struct {
	ProductID           string   `json:"productId" bson:"product_id"`
	SKU                 string   `json:"sku" bson:"sku"`
	Category            Category `json:"category" bson:"category"`
	Name                string   `json:"name" bson:"name"`
	Description         string   `json:"description" bson:"description"`
	Quantity            int64    `json:"quantity" bson:"quantity"`
	UnitPrice           Money    `json:"unitPrice" bson:"unit_price"`
	DiscountedUnitPrice Money    `json:"discountedUnitPrice" bson:"discounted_unit_price"`
	DiscountPercent     int64    `json:"discountPercent" bson:"discount_percent"`
	DiscountApplicable  bool     `json:"discountApplicable" bson:"discount_applicable"`
	IncludeInDelivery   bool     `json:"includeInDelivery" bson:"include_in_delivery"`
}

// Basket is the aggregate root. EventsPending is set when the basket is
// frozen at checkout and cleared once its ProductCheckedOut batch is
// published.
type Basket struct {
	ID            string       `json:"id" bson:"_id"`
	UserID        string       `json:"userId" bson:"user_id"`
	Status        BasketStatus `json:"status" bson:"status"`
	Lines         []BasketLine `json:"lines" bson:"lines"`
	Version       int64        `json:"version" bson:"version"`
	EventsPending bool         `json:"eventsPending,omitempty" bson:"events_pending,omitempty"`
	CorrelationID string       `json:"correlationId,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" bson:"updated_at"`
}

func NewBasket(userID string, now time.Time) *Basket {
	return &Basket{
		ID:        BasketIDPrefix + uuid.New().String(),
		UserID:    userID,
		Status:    BasketStatusEmpty,
		Lines:     []BasketLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewBasketLine snapshots the product's current price and flags.
func NewBasketLine(p Product, quantity int64) BasketLine {
	return BasketLine{
		ProductID:           p.ID,
		SKU:                 p.SKU,
		Category:            p.Category,
		Name:                p.Name,
		Description:         p.Description,
		Quantity:            quantity,
		UnitPrice:           p.Price,
		DiscountedUnitPrice: p.Price,
		DiscountApplicable:  p.DiscountApplicable,
		IncludeInDelivery:   p.IncludeInDelivery && !p.Category.IsPromotion(),
	}
}

// LineIndex returns the index of the line for productID, or -1.
func (b *Basket) LineIndex(productID string) int {
	for i := range b.Lines {
		if b.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (b *Basket) HasPromotion() bool {
	for _, l := range b.Lines {
		if l.Category.IsPromotion() {
			return true
		}
	}
	return false
}

// RecomputeStatus derives the status from the lines. It must not be used
// after checkout.
func (b *Basket) RecomputeStatus() {
	if len(b.Lines) == 0 {
		b.Status = BasketStatusEmpty
		return
	}
	b.Status = BasketStatusActive
}

// Value sums discounted price times quantity over every line.
func (b *Basket) Value() Money {
	total := Money{Currency: CurrencyGBP}
	for _, l := range b.Lines {
		total = total.Add(l.DiscountedUnitPrice.Mul(l.Quantity))
	}
	return total
}
