package domain

import (
	"time"

	"github.com/google/uuid"
)

const OrderIDPrefix = "o_"

func NewOrderID() string {
	return OrderIDPrefix + uuid.New().String()
}

type OrderItem struct {
	ID                string `json:"id"`
	OrderID           string `json:"orderId"`
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Quantity          int64  `json:"quantity"`
	Price             Money  `json:"price"`
	DiscountedPrice   Money  `json:"discountedPrice"`
	DiscountPercent   int64  `json:"discountPercent"`
	IncludeInDelivery bool   `json:"includeInDelivery"`
}

// Order is materialized from ProductCheckedOut events. There is at most one
// order per (BasketID, UserID) and one item per (OrderID, ProductID).
type Order struct {
	ID              string      `json:"id"`
	BasketID        string      `json:"basketId"`
	UserID          string      `json:"userId"`
	DeliveryAddress Address     `json:"deliveryAddress"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"createdAt"`
}
