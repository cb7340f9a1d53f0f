package orders

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/groceryflow/internal/domain"
	"github.com/joao-fontenele/groceryflow/internal/envelope"
)

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type SummaryProduct struct {
	ProductID       string       `json:"productId"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Quantity        int64        `json:"quantity"`
	Price           domain.Money `json:"price"`
	DiscountedPrice domain.Money `json:"discountedPrice"`
	DiscountPercent int64        `json:"discountPercent"`
}

type Summary struct {
	OrderID         string           `json:"orderId"`
	UserID          string           `json:"userId"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	BasketValue     domain.Money     `json:"basketValue"`
	Products        []SummaryProduct `json:"products"`
	DeliveryAddress domain.Address   `json:"deliveryAddress"`
}

// Summarize values every item of the order but lists only the items that
// are delivered.
func Summarize(order *domain.Order, user *domain.User) Summary {
	s := Summary{
		OrderID:         order.ID,
		UserID:          order.UserID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		BasketValue:     domain.Money{Currency: domain.CurrencyGBP},
		Products:        []SummaryProduct{},
		DeliveryAddress: order.DeliveryAddress,
	}
	for _, item := range order.Items {
		s.BasketValue = s.BasketValue.Add(item.DiscountedPrice.Mul(item.Quantity))
		if !item.IncludeInDelivery {
			continue
		}
		s.Products = append(s.Products, SummaryProduct{
			ProductID:       item.ProductID,
			Name:            item.Name,
			Description:     item.Description,
			Quantity:        item.Quantity,
			Price:           item.Price,
			DiscountedPrice: item.DiscountedPrice,
			DiscountPercent: item.DiscountPercent,
		})
	}
	return s
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	basketID := strings.TrimSpace(r.PathValue("basketId"))
	if basketID == "" {
		envelope.Error(w, h.logger, domain.NewValidationError("basketId", "is required"))
		return
	}

	order, err := h.store.OrderByBasketID(r.Context(), basketID)
	if err != nil {
		envelope.Error(w, h.logger, err)
		return
	}
	if order == nil {
		envelope.Error(w, h.logger, domain.NotFoundf("order for basket %s not found", basketID))
		return
	}

	user, err := h.store.GetUser(r.Context(), order.UserID)
	if err != nil {
		envelope.Error(w, h.logger, err)
		return
	}
	if user == nil {
		envelope.Error(w, h.logger, domain.NotFoundf("user with userId: %s not found", order.UserID))
		return
	}

	summary := Summarize(order, user)
	h.logger.Info("order submitted",
		"order_id", order.ID,
		"basket_id", basketID,
		"items", len(summary.Products),
		"value", summary.BasketValue.AmountMinorUnits,
	)
	envelope.Success(w, h.logger, summary)
}
