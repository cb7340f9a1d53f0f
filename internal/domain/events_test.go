package domain

import (
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	t.Run("product checked out", func(t *testing.T) {
		payload := []byte(`{
			"type": "ProductCheckedOut",
			"correlationId": "corr-1",
			"basketId": "b_1",
			"userId": "u_1",
			"productId": "p_1",
			"name": "Milk",
			"quantity": 2,
			"price": {"currency": "GBP", "amountMinorUnits": 10},
			"discountedPrice": {"currency": "GBP", "amountMinorUnits": 8},
			"discountPercent": 2000,
			"includeInDelivery": true
		}`)

		event, err := DecodeEvent(payload)
		require.NoError(t, err)

		e, ok := event.(ProductCheckedOutEvent)
		require.True(t, ok, "unexpected event %T", event)
		assert.Equal(t, "corr-1", e.CorrelationID)
		assert.Equal(t, "b_1", e.BasketID)
		assert.Equal(t, int64(2), e.Quantity)
		assert.Equal(t, NewMoney(CurrencyGBP, 8), e.DiscountedPrice)
		assert.True(t, e.IncludeInDelivery)
	})

	t.Run("user created and updated share a payload", func(t *testing.T) {
		for _, typ := range []EventType{EventTypeUserCreated, EventTypeUserUpdated} {
			payload := []byte(`{"type":"` + string(typ) + `","id":"u_1","firstName":"Ada",` +
				`"defaultDeliveryAddress":{"line1":"1 Main St","postcode":"AB1 2CD"}}`)

			event, err := DecodeEvent(payload)
			require.NoError(t, err)

			e, ok := event.(UserEvent)
			require.True(t, ok)
			assert.Equal(t, typ, e.EventType())
			require.NotNil(t, e.User().DefaultDeliveryAddress)
			assert.Equal(t, "AB1 2CD", e.User().DefaultDeliveryAddress.Postcode)
		}
	})

	t.Run("product created", func(t *testing.T) {
		event, err := DecodeEvent([]byte(`{"id":"p_9","type":"ProductCreated","category":"PromotionCoupon"}`))
		require.NoError(t, err)

		e, ok := event.(ProductCreatedEvent)
		require.True(t, ok)
		assert.True(t, e.Product().Category.IsPromotion())
	})

	t.Run("unknown type", func(t *testing.T) {
		event, err := DecodeEvent([]byte(`{"type":"BasketAbandoned","basketId":"b_1"}`))
		require.NoError(t, err)

		e, ok := event.(UnknownEvent)
		require.True(t, ok)
		assert.Equal(t, EventType("BasketAbandoned"), e.Type)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, payload := range []string{``, `not json`, `[1,2]`, `{"basketId":"b_1"}`, `{"type":42}`} {
			_, err := DecodeEvent([]byte(payload))
			assert.True(t, errors.Is(err, ErrMalformedEvent), "payload %q: %v", payload, err)
		}
	})
}

func TestEventRoundTrip(t *testing.T) {
	b := &Basket{ID: "b_1", UserID: "u_1"}
	line := NewBasketLine(Product{
		ID:                "p_1",
		Name:              "Bread",
		Category:          CategoryBreads,
		Price:             NewMoney(CurrencyGBP, 15),
		IncludeInDelivery: true,
	}, 5)

	payload, err := json.Marshal(NewProductCheckedOutEvent(b, line, "corr-1"))
	require.NoError(t, err)

	env, err := DecodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, EventTypeProductCheckedOut, env.Type)
	assert.Equal(t, "corr-1", env.CorrelationID)
}
