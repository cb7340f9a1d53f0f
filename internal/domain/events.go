package domain

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

type EventType string

const (
	EventTypeProductCheckedOut EventType = "ProductCheckedOut"
	EventTypeUserCreated       EventType = "UserCreated"
	EventTypeUserUpdated       EventType = "UserUpdated"
	EventTypeProductCreated    EventType = "ProductCreated"
)

// Event is the closed set of messages exchanged on the topics. Only types in
// this package implement it.
type Event interface {
	EventType() EventType
	isEvent()
}

// Envelope carries the fields common to every event.
type Envelope struct {
	Type          EventType `json:"type"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

func (e Envelope) EventType() EventType { return e.Type }
func (Envelope) isEvent()               {}

// ProductCheckedOutEvent is emitted once per basket line at checkout.
type ProductCheckedOutEvent struct {
	Envelope
	BasketID          string `json:"basketId"`
	UserID            string `json:"userId"`
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Quantity          int64  `json:"quantity"`
	Price             Money  `json:"price"`
	DiscountedPrice   Money  `json:"discountedPrice"`
	DiscountPercent   int64  `json:"discountPercent"`
	IncludeInDelivery bool   `json:"includeInDelivery"`
}

func NewProductCheckedOutEvent(b *Basket, l BasketLine, correlationID string) ProductCheckedOutEvent {
	return ProductCheckedOutEvent{
		Envelope:          Envelope{Type: EventTypeProductCheckedOut, CorrelationID: correlationID},
		BasketID:          b.ID,
		UserID:            b.UserID,
		ProductID:         l.ProductID,
		Name:              l.Name,
		Description:       l.Description,
		Quantity:          l.Quantity,
		Price:             l.UnitPrice,
		DiscountedPrice:   l.DiscountedUnitPrice,
		DiscountPercent:   l.DiscountPercent,
		IncludeInDelivery: l.IncludeInDelivery,
	}
}

// UserEvent is the payload of both UserCreated and UserUpdated; the
// envelope type tells them apart.
type UserEvent struct {
	Envelope
	ID                     string   `json:"id"`
	FirstName              string   `json:"firstName"`
	LastName               string   `json:"lastName"`
	Email                  string   `json:"email"`
	PhoneNumber            string   `json:"phoneNumber,omitempty"`
	DefaultBillingAddress  *Address `json:"defaultBillingAddress,omitempty"`
	DefaultDeliveryAddress *Address `json:"defaultDeliveryAddress,omitempty"`
}

func (e UserEvent) User() User {
	return User{
		ID:                     e.ID,
		FirstName:              e.FirstName,
		LastName:               e.LastName,
		Email:                  e.Email,
		PhoneNumber:            e.PhoneNumber,
		DefaultBillingAddress:  e.DefaultBillingAddress,
		DefaultDeliveryAddress: e.DefaultDeliveryAddress,
	}
}

type ProductCreatedEvent struct {
	Envelope
	ID                 string    `json:"id"`
	SKU                string    `json:"sku"`
	Category           Category  `json:"category"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Price              Money     `json:"price"`
	DiscountApplicable bool      `json:"discountApplicable"`
	IncludeInDelivery  bool      `json:"includeInDelivery"`
	CreatedAt          time.Time `json:"createdAt,omitzero"`
}

func (e ProductCreatedEvent) Product() Product {
	return Product{
		ID:                 e.ID,
		SKU:                e.SKU,
		Category:           e.Category,
		Name:               e.Name,
		Description:        e.Description,
		Price:              e.Price,
		DiscountApplicable: e.DiscountApplicable,
		IncludeInDelivery:  e.IncludeInDelivery,
	}
}

// UnknownEvent is returned for well-formed payloads with a type tag this
// version does not know.
type UnknownEvent struct {
	Envelope
}

// ErrMalformedEvent is returned when a payload is not a JSON object or has no
// type tag.
var ErrMalformedEvent = errors.New("malformed event")

// DecodeEnvelope reads only the envelope fields, skipping everything else.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	d := jx.DecodeBytes(payload)
	if d.Next() != jx.Object {
		return env, ErrMalformedEvent
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "type":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			env.Type = EventType(s)
		case "correlationId":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			env.CorrelationID = s
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return env, errors.Wrap(ErrMalformedEvent, err.Error())
	}
	if env.Type == "" {
		return env, ErrMalformedEvent
	}
	return env, nil
}

// DecodeEvent decodes payload into the concrete event named by its type tag.
func DecodeEvent(payload []byte) (Event, error) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case EventTypeProductCheckedOut:
		var e ProductCheckedOutEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, errors.Wrap(err, "decode product checked out")
		}
		return e, nil
	case EventTypeUserCreated, EventTypeUserUpdated:
		var e UserEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, errors.Wrap(err, "decode user event")
		}
		return e, nil
	case EventTypeProductCreated:
		var e ProductCreatedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, errors.Wrap(err, "decode product created")
		}
		return e, nil
	default:
		return UnknownEvent{Envelope: env}, nil
	}
}
