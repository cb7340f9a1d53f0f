package basket

import (
	"context"
	"log/slog"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

// Catalog is the writable side of the user and product replicas.
type Catalog interface {
	UserLookup
	ProductLookup
	SaveUser(ctx context.Context, u domain.User) error
	SaveProduct(ctx context.Context, p domain.Product) error
}

// Projector keeps the basket-side replicas in step with user.events and
// inventory.events.
type Projector struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewProjector(catalog Catalog, logger *slog.Logger) *Projector {
	return &Projector{catalog: catalog, logger: logger}
}

// Handle matches messaging.Handler. Malformed and unknown events are logged
// and dropped.
func (p *Projector) Handle(ctx context.Context, payload []byte) error {
	event, err := domain.DecodeEvent(payload)
	if err != nil {
		p.logger.WarnContext(ctx, "dropping malformed event", "error", err)
		return nil
	}

	switch e := event.(type) {
	case domain.UserEvent:
		return p.handleUser(ctx, e)
	case domain.ProductCreatedEvent:
		return p.handleProduct(ctx, e)
	default:
		p.logger.InfoContext(ctx, "ignoring event", "type", event.EventType())
		return nil
	}
}

func (p *Projector) handleUser(ctx context.Context, e domain.UserEvent) error {
	if e.Type == domain.EventTypeUserCreated {
		existing, err := p.catalog.GetUser(ctx, e.ID)
		if err != nil {
			return errors.Wrap(err, "get user")
		}
		if existing != nil {
			p.logger.InfoContext(ctx, "user already known", "user_id", e.ID)
			return nil
		}
	}

	if err := p.catalog.SaveUser(ctx, e.User()); err != nil {
		return errors.Wrap(err, "save user")
	}
	p.logger.InfoContext(ctx, "user replica updated", "user_id", e.ID, "type", e.Type)
	return nil
}

func (p *Projector) handleProduct(ctx context.Context, e domain.ProductCreatedEvent) error {
	existing, err := p.catalog.GetProduct(ctx, e.ID)
	if err != nil {
		return errors.Wrap(err, "get product")
	}
	if existing != nil {
		p.logger.InfoContext(ctx, "product already known", "product_id", e.ID)
		return nil
	}

	if err := p.catalog.SaveProduct(ctx, e.Product()); err != nil {
		return errors.Wrap(err, "save product")
	}
	p.logger.InfoContext(ctx, "product replica created", "product_id", e.ID, "sku", e.SKU)
	return nil
}
