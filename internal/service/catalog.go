package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/queue"
	"github.com/iliyamo/travelhub/internal/repository"
)

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, kind *model.Kind) ([]*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) error
	CountByKind(ctx context.Context) (map[model.Kind]int, error)
}

// PackageCounter is the slice of the package store the dashboard needs.
type PackageCounter interface {
	Count(ctx context.Context) (int, error)
}

type CatalogService struct {
	products ProductRepository
	packages PackageCounter
	events   queue.Publisher
	log      *logger.Logger
}

func NewCatalogService(products ProductRepository, packages PackageCounter, events queue.Publisher, log *logger.Logger) *CatalogService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &CatalogService{products: products, packages: packages, events: events, log: log}
}

// ListProducts returns products newest first. Rows whose variant extension
// is missing or mismatched are logged and left out.
func (s *CatalogService) ListProducts(ctx context.Context, kind *model.Kind) ([]model.Product, error) {
	list, err := s.products.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(list))
	for _, p := range list {
		if err := p.CheckVariant(); err != nil {
			s.log.Warn("catalog integrity fault", "product_id", p.ID, "error", err)
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// GetProduct returns one product with its extension. A product whose
// extension is missing is reported as model.ErrNotFound.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVariantMissing) {
			s.log.Warn("catalog integrity fault", "product_id", id, "error", err)
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if err := p.CheckVariant(); err != nil {
		s.log.Warn("catalog integrity fault", "product_id", id, "error", err)
		return nil, model.ErrNotFound
	}
	return p, nil
}

// GetProductOfKind is GetProduct restricted to one kind; a product of a
// different kind is not found.
func (s *CatalogService) GetProductOfKind(ctx context.Context, id string, kind model.Kind) (*model.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Kind != kind {
		return nil, model.ErrNotFound
	}
	return p, nil
}

// CreateProduct validates p for its kind and stores base and extension
// together. Caller-supplied id and timestamps are ignored.
func (s *CatalogService) CreateProduct(ctx context.Context, id model.Identity, p model.Product) (*model.Product, error) {
	if err := RequireRole(id, model.RoleAdmin); err != nil {
		return nil, err
	}
	kind, ok := model.ParseKind(string(p.Kind))
	if !ok {
		return nil, model.Invalid("type", "must be one of FLIGHT, HOTEL, TRANSPORT, EXCURSION")
	}
	p.Kind = kind
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = time.Time{}, time.Time{}
	if err := s.products.Create(ctx, &p); err != nil {
		return nil, err
	}
	s.log.Info("product created", "product_id", p.ID, "kind", p.Kind, "actor", id.SubjectID)
	s.publish(ctx, productEvent(queue.ProductCreated, &p, id))
	return &p, nil
}

// UpdateProduct merges the supplied fields into the stored product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id model.Identity, productID string, patch model.ProductPatch) (*model.Product, error) {
	if err := RequireRole(id, model.RoleAdmin); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, model.Invalid("body", "no fields to update")
	}
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(p); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("product updated", "product_id", p.ID, "actor", id.SubjectID)
	s.publish(ctx, productEvent(queue.ProductUpdated, p, id))
	return p, nil
}

// DeleteProduct removes a product and the cart lines that reference it. A
// product still bundled in a package is refused with model.ErrConflict.
func (s *CatalogService) DeleteProduct(ctx context.Context, id model.Identity, productID string) error {
	if err := RequireRole(id, model.RoleAdmin); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return err
	}
	s.log.Info("product deleted", "product_id", productID, "actor", id.SubjectID)
	s.publish(ctx, queue.CatalogEvent{Type: queue.ProductDeleted, EntityID: productID, ActorID: id.SubjectID})
	return nil
}

type ProductStats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"byType"`
}

type DashboardStats struct {
	Products ProductStats `json:"products"`
	Packages int          `json:"packages"`
}

// DashboardStats returns catalog counts for the admin dashboard. Every
// kind is present in ByType, zero when no product has it.
func (s *CatalogService) DashboardStats(ctx context.Context, id model.Identity) (DashboardStats, error) {
	if err := RequireRole(id, model.RoleAdmin); err != nil {
		return DashboardStats{}, err
	}
	counts, err := s.products.CountByKind(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	stats := DashboardStats{Products: ProductStats{ByType: make(map[string]int, 4)}}
	for _, k := range model.Kinds() {
		n := counts[k]
		stats.Products.ByType[strings.ToLower(string(k))] = n
		stats.Products.Total += n
	}
	if stats.Packages, err = s.packages.Count(ctx); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}

func (s *CatalogService) publish(ctx context.Context, ev queue.CatalogEvent) {
	publishEvent(ctx, s.events, s.log, ev)
}

// publishEvent stamps ev and hands it to the publisher. A broker failure
// is logged; the catalog write has already committed.
func publishEvent(ctx context.Context, p queue.Publisher, log *logger.Logger, ev queue.CatalogEvent) {
	ev.ID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := p.Publish(pctx, ev); err != nil {
		log.Warn("catalog event publish failed", "type", ev.Type, "entity_id", ev.EntityID, "error", err)
	}
}

func productEvent(typ string, p *model.Product, id model.Identity) queue.CatalogEvent {
	return queue.CatalogEvent{
		Type:     typ,
		EntityID: p.ID,
		Name:     p.Name,
		Kind:     string(p.Kind),
		Price:    p.Price.StringFixed(2),
		ActorID:  id.SubjectID,
	}
}
