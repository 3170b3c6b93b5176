package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/queue"
)

// PackageRepository stores packages. Create and Update verify productIDs
// and write the links in one transaction.
type PackageRepository interface {
	Create(ctx context.Context, p *model.Package, productIDs []string) error
	GetByID(ctx context.Context, id string) (*model.Package, error)
	List(ctx context.Context) ([]*model.Package, error)
	Update(ctx context.Context, p *model.Package, productIDs []string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type PackageService struct {
	packages PackageRepository
	events   queue.Publisher
	log      *logger.Logger
}

func NewPackageService(packages PackageRepository, events queue.Publisher, log *logger.Logger) *PackageService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &PackageService{packages: packages, events: events, log: log}
}

func (s *PackageService) ListPackages(ctx context.Context) ([]model.Package, error) {
	list, err := s.packages.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Package, 0, len(list))
	for _, p := range list {
		out = append(out, *s.wholeMembers(p))
	}
	return out, nil
}

func (s *PackageService) GetPackage(ctx context.Context, id string) (*model.Package, error) {
	p, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.wholeMembers(p), nil
}

// wholeMembers drops member products whose extension does not match their
// kind, the same way ListProducts skips them.
func (s *PackageService) wholeMembers(p *model.Package) *model.Package {
	kept := make([]model.Product, 0, len(p.Products))
	for _, m := range p.Products {
		if err := m.CheckVariant(); err != nil {
			s.log.Warn("catalog integrity fault", "package_id", p.ID, "product_id", m.ID, "error", err)
			continue
		}
		kept = append(kept, m)
	}
	p.Products = kept
	return p
}

// CreatePackage bundles existing products under one price. Any id that
// does not resolve fails the whole operation with a
// *model.ReferenceError.
func (s *PackageService) CreatePackage(ctx context.Context, id model.Identity, in model.PackageInput) (*model.Package, error) {
	if err := RequireRole(id, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &model.Package{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if err := s.packages.Create(ctx, p, in.ProductIDs); err != nil {
		return nil, err
	}
	s.log.Info("package created", "package_id", p.ID, "products", len(in.ProductIDs), "actor", id.SubjectID)
	s.publish(ctx, packageEvent(queue.PackageCreated, p, id))
	return s.GetPackage(ctx, p.ID)
}

// UpdatePackage merges scalar fields; a supplied product id list replaces
// the membership set.
func (s *PackageService) UpdatePackage(ctx context.Context, id model.Identity, packageID string, patch model.PackagePatch) (*model.Package, error) {
	if err := RequireRole(id, model.RoleAdmin); err != nil {
		return nil, err
	}
	p, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(p); err != nil {
		return nil, err
	}
	var members []string
	if patch.ProductIDs != nil {
		members = *patch.ProductIDs
	}
	if err := s.packages.Update(ctx, p, members); err != nil {
		return nil, err
	}
	s.log.Info("package updated", "package_id", p.ID, "actor", id.SubjectID)
	s.publish(ctx, packageEvent(queue.PackageUpdated, p, id))
	return s.GetPackage(ctx, p.ID)
}

// DeletePackage removes the package and the cart lines that reference it.
// Member products are kept.
func (s *PackageService) DeletePackage(ctx context.Context, id model.Identity, packageID string) error {
	if err := RequireRole(id, model.RoleAdmin); err != nil {
		return err
	}
	if err := s.packages.Delete(ctx, packageID); err != nil {
		return err
	}
	s.log.Info("package deleted", "package_id", packageID, "actor", id.SubjectID)
	s.publish(ctx, queue.CatalogEvent{Type: queue.PackageDeleted, EntityID: packageID, ActorID: id.SubjectID})
	return nil
}

func (s *PackageService) publish(ctx context.Context, ev queue.CatalogEvent) {
	publishEvent(ctx, s.events, s.log, ev)
}

func packageEvent(typ string, p *model.Package, id model.Identity) queue.CatalogEvent {
	return queue.CatalogEvent{
		Type:     typ,
		EntityID: p.ID,
		Name:     p.Name,
		Price:    p.Price.StringFixed(2),
		ActorID:  id.SubjectID,
	}
}
