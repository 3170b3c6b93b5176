package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/queue"
	"github.com/iliyamo/travelhub/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL schema. It enforces the
// same uniqueness and reference rules the schema does, under one mutex so
// each call is atomic like a transaction.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[string]model.User
	products map[string]model.Product
	packages map[string]model.Package
	links    map[string][]string // package id -> product ids
	carts    map[string]model.Cart
	items    map[string]model.CartItem
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[string]model.User{},
		products: map[string]model.Product{},
		packages: map[string]model.Package{},
		links:    map[string][]string{},
		carts:    map[string]model.Cart{},
		items:    map[string]model.CartItem{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type userStore struct{ *memStore }

func (s userStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = model.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return model.ErrDuplicateIdentity
		}
	}
	u.CreatedAt = s.tick()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s userStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s userStore) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

type productStore struct{ *memStore }

func cloneProduct(p model.Product) *model.Product {
	if p.Flight != nil {
		f := *p.Flight
		p.Flight = &f
	}
	if p.Hotel != nil {
		h := *p.Hotel
		p.Hotel = &h
	}
	if p.Transport != nil {
		t := *p.Transport
		p.Transport = &t
	}
	if p.Excursion != nil {
		e := *p.Excursion
		p.Excursion = &e
	}
	return &p
}

func (s productStore) Create(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt = s.tick()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = *cloneProduct(*p)
	return nil
}

func (s productStore) GetByID(_ context.Context, id string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := cloneProduct(p)
	if out.CheckVariant() != nil {
		return nil, repository.ErrVariantMissing
	}
	return out, nil
}

func (s productStore) List(_ context.Context, kind *model.Kind) ([]*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Product
	for _, p := range s.products {
		if kind == nil || p.Kind == *kind {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s productStore) Update(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.products[p.ID]
	if !ok {
		return model.ErrNotFound
	}
	if old.Kind != p.Kind {
		return model.Invalid("type", "product type cannot be changed")
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = s.tick()
	s.products[p.ID] = *cloneProduct(*p)
	return nil
}

func (s productStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return model.ErrNotFound
	}
	for _, members := range s.links {
		for _, pid := range members {
			if pid == id {
				return model.ErrConflict
			}
		}
	}
	for itemID, it := range s.items {
		if it.ProductID != nil && *it.ProductID == id {
			delete(s.items, itemID)
		}
	}
	delete(s.products, id)
	return nil
}

func (s productStore) CountByKind(_ context.Context) (map[model.Kind]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[model.Kind]int{}
	for _, p := range s.products {
		out[p.Kind]++
	}
	return out, nil
}

type packageStore struct{ *memStore }

func (s packageStore) checkRefs(ids []string) error {
	found := 0
	for _, id := range ids {
		if _, ok := s.products[id]; ok {
			found++
		}
	}
	if found != len(ids) {
		return &model.ReferenceError{Expected: len(ids), Found: found}
	}
	return nil
}

func (s packageStore) Create(_ context.Context, p *model.Package, productIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRefs(productIDs); err != nil {
		return err
	}
	p.CreatedAt = s.tick()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Products = nil
	s.packages[p.ID] = stored
	s.links[p.ID] = append([]string(nil), productIDs...)
	return nil
}

func (s packageStore) resolve(p model.Package) *model.Package {
	p.Products = []model.Product{}
	for _, pid := range s.links[p.ID] {
		p.Products = append(p.Products, *cloneProduct(s.products[pid]))
	}
	return &p
}

func (s packageStore) GetByID(_ context.Context, id string) (*model.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return s.resolve(p), nil
}

func (s packageStore) List(_ context.Context) ([]*model.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Package
	for _, p := range s.packages {
		out = append(out, s.resolve(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s packageStore) Update(_ context.Context, p *model.Package, productIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.packages[p.ID]
	if !ok {
		return model.ErrNotFound
	}
	if productIDs != nil {
		if err := s.checkRefs(productIDs); err != nil {
			return err
		}
		s.links[p.ID] = append([]string(nil), productIDs...)
	}
	stored := *p
	stored.Products = nil
	stored.CreatedAt = old.CreatedAt
	stored.UpdatedAt = s.tick()
	s.packages[p.ID] = stored
	return nil
}

func (s packageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packages[id]; !ok {
		return model.ErrNotFound
	}
	for itemID, it := range s.items {
		if it.PackageID != nil && *it.PackageID == id {
			delete(s.items, itemID)
		}
	}
	delete(s.links, id)
	delete(s.packages, id)
	return nil
}

func (s packageStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packages), nil
}

type cartStore struct{ *memStore }

func (s cartStore) ensure(userID, newID string) model.Cart {
	c, ok := s.carts[userID]
	if !ok {
		now := s.tick()
		c = model.Cart{ID: newID, UserID: userID, CreatedAt: now, UpdatedAt: now}
		s.carts[userID] = c
	}
	return c
}

func (s cartStore) GetOrCreate(_ context.Context, userID, newID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ensure(userID, newID)
	c.Items = []model.CartItem{}
	for _, it := range s.items {
		if it.CartID == c.ID {
			c.Items = append(c.Items, it)
		}
	}
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].CreatedAt.Before(c.Items[j].CreatedAt) })
	return &c, nil
}

func (s cartStore) AddItem(_ context.Context, userID, newCartID, newItemID string, kind model.TargetKind, targetID string, quantity int) (*model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ensure(userID, newCartID)
	if kind == model.TargetProduct {
		if _, ok := s.products[targetID]; !ok {
			return nil, model.ErrNotFound
		}
	} else if _, ok := s.packages[targetID]; !ok {
		return nil, model.ErrNotFound
	}
	for id, it := range s.items {
		if it.CartID == c.ID && it.TargetKind == kind && it.TargetID() == targetID {
			if err := model.ValidateMergedQuantity(it.Quantity + quantity); err != nil {
				return nil, err
			}
			it.Quantity += quantity
			it.UpdatedAt = s.tick()
			s.items[id] = it
			return &it, nil
		}
	}
	now := s.tick()
	it := model.CartItem{ID: newItemID, CartID: c.ID, TargetKind: kind, Quantity: quantity, CreatedAt: now, UpdatedAt: now}
	target := targetID
	if kind == model.TargetProduct {
		it.ProductID = &target
	} else {
		it.PackageID = &target
	}
	s.items[it.ID] = it
	return &it, nil
}

func (s cartStore) owned(userID, itemID string) (model.CartItem, bool) {
	it, ok := s.items[itemID]
	if !ok {
		return model.CartItem{}, false
	}
	c, ok := s.carts[userID]
	return it, ok && c.ID == it.CartID
}

func (s cartStore) UpdateQuantity(_ context.Context, userID, itemID string, quantity int) (*model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.owned(userID, itemID)
	if !ok {
		return nil, model.ErrNotFound
	}
	it.Quantity = quantity
	it.UpdatedAt = s.tick()
	s.items[itemID] = it
	return &it, nil
}

func (s cartStore) RemoveItem(_ context.Context, userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owned(userID, itemID); !ok {
		return model.ErrNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s cartStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return nil
	}
	for id, it := range s.items {
		if it.CartID == c.ID {
			delete(s.items, id)
		}
	}
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.CatalogEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.CatalogEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
