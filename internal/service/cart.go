package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/travelhub/internal/cache"
	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
)

// CartRepository stores carts. All item operations are scoped by userID;
// the store enforces one cart per user and one line per target.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID, newID string) (*model.Cart, error)
	AddItem(ctx context.Context, userID, newCartID, newItemID string, kind model.TargetKind, targetID string, quantity int) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*model.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

type CartService struct {
	repo  CartRepository
	cache cache.CartCache
	log   *logger.Logger
	sfg   singleflight.Group // collapses concurrent cache misses per customer
}

func NewCartService(repo CartRepository, c cache.CartCache, log *logger.Logger) *CartService {
	if c == nil {
		c = cache.Nop{}
	}
	return &CartService{repo: repo, cache: c, log: log}
}

func customer(id model.Identity) (string, error) {
	if id.SubjectID == "" {
		return "", model.ErrInvalidToken
	}
	return id.SubjectID, nil
}

// GetOrCreateCart returns the caller's cart, creating an empty one on
// first access. Repeated calls return the same cart id.
//
// The owner's cache version is read before the store, and it keys the
// singleflight group, so a caller never joins a load that began before
// one of its writes committed and a stale load is never cached.
func (s *CartService) GetOrCreateCart(ctx context.Context, id model.Identity) (*model.Cart, error) {
	userID, err := customer(id)
	if err != nil {
		return nil, err
	}
	version, err := s.cache.Version(ctx, userID)
	if err != nil {
		s.log.Warn("cart cache version failed", "user_id", userID, "error", err)
		return s.repo.GetOrCreate(ctx, userID, uuid.NewString())
	}
	key := userID + "@" + strconv.FormatInt(version, 10)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cart cache get failed", "user_id", userID, "error", err)
		}
		cart, err = s.repo.GetOrCreate(ctx, userID, uuid.NewString())
		if err != nil {
			return nil, err
		}
		stored, err := s.cache.SetIfVersion(ctx, userID, version, cart)
		if err != nil {
			s.log.Warn("cart cache set failed", "user_id", userID, "error", err)
		} else if !stored {
			s.log.Debug("cart changed during load; snapshot not cached", "user_id", userID)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Cart), nil
}

// AddItem adds quantity of a product or package to the caller's cart. If
// the target is already in the cart its quantity is increased; the
// returned item reflects the merged state.
func (s *CartService) AddItem(ctx context.Context, id model.Identity, in model.AddItemInput) (*model.CartItem, error) {
	userID, err := customer(id)
	if err != nil {
		return nil, err
	}
	kind, target, err := in.Target()
	if err != nil {
		return nil, err
	}
	if err := model.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	item, err := s.repo.AddItem(ctx, userID, uuid.NewString(), uuid.NewString(), kind, target, in.Quantity)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID)
	s.log.Debug("cart item added", "user_id", userID, "item_id", item.ID, "quantity", item.Quantity)
	return item, nil
}

// UpdateItemQuantity sets an item's quantity. An item outside the
// caller's cart is model.ErrNotFound.
func (s *CartService) UpdateItemQuantity(ctx context.Context, id model.Identity, itemID string, quantity int) (*model.CartItem, error) {
	userID, err := customer(id)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	item, err := s.repo.UpdateQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID)
	return item, nil
}

// RemoveItem deletes an item from the caller's cart.
func (s *CartService) RemoveItem(ctx context.Context, id model.Identity, itemID string) error {
	userID, err := customer(id)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveItem(ctx, userID, itemID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// ClearCart empties the caller's cart; clearing an empty cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, id model.Identity) error {
	userID, err := customer(id)
	if err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *CartService) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("cart cache invalidate failed", "user_id", userID, "error", err)
	}
}
