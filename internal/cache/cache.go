// Package cache holds the per-user cart snapshot cache.
package cache

import (
	"context"
	"errors"

	"github.com/iliyamo/travelhub/internal/model"
)

// CartCache stores serialized carts keyed by owner. Every cart write bumps
// the owner's version; a snapshot read under an older version is never
// stored. Implementations must be safe for concurrent use.
type CartCache interface {
	Get(ctx context.Context, userID string) (*model.Cart, error)
	// Version reports the owner's current write version. Callers read it
	// before loading the cart from the store.
	Version(ctx context.Context, userID string) (int64, error)
	// SetIfVersion stores cart only while the owner's version still equals
	// version. It reports whether the snapshot was stored.
	SetIfVersion(ctx context.Context, userID string, version int64, cart *model.Cart) (bool, error)
	// Invalidate bumps the owner's version and drops the snapshot.
	Invalidate(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop is a CartCache that never stores anything. Used when Redis is not
// configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (*model.Cart, error) { return nil, ErrCacheMiss }
func (Nop) Version(context.Context, string) (int64, error)   { return 0, nil }
func (Nop) Invalidate(context.Context, string) error         { return nil }
func (Nop) SetIfVersion(context.Context, string, int64, *model.Cart) (bool, error) {
	return false, nil
}
