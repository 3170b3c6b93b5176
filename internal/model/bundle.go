package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Package bundles existing products under a single price. The price is
// set by an administrator and is independent of the members' prices.
type Package struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Products    []Product       `json:"products"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PackageInput is the payload for creating a package.
type PackageInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ProductIDs  []string        `json:"productIds"`
}

// Validate trims fields, de-duplicates ProductIDs and checks the
// create-time requirements.
func (in *PackageInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ProductIDs = UniqueIDs(in.ProductIDs)
	if in.Name == "" {
		return Invalid("name", "required")
	}
	if in.Description == "" {
		return Invalid("description", "required")
	}
	if err := ValidatePrice("price", in.Price); err != nil {
		return err
	}
	if len(in.ProductIDs) == 0 {
		return Invalid("productIds", "at least one product is required")
	}
	return nil
}

// PackagePatch is a partial update. A non-nil ProductIDs replaces the
// whole membership set.
type PackagePatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ProductIDs  *[]string        `json:"productIds"`
}

// Apply merges the scalar fields into p. Membership is handled by the
// caller because it needs a store round-trip.
func (pp *PackagePatch) Apply(p *Package) error {
	if pp.Name != nil {
		if p.Name = strings.TrimSpace(*pp.Name); p.Name == "" {
			return Invalid("name", "required")
		}
	}
	if pp.Description != nil {
		if p.Description = strings.TrimSpace(*pp.Description); p.Description == "" {
			return Invalid("description", "required")
		}
	}
	if pp.Price != nil {
		if err := ValidatePrice("price", *pp.Price); err != nil {
			return err
		}
		p.Price = *pp.Price
	}
	if pp.ProductIDs != nil {
		ids := UniqueIDs(*pp.ProductIDs)
		if len(ids) == 0 {
			return Invalid("productIds", "at least one product is required")
		}
		pp.ProductIDs = &ids
	}
	return nil
}

// UniqueIDs trims, drops blanks and removes duplicates while keeping the
// first-seen order.
func UniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
