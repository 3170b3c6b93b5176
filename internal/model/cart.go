package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TargetKind says what a cart item points at.
type TargetKind string

const (
	TargetProduct TargetKind = "PRODUCT"
	TargetPackage TargetKind = "PACKAGE"
)

// Cart is a customer's staging list. There is at most one per user,
// enforced by a unique key on user_id.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem references exactly one product or package. Within a cart the
// pair (TargetKind, target id) is unique; adding the same target again
// increments Quantity.
type CartItem struct {
	ID         string     `json:"id"`
	CartID     string     `json:"cartId"`
	TargetKind TargetKind `json:"targetKind"`
	ProductID  *string    `json:"productId"`
	PackageID  *string    `json:"packageId"`
	Quantity   int        `json:"quantity"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Product *ItemSummary `json:"product,omitempty"`
	Package *ItemSummary `json:"package,omitempty"`
}

// TargetID returns whichever of ProductID or PackageID is set.
func (i *CartItem) TargetID() string {
	if i.ProductID != nil {
		return *i.ProductID
	}
	if i.PackageID != nil {
		return *i.PackageID
	}
	return ""
}

// ItemSummary is the slice of a product or package shown next to a cart
// line.
type ItemSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Kind        Kind            `json:"type,omitempty"`
}

// AddItemInput is the payload of an add-to-cart request.
type AddItemInput struct {
	ProductID string `json:"productId"`
	PackageID string `json:"packageId"`
	Quantity  int    `json:"quantity"`
}

// Target validates the XOR between ProductID and PackageID and returns the
// chosen target.
func (in AddItemInput) Target() (TargetKind, string, error) {
	p := strings.TrimSpace(in.ProductID)
	k := strings.TrimSpace(in.PackageID)
	switch {
	case p != "" && k != "":
		return "", "", ErrInvalidTarget
	case p != "":
		return TargetProduct, p, nil
	case k != "":
		return TargetPackage, k, nil
	}
	return "", "", ErrInvalidTarget
}

// MaxQuantity caps one cart line, both as requested and after merging.
const MaxQuantity = 1000

var overMaxQuantity = fmt.Sprintf("must be at most %d", MaxQuantity)

// ValidateQuantity rejects quantities outside 1..MaxQuantity.
func ValidateQuantity(q int) error {
	if q < 1 {
		return Invalid("quantity", "must be at least 1")
	}
	if q > MaxQuantity {
		return Invalid("quantity", overMaxQuantity)
	}
	return nil
}

// ValidateMergedQuantity checks a line's total after an add merged into it.
func ValidateMergedQuantity(total int) error {
	if total > MaxQuantity {
		return Invalid("quantity", overMaxQuantity)
	}
	return nil
}
