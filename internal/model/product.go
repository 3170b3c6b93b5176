package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the four product variants. A product's kind is fixed
// at creation; the matching extension row is written in the same
// transaction and never re-keyed.
type Kind string

const (
	KindFlight    Kind = "FLIGHT"
	KindHotel     Kind = "HOTEL"
	KindTransport Kind = "TRANSPORT"
	KindExcursion Kind = "EXCURSION"
)

// Kinds lists every product kind in display order.
func Kinds() []Kind {
	return []Kind{KindFlight, KindHotel, KindTransport, KindExcursion}
}

// ParseKind accepts any casing ("flight", "Flight", "FLIGHT").
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case KindFlight, KindHotel, KindTransport, KindExcursion:
		return k, true
	}
	return "", false
}

// maxPrice is the largest value a DECIMAL(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

// ValidatePrice enforces a non-negative amount with at most two decimals.
func ValidatePrice(field string, p decimal.Decimal) error {
	if p.IsNegative() {
		return Invalid(field, "must be non-negative")
	}
	if !p.Equal(p.Round(2)) {
		return Invalid(field, "at most two decimal places")
	}
	if p.GreaterThan(maxPrice) {
		return Invalid(field, "too large")
	}
	return nil
}

// Product is the base catalog entity. Exactly one of Flight, Hotel,
// Transport or Excursion is populated and it must match Kind; see
// CheckVariant.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Kind        Kind            `json:"type"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Flight    *Flight    `json:"flight,omitempty"`
	Hotel     *Hotel     `json:"hotel,omitempty"`
	Transport *Transport `json:"transport,omitempty"`
	Excursion *Excursion `json:"excursion,omitempty"`
}

// attached returns the kinds whose payload is non-nil.
func (p *Product) attached() []Kind {
	var out []Kind
	if p.Flight != nil {
		out = append(out, KindFlight)
	}
	if p.Hotel != nil {
		out = append(out, KindHotel)
	}
	if p.Transport != nil {
		out = append(out, KindTransport)
	}
	if p.Excursion != nil {
		out = append(out, KindExcursion)
	}
	return out
}

// CheckVariant reports whether exactly one variant payload is attached and
// it agrees with Kind.
func (p *Product) CheckVariant() error {
	got := p.attached()
	if len(got) == 0 {
		return fmt.Errorf("product %s: %s extension missing", p.ID, p.Kind)
	}
	if len(got) > 1 {
		return fmt.Errorf("product %s: %d extensions attached", p.ID, len(got))
	}
	if got[0] != p.Kind {
		return fmt.Errorf("product %s: kind %s carries %s extension", p.ID, p.Kind, got[0])
	}
	return nil
}

// Validate checks the fields required to create a product of its kind and
// fills variant defaults.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Name == "" {
		return Invalid("name", "required")
	}
	if p.Description == "" {
		return Invalid("description", "required")
	}
	if err := ValidatePrice("price", p.Price); err != nil {
		return err
	}
	if _, ok := ParseKind(string(p.Kind)); !ok {
		return Invalid("type", "must be one of FLIGHT, HOTEL, TRANSPORT, EXCURSION")
	}
	got := p.attached()
	if len(got) != 1 || got[0] != p.Kind {
		return Invalid(strings.ToLower(string(p.Kind)), "details for the product type are required")
	}
	switch p.Kind {
	case KindFlight:
		return p.Flight.validate()
	case KindHotel:
		return p.Hotel.validate()
	case KindTransport:
		return p.Transport.validate()
	default:
		return p.Excursion.validate()
	}
}

// ProductPatch carries a partial update. Nil fields are left untouched.
// Only the patch matching the stored kind may be supplied.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Kind        *Kind            `json:"type"`

	Flight    *FlightPatch    `json:"flight"`
	Hotel     *HotelPatch     `json:"hotel"`
	Transport *TransportPatch `json:"transport"`
	Excursion *ExcursionPatch `json:"excursion"`
}

// Apply merges the patch into p and re-validates the result.
func (pp ProductPatch) Apply(p *Product) error {
	if pp.Kind != nil {
		k, ok := ParseKind(string(*pp.Kind))
		if !ok || k != p.Kind {
			return Invalid("type", "product type cannot be changed")
		}
	}
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	wrong := func(k Kind) error {
		return Invalid(strings.ToLower(string(k)), "does not match product type "+string(p.Kind))
	}
	if pp.Flight != nil {
		if p.Kind != KindFlight || p.Flight == nil {
			return wrong(KindFlight)
		}
		pp.Flight.apply(p.Flight)
	}
	if pp.Hotel != nil {
		if p.Kind != KindHotel || p.Hotel == nil {
			return wrong(KindHotel)
		}
		pp.Hotel.apply(p.Hotel)
	}
	if pp.Transport != nil {
		if p.Kind != KindTransport || p.Transport == nil {
			return wrong(KindTransport)
		}
		pp.Transport.apply(p.Transport)
	}
	if pp.Excursion != nil {
		if p.Kind != KindExcursion || p.Excursion == nil {
			return wrong(KindExcursion)
		}
		pp.Excursion.apply(p.Excursion)
	}
	return p.Validate()
}

// Empty reports whether the patch changes nothing.
func (pp ProductPatch) Empty() bool {
	return pp.Name == nil && pp.Description == nil && pp.Price == nil && pp.Kind == nil &&
		pp.Flight == nil && pp.Hotel == nil && pp.Transport == nil && pp.Excursion == nil
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return Invalid(field, "required")
	}
	return nil
}

func atLeast(field string, v *int, min int) error {
	if v != nil && *v < min {
		return Invalid(field, fmt.Sprintf("must be at least %d", min))
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
