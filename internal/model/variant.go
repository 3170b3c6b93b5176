package model

import "strings"

// Flight is the FLIGHT extension, stored in the `flights` table keyed by
// product id.
type Flight struct {
	Origin       string `json:"from"`
	Destination  string `json:"to"`
	Departure    string `json:"departure"`
	Arrival      string `json:"arrival"`
	Duration     string `json:"duration"`
	CabinClass   string `json:"class"`
	Stops        string `json:"stops"`
	Airline      string `json:"airline,omitempty"`
	FlightNumber string `json:"flightNumber,omitempty"`
}

func (f *Flight) validate() error {
	if f.CabinClass == "" {
		f.CabinClass = "Economy"
	}
	if f.Stops == "" {
		f.Stops = "Direct"
	}
	return firstErr(
		required("flight.from", f.Origin),
		required("flight.to", f.Destination),
		required("flight.departure", f.Departure),
		required("flight.arrival", f.Arrival),
		required("flight.duration", f.Duration),
	)
}

// Hotel is the HOTEL extension.
type Hotel struct {
	Location  string   `json:"location"`
	Amenities []string `json:"amenities"`
	Rating    *float64 `json:"rating,omitempty"`
	Reviews   int      `json:"reviews"`
	CheckIn   string   `json:"checkIn,omitempty"`
	CheckOut  string   `json:"checkOut,omitempty"`
	Rooms     *int     `json:"rooms,omitempty"`
	Stars     *int     `json:"stars,omitempty"`
}

func (h *Hotel) validate() error {
	h.Amenities = compact(h.Amenities)
	if err := required("hotel.location", h.Location); err != nil {
		return err
	}
	if len(h.Amenities) == 0 {
		return Invalid("hotel.amenities", "at least one amenity is required")
	}
	if h.Rating != nil && (*h.Rating < 0 || *h.Rating > 5) {
		return Invalid("hotel.rating", "must be between 0 and 5")
	}
	if h.Reviews < 0 {
		return Invalid("hotel.reviews", "must be non-negative")
	}
	if h.Stars != nil && (*h.Stars < 1 || *h.Stars > 5) {
		return Invalid("hotel.stars", "must be between 1 and 5")
	}
	return atLeast("hotel.rooms", h.Rooms, 1)
}

// Transport is the TRANSPORT extension.
type Transport struct {
	VehicleType     string   `json:"vehicleType"`
	Capacity        *int     `json:"capacity,omitempty"`
	PickupLocation  string   `json:"pickupLocation,omitempty"`
	DropoffLocation string   `json:"dropoffLocation,omitempty"`
	Duration        string   `json:"duration,omitempty"`
	Includes        []string `json:"includes"`
}

func (t *Transport) validate() error {
	t.Includes = compact(t.Includes)
	return firstErr(
		required("transport.vehicleType", t.VehicleType),
		atLeast("transport.capacity", t.Capacity, 1),
	)
}

// Excursion is the EXCURSION extension.
type Excursion struct {
	Location     string   `json:"location"`
	Category     string   `json:"category,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	MaxGroupSize *int     `json:"maxGroupSize,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Includes     []string `json:"includes"`
	Requirements []string `json:"requirements"`
}

func (e *Excursion) validate() error {
	e.Includes = compact(e.Includes)
	e.Requirements = compact(e.Requirements)
	return firstErr(
		required("excursion.location", e.Location),
		atLeast("excursion.maxGroupSize", e.MaxGroupSize, 1),
	)
}

// FlightPatch is a partial Flight.
type FlightPatch struct {
	Origin       *string `json:"from"`
	Destination  *string `json:"to"`
	Departure    *string `json:"departure"`
	Arrival      *string `json:"arrival"`
	Duration     *string `json:"duration"`
	CabinClass   *string `json:"class"`
	Stops        *string `json:"stops"`
	Airline      *string `json:"airline"`
	FlightNumber *string `json:"flightNumber"`
}

func (p *FlightPatch) apply(f *Flight) {
	set(&f.Origin, p.Origin)
	set(&f.Destination, p.Destination)
	set(&f.Departure, p.Departure)
	set(&f.Arrival, p.Arrival)
	set(&f.Duration, p.Duration)
	set(&f.CabinClass, p.CabinClass)
	set(&f.Stops, p.Stops)
	set(&f.Airline, p.Airline)
	set(&f.FlightNumber, p.FlightNumber)
}

// HotelPatch is a partial Hotel.
type HotelPatch struct {
	Location  *string   `json:"location"`
	Amenities *[]string `json:"amenities"`
	Rating    *float64  `json:"rating"`
	Reviews   *int      `json:"reviews"`
	CheckIn   *string   `json:"checkIn"`
	CheckOut  *string   `json:"checkOut"`
	Rooms     *int      `json:"rooms"`
	Stars     *int      `json:"stars"`
}

func (p *HotelPatch) apply(h *Hotel) {
	set(&h.Location, p.Location)
	set(&h.Amenities, p.Amenities)
	set(&h.Reviews, p.Reviews)
	set(&h.CheckIn, p.CheckIn)
	set(&h.CheckOut, p.CheckOut)
	if p.Rating != nil {
		h.Rating = p.Rating
	}
	if p.Rooms != nil {
		h.Rooms = p.Rooms
	}
	if p.Stars != nil {
		h.Stars = p.Stars
	}
}

// TransportPatch is a partial Transport.
type TransportPatch struct {
	VehicleType     *string   `json:"vehicleType"`
	Capacity        *int      `json:"capacity"`
	PickupLocation  *string   `json:"pickupLocation"`
	DropoffLocation *string   `json:"dropoffLocation"`
	Duration        *string   `json:"duration"`
	Includes        *[]string `json:"includes"`
}

func (p *TransportPatch) apply(t *Transport) {
	set(&t.VehicleType, p.VehicleType)
	set(&t.PickupLocation, p.PickupLocation)
	set(&t.DropoffLocation, p.DropoffLocation)
	set(&t.Duration, p.Duration)
	set(&t.Includes, p.Includes)
	if p.Capacity != nil {
		t.Capacity = p.Capacity
	}
}

// ExcursionPatch is a partial Excursion.
type ExcursionPatch struct {
	Location     *string   `json:"location"`
	Category     *string   `json:"category"`
	Duration     *string   `json:"duration"`
	MaxGroupSize *int      `json:"maxGroupSize"`
	Difficulty   *string   `json:"difficulty"`
	Includes     *[]string `json:"includes"`
	Requirements *[]string `json:"requirements"`
}

func (p *ExcursionPatch) apply(e *Excursion) {
	set(&e.Location, p.Location)
	set(&e.Category, p.Category)
	set(&e.Duration, p.Duration)
	set(&e.Difficulty, p.Difficulty)
	set(&e.Includes, p.Includes)
	set(&e.Requirements, p.Requirements)
	if p.MaxGroupSize != nil {
		e.MaxGroupSize = p.MaxGroupSize
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// compact trims entries and drops blanks; it never returns nil so the JSON
// columns always hold an array.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
