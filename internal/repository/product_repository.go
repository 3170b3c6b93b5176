package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/travelhub/internal/model"
)

// ProductRepo persists products. The base row lives in `products`; the
// kind-specific attributes live in one of `flights`, `hotels`,
// `transports` or `excursions`, keyed by product id. Base and extension
// are always written in the same transaction.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

const productColumns = "p.id, p.name, p.description, p.price, p.kind, p.created_at, p.updated_at"

// Create inserts the base row and the extension matching p.Kind. The
// caller assigns p.ID. Timestamps are read back inside the transaction.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO products (id, name, description, price, kind) VALUES (?, ?, ?, ?, ?)",
			p.ID, p.Name, p.Description, p.Price, string(p.Kind))
		if err != nil {
			return err
		}
		if err := insertVariant(ctx, tx, p); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			"SELECT created_at, updated_at FROM products WHERE id = ?", p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
	})
}

// GetByID returns the product with its extension attached. A missing base
// row yields model.ErrNotFound; a base row without the extension its kind
// requires yields ErrVariantMissing.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	return getProduct(ctx, r.db, id)
}

func getProduct(ctx context.Context, q querier, id string) (*model.Product, error) {
	row := q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products p WHERE p.id = ?", id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err)
	}
	list := []*model.Product{p}
	if err := attachVariants(ctx, q, list); err != nil {
		return nil, err
	}
	if p.CheckVariant() != nil {
		return nil, ErrVariantMissing
	}
	return p, nil
}

// List returns products newest first, optionally restricted to one kind.
// Rows whose extension is missing are returned without one; callers must
// check CheckVariant before exposing them.
func (r *ProductRepo) List(ctx context.Context, kind *model.Kind) ([]*model.Product, error) {
	q := "SELECT " + productColumns + " FROM products p"
	var args []any
	if kind != nil {
		q += " WHERE p.kind = ?"
		args = append(args, string(*kind))
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	if err := attachVariants(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes every base and extension column of p. The row is locked
// first so a concurrent delete surfaces as model.ErrNotFound rather than a
// silent no-op.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var kind string
		err := tx.QueryRowContext(ctx, "SELECT kind FROM products WHERE id = ? FOR UPDATE", p.ID).Scan(&kind)
		if err != nil {
			return notFound(err)
		}
		if model.Kind(kind) != p.Kind {
			return model.Invalid("type", "product type cannot be changed")
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE products SET name = ?, description = ?, price = ? WHERE id = ?",
			p.Name, p.Description, p.Price, p.ID)
		if err != nil {
			return err
		}
		if err := updateVariant(ctx, tx, p); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			"SELECT created_at, updated_at FROM products WHERE id = ?", p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
	})
}

// Delete removes a product, its extension and every cart line pointing at
// it. A product that still belongs to a package is not deleted and
// model.ErrConflict is returned.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found string
		if err := tx.QueryRowContext(ctx, "SELECT id FROM products WHERE id = ? FOR UPDATE", id).Scan(&found); err != nil {
			return notFound(err)
		}
		var refs int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM package_products WHERE product_id = ?", id).Scan(&refs); err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: product belongs to %d package(s)", model.ErrConflict, refs)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE product_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id); err != nil {
			if isMySQLErr(err, errRowIsParent) {
				return model.ErrConflict
			}
			return err
		}
		return nil
	})
}

// CountByKind returns the number of products per kind.
func (r *ProductRepo) CountByKind(ctx context.Context) (map[model.Kind]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM products GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.Kind]int, 4)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[model.Kind(kind)] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		p    model.Product
		kind string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &kind, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Kind = model.Kind(kind)
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]*model.Product, error) {
	defer rows.Close()
	var out []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// attachVariants loads the extension rows for products in one query per
// kind present and attaches them in place.
func attachVariants(ctx context.Context, q querier, products []*model.Product) error {
	byKind := make(map[model.Kind][]string)
	index := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byKind[p.Kind] = append(byKind[p.Kind], p.ID)
		index[p.ID] = p
	}
	for _, kind := range model.Kinds() {
		ids := byKind[kind]
		if len(ids) == 0 {
			continue
		}
		var err error
		switch kind {
		case model.KindFlight:
			err = loadFlights(ctx, q, ids, index)
		case model.KindHotel:
			err = loadHotels(ctx, q, ids, index)
		case model.KindTransport:
			err = loadTransports(ctx, q, ids, index)
		case model.KindExcursion:
			err = loadExcursions(ctx, q, ids, index)
		}
		if err != nil {
			return fmt.Errorf("load %s details: %w", kind, err)
		}
	}
	return nil
}

func loadFlights(ctx context.Context, q querier, ids []string, index map[string]*model.Product) error {
	in, args := inArgs(ids)
	rows, err := q.QueryContext(ctx, `SELECT product_id, origin, destination, departure, arrival, duration,
	       cabin_class, stops, airline, flight_number
	  FROM flights WHERE product_id IN (`+in+`)`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id              string
			f               model.Flight
			airline, number sql.NullString
		)
		if err := rows.Scan(&id, &f.Origin, &f.Destination, &f.Departure, &f.Arrival, &f.Duration,
			&f.CabinClass, &f.Stops, &airline, &number); err != nil {
			return err
		}
		f.Airline, f.FlightNumber = airline.String, number.String
		index[id].Flight = &f
	}
	return rows.Err()
}

func loadHotels(ctx context.Context, q querier, ids []string, index map[string]*model.Product) error {
	in, args := inArgs(ids)
	rows, err := q.QueryContext(ctx, `SELECT product_id, location, amenities, rating, reviews,
	       check_in, check_out, rooms, stars
	  FROM hotels WHERE product_id IN (`+in+`)`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id                string
			h                 model.Hotel
			amenities         []byte
			rating            sql.NullFloat64
			checkIn, checkOut sql.NullString
			rooms, stars      sql.NullInt64
		)
		if err := rows.Scan(&id, &h.Location, &amenities, &rating, &h.Reviews,
			&checkIn, &checkOut, &rooms, &stars); err != nil {
			return err
		}
		if err := decodeList(amenities, &h.Amenities); err != nil {
			return err
		}
		h.Rating = nullFloat(rating)
		h.CheckIn, h.CheckOut = checkIn.String, checkOut.String
		h.Rooms, h.Stars = nullInt(rooms), nullInt(stars)
		index[id].Hotel = &h
	}
	return rows.Err()
}

func loadTransports(ctx context.Context, q querier, ids []string, index map[string]*model.Product) error {
	in, args := inArgs(ids)
	rows, err := q.QueryContext(ctx, `SELECT product_id, vehicle_type, capacity, pickup_location,
	       dropoff_location, duration, includes
	  FROM transports WHERE product_id IN (`+in+`)`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id                        string
			t                         model.Transport
			capacity                  sql.NullInt64
			pickup, dropoff, duration sql.NullString
			includes                  []byte
		)
		if err := rows.Scan(&id, &t.VehicleType, &capacity, &pickup, &dropoff, &duration, &includes); err != nil {
			return err
		}
		if err := decodeList(includes, &t.Includes); err != nil {
			return err
		}
		t.Capacity = nullInt(capacity)
		t.PickupLocation, t.DropoffLocation, t.Duration = pickup.String, dropoff.String, duration.String
		index[id].Transport = &t
	}
	return rows.Err()
}

func loadExcursions(ctx context.Context, q querier, ids []string, index map[string]*model.Product) error {
	in, args := inArgs(ids)
	rows, err := q.QueryContext(ctx, `SELECT product_id, location, category, duration, max_group_size,
	       difficulty, includes, requirements
	  FROM excursions WHERE product_id IN (`+in+`)`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id                             string
			e                              model.Excursion
			category, duration, difficulty sql.NullString
			maxGroup                       sql.NullInt64
			includes, requirements         []byte
		)
		if err := rows.Scan(&id, &e.Location, &category, &duration, &maxGroup,
			&difficulty, &includes, &requirements); err != nil {
			return err
		}
		if err := decodeList(includes, &e.Includes); err != nil {
			return err
		}
		if err := decodeList(requirements, &e.Requirements); err != nil {
			return err
		}
		e.Category, e.Duration, e.Difficulty = category.String, duration.String, difficulty.String
		e.MaxGroupSize = nullInt(maxGroup)
		index[id].Excursion = &e
	}
	return rows.Err()
}

func insertVariant(ctx context.Context, tx *sql.Tx, p *model.Product) error {
	var err error
	switch p.Kind {
	case model.KindFlight:
		f := p.Flight
		_, err = tx.ExecContext(ctx, `INSERT INTO flights (product_id, origin, destination, departure, arrival,
		       duration, cabin_class, stops, airline, flight_number) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, f.Origin, f.Destination, f.Departure, f.Arrival, f.Duration, f.CabinClass, f.Stops,
			nullString(f.Airline), nullString(f.FlightNumber))
	case model.KindHotel:
		h := p.Hotel
		_, err = tx.ExecContext(ctx, `INSERT INTO hotels (product_id, location, amenities, rating, reviews,
		       check_in, check_out, rooms, stars) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, h.Location, encodeList(h.Amenities), h.Rating, h.Reviews,
			nullString(h.CheckIn), nullString(h.CheckOut), h.Rooms, h.Stars)
	case model.KindTransport:
		t := p.Transport
		_, err = tx.ExecContext(ctx, `INSERT INTO transports (product_id, vehicle_type, capacity, pickup_location,
		       dropoff_location, duration, includes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, t.VehicleType, t.Capacity, nullString(t.PickupLocation), nullString(t.DropoffLocation),
			nullString(t.Duration), encodeList(t.Includes))
	case model.KindExcursion:
		e := p.Excursion
		_, err = tx.ExecContext(ctx, `INSERT INTO excursions (product_id, location, category, duration,
		       max_group_size, difficulty, includes, requirements) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, e.Location, nullString(e.Category), nullString(e.Duration), e.MaxGroupSize,
			nullString(e.Difficulty), encodeList(e.Includes), encodeList(e.Requirements))
	default:
		return model.Invalid("type", "unknown product type")
	}
	return err
}

// updateVariant rewrites the extension row. Zero affected rows means the
// extension is missing, which is reported as ErrVariantMissing.
func updateVariant(ctx context.Context, tx *sql.Tx, p *model.Product) error {
	var (
		res sql.Result
		err error
	)
	switch p.Kind {
	case model.KindFlight:
		f := p.Flight
		res, err = tx.ExecContext(ctx, `UPDATE flights SET origin = ?, destination = ?, departure = ?, arrival = ?,
		       duration = ?, cabin_class = ?, stops = ?, airline = ?, flight_number = ? WHERE product_id = ?`,
			f.Origin, f.Destination, f.Departure, f.Arrival, f.Duration, f.CabinClass, f.Stops,
			nullString(f.Airline), nullString(f.FlightNumber), p.ID)
	case model.KindHotel:
		h := p.Hotel
		res, err = tx.ExecContext(ctx, `UPDATE hotels SET location = ?, amenities = ?, rating = ?, reviews = ?,
		       check_in = ?, check_out = ?, rooms = ?, stars = ? WHERE product_id = ?`,
			h.Location, encodeList(h.Amenities), h.Rating, h.Reviews,
			nullString(h.CheckIn), nullString(h.CheckOut), h.Rooms, h.Stars, p.ID)
	case model.KindTransport:
		t := p.Transport
		res, err = tx.ExecContext(ctx, `UPDATE transports SET vehicle_type = ?, capacity = ?, pickup_location = ?,
		       dropoff_location = ?, duration = ?, includes = ? WHERE product_id = ?`,
			t.VehicleType, t.Capacity, nullString(t.PickupLocation), nullString(t.DropoffLocation),
			nullString(t.Duration), encodeList(t.Includes), p.ID)
	case model.KindExcursion:
		e := p.Excursion
		res, err = tx.ExecContext(ctx, `UPDATE excursions SET location = ?, category = ?, duration = ?,
		       max_group_size = ?, difficulty = ?, includes = ?, requirements = ? WHERE product_id = ?`,
			e.Location, nullString(e.Category), nullString(e.Duration), e.MaxGroupSize,
			nullString(e.Difficulty), encodeList(e.Includes), encodeList(e.Requirements), p.ID)
	default:
		return model.Invalid("type", "unknown product type")
	}
	if err != nil {
		return err
	}
	// The DSN does not set clientFoundRows, so an unchanged row reports zero
	// affected rows; confirm existence explicitly in that case.
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	table := variantTable[p.Kind]
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE product_id = ?", p.ID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVariantMissing
		}
		return err
	}
	return nil
}

var variantTable = map[model.Kind]string{
	model.KindFlight:    "flights",
	model.KindHotel:     "hotels",
	model.KindTransport: "transports",
	model.KindExcursion: "excursions",
}

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
