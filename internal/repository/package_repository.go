package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/travelhub/internal/model"
)

// PackageRepo persists packages and their product membership.
type PackageRepo struct {
	db *sql.DB
}

func NewPackageRepo(db *sql.DB) *PackageRepo {
	return &PackageRepo{db: db}
}

// Create inserts the package and links productIDs. Every id must name an
// existing product; otherwise nothing is written and a
// *model.ReferenceError is returned. productIDs must already be
// de-duplicated.
func (r *PackageRepo) Create(ctx context.Context, p *model.Package, productIDs []string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := checkProductsExist(ctx, tx, productIDs); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO packages (id, name, description, price) VALUES (?, ?, ?, ?)",
			p.ID, p.Name, p.Description, p.Price)
		if err != nil {
			return err
		}
		if err := linkProducts(ctx, tx, p.ID, productIDs); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			"SELECT created_at, updated_at FROM packages WHERE id = ?", p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
	})
}

// GetByID returns the package with its member products and their
// extensions.
func (r *PackageRepo) GetByID(ctx context.Context, id string) (*model.Package, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, price, created_at, updated_at FROM packages WHERE id = ?", id)
	p, err := scanPackage(row)
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.attachProducts(ctx, []*model.Package{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every package, newest first, with members attached.
func (r *PackageRepo) List(ctx context.Context) ([]*model.Package, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, price, created_at, updated_at FROM packages ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachProducts(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the scalar columns and, when productIDs is non-nil,
// replaces the membership set.
func (r *PackageRepo) Update(ctx context.Context, p *model.Package, productIDs []string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found string
		if err := tx.QueryRowContext(ctx, "SELECT id FROM packages WHERE id = ? FOR UPDATE", p.ID).Scan(&found); err != nil {
			return notFound(err)
		}
		if productIDs != nil {
			if err := checkProductsExist(ctx, tx, productIDs); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE packages SET name = ?, description = ?, price = ? WHERE id = ?",
			p.Name, p.Description, p.Price, p.ID)
		if err != nil {
			return err
		}
		if productIDs != nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM package_products WHERE package_id = ?", p.ID); err != nil {
				return err
			}
			if err := linkProducts(ctx, tx, p.ID, productIDs); err != nil {
				return err
			}
		}
		return tx.QueryRowContext(ctx,
			"SELECT created_at, updated_at FROM packages WHERE id = ?", p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
	})
}

// Delete removes the package, its links and every cart line pointing at
// it. Member products are kept.
func (r *PackageRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found string
		if err := tx.QueryRowContext(ctx, "SELECT id FROM packages WHERE id = ? FOR UPDATE", id).Scan(&found); err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE package_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM packages WHERE id = ?", id)
		return err
	})
}

// Count returns the number of packages.
func (r *PackageRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM packages").Scan(&n)
	return n, err
}

// checkProductsExist locks the referenced product rows in share mode so a
// concurrent delete cannot slip in before the links are written.
func checkProductsExist(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return model.Invalid("productIds", "at least one product is required")
	}
	in, args := inArgs(ids)
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE id IN ("+in+") FOR SHARE", args...).Scan(&n)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return &model.ReferenceError{Expected: len(ids), Found: n}
	}
	return nil
}

func linkProducts(ctx context.Context, tx *sql.Tx, packageID string, ids []string) error {
	values := make([]any, 0, 2*len(ids))
	q := "INSERT INTO package_products (package_id, product_id) VALUES "
	for i, id := range ids {
		if i > 0 {
			q += ", "
		}
		q += "(?, ?)"
		values = append(values, packageID, id)
	}
	if _, err := tx.ExecContext(ctx, q, values...); err != nil {
		if isMySQLErr(err, errNoReferenced) {
			return fmt.Errorf("%w: product vanished while linking", model.ErrInvalidReference)
		}
		return err
	}
	return nil
}

func scanPackage(row rowScanner) (*model.Package, error) {
	var p model.Package
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Products = []model.Product{}
	return &p, nil
}

// attachProducts loads the members of every package in one join and then
// their extensions in one query per kind.
func (r *PackageRepo) attachProducts(ctx context.Context, pkgs []*model.Package) error {
	if len(pkgs) == 0 {
		return nil
	}
	ids := make([]string, len(pkgs))
	byID := make(map[string]*model.Package, len(pkgs))
	for i, p := range pkgs {
		ids[i] = p.ID
		byID[p.ID] = p
	}
	in, args := inArgs(ids)
	rows, err := r.db.QueryContext(ctx, `SELECT pp.package_id, `+productColumns+`
	  FROM package_products pp
	  JOIN products p ON p.id = pp.product_id
	 WHERE pp.package_id IN (`+in+`)
	 ORDER BY p.created_at, p.id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	type member struct {
		packageID string
		product   *model.Product
	}
	var (
		members  []member
		products = make(map[string]*model.Product)
	)
	for rows.Next() {
		var (
			pkgID string
			p     model.Product
			kind  string
		)
		if err := rows.Scan(&pkgID, &p.ID, &p.Name, &p.Description, &p.Price, &kind, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		p.Kind = model.Kind(kind)
		shared, ok := products[p.ID]
		if !ok {
			shared = &p
			products[p.ID] = shared
		}
		members = append(members, member{packageID: pkgID, product: shared})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	unique := make([]*model.Product, 0, len(products))
	for _, p := range products {
		unique = append(unique, p)
	}
	if err := attachVariants(ctx, r.db, unique); err != nil {
		return err
	}
	for _, m := range members {
		pkg := byID[m.packageID]
		pkg.Products = append(pkg.Products, *m.product)
	}
	return nil
}
