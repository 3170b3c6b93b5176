package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/travelhub/internal/model"
)

// CartRepo persists carts and cart items. Every item operation is scoped
// by the owning user id; an item id that belongs to another user's cart is
// reported exactly like a missing one.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db}
}

// ensureCart creates the user's cart if needed and returns its id. The
// unique key on carts.user_id makes concurrent calls converge on one row;
// newID is only used when the insert wins.
func ensureCart(ctx context.Context, q querier, userID, newID string) (string, error) {
	_, err := q.ExecContext(ctx,
		"INSERT INTO carts (id, user_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = id",
		newID, userID)
	if err != nil {
		if isMySQLErr(err, errNoReferenced) {
			return "", model.ErrIdentityGone
		}
		return "", err
	}
	var id string
	if err := q.QueryRowContext(ctx, "SELECT id FROM carts WHERE user_id = ?", userID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// GetOrCreate returns the user's cart with its items, creating an empty
// cart on first access.
func (r *CartRepo) GetOrCreate(ctx context.Context, userID, newID string) (*model.Cart, error) {
	if _, err := ensureCart(ctx, r.db, userID, newID); err != nil {
		return nil, err
	}
	var c model.Cart
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?", userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	rows, err := r.db.QueryContext(ctx, cartItemSelect+" WHERE ci.cart_id = ? ORDER BY ci.created_at, ci.id", c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	c.Items = []model.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items, *item)
	}
	return &c, rows.Err()
}

// AddItem merges quantity into the line for (kind, targetID), inserting it
// when absent, and returns the resulting line. The target must exist,
// otherwise model.ErrNotFound is returned.
func (r *CartRepo) AddItem(ctx context.Context, userID, newCartID, newItemID string, kind model.TargetKind, targetID string, quantity int) (*model.CartItem, error) {
	var item *model.CartItem
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID, newCartID)
		if err != nil {
			return err
		}
		table := "products"
		if kind == model.TargetPackage {
			table = "packages"
		}
		var found string
		if err := tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE id = ? FOR SHARE", targetID).Scan(&found); err != nil {
			return notFound(err)
		}

		var productID, packageID any
		if kind == model.TargetPackage {
			packageID = targetID
		} else {
			productID = targetID
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO cart_items (id, cart_id, target_kind, product_id, package_id, quantity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
			newItemID, cartID, string(kind), productID, packageID, quantity)
		if err != nil {
			if isMySQLErr(err, errNoReferenced) {
				return model.ErrNotFound
			}
			return outOfRange(err)
		}
		row := tx.QueryRowContext(ctx,
			cartItemSelect+" WHERE ci.cart_id = ? AND ci.target_kind = ? AND ci.target_id = ?",
			cartID, string(kind), targetID)
		item, err = scanCartItem(row)
		if err != nil {
			return err
		}
		return model.ValidateMergedQuantity(item.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateQuantity sets the quantity of an item in the user's cart.
func (r *CartRepo) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*model.CartItem, error) {
	var item *model.CartItem
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found string
		err := tx.QueryRowContext(ctx, `SELECT ci.id FROM cart_items ci
		  JOIN carts c ON c.id = ci.cart_id
		 WHERE ci.id = ? AND c.user_id = ? FOR UPDATE`, itemID, userID).Scan(&found)
		if err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE cart_items SET quantity = ? WHERE id = ?", quantity, itemID); err != nil {
			return outOfRange(err)
		}
		item, err = scanCartItem(tx.QueryRowContext(ctx, cartItemSelect+" WHERE ci.id = ?", itemID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes an item from the user's cart.
func (r *CartRepo) RemoveItem(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE ci FROM cart_items ci
	  JOIN carts c ON c.id = ci.cart_id
	 WHERE ci.id = ? AND c.user_id = ?`, itemID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Clear deletes every item in the user's cart. A user without a cart, or
// with an empty one, is not an error.
func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE ci FROM cart_items ci
	  JOIN carts c ON c.id = ci.cart_id
	 WHERE c.user_id = ?`, userID)
	return err
}

const cartItemSelect = `SELECT ci.id, ci.cart_id, ci.target_kind, ci.product_id, ci.package_id, ci.quantity,
       ci.created_at, ci.updated_at,
       p.name, p.description, p.price, p.kind,
       k.name, k.description, k.price
  FROM cart_items ci
  LEFT JOIN products p ON p.id = ci.product_id
  LEFT JOIN packages k ON k.id = ci.package_id`

func scanCartItem(row rowScanner) (*model.CartItem, error) {
	var (
		it                   model.CartItem
		kind                 string
		productID, packageID sql.NullString
		pName, pDesc, pKind  sql.NullString
		kName, kDesc         sql.NullString
		pPrice, kPrice       decimal.NullDecimal
	)
	err := row.Scan(&it.ID, &it.CartID, &kind, &productID, &packageID, &it.Quantity,
		&it.CreatedAt, &it.UpdatedAt,
		&pName, &pDesc, &pPrice, &pKind,
		&kName, &kDesc, &kPrice)
	if err != nil {
		return nil, notFound(err)
	}
	it.TargetKind = model.TargetKind(kind)
	if productID.Valid {
		id := productID.String
		it.ProductID = &id
		if pName.Valid {
			it.Product = &model.ItemSummary{
				ID: id, Name: pName.String, Description: pDesc.String,
				Price: pPrice.Decimal, Kind: model.Kind(pKind.String),
			}
		}
	}
	if packageID.Valid {
		id := packageID.String
		it.PackageID = &id
		if kName.Valid {
			it.Package = &model.ItemSummary{
				ID: id, Name: kName.String, Description: kDesc.String, Price: kPrice.Decimal,
			}
		}
	}
	return &it, nil
}
