package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travelhub/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("u1", "a@x.com", "hash", "Ann", "ADMIN").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := NewUserRepo(db).Create(context.Background(), &model.User{
		ID: "u1", Email: "  A@X.com ", PasswordHash: "hash", Name: "Ann", Role: model.RoleAdmin,
	})
	assert.ErrorIs(t, err, model.ErrDuplicateIdentity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM users WHERE email=?")).WithArgs("nobody@x.com").WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProductGetByIDMissingExtension(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM products p WHERE p.id = ?")).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "kind", "created_at", "updated_at"}).
			AddRow("p1", "Lisbon hop", "short flight", "100.00", "FLIGHT", ts, ts))
	mock.ExpectQuery(q("FROM flights WHERE product_id IN (?)")).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	_, err := NewProductRepo(db).GetByID(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrVariantMissing)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductGetByIDHotel(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM products p WHERE p.id = ?")).WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "kind", "created_at", "updated_at"}).
			AddRow("h1", "Sea view", "hotel", "50.00", "HOTEL", ts, ts))
	mock.ExpectQuery(q("FROM hotels WHERE product_id IN (?)")).WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "location", "amenities", "rating", "reviews", "check_in", "check_out", "rooms", "stars"}).
			AddRow("h1", "Porto", []byte(`["wifi","pool"]`), 4.5, 12, nil, nil, 30, 4))

	p, err := NewProductRepo(db).GetByID(context.Background(), "h1")
	require.NoError(t, err)
	require.NotNil(t, p.Hotel)
	assert.Equal(t, model.KindHotel, p.Kind)
	assert.Equal(t, []string{"wifi", "pool"}, p.Hotel.Amenities)
	require.NotNil(t, p.Hotel.Stars)
	assert.Equal(t, 4, *p.Hotel.Stars)
	assert.Equal(t, "50", p.Price.String())
	assert.NoError(t, p.CheckVariant())
}

func TestProductDeleteReferencedByPackage(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM products WHERE id = ? FOR UPDATE")).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM package_products WHERE product_id = ?")).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	err := NewProductRepo(db).Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductDeleteRemovesCartLines(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM products WHERE id = ? FOR UPDATE")).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectQuery(q("FROM package_products")).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(q("DELETE FROM cart_items WHERE product_id = ?")).WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("DELETE FROM products WHERE id = ?")).WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewProductRepo(db).Delete(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageCreateUnknownProductRollsBack(t *testing.T) {
	db, mock := newMock(t)
	ids := []string{"a", "b", "c", "d", "e", "missing"}
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT COUNT(*) FROM products WHERE id IN (?,?,?,?,?,?) FOR SHARE")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(5))
	mock.ExpectRollback()

	err := NewPackageRepo(db).Create(context.Background(), &model.Package{ID: "k1", Name: "Combo"}, ids)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidReference)
	var ref *model.ReferenceError
	require.True(t, errors.As(err, &ref))
	assert.Equal(t, 6, ref.Expected)
	assert.Equal(t, 5, ref.Found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageCreateLinksAllProducts(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT COUNT(*) FROM products WHERE id IN (?,?) FOR SHARE")).WithArgs("f1", "h1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectExec(q("INSERT INTO packages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO package_products (package_id, product_id) VALUES (?, ?), (?, ?)")).
		WithArgs("k1", "f1", "k1", "h1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(q("SELECT created_at, updated_at FROM packages")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))
	mock.ExpectCommit()

	p := &model.Package{ID: "k1", Name: "Combo", Description: "flight and hotel"}
	require.NoError(t, NewPackageRepo(db).Create(context.Background(), p, []string{"f1", "h1"}))
	assert.Equal(t, ts, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var cartItemCols = []string{
	"id", "cart_id", "target_kind", "product_id", "package_id", "quantity", "created_at", "updated_at",
	"p_name", "p_description", "p_price", "p_kind", "k_name", "k_description", "k_price",
}

func TestCartAddItemMerges(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO carts (id, user_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = id")).
		WithArgs("cart-new", "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT id FROM carts WHERE user_id = ?")).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cart-1"))
	mock.ExpectQuery(q("SELECT id FROM products WHERE id = ? FOR SHARE")).WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("f1"))
	mock.ExpectExec(q("ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)")).
		WithArgs("item-new", "cart-1", "PRODUCT", "f1", sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(q("WHERE ci.cart_id = ? AND ci.target_kind = ? AND ci.target_id = ?")).
		WithArgs("cart-1", "PRODUCT", "f1").
		WillReturnRows(sqlmock.NewRows(cartItemCols).
			AddRow("item-1", "cart-1", "PRODUCT", "f1", nil, 5, ts, ts, "Lisbon hop", "flight", "100.00", "FLIGHT", nil, nil, nil))
	mock.ExpectCommit()

	item, err := NewCartRepo(db).AddItem(context.Background(), "u1", "cart-new", "item-new", model.TargetProduct, "f1", 3)
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, 5, item.Quantity)
	require.NotNil(t, item.Product)
	assert.Equal(t, model.KindFlight, item.Product.Kind)
	assert.Nil(t, item.PackageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAddItemUnknownPackage(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO carts")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT id FROM carts WHERE user_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cart-1"))
	mock.ExpectQuery(q("SELECT id FROM packages WHERE id = ? FOR SHARE")).WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := NewCartRepo(db).AddItem(context.Background(), "u1", "c", "i", model.TargetPackage, "ghost", 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAddItemMergePastCapRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO carts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT id FROM carts WHERE user_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cart-1"))
	mock.ExpectQuery(q("SELECT id FROM products WHERE id = ? FOR SHARE")).WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("f1"))
	mock.ExpectExec(q("ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(q("WHERE ci.cart_id = ? AND ci.target_kind = ? AND ci.target_id = ?")).
		WillReturnRows(sqlmock.NewRows(cartItemCols).
			AddRow("item-1", "cart-1", "PRODUCT", "f1", nil, model.MaxQuantity+5, ts, ts, "Lisbon hop", "flight", "100.00", "FLIGHT", nil, nil, nil))
	mock.ExpectRollback()

	_, err := NewCartRepo(db).AddItem(context.Background(), "u1", "c", "i", model.TargetProduct, "f1", 10)
	assert.ErrorIs(t, err, model.ErrValidationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAddItemOutOfRange(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO carts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT id FROM carts WHERE user_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cart-1"))
	mock.ExpectQuery(q("SELECT id FROM products WHERE id = ? FOR SHARE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("f1"))
	mock.ExpectExec(q("INSERT INTO cart_items")).
		WillReturnError(&mysql.MySQLError{Number: 1690, Message: "BIGINT value is out of range"})
	mock.ExpectRollback()

	_, err := NewCartRepo(db).AddItem(context.Background(), "u1", "c", "i", model.TargetProduct, "f1", 10)
	assert.ErrorIs(t, err, model.ErrValidationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartUpdateQuantityForeignItem(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("JOIN carts c ON c.id = ci.cart_id")).WithArgs("item-of-b", "user-a").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := NewCartRepo(db).UpdateQuantity(context.Background(), "user-a", "item-of-b", 4)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRemoveItemForeignItem(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("DELETE ci FROM cart_items ci")).WithArgs("item-of-b", "user-a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewCartRepo(db).RemoveItem(context.Background(), "user-a", "item-of-b")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCartClearIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("DELETE ci FROM cart_items ci")).WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, NewCartRepo(db).Clear(context.Background(), "u1"))
}

func TestInArgs(t *testing.T) {
	in, args := inArgs([]string{"a", "b", "c"})
	assert.Equal(t, "?,?,?", in)
	assert.Equal(t, []any{"a", "b", "c"}, args)
}
