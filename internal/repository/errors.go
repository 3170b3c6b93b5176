// Package repository implements the MySQL store behind the catalog, package
// and cart services. Driver errors are translated into the model error
// taxonomy here so that callers never see raw storage failures.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/travelhub/internal/model"
)

// ErrVariantMissing marks a product whose kind-specific extension row is
// absent. It matches model.ErrNotFound so callers treat it as a missing
// product, while the service can still single it out for logging.
var ErrVariantMissing = fmt.Errorf("%w: product variant extension missing", model.ErrNotFound)

// MySQL server error numbers the repositories react to.
const (
	errDupEntry     = 1062 // ER_DUP_ENTRY
	errNoReferenced = 1452 // ER_NO_REFERENCED_ROW_2
	errRowIsParent  = 1451 // ER_ROW_IS_REFERENCED_2
	errOutOfRange   = 1264 // ER_WARN_DATA_OUT_OF_RANGE
	errValueRange   = 1690 // ER_DATA_OUT_OF_RANGE
)

func isMySQLErr(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

// notFound maps sql.ErrNoRows to model.ErrNotFound and leaves other errors
// untouched.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// outOfRange reports numeric overflow on a cart quantity as a validation
// failure rather than a storage error.
func outOfRange(err error) error {
	if isMySQLErr(err, errOutOfRange) || isMySQLErr(err, errValueRange) {
		return model.Invalid("quantity", "out of range")
	}
	return err
}
