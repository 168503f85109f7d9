package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/dibs-api/internal/store"
	"modernc.org/sqlite"
)

// Postgres SQLSTATE codes for integrity violations.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// SQLite extended result codes. The low byte of every constraint code is
// sqliteConstraint.
const (
	sqliteConstraint           = 19
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// violation is a driver-neutral integrity failure.
type violation int

const (
	noViolation violation = iota
	uniqueViolation
	foreignKeyViolation
	checkViolation
	notNullViolation
	otherConstraintViolation
)

var violationNames = map[violation]string{
	foreignKeyViolation:      "foreign key violation",
	checkViolation:           "check constraint violation",
	notNullViolation:         "not null violation",
	otherConstraintViolation: "constraint violation",
}

func classify(err error) violation {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return uniqueViolation
		case foreignKeyViolationCode:
			return foreignKeyViolation
		case checkViolationCode:
			return checkViolation
		case notNullViolationCode:
			return notNullViolation
		}
		return noViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch code := liteErr.Code(); {
		case code == sqliteConstraintUnique, code == sqliteConstraintPrimaryKey:
			return uniqueViolation
		case code == sqliteConstraintForeignKey:
			return foreignKeyViolation
		case code == sqliteConstraintCheck:
			return checkViolation
		case code == sqliteConstraintNotNull:
			return notNullViolation
		case code&0xff == sqliteConstraint:
			return otherConstraintViolation
		}
	}
	return noViolation
}

// MapError translates driver errors from either database into the store
// sentinels, keeping the driver error in the message. Every query in this
// package passes its error through MapError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	switch v := classify(err); v {
	case noViolation:
		return err
	case uniqueViolation:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	default:
		return fmt.Errorf("%w: %s: %v", store.ErrInvalidEntity, violationNames[v], err)
	}
}

// CheckRowsAffected returns notFound, or store.ErrNotFound when notFound is
// nil, if the statement touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("no result to check")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if notFound == nil {
		return store.ErrNotFound
	}
	return notFound
}
