package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/todo-api/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"

	// connectionExceptionClass prefixes every SQLSTATE in class 08
	connectionExceptionClass = "08"

	// adminShutdownCode, cannotConnectNowCode and tooManyConnectionsCode are
	// raised while the server is going away or saturated
	adminShutdownCode      = "57P01"
	cannotConnectNowCode   = "57P03"
	tooManyConnectionsCode = "53300"

	// queryCanceledCode is raised when statement_timeout fires
	queryCanceledCode = "57014"
)

// MapError maps a database error to a store error, wrapping the original.
// Connection failures and timeouts become store.ErrStorageUnavailable.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	// Handle common SQL errors
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	// Handle PostgreSQL-specific errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case IsUniqueViolation(err):
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case IsForeignKeyViolation(err):
			return fmt.Errorf(
				"%w: foreign key violation (%s): %v",
				store.ErrInvalidEntity,
				pgErr.ConstraintName,
				err,
			)
		case IsCheckConstraintViolation(err):
			return fmt.Errorf(
				"%w: check constraint violation (%s): %v",
				store.ErrInvalidEntity,
				pgErr.ConstraintName,
				err,
			)
		case IsNotNullViolation(err):
			return fmt.Errorf(
				"%w: not null violation (%s): %v",
				store.ErrInvalidEntity,
				pgErr.ColumnName,
				err,
			)
		}
		switch pgErr.Code {
		case adminShutdownCode, cannotConnectNowCode, tooManyConnectionsCode, queryCanceledCode:
			return fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
		}
		if strings.HasPrefix(pgErr.Code, connectionExceptionClass) {
			return fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
	}

	return store.MapUnavailable(err)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
// This is useful for detecting duplicate records that violate unique constraints.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign key constraint violation.
// This occurs when an operation would violate referential integrity constraints.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// IsCheckConstraintViolation checks if the given error is a PostgreSQL check constraint violation.
// This occurs when an operation would violate a CHECK constraint on a table.
func IsCheckConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == checkViolationCode
}

// IsNotNullViolation checks if the given error is a PostgreSQL not null constraint violation.
// This occurs when an operation attempts to insert or update a NULL value in a column that requires a non-NULL value.
func IsNotNullViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == notNullViolationCode
}

// CheckRowsAffected returns notFound when an UPDATE or DELETE touched no
// rows. A nil notFound falls back to store.ErrNotFound.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}

	return nil
}
