package errors

// Postgres helpers: map pgx errors to ErrorCode and decide retryability

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the catalog source can hit on a read-only snapshot
const (
	pgErrUndefinedTable         = "42P01"
	pgErrInvalidTextRepr        = "22P02"
	pgErrSerializationFailure   = "40001"
	pgErrDeadlockDetected       = "40P01"
	pgErrQueryCanceled          = "57014"
	pgErrCannotConnectNow       = "57P03"
	pgErrAdminShutdown          = "57P01"
	pgErrReadOnlySQLTransaction = "25006"
)

// ExtractPgError returns the *pgconn.PgError at the root of err, if any
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false for non-Postgres errors
func DBErrorCode(err error) (ErrorCode, bool) {
	pgErr, ok := ExtractPgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case pgErrInvalidTextRepr:
		return ErrorCodeInvalidArgument, true
	case pgErrQueryCanceled:
		return ErrorCodeTimeout, true
	case pgErrCannotConnectNow, pgErrAdminShutdown, pgErrReadOnlySQLTransaction:
		return ErrorCodeUnavailable, true
	default:
		return ErrorCodeDB, true
	}
}

// FromPostgres wraps err with the mapped code and msg; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrorCodeTimeout, msg)
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	if pgErr, ok := ExtractPgError(err); ok && pgErr.Code == pgErrUndefinedTable {
		return Wrap(err, ErrorCodeUnavailable, msg+": catalog table missing")
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports whether a database error is transient contention worth one more try
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := ExtractPgError(err); ok {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrCannotConnectNow:
			return true
		}
		return false
	}
	s := strings.ToLower(Root(err).Error())
	return strings.Contains(s, "conn closed") || strings.Contains(s, "connection reset")
}
