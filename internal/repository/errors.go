// Package repository implements the data access layer for the application.
package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"inkwell/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrSlugTaken is returned by ContentRepository.Create when the slug is already in use.
var ErrSlugTaken = errors.New("slug already taken")

// isConnectionError reports whether err means the store could not be reached,
// as opposed to the statement being rejected.
func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 is connection exception; 57P01-03 are admin/crash shutdowns.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether a referenced row vanished under the
// statement, e.g. content deleted while a comment on it was being inserted.
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// translate maps a storage error onto the application error taxonomy.
// resource and id name the row for NotFound messages.
func translate(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	if isForeignKeyViolation(err) {
		return models.NewNotFoundError(resource, id)
	}
	if isConnectionError(err) {
		return models.NewStoreUnavailableError(err)
	}
	return models.NewInternalError(err)
}
