// Package repository is the MySQL implementation of the storage ports.
// Missing rows surface as booking.ErrNotFound so handlers can map them
// without knowing about database/sql.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-reservation/internal/booking"
)

const errDuplicateEntry = 1062

// notFound converts sql.ErrNoRows into booking.ErrNotFound.
func notFound(err error, what string, id uint64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, booking.ErrNotFound)
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDuplicateEntry
	}
	return false
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
