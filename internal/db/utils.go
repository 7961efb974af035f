package db

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// IsConstraintViolation reports whether err is a SQLite constraint failure
// (unique, primary key, or foreign key).
func IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code {
	case sqlite3.ErrConstraint:
		return true
	default:
		return false
	}
}
