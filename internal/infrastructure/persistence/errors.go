package persistence

import (
	"errors"
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate locks the selected rows until the enclosing transaction ends.
// SQLite has no row locks; its single connection already serializes writers.
func forUpdate(db *gorm.DB) *gorm.DB {
	if isSQLite(db) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// notFound maps gorm.ErrRecordNotFound to a NOT_FOUND domain error
func notFound(err error, kind string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(kind, id)
	}
	return err
}

// isUniqueViolation recognizes unique constraint failures from PostgreSQL
// (SQLSTATE 23505) and SQLite, with or without gorm's error translation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// escapeLike escapes LIKE wildcards so value matches literally with ESCAPE '\'
func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
