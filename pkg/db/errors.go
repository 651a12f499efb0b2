package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
)

const sqlStateUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is set the violated constraint must match it. Postgres errors
// are read through the pgx or lib/pq error types; sqlite (tests) by message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.AsPGError(err); ok {
		if pg.Code != sqlStateUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	// sqlite reports columns rather than index names
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}
	if strings.Contains(msg, "duplicate key value") {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	return false
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
