package repository

import (
	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no row:
	// the version moved on or the status no longer allows the transition.
	ErrConflict = errors.New("record changed concurrently")
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Mark(err, ErrNotFound)
	}
	return err
}

// maxErrorLen bounds error text persisted on records.
const maxErrorLen = 900

// TrimError shortens an error message to the persisted column budget.
func TrimError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	return msg[:maxErrorLen]
}
