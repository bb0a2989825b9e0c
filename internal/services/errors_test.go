package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorKinds(t *testing.T) {
	err := Forbidden("only the organizer can do %s", "that")
	assert.EqualError(t, err, "only the organizer can do that")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)

	wrapped := fmt.Errorf("outer: %w", Conflict("dup"))
	assert.ErrorIs(t, wrapped, ErrConflict)
}

func TestNotFoundOr(t *testing.T) {
	err := notFoundOr(gorm.ErrRecordNotFound, "party")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "party not found")

	boom := errors.New("connection reset")
	err = notFoundOr(boom, "party")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestConflictOr(t *testing.T) {
	err := conflictOr(gorm.ErrDuplicatedKey, "party already liked", "create like")
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "party already liked")

	boom := errors.New("connection reset")
	err = conflictOr(boom, "party already liked", "create like")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "create like: connection reset")
}
