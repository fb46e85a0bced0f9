package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestFromStoreNilStaysNil(t *testing.T) {
	assert.Nil(t, FromStore(nil))
}

func TestFromStoreTranslatesDuplicateKey(t *testing.T) {
	err := FromStore(fmt.Errorf("insert failed: %w", gorm.ErrDuplicatedKey))
	assert.Equal(t, CodeInvariantViolation, err.Code)
	assert.False(t, err.Retryable())
}

func TestFromStoreTranslatesTimeouts(t *testing.T) {
	for _, cause := range []error{context.DeadlineExceeded, context.Canceled} {
		err := FromStore(cause)
		assert.Equal(t, CodeTransientStore, err.Code)
		assert.True(t, err.Retryable())
	}
}

func TestFromStorePassesThroughAppErrors(t *testing.T) {
	orig := AlreadyPending()
	assert.Same(t, orig, FromStore(orig))
	assert.Same(t, orig, FromStore(fmt.Errorf("wrapped: %w", orig)))
}

func TestFromStoreDefaultsToInternal(t *testing.T) {
	err := FromStore(errors.New("connection reset"))
	assert.Equal(t, CodeInternal, err.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, fiber.StatusBadRequest},
		{CodeNotFound, fiber.StatusNotFound},
		{CodeNotOwner, fiber.StatusForbidden},
		{CodeForbidden, fiber.StatusForbidden},
		{CodeAlreadyPending, fiber.StatusConflict},
		{CodeAlreadyProcessed, fiber.StatusConflict},
		{CodeMembershipInactive, fiber.StatusConflict},
		{CodeInvariantViolation, fiber.StatusConflict},
		{CodeTransientStore, fiber.StatusServiceUnavailable},
		{CodeInternal, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus(), string(tt.code))
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotOwner())
	assert.True(t, HasCode(err, CodeNotOwner))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}
