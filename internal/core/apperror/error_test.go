package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsAndStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", NewValidation("bad"), CodeValidation, http.StatusBadRequest},
		{"not found", NewNotFound("sale", "x"), CodeNotFound, http.StatusNotFound},
		{"insufficient", NewInsufficientStock("p", "s", 5, 2), CodeInsufficientStock, http.StatusUnprocessableEntity},
		{"invalid reference", NewInvalidReference("batch", "b", ""), CodeInvalidReference, http.StatusUnprocessableEntity},
		{"invalid stock", NewInvalidStock("p"), CodeInvalidReference, http.StatusUnprocessableEntity},
		{"conflict", NewConflict("sale is not deleted"), CodeConflict, http.StatusConflict},
		{"period", NewPeriodClosed("2026-01-31"), CodePeriodClosed, http.StatusUnprocessableEntity},
		{"internal", NewInternal(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("op: %w", tt.err)
			assert.True(t, HasCode(wrapped, tt.code))
			assert.Equal(t, tt.status, GetHTTPStatus(wrapped))
		})
	}
}

func TestInsufficientStockMessage(t *testing.T) {
	err := NewInsufficientStock("p1", "s1", 7, 3)
	assert.Equal(t, "Insufficient stock. Available: 3, Required: 7", err.Message)
	assert.Equal(t, int64(3), err.Details["available"])
	assert.Equal(t, int64(7), err.Details["required"])
}

func TestInvalidReferenceDefaultMessage(t *testing.T) {
	assert.Equal(t, "invalid customer", NewInvalidReference("customer", "c", "").Message)
	assert.Equal(t, "invalid sale", NewInvalidReference("sale", "s", "invalid sale").Message)
}

func TestPlainErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset")
	_, ok := AsAppError(err)
	assert.False(t, ok)
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
	assert.False(t, IsNotFound(err))
}
