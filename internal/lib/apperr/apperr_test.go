package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"qr_photo/internal/lib/apperr"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"plain apperr", apperr.ErrEmptySelection, apperr.KindEmptySelection},
		{"wrapped", fmt.Errorf("photo_service.Upload: %w", apperr.ErrSessionNotActive), apperr.KindSessionInactiveOrMissing},
		{"double wrapped", fmt.Errorf("a: %w", fmt.Errorf("b: %w", apperr.NotFound("photo not found"))), apperr.KindNotFound},
		{"foreign error", errors.New("connection refused"), apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("op: %w", apperr.NotFound("session not found"))

	assert.ErrorIs(t, err, apperr.New(apperr.KindNotFound, ""))
	assert.ErrorIs(t, err, apperr.NotFound("session not found"))
	assert.NotErrorIs(t, err, apperr.NotFound("photo not found"))
	assert.NotErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "username already exists", apperr.Message(fmt.Errorf("x: %w", apperr.ErrDuplicateUsername)))
	assert.Equal(t, "internal server error", apperr.Message(errors.New("pq: deadlock")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(apperr.KindUnauthenticated))
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(apperr.KindUnauthorized))
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(apperr.KindSessionInactiveOrMissing))
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(apperr.KindDuplicateUsername))
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(apperr.KindEmptySelection))
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(apperr.KindInternal))
}
