package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCauseKeepsIdentity(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrWriteFailed.WithCause(cause)

	assert.True(t, errors.Is(err, ErrWriteFailed))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrPhotoUpload))
	assert.Contains(t, err.Error(), "WRITE_001")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("add patient: %w", ErrCodeInUse)

	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "CONFLICT_001", CodeOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "INTERNAL", CodeOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrInvalidCredentials))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrNotSignedIn))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrPatientNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid("age must be positive")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrForbidden))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrCodeInUse))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrLookupUnavailable))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrWriteFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrPartialWrite))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("unknown")))
}

func TestInvalidMessage(t *testing.T) {
	err := Invalid("field %s is required", "name")

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "field name is required", err.Message)
	assert.Equal(t, "invalid_input", err.Kind.String())
}
