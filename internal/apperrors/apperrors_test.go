package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"academy/internal/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("loading order: %w", apperrors.NotFound("order %s not found", "o-1"))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, apperrors.ErrNotFound))
	assert.False(t, errors.Is(wrapped, apperrors.ErrForbidden))

	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperrors.Kind]int{
		apperrors.KindUnauthenticated:  http.StatusUnauthorized,
		apperrors.KindForbidden:        http.StatusForbidden,
		apperrors.KindNotFound:         http.StatusNotFound,
		apperrors.KindInvalidRequest:   http.StatusBadRequest,
		apperrors.KindInvalidSignature: http.StatusBadRequest,
		apperrors.KindConflict:         http.StatusConflict,
		apperrors.KindInternal:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperrors.HTTPStatus(kind), kind.String())
	}
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperrors.Internal("gateway order creation failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
