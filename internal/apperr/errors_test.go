package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("conversation %s not found", "c1"), http.StatusNotFound},
		{Unauthorized("bad token"), http.StatusUnauthorized},
		{Validation("title is required"), http.StatusBadRequest},
		{Conflict("email taken"), http.StatusConflict},
		{Upstream("embedding failed", errors.New("503")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrappedErrorsKeepKind(t *testing.T) {
	err := fmt.Errorf("load conversation: %w", NotFound("conversation not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "conversation not found", PublicMessage(err))
}

func TestUpstreamUnwrapsCause(t *testing.T) {
	cause := errors.New("status 503")
	err := Upstream("embedding failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, "embedding failed: status 503", err.Error())
}
