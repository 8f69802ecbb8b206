package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("no session"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestAs_UnknownBecomesInternal(t *testing.T) {
	ae := As(errors.New("boom"))
	assert.Equal(t, CodeInternal, ae.Code)
	assert.Equal(t, http.StatusInternalServerError, ae.StatusCode)

	ae = As(InvalidInput("Messages array is required"))
	assert.Equal(t, http.StatusBadRequest, ae.StatusCode)
	assert.Equal(t, "Messages array is required", ae.Message)
}

func TestError_IncludesCause(t *testing.T) {
	err := Backend("generation failed", errors.New("status 503"))
	assert.Contains(t, err.Error(), "status 503")
	assert.ErrorIs(t, err, ErrBackend)
}
