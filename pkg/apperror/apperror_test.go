package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	err := ErrSlotUnavailable.WithDetail("reason", "held").WithDetail("is_temporary_hold", true)

	assert.Equal(t, map[string]any{"reason": "held", "is_temporary_hold": true}, err.Details)
	assert.Nil(t, ErrSlotUnavailable.Details)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestIsMatchesByCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("hold: %w", ErrStoreUnavailable.Wrap(cause).WithMessage("store down for %s", "hold"))

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.False(t, errors.Is(err, ErrGatewayUnavailable))
	assert.True(t, errors.Is(err, cause))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeStoreUnavailable, appErr.Code)
	assert.Equal(t, "store down for hold: dial tcp: refused", appErr.Error())
}

func TestAsPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}
