package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "THB", cfg.Payment.Currency)
	assert.Equal(t, "promptpay", cfg.Payment.SourceType)
	assert.Equal(t, 5*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 30*time.Second, cfg.Booking.RecentWindow)
	assert.Equal(t, "secret", cfg.JWT.Secret)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("PAYMENT_CURRENCY", "SGD")
	t.Setenv("PAYMENT_SOURCE_TYPE", "paynow")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "SGD", cfg.Payment.Currency)
	assert.Equal(t, "paynow", cfg.Payment.SourceType)
}
