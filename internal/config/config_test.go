package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasas/ratesync/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30, cfg.Quantity)
	assert.Equal(t, "0 7 * * *", cfg.Schedules.Scrape)
	assert.Equal(t, "30 7 * * *", cfg.Schedules.Detect)
	assert.Equal(t, "45 7 * * *", cfg.Schedules.Scan)
	assert.Equal(t, "0 8 * * *", cfg.Schedules.Resolve)
}
