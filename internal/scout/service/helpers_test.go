package service

import (
	"testing"
	"time"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/pkg/logger"

	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	return log
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLM{
			Model:           "test-model",
			MaxOutputTokens: 1000,
		},
		Scout: config.Scout{
			DefaultMaxCompanies: 5,
			RunTimeout:          time.Minute,
			SoftRunLimit:        25 * time.Minute,
			HardRunLimit:        30 * time.Minute,
			ReaperSchedule:      "@every 1m",
			WebsiteFetchTimeout: 2 * time.Second,
		},
	}
}
