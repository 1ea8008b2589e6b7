package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/config"
)

func TestDevelopmentModeFollowsEnv(t *testing.T) {
	assert.True(t, developmentMode("development"))
	assert.True(t, developmentMode(""))
	assert.False(t, developmentMode("production"))
	assert.False(t, developmentMode("PRODUCTION"))
}

func TestNewLoggerBuildsForProduction(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "info", Env: "production"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	_ = logger.Sync()
}
