package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_LevelOverride(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	initLogger(&buf, "facility-finder", "production", "warn")

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	initLogger(&buf, "facility-finder", "development", "not-a-level")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestLoggerFromContext_AttachesRequestID(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	initLogger(&buf, "facility-finder", "production", "")

	ctx := WithRequestID(context.Background(), "req-123")
	LoggerFromContext(ctx).Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "facility-finder", entry["service"])
	assert.NotContains(t, entry, "trace_id")
}
