package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevelThenGetLogLevel(t *testing.T) {
	defer SetLogLevel("INFO")
	require.NoError(t, SetLogLevel("WARN"))
	assert.Equal(t, "WARN", GetLogLevel())
}

func TestSetLogLevelRejectsUnknownLevel(t *testing.T) {
	err := SetLogLevel("VERBOSE")
	require.Error(t, err)
}

func TestTraceIfRequiresBothTraceLevelAndEnabledSubsystem(t *testing.T) {
	defer SetLogLevel("INFO")
	var buf bytes.Buffer
	saved := logger
	logger = log.New(&buf, "", 0)
	defer func() { logger = saved }()
	EnableTrace("shard")

	require.NoError(t, SetLogLevel("INFO"))
	assert.False(t, isTraceEnabled("nonexistent-subsystem"))
	assert.True(t, isTraceEnabled("shard"))

	// subsystem enabled but level too high: nothing is written.
	buf.Reset()
	TraceIf("shard", "probe at INFO level")
	assert.Empty(t, buf.String())

	require.NoError(t, SetLogLevel("TRACE"))
	// level low enough but subsystem not enabled: nothing is written.
	buf.Reset()
	TraceIf("nonexistent-subsystem", "probe for disabled subsystem")
	assert.Empty(t, buf.String())

	// both conditions met: the message is written with its subsystem tag.
	TraceIf("shard", "probe at TRACE level")
	assert.Contains(t, buf.String(), "[shard] probe at TRACE level")
}

func TestConfigureReadsEnvVars(t *testing.T) {
	defer SetLogLevel("INFO")
	t.Setenv("SKG_LOG_LEVEL", "DEBUG")
	t.Setenv("SKG_TRACE_SUBSYSTEMS", "vstore, shard")

	Configure()

	assert.Equal(t, "DEBUG", GetLogLevel())
	assert.True(t, isTraceEnabled("vstore"))
	assert.True(t, isTraceEnabled("shard"))
}
