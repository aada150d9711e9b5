package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func Test_Load(t *testing.T) {
	timeout, fanIn, monitoring, level := CollectiveTimeout, GatherFanIn, EnableMonitoring, LogLevel
	defer func() {
		CollectiveTimeout, GatherFanIn, EnableMonitoring, LogLevel = timeout, fanIn, monitoring, level
	}()

	err := Load(lookup(map[string]string{
		CollectiveTimeoutEnvKey: "250ms",
		GatherFanInEnvKey:       "3",
		EnableMonitoringEnvKey:  "true",
		LogLevelEnvKey:          "debug",
	}))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, CollectiveTimeout)
	assert.Equal(t, 3, GatherFanIn)
	assert.True(t, EnableMonitoring)
	assert.Equal(t, "DEBUG", LogLevel)
}

func Test_Load_invalid(t *testing.T) {
	timeout, fanIn := CollectiveTimeout, GatherFanIn
	defer func() { CollectiveTimeout, GatherFanIn = timeout, fanIn }()

	for _, m := range []map[string]string{
		{CollectiveTimeoutEnvKey: "soon"},
		{CollectiveTimeoutEnvKey: "-1s"},
		{GatherFanInEnvKey: "-2"},
		{EnableMonitoringEnvKey: "yes please"},
	} {
		if err := Load(lookup(m)); err == nil {
			t.Errorf("Load(%v) should fail", m)
		}
	}
	assert.Equal(t, timeout, CollectiveTimeout)
}
