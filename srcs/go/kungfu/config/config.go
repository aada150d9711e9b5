// Package config holds process wide tunables, read from KUNGFU_CONFIG_* variables at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/utils"
)

const (
	ConnRetryPeriod = 50 * time.Millisecond
)

const (
	CollectiveTimeoutEnvKey    = `KUNGFU_CONFIG_COLLECTIVE_TIMEOUT`
	EnableMonitoringEnvKey     = `KUNGFU_CONFIG_ENABLE_MONITORING`
	EnableStallDetectionEnvKey = `KUNGFU_CONFIG_ENABLE_STALL_DETECTION`
	GatherFanInEnvKey          = `KUNGFU_CONFIG_GATHER_FAN_IN`
	LogLevelEnvKey             = `KUNGFU_CONFIG_LOG_LEVEL`
	MonitoringPortOffsetEnvKey = `KUNGFU_CONFIG_MONITORING_PORT_OFFSET`
)

var (
	// CollectiveTimeout is the default bound of every blocking wait of a collective operation.
	CollectiveTimeout    = 30 * time.Second
	EnableMonitoring     = false
	EnableStallDetection = false
	// GatherFanIn limits how many segments the root receives concurrently, 0 means no limit.
	GatherFanIn          = 0
	LogLevel             = `INFO`
	MonitoringPortOffset = 10000
)

type setting struct {
	key string
	set func(val string) error
}

var settings = []setting{
	{CollectiveTimeoutEnvKey, positiveDuration(&CollectiveTimeout)},
	{EnableMonitoringEnvKey, boolean(&EnableMonitoring)},
	{EnableStallDetectionEnvKey, boolean(&EnableStallDetection)},
	{GatherFanInEnvKey, nonNegativeInt(&GatherFanIn)},
	{LogLevelEnvKey, func(val string) error { LogLevel = strings.ToUpper(val); return nil }},
	{MonitoringPortOffsetEnvKey, nonNegativeInt(&MonitoringPortOffset)},
}

func init() {
	if err := Load(os.Getenv); err != nil {
		utils.ExitErr(err)
	}
}

// Load applies the variables that getenv returns non-empty, it stops at the first invalid value.
func Load(getenv func(key string) string) error {
	for _, s := range settings {
		val := getenv(s.key)
		if len(val) == 0 {
			continue
		}
		if err := s.set(val); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", s.key, val, err)
		}
	}
	return nil
}

func boolean(p *bool) func(string) error {
	return func(val string) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		*p = b
		return nil
	}
}

func positiveDuration(p *time.Duration) func(string) error {
	return func(val string) error {
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("must be positive")
		}
		*p = d
		return nil
	}
}

func nonNegativeInt(p *int) func(string) error {
	return func(val string) error {
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("must not be negative")
		}
		*p = n
		return nil
	}
}
