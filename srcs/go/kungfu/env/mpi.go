package env

import (
	"fmt"
	"os"
	"strconv"
)

const (
	ompiSizeEnvKey = `OMPI_COMM_WORLD_SIZE`
	ompiRankEnvKey = `OMPI_COMM_WORLD_RANK`
)

func intEnv(key string) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return 0, fmt.Errorf("%s is not set", key)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// ParseConfigFromOpenMPIEnv builds the config of a rank started by mpirun on a single host.
// Ranks listen on consecutive ports of plan.DefaultPortRange.
func ParseConfigFromOpenMPIEnv() (*Config, error) {
	size, err := intEnv(ompiSizeEnvKey)
	if err != nil {
		return nil, err
	}
	rank, err := intEnv(ompiRankEnvKey)
	if err != nil {
		return nil, err
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("invalid rank %d of %d", rank, size)
	}
	return SingleMachineEnv(rank, size)
}
