package env

// Environment variables set by the launcher of a worker.
const (
	SelfSpecEnvKey   = `KUNGFU_SELF_SPEC` // self spec should never change during the life of a process
	PeerListEnvKey   = `KUNGFU_INIT_PEERS`
	GroupEnvKey      = `KUNGFU_GROUP_ID`
	TimeoutEnvKey    = `KUNGFU_TIMEOUT`
	ConfigFileEnvKey = `KUNGFU_CONFIG_FILE`
)

// DefaultGroup is used when the launcher does not name the group.
const DefaultGroup = `kungfu`
