package testmatches

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	StatsPollInterval    = 200 * time.Millisecond
	ThrottleBackoff      = 50 * time.Millisecond
	MaxThrottleRetries   = 20
	PercentageMultiplier = 100
	directoryPermission  = 0o750
)

// Rating bounds every entry must respect.
const (
	minPMR         = 0.1
	maxPMR         = 8.9
	minReliability = 0
	maxReliability = 100
)
