package reminder

// ValidationError reports malformed or past-dated input at creation time.
// It is surfaced to the requester as a usage message and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Reason }

// ConfigError reports an unknown cadence reaching the recurrence calculator.
// Store-level validation makes this unreachable for persisted rows; seeing
// one means a store or migration bug.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }
