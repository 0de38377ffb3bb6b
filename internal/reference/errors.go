package reference

import (
	"fmt"
	"strings"

	"growthwatch/internal/types"
)

// ReasonTableMissing is the ConfigurationError reason for an absent table.
const ReasonTableMissing = "table missing"

// ConfigurationError reports an absent or malformed reference table.
// It is fatal at startup and never a per-call condition.
type ConfigurationError struct {
	Family types.Family
	Metric types.Metric
	Sex    types.Sex
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var parts []string
	for _, p := range []string{string(e.Family), string(e.Metric), string(e.Sex)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	msg := "reference tables"
	if len(parts) > 0 {
		msg += " " + strings.Join(parts, "/")
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
