package demux

import (
	"fmt"
	"time"
)

// TimeoutError reports that no response arrived for a correlation key
// within the per-message response timeout.
type TimeoutError struct {
	Key   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("demux: no response for key %s after %s", e.Key, e.After)
}
