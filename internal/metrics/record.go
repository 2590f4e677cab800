package metrics

import "time"

// Record is the conclusive outcome of one injected message. Index is the
// submission position (0-based); SeqNum is the wire sequence number the
// message carried, which starts above 1 because the logon consumes the
// first. Exactly one of a response or an error is set once finalized.
type Record struct {
	Index       int       `json:"index"`
	SeqNum      int       `json:"seq_num"`
	Key         string    `json:"key"`
	SentText    string    `json:"sent"`
	SubmittedAt time.Time `json:"submitted_at"`

	ResponseText string    `json:"response,omitempty"`
	ResponseType string    `json:"response_type,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`

	Success bool `json:"success"`

	Latency   time.Duration `json:"-"`
	LatencyMs float64       `json:"latency_ms"`

	ErrKind string `json:"error_kind,omitempty"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}
