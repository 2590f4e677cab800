package fix

import "fmt"

// FramingError reports a structurally malformed frame: a field without '=',
// a non-numeric tag, or a frame that never terminates with CheckSum (10).
type FramingError struct {
	Offset int
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("fix: malformed frame at byte %d: %s", e.Offset, e.Reason)
}

// ProtocolError reports a message the session layer cannot put on the wire,
// such as a template with no BeginString.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "fix: " + e.Reason
}
