package session

import "fmt"

// ConnectError reports a failure to establish the session: the dial itself
// or the logon write. Connect failures are fatal to a run.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendError reports a write failure for a single message. The sequence
// number the message consumed is not reused.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("session: send: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
