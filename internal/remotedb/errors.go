package remotedb

import "fmt"

// ConnectionError indicates the remote store could not be reached or timed
// out. Reads may be retried by the caller; writes must not be, since the
// statement may have been applied before the failure.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("remote store connection failure: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteError indicates the backing engine returned a non-success status.
// The engine's message is carried verbatim; retrying will not help.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store rejected statement (status %d): %s", e.StatusCode, e.Message)
}
