package backend

import "fmt"

// BackendError reports that one logical operation failed on the remote
// backend and on the local fallback. Both causes are kept for diagnostics
// and reachable through errors.Is/As via Unwrap.
type BackendError struct {
	Op        string
	RemoteErr error
	LocalErr  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed on both backends: remote: %v; local: %v", e.Op, e.RemoteErr, e.LocalErr)
}

func (e *BackendError) Unwrap() []error {
	return []error{e.RemoteErr, e.LocalErr}
}
