package repository

import "fmt"

// Operation names carried by RemoteError.
const (
	OpList   = "list"
	OpInsert = "insert"
	OpVote   = "vote"
)

// RemoteError reports a failed round trip to the remote store.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
