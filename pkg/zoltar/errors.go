package zoltar

import (
	"errors"
)

// Sentinel kinds for client errors. These allow errors.Is/As from callers.
var (
	// ErrAuthentication reports a failed credential exchange.
	ErrAuthentication = errors.New("authentication failed")

	// ErrPrecondition reports an authenticated call made before Authenticate.
	ErrPrecondition = errors.New("no session")

	// ErrRemote reports an unexpected HTTP status from the server.
	ErrRemote = errors.New("unexpected remote status")

	// ErrValidation reports a malformed caller-supplied configuration map.
	ErrValidation = errors.New("invalid configuration")

	// ErrBadStatus reports an upload job status code outside the protocol.
	ErrBadStatus = errors.New("unknown job status code")

	// ErrNotFound reports a by-name lookup that matched nothing.
	ErrNotFound = errors.New("not found")
)
