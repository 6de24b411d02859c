package ticktick

import "errors"

var (
	// ErrUnauthenticated indicates a missing or expired credential. Callers
	// must run the authorization flow; the client never retries on its own.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotFound indicates the referenced task or project does not exist
	// server-side.
	ErrNotFound = errors.New("not found")

	// ErrAuthorizationTimeout indicates the local callback never received
	// an authorization code within the timeout window.
	ErrAuthorizationTimeout = errors.New("authorization timed out")
)
