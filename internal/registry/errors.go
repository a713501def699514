package registry

import "errors"

// Every failure is a precondition violation surfaced to the caller with
// no partial effect. Handlers map these onto HTTP status codes.
var (
	// ErrInvalidStake is returned when a game is created with a zero or
	// negative stake.
	ErrInvalidStake = errors.New("stake must be positive")

	// ErrGameNotFound is returned when the game id was never assigned.
	ErrGameNotFound = errors.New("game not found")

	// ErrInvalidState is returned when the operation is not permitted in
	// the game's current state.
	ErrInvalidState = errors.New("operation not allowed in current game state")

	// ErrFeeMismatch is returned when a join amount does not match the
	// game's entry fee exactly.
	ErrFeeMismatch = errors.New("amount does not match entry fee")

	// ErrTimeoutExceeded is returned when a resolution is attempted after
	// the inactivity window has elapsed.
	ErrTimeoutExceeded = errors.New("resolution window has expired")

	// ErrTransferFailed wraps a treasury failure. The enclosing operation
	// is aborted and the game is left unchanged.
	ErrTransferFailed = errors.New("fund transfer failed")
)
