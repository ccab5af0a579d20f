package session

import "fmt"

// ErrorCode classifies client-side errors reported through error listeners.
type ErrorCode string

const (
	// ErrCodeConnection covers transport-level failures. Recoverable; the
	// close event that follows drives reconnection.
	ErrCodeConnection ErrorCode = "CONNECTION_ERROR"

	// ErrCodeParse covers malformed inbound payloads. Recoverable; the
	// message is dropped.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeNotConnected covers outbound commands attempted while the
	// connection is not open. Recoverable; the command is dropped.
	ErrCodeNotConnected ErrorCode = "NOT_CONNECTED"

	// ErrCodeMaxReconnect means the retry budget is exhausted. Not
	// recoverable; the caller must treat the session as dead.
	ErrCodeMaxReconnect ErrorCode = "MAX_RECONNECT"
)

// ClientError is an error originating in the client itself, as opposed to a
// backend-reported protocol error. Errors are delivered through listeners
// rather than returned up a call stack the event loop does not have.
type ClientError struct {
	Code        ErrorCode
	Message     string
	Recoverable bool
	Err         error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }
