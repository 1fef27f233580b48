package session

import "fmt"

// AuthError reasons checked by callers and tests.
const (
	ReasonPasswordMismatch   = "password_mismatch"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonEmailTaken         = "email_taken"
	ReasonSessionFailure     = "session_failure"
)

// AuthError is the only failure type the store returns. It never panics
// across the interface; handlers read Reason to shape the response.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

func authErr(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}
