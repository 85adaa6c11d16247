package ghl

import (
	"errors"
	"fmt"
)

// ErrNoToken indicates no OAuth state has been seeded for the credential.
// Recovering requires an operator to run the authorization flow again.
var ErrNoToken = errors.New("no oauth token state stored")

// AuthError reports a rejected credential: an expired or revoked refresh
// token, or an access token the API refuses. Not retriable within a sweep.
type AuthError struct {
	Op     string
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ghl %s: authorization rejected", e.Op)
	}
	return fmt.Sprintf("ghl %s: authorization rejected: %s", e.Op, e.Detail)
}

// IsAuthError reports whether err is an authorization failure, including a
// missing token state.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) || errors.Is(err, ErrNoToken)
}

// UpstreamError reports a failed CRM call that is not an auth failure.
// Retried implicitly on the next sweep via snapshot exclusion.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ghl %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("ghl %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
