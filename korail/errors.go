package korail

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoResults      = errors.New("no matching trains")
	ErrSoldOut        = errors.New("sold out")
	ErrSessionExpired = errors.New("session expired")
	ErrAuth           = errors.New("login failed")
)

// Provider message codes with a known meaning
const (
	codeNeedToLogin = "P058"
	codeSoldOut     = "ERR211161"
)

var noResultCodes = map[string]bool{
	"P100":      true,
	"WRG000000": true,
	"WRD000061": true,
	"WRT300005": true,
}

// APIError is a failure reported by the provider in the response body
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Code == codeNeedToLogin:
		return ErrSessionExpired
	case e.Code == codeSoldOut:
		return ErrSoldOut
	case noResultCodes[e.Code]:
		return ErrNoResults
	}
	return nil
}

// Failure is the recovery class of an adapter error
type Failure int

const (
	FailureNone Failure = iota
	FailureNoResults
	FailureSoldOut
	FailureSessionExpired
	FailureAuth
	FailureGeneric
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNoResults:
		return "no-results"
	case FailureSoldOut:
		return "sold-out"
	case FailureSessionExpired:
		return "session-expired"
	case FailureAuth:
		return "auth"
	}
	return "generic"
}

// Classify maps an adapter error to its recovery class. The provider does
// not always report an expired session with a code, so the message text is
// also matched. Anything unrecognized is generic, never an expired session.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrSessionExpired):
		return FailureSessionExpired
	case errors.Is(err, ErrSoldOut):
		return FailureSoldOut
	case errors.Is(err, ErrNoResults):
		return FailureNoResults
	case errors.Is(err, ErrAuth):
		return FailureAuth
	}
	msg := err.Error()
	if strings.Contains(msg, codeNeedToLogin) || strings.Contains(msg, "Need to Login") {
		return FailureSessionExpired
	}
	return FailureGeneric
}
