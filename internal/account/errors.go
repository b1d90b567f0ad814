package account

import "errors"

var (
	ErrDuplicateEmail = errors.New("account: email already registered")
	ErrInvalidInput   = errors.New("account: invalid input")
	ErrUnavailable    = errors.New("account: service unavailable")
)

// CodeDuplicateEmail is the structured error code emitted when the signup
// email already belongs to an organization.
const CodeDuplicateEmail = "DUPLICATE_EMAIL"

// RemoteError is a structured failure returned by an account-creation
// collaborator. Code is optional; Message is always present.
type RemoteError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Is lets errors.Is match a duplicate-coded RemoteError against
// ErrDuplicateEmail without callers inspecting the code themselves.
func (e *RemoteError) Is(target error) bool {
	return target == ErrDuplicateEmail && e.Code == CodeDuplicateEmail
}
