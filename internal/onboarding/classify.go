package onboarding

import (
	"encoding/json"
	"errors"
	"strings"

	"ngodesk.org/internal/account"
)

// Status classifies a submission result.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusDuplicateEmail Status = "duplicate_email"
	StatusFailure        Status = "generic_failure"
)

// duplicateHints are matched case-insensitively against raw error text when
// no structured code is available.
var duplicateHints = []string{"duplicate", "already registered", "unique", "exists"}

// Classify maps an account-creation failure to a status using an explicit
// priority order: structured error code, then a JSON-looking message body,
// then the substring heuristic, then generic failure. The returned message
// is the text to surface to the user.
func Classify(err error) (Status, string) {
	if err == nil {
		return StatusSuccess, ""
	}

	var remoteErr *account.RemoteError
	if errors.As(err, &remoteErr) {
		if remoteErr.Code == account.CodeDuplicateEmail {
			return StatusDuplicateEmail, remoteErr.Message
		}
		if remoteErr.Code != "" {
			return StatusFailure, remoteErr.Message
		}
		return classifyMessage(remoteErr.Message)
	}
	if errors.Is(err, account.ErrDuplicateEmail) {
		return StatusDuplicateEmail, err.Error()
	}
	return classifyMessage(err.Error())
}

// classifyMessage inspects a raw message string. Collaborators sometimes
// serialize their structured error into the message itself, so a
// JSON-looking message gets one decode attempt before the heuristics run.
func classifyMessage(msg string) (Status, string) {
	text := msg
	if trimmed := strings.TrimSpace(msg); strings.HasPrefix(trimmed, "{") {
		var structured struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal([]byte(trimmed), &structured) == nil {
			if structured.Code == account.CodeDuplicateEmail {
				return StatusDuplicateEmail, structured.Message
			}
			if structured.Message != "" {
				text = structured.Message
			}
		}
	}

	lower := strings.ToLower(text)
	for _, hint := range duplicateHints {
		if strings.Contains(lower, hint) {
			return StatusDuplicateEmail, text
		}
	}
	return StatusFailure, text
}
