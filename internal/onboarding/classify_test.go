package onboarding

import (
	"errors"
	"fmt"
	"testing"

	"ngodesk.org/internal/account"
)

func TestClassifyStructuredCode(t *testing.T) {
	status, msg := Classify(&account.RemoteError{
		Code:    account.CodeDuplicateEmail,
		Message: "email is taken",
	})
	if status != StatusDuplicateEmail {
		t.Fatalf("expected duplicate, got %s", status)
	}
	if msg != "email is taken" {
		t.Fatalf("unexpected message: %q", msg)
	}

	// A structured non-duplicate code never falls back to the heuristic,
	// even when the message contains a hint word.
	status, _ = Classify(&account.RemoteError{Code: "QUOTA", Message: "plan already exists for tenant"})
	if status != StatusFailure {
		t.Fatalf("expected generic failure, got %s", status)
	}
}

func TestClassifyJSONMessage(t *testing.T) {
	err := errors.New(`{"code":"DUPLICATE_EMAIL","message":"Email already registered"}`)
	status, msg := Classify(err)
	if status != StatusDuplicateEmail {
		t.Fatalf("expected duplicate, got %s", status)
	}
	if msg != "Email already registered" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestClassifyHeuristics(t *testing.T) {
	duplicates := []string{
		"Email already registered",
		"DUPLICATE key value",
		"violates unique constraint users_email_key",
		"account exists",
	}
	for _, msg := range duplicates {
		if status, _ := Classify(errors.New(msg)); status != StatusDuplicateEmail {
			t.Errorf("%q: expected duplicate classification", msg)
		}
	}

	status, msg := Classify(fmt.Errorf("upstream timeout"))
	if status != StatusFailure {
		t.Fatalf("expected generic failure, got %s", status)
	}
	if msg != "upstream timeout" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestClassifySentinel(t *testing.T) {
	status, _ := Classify(fmt.Errorf("create account: %w", account.ErrDuplicateEmail))
	if status != StatusDuplicateEmail {
		t.Fatalf("expected duplicate, got %s", status)
	}
}

func TestClassifyNil(t *testing.T) {
	if status, _ := Classify(nil); status != StatusSuccess {
		t.Fatalf("expected success, got %s", status)
	}
}
