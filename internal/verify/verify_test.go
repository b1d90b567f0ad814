package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("Amina@GreenLeaf.org", "Green Leaf", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "amina@greenleaf.org" {
		t.Fatalf("subject not normalized: %s", claims.Subject)
	}
	if claims.Organization != "Green Leaf" {
		t.Fatalf("unexpected organization: %s", claims.Organization)
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv(secretEnvVariable, "")
	ResetSecretForTests()
	defer ResetSecretForTests()

	if _, err := GenerateToken("a@b.co", "Org", time.Hour); err == nil {
		t.Fatal("expected error without configured secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("a@b.co", "Org", time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("a@b.co", "Org", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseAndValidate(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseAndValidate(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

type captureMailer struct {
	msg  Message
	err  error
	sent bool
}

func (m *captureMailer) SendVerification(_ context.Context, msg Message) error {
	m.msg = msg
	m.sent = true
	return m.err
}

func TestDispatchCode(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	mailer := &captureMailer{}
	d, err := NewDispatcher(mailer, WithTokenTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	if err := d.DispatchCode(context.Background(), "Amina@GreenLeaf.org", "Green Leaf"); err != nil {
		t.Fatalf("DispatchCode: %v", err)
	}
	if !mailer.sent {
		t.Fatal("mailer not invoked")
	}
	if mailer.msg.Email != "amina@greenleaf.org" {
		t.Fatalf("email not normalized: %s", mailer.msg.Email)
	}
	if len(mailer.msg.Code) != codeDigits {
		t.Fatalf("unexpected code %q", mailer.msg.Code)
	}
	for _, r := range mailer.msg.Code {
		if r < '0' || r > '9' {
			t.Fatalf("code must be numeric: %q", mailer.msg.Code)
		}
	}
	if _, err := ParseAndValidate(mailer.msg.Token); err != nil {
		t.Fatalf("dispatched token invalid: %v", err)
	}
}

func TestDispatchCodeMailerFailure(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	mailer := &captureMailer{err: errors.New("smtp unreachable")}
	d, _ := NewDispatcher(mailer)

	err := d.DispatchCode(context.Background(), "a@b.co", "Org")
	if err == nil || !strings.Contains(err.Error(), "send") {
		t.Fatalf("expected send failure, got %v", err)
	}
}
