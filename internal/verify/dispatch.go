package verify

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"ngodesk.org/internal/audit"
	"ngodesk.org/internal/obs"
)

const (
	codeDigits      = 6
	defaultTokenTTL = 24 * time.Hour
)

// Message is what the mailer delivers to the new user.
type Message struct {
	Email        string
	Organization string
	Code         string
	Token        string
}

// Mailer sends the verification message. Implementations must not retry
// indefinitely; the caller downgrades failures to warnings.
type Mailer interface {
	SendVerification(ctx context.Context, msg Message) error
}

// Dispatcher generates a verification code plus a signed token and hands
// both to the mailer. It implements the code-dispatch boundary of the
// signup pipeline.
type Dispatcher struct {
	mailer   Mailer
	tokenTTL time.Duration
}

// DispatcherOption configures Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTokenTTL overrides the verification-token lifetime.
func WithTokenTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.tokenTTL = ttl
		}
	}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(mailer Mailer, opts ...DispatcherOption) (*Dispatcher, error) {
	if mailer == nil {
		return nil, fmt.Errorf("verify: mailer is required")
	}
	d := &Dispatcher{mailer: mailer, tokenTTL: defaultTokenTTL}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// DispatchCode generates credentials and sends the verification message.
func (d *Dispatcher) DispatchCode(ctx context.Context, email, organizationName string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fmt.Errorf("verify: email is required")
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("verify: generate code: %w", err)
	}
	token, err := GenerateToken(email, organizationName, d.tokenTTL)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	msg := Message{
		Email:        email,
		Organization: organizationName,
		Code:         code,
		Token:        token,
	}
	if err := d.mailer.SendVerification(ctx, msg); err != nil {
		return fmt.Errorf("verify: send: %w", err)
	}
	_ = audit.LogEvent(ctx, "verify.code.dispatched", map[string]any{"email": email})
	return nil
}

// generateCode returns a zero-padded numeric code from crypto/rand.
func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

// LogMailer writes the message to the structured log instead of sending
// email. Used in development when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, msg Message) error {
	obs.LogEvent(map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "mail",
		"to":    msg.Email,
		"org":   msg.Organization,
		"code":  msg.Code,
		"token": msg.Token,
	})
	return nil
}
