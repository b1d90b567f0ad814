package onboarding

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"ngodesk.org/internal/account"
	"ngodesk.org/internal/audit"
	"ngodesk.org/internal/notify"
	"ngodesk.org/internal/obs"
)

const genericFailureMessage = "Something went wrong. Please try again."

// Routes handed back to the client after submission.
const (
	loginPath       = "/login"
	verifyEmailPath = "/verify-email"
)

// AccountCreator creates the tenant account. Implemented by the first-party
// account service and by the remote collaborator client.
type AccountCreator interface {
	CreateAccount(ctx context.Context, signup account.Signup) (account.Created, error)
}

// CodeDispatcher sends the verification code after a successful signup.
type CodeDispatcher interface {
	DispatchCode(ctx context.Context, email, organizationName string) error
}

// Outcome is the classified result of one submission attempt.
type Outcome struct {
	Status           Status          `json:"status"`
	Message          string          `json:"message,omitempty"`
	RedirectURL      string          `json:"redirect_url,omitempty"`
	VerificationSent bool            `json:"verification_sent"`
	Created          account.Created `json:"created,omitempty"`
}

// Pipeline serializes the record, invokes the account-creation boundary,
// classifies the result and runs the verification-code follow-up.
type Pipeline struct {
	creator    AccountCreator
	dispatcher CodeDispatcher
	notifier   notify.Notifier
}

// NewPipeline wires the submission pipeline. The notifier may be nil; the
// creator and dispatcher are required.
func NewPipeline(creator AccountCreator, dispatcher CodeDispatcher, notifier notify.Notifier) (*Pipeline, error) {
	if creator == nil {
		return nil, errors.New("onboarding: account creator is required")
	}
	if dispatcher == nil {
		return nil, errors.New("onboarding: code dispatcher is required")
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Pipeline{creator: creator, dispatcher: dispatcher, notifier: notifier}, nil
}

// Submit runs the full pipeline. Every failure path is absorbed into the
// returned Outcome; nothing escapes as an error to the caller.
func (p *Pipeline) Submit(ctx context.Context, rec Record) Outcome {
	signup := serialize(rec)

	created, err := p.creator.CreateAccount(ctx, signup)
	status, message := Classify(err)
	obs.ObserveSubmission(string(status))

	switch status {
	case StatusDuplicateEmail:
		p.notifier.Notify(ctx, notify.Notification{
			Title:       "Email already registered",
			Description: "Use a different email address or sign in instead.",
			Variant:     notify.VariantDestructive,
		})
		_ = audit.LogEvent(ctx, "signup.duplicate", map[string]any{"email": signup.Email})
		return Outcome{Status: StatusDuplicateEmail, Message: message}

	case StatusFailure:
		if message == "" {
			message = genericFailureMessage
		}
		p.notifier.Notify(ctx, notify.Notification{
			Title:       "Signup failed",
			Description: message,
			Variant:     notify.VariantDestructive,
		})
		_ = audit.LogEvent(ctx, "signup.failed", map[string]any{"email": signup.Email, "reason": message})
		return Outcome{Status: StatusFailure, Message: message}
	}

	p.notifier.Notify(ctx, notify.Notification{
		Title: "Account created",
	})
	_ = audit.LogEvent(ctx, "signup.completed", map[string]any{
		"email":           signup.Email,
		"organization_id": created.OrganizationID,
	})

	// Verification dispatch failure never rolls back the created account.
	if err := p.dispatcher.DispatchCode(ctx, signup.Email, signup.OrganizationName); err != nil {
		p.notifier.Notify(ctx, notify.Notification{
			Title:       "Verification email not sent",
			Description: "Your account was created, but we could not send the verification email. Sign in and request a new code.",
		})
		_ = audit.LogEvent(ctx, "signup.verification_failed", map[string]any{"email": signup.Email})
		return Outcome{
			Status:      StatusSuccess,
			RedirectURL: loginPath,
			Created:     created,
		}
	}

	p.notifier.Notify(ctx, notify.Notification{
		Title:       "Check your email",
		Description: "We sent a verification code to " + signup.Email + ".",
	})
	return Outcome{
		Status:           StatusSuccess,
		RedirectURL:      verifyRedirect(signup.Email, signup.OrganizationName),
		VerificationSent: true,
		Created:          created,
	}
}

func serialize(rec Record) account.Signup {
	return account.Signup{
		OrganizationName: strings.TrimSpace(rec.OrganizationName),
		OrganizationType: rec.OrganizationType,
		Address:          strings.TrimSpace(rec.Address),
		PrimaryCurrency:  rec.PrimaryCurrency,
		ContactName:      strings.TrimSpace(rec.ContactName),
		Phone:            strings.TrimSpace(rec.Phone),
		Email:            strings.ToLower(strings.TrimSpace(rec.Email)),
		Password:         rec.Password,
		Modules:          append([]string(nil), rec.Modules...),
		PricingPlan:      rec.PricingPlan,
		TermsAccepted:    rec.TermsAccepted,
	}
}

// verifyRedirect builds the verification-entry target. PathEscape keeps
// "@" readable in the email while rendering spaces as %20.
func verifyRedirect(email, org string) string {
	return verifyEmailPath + "?email=" + url.PathEscape(email) + "&org=" + url.PathEscape(org)
}
