package onboarding

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"ngodesk.org/internal/catalog"
)

// Wizard steps, in order.
const (
	StepOrganization = 1
	StepModules      = 2
	StepPlan         = 3
	StepReview       = 4

	stepCount = 4
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,19}$`)
)

// FieldErrors maps input field names to messages. It is returned by the
// organization-details validator so clients can render errors inline.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation passed"
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}

// StepBlockedError is a non-field gate failure surfaced as a transient
// notice rather than inline errors.
type StepBlockedError struct {
	Step   int
	Reason string
}

func (e *StepBlockedError) Error() string {
	return fmt.Sprintf("step %d blocked: %s", e.Step, e.Reason)
}

// ValidateStep checks the record against the rules of a single step.
// It returns nil, a FieldErrors (step 1) or a *StepBlockedError (steps 2-4).
// Validators never look at fields belonging to later steps.
func ValidateStep(cat *catalog.Catalog, step int, rec Record) error {
	switch step {
	case StepOrganization:
		if errs := validateOrganization(cat, rec); len(errs) > 0 {
			return errs
		}
		return nil
	case StepModules:
		if len(rec.Modules) == 0 {
			return &StepBlockedError{Step: step, Reason: "select at least one module"}
		}
		for _, key := range rec.Modules {
			if _, ok := cat.Module(key); !ok {
				return &StepBlockedError{Step: step, Reason: fmt.Sprintf("unknown module %q", key)}
			}
		}
		return nil
	case StepPlan:
		if strings.TrimSpace(rec.PricingPlan) == "" {
			return &StepBlockedError{Step: step, Reason: "choose a pricing plan"}
		}
		if _, ok := cat.Plan(rec.PricingPlan); !ok {
			return &StepBlockedError{Step: step, Reason: fmt.Sprintf("unknown pricing plan %q", rec.PricingPlan)}
		}
		return nil
	case StepReview:
		if !rec.TermsAccepted {
			return &StepBlockedError{Step: step, Reason: "accept the terms of service to continue"}
		}
		return nil
	default:
		return &StepBlockedError{Step: step, Reason: "unknown step"}
	}
}

func validateOrganization(cat *catalog.Catalog, rec Record) FieldErrors {
	errs := FieldErrors{}

	if len(strings.TrimSpace(rec.OrganizationName)) < 2 {
		errs["organization_name"] = "organization name must be at least 2 characters"
	}
	if rec.OrganizationType == "" {
		errs["organization_type"] = "organization type is required"
	} else if !cat.IsOrganizationType(rec.OrganizationType) {
		errs["organization_type"] = "unsupported organization type"
	}
	if rec.PrimaryCurrency == "" {
		errs["primary_currency"] = "primary currency is required"
	} else if !cat.IsCurrency(rec.PrimaryCurrency) {
		errs["primary_currency"] = "unsupported currency"
	}
	if len(strings.TrimSpace(rec.ContactName)) < 2 {
		errs["contact_name"] = "contact name must be at least 2 characters"
	}
	email := strings.TrimSpace(rec.Email)
	if email == "" {
		errs["email"] = "email is required"
	} else if !emailPattern.MatchString(email) {
		errs["email"] = "email address is not valid"
	}
	if phone := strings.TrimSpace(rec.Phone); phone != "" && !phonePattern.MatchString(phone) {
		errs["phone"] = "phone number is not valid"
	}
	if msg := passwordPolicyError(rec.Password); msg != "" {
		errs["password"] = msg
	}
	return errs
}

// passwordPolicyError names the first unmet composition rule, or returns
// an empty string when the password passes.
func passwordPolicyError(password string) string {
	if password == "" {
		return "password is required"
	}
	if len(password) < 8 {
		return "password must be at least 8 characters"
	}
	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	switch {
	case !hasLower:
		return "password must contain a lowercase letter"
	case !hasUpper:
		return "password must contain an uppercase letter"
	case !hasDigit:
		return "password must contain a digit"
	}
	return ""
}
