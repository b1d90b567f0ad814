package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ngodesk.org/internal/ids"
)

// Store describes persistence required by the account service. The store
// must reject a second account with the same email with ErrDuplicateEmail.
type Store interface {
	CreateAccount(ctx context.Context, p Provision) error
}

// Service provisions tenant accounts. It is the first-party implementation
// of the account-creation boundary consumed by the signup pipeline.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service backed by the given store.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateAccount validates the signup, hashes the credential and persists the
// organization, its administrator and the registration record atomically.
func (s *Service) CreateAccount(ctx context.Context, signup Signup) (Created, error) {
	signup.OrganizationName = strings.TrimSpace(signup.OrganizationName)
	if signup.OrganizationName == "" {
		return Created{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	signup.Email = strings.TrimSpace(strings.ToLower(signup.Email))
	if signup.Email == "" || !strings.Contains(signup.Email, "@") {
		return Created{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(signup.Password) == "" {
		return Created{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if len(signup.Modules) == 0 {
		return Created{}, fmt.Errorf("%w: at least one module is required", ErrInvalidInput)
	}
	if !signup.TermsAccepted {
		return Created{}, fmt.Errorf("%w: terms must be accepted", ErrInvalidInput)
	}

	hash, err := HashPassword(signup.Password)
	if err != nil {
		return Created{}, err
	}

	now := s.now().UTC()
	org := Organization{
		ID:              ids.New(),
		Name:            signup.OrganizationName,
		Type:            signup.OrganizationType,
		PrimaryCurrency: signup.PrimaryCurrency,
		Address:         strings.TrimSpace(signup.Address),
		PricingPlan:     signup.PricingPlan,
		CreatedAt:       now,
	}
	user := User{
		ID:             ids.New(),
		OrganizationID: org.ID,
		Name:           strings.TrimSpace(signup.ContactName),
		Email:          signup.Email,
		Phone:          strings.TrimSpace(signup.Phone),
		PasswordHash:   hash,
		Status:         UserStatusPending,
		CreatedAt:      now,
	}
	reg := Registration{
		ID:              ids.New(),
		OrganizationID:  org.ID,
		Modules:         append([]string(nil), signup.Modules...),
		TermsAcceptedAt: now,
		CreatedAt:       now,
	}

	if err := s.store.CreateAccount(ctx, Provision{Organization: org, User: user, Registration: reg}); err != nil {
		return Created{}, err
	}
	return Created{
		OrganizationID: org.ID,
		UserID:         user.ID,
		RegistrationID: reg.ID,
	}, nil
}
