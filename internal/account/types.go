package account

import "time"

// Signup is the request shape accepted by the account-creation boundary.
type Signup struct {
	OrganizationName string   `json:"organization_name"`
	OrganizationType string   `json:"organization_type"`
	Address          string   `json:"address,omitempty"`
	PrimaryCurrency  string   `json:"primary_currency"`
	ContactName      string   `json:"contact_name"`
	Phone            string   `json:"phone,omitempty"`
	Email            string   `json:"email"`
	Password         string   `json:"password"`
	Modules          []string `json:"modules"`
	PricingPlan      string   `json:"pricing_plan"`
	TermsAccepted    bool     `json:"terms_accepted"`
}

// Created is the success payload of account creation.
type Created struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	RegistrationID string `json:"registration_id"`
}

// Organization is the provisioned tenant.
type Organization struct {
	ID              string
	Name            string
	Type            string
	PrimaryCurrency string
	Address         string
	PricingPlan     string
	CreatedAt       time.Time
}

// User is the initial administrator account of an organization.
type User struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	Phone          string
	PasswordHash   string
	Status         string
	CreatedAt      time.Time
}

const (
	UserStatusPending = "pending"
	UserStatusActive  = "active"
)

// Registration records what was selected during signup.
type Registration struct {
	ID              string
	OrganizationID  string
	Modules         []string
	TermsAcceptedAt time.Time
	CreatedAt       time.Time
}

// Provision is the atomic unit persisted when an account is created.
type Provision struct {
	Organization Organization
	User         User
	Registration Registration
}
