// Package onboarding implements the multi-step signup wizard: the record
// aggregate, per-step validators, the navigation controller and the
// submission pipeline.
package onboarding

import (
	"strings"

	"ngodesk.org/internal/catalog"
)

// Record is the single mutable aggregate collected across wizard steps.
// It is owned by a Wizard for the lifetime of one signup session.
type Record struct {
	OrganizationName string `json:"organization_name"`
	OrganizationType string `json:"organization_type"`
	PrimaryCurrency  string `json:"primary_currency"`
	Address          string `json:"address,omitempty"`

	ContactName string `json:"contact_name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email"`
	Password    string `json:"-"`

	Modules     []string `json:"modules"`
	PricingPlan string   `json:"pricing_plan"`

	TermsAccepted bool `json:"terms_accepted"`
}

// RecordUpdate is a partial patch. Nil fields are left unchanged.
type RecordUpdate struct {
	OrganizationName *string   `json:"organization_name,omitempty"`
	OrganizationType *string   `json:"organization_type,omitempty"`
	PrimaryCurrency  *string   `json:"primary_currency,omitempty"`
	Address          *string   `json:"address,omitempty"`
	ContactName      *string   `json:"contact_name,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Email            *string   `json:"email,omitempty"`
	Password         *string   `json:"password,omitempty"`
	Modules          *[]string `json:"modules,omitempty"`
	PricingPlan      *string   `json:"pricing_plan,omitempty"`
	TermsAccepted    *bool     `json:"terms_accepted,omitempty"`
}

// NewRecord returns the default record for a fresh wizard. The mandatory
// modules from the catalog are pre-selected and cannot be removed later.
func NewRecord(cat *catalog.Catalog) Record {
	return Record{
		Modules: cat.MandatoryModules(),
	}
}

// Clone returns a deep copy safe to hand outside the wizard lock.
func (r Record) Clone() Record {
	out := r
	out.Modules = append([]string(nil), r.Modules...)
	return out
}

// HasModule reports whether the module key is currently selected.
func (r Record) HasModule(key string) bool {
	for _, m := range r.Modules {
		if m == key {
			return true
		}
	}
	return false
}

// Apply merges the patch into the record. Untouched fields are preserved.
// Module updates are deduplicated and the catalog's mandatory modules are
// re-inserted if the patch tried to drop them.
func (r *Record) Apply(cat *catalog.Catalog, upd RecordUpdate) {
	if upd.OrganizationName != nil {
		r.OrganizationName = *upd.OrganizationName
	}
	if upd.OrganizationType != nil {
		r.OrganizationType = *upd.OrganizationType
	}
	if upd.PrimaryCurrency != nil {
		r.PrimaryCurrency = *upd.PrimaryCurrency
	}
	if upd.Address != nil {
		r.Address = *upd.Address
	}
	if upd.ContactName != nil {
		r.ContactName = *upd.ContactName
	}
	if upd.Phone != nil {
		r.Phone = *upd.Phone
	}
	if upd.Email != nil {
		r.Email = *upd.Email
	}
	if upd.Password != nil {
		r.Password = *upd.Password
	}
	if upd.PricingPlan != nil {
		r.PricingPlan = *upd.PricingPlan
	}
	if upd.TermsAccepted != nil {
		r.TermsAccepted = *upd.TermsAccepted
	}
	if upd.Modules != nil {
		r.Modules = normalizeModules(cat, *upd.Modules)
	}
}

func normalizeModules(cat *catalog.Catalog, keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	var out []string
	add := func(key string) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	for _, key := range cat.MandatoryModules() {
		add(key)
	}
	for _, key := range keys {
		add(key)
	}
	return out
}
