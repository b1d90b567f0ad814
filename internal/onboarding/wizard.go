package onboarding

import (
	"context"
	"errors"
	"sync"

	"ngodesk.org/internal/catalog"
	"ngodesk.org/internal/obs"
)

// ErrBusy is returned when Next is called while a submission is in flight.
var ErrBusy = errors.New("onboarding: submission in progress")

// Submitter runs the submission pipeline on the final step.
type Submitter interface {
	Submit(ctx context.Context, rec Record) Outcome
}

// Wizard is the navigation controller for one signup session. All methods
// are safe for concurrent use; the record is mutated only through Apply.
type Wizard struct {
	mu        sync.Mutex
	cat       *catalog.Catalog
	submitter Submitter
	rec       Record
	step      int
	busy      bool
}

// NewWizard starts a fresh wizard at step 1 with a default record.
func NewWizard(cat *catalog.Catalog, submitter Submitter) *Wizard {
	return &Wizard{
		cat:       cat,
		submitter: submitter,
		rec:       NewRecord(cat),
		step:      StepOrganization,
	}
}

// Step returns the current step index.
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Record returns a snapshot of the current record.
func (w *Wizard) Record() Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rec.Clone()
}

// Apply merges a field patch into the record. Always succeeds.
func (w *Wizard) Apply(upd RecordUpdate) Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rec.Apply(w.cat, upd)
	return w.rec.Clone()
}

// Prev moves one step back without validation. It is a no-op on step 1.
func (w *Wizard) Prev() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepOrganization {
		w.step--
	}
	return w.step
}

// Advance is the result of a successful Next call.
type Advance struct {
	Step    int      `json:"step"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Next validates the active step and either advances or, on the final step,
// runs the submission pipeline. A blocked transition returns FieldErrors or
// a *StepBlockedError and leaves the step index unchanged. A duplicate-email
// outcome resets the wizard to step 1 with every other field preserved.
func (w *Wizard) Next(ctx context.Context) (Advance, error) {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return Advance{}, ErrBusy
	}
	step := w.step
	if err := ValidateStep(w.cat, step, w.rec); err != nil {
		w.mu.Unlock()
		obs.ObserveStepBlock(step)
		return Advance{}, err
	}
	if step < stepCount {
		w.step++
		adv := Advance{Step: w.step}
		w.mu.Unlock()
		return adv, nil
	}

	// Final step: hold the busy flag for the duration of the async call so
	// re-entrant submissions are rejected.
	w.busy = true
	snapshot := w.rec.Clone()
	w.mu.Unlock()

	outcome := w.submitter.Submit(ctx, snapshot)

	w.mu.Lock()
	w.busy = false
	if outcome.Status == StatusDuplicateEmail {
		w.step = StepOrganization
	}
	adv := Advance{Step: w.step, Outcome: &outcome}
	w.mu.Unlock()
	return adv, nil
}
