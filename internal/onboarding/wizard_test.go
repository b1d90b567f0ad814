package onboarding

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"ngodesk.org/internal/account"
	"ngodesk.org/internal/notify"
)

type fakeCreator struct {
	mu      sync.Mutex
	err     error
	created account.Created
	calls   []account.Signup
}

func (f *fakeCreator) CreateAccount(_ context.Context, signup account.Signup) (account.Created, error) {
	f.mu.Lock()
	f.calls = append(f.calls, signup)
	f.mu.Unlock()
	if f.err != nil {
		return account.Created{}, f.err
	}
	return f.created, nil
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeDispatcher struct {
	err   error
	calls []string
}

func (f *fakeDispatcher) DispatchCode(_ context.Context, email, org string) error {
	f.calls = append(f.calls, email+"|"+org)
	return f.err
}

func newTestWizard(t *testing.T, creator AccountCreator, dispatcher CodeDispatcher, rec *notify.Recorder) *Wizard {
	t.Helper()
	cat := testCatalog(t)
	pipeline, err := NewPipeline(creator, dispatcher, rec)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return NewWizard(cat, pipeline)
}

func fillOrganizationStep(w *Wizard) {
	name := "Green Leaf"
	typ := "NGO"
	currency := "USD"
	contact := "Amina Diallo"
	email := "x@dup.org"
	password := "Abcd1234"
	w.Apply(RecordUpdate{
		OrganizationName: &name,
		OrganizationType: &typ,
		PrimaryCurrency:  &currency,
		ContactName:      &contact,
		Email:            &email,
		Password:         &password,
	})
}

// walkToReview drives a wizard to the final step with a valid record.
func walkToReview(t *testing.T, w *Wizard) {
	t.Helper()
	fillOrganizationStep(w)
	plan := "growth"
	terms := true
	w.Apply(RecordUpdate{PricingPlan: &plan, TermsAccepted: &terms})
	for i := 0; i < 3; i++ {
		if _, err := w.Next(context.Background()); err != nil {
			t.Fatalf("Next on step %d: %v", w.Step(), err)
		}
	}
	if w.Step() != StepReview {
		t.Fatalf("expected step %d, got %d", StepReview, w.Step())
	}
}

func TestNextBlockedOnInvalidStep(t *testing.T) {
	w := newTestWizard(t, &fakeCreator{}, &fakeDispatcher{}, &notify.Recorder{})

	_, err := w.Next(context.Background())
	var fields FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if w.Step() != StepOrganization {
		t.Fatalf("blocked Next must not advance: step %d", w.Step())
	}
}

func TestPrevNeverValidates(t *testing.T) {
	w := newTestWizard(t, &fakeCreator{}, &fakeDispatcher{}, &notify.Recorder{})
	fillOrganizationStep(w)
	if _, err := w.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	// Invalidate step 1, then move back and forth.
	empty := ""
	w.Apply(RecordUpdate{Email: &empty})
	if got := w.Prev(); got != StepOrganization {
		t.Fatalf("Prev: step %d", got)
	}
	if got := w.Prev(); got != StepOrganization {
		t.Fatalf("Prev below step 1: step %d", got)
	}
}

func TestTermsNotAcceptedBlocksBeforeCollaborator(t *testing.T) {
	creator := &fakeCreator{}
	w := newTestWizard(t, creator, &fakeDispatcher{}, &notify.Recorder{})
	fillOrganizationStep(w)
	plan := "starter"
	w.Apply(RecordUpdate{PricingPlan: &plan})
	for i := 0; i < 3; i++ {
		if _, err := w.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	_, err := w.Next(context.Background())
	var blocked *StepBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected step block, got %v", err)
	}
	if creator.callCount() != 0 {
		t.Fatal("account creator must not be invoked when terms are not accepted")
	}
}

func TestDuplicateEmailResetsToStepOne(t *testing.T) {
	creator := &fakeCreator{err: errors.New("Email already registered")}
	toasts := &notify.Recorder{}
	w := newTestWizard(t, creator, &fakeDispatcher{}, toasts)
	walkToReview(t, w)

	before := w.Record()
	adv, err := w.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if adv.Outcome == nil || adv.Outcome.Status != StatusDuplicateEmail {
		t.Fatalf("expected duplicate outcome, got %+v", adv.Outcome)
	}
	if adv.Step != StepOrganization || w.Step() != StepOrganization {
		t.Fatalf("duplicate must reset to step 1, got %d", w.Step())
	}

	after := w.Record()
	if after.PricingPlan != before.PricingPlan || after.TermsAccepted != before.TermsAccepted {
		t.Fatal("selection fields must be preserved on duplicate reset")
	}
	if len(after.Modules) != len(before.Modules) {
		t.Fatalf("modules changed: %v vs %v", after.Modules, before.Modules)
	}

	last, ok := toasts.Last()
	if !ok || last.Variant != notify.VariantDestructive {
		t.Fatalf("expected destructive toast, got %+v", last)
	}
}

func TestGenericFailureStaysOnReview(t *testing.T) {
	creator := &fakeCreator{err: errors.New("upstream timeout")}
	w := newTestWizard(t, creator, &fakeDispatcher{}, &notify.Recorder{})
	walkToReview(t, w)

	adv, err := w.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if adv.Outcome.Status != StatusFailure {
		t.Fatalf("expected generic failure, got %s", adv.Outcome.Status)
	}
	if w.Step() != StepReview {
		t.Fatalf("generic failure must stay on review step, got %d", w.Step())
	}

	// The flow stays retryable.
	creator.err = nil
	adv, err = w.Next(context.Background())
	if err != nil {
		t.Fatalf("retry Next: %v", err)
	}
	if adv.Outcome.Status != StatusSuccess {
		t.Fatalf("retry should succeed, got %s", adv.Outcome.Status)
	}
}

func TestSuccessWithVerificationDispatch(t *testing.T) {
	creator := &fakeCreator{created: account.Created{OrganizationID: "org-1"}}
	dispatcher := &fakeDispatcher{}
	w := newTestWizard(t, creator, dispatcher, &notify.Recorder{})
	walkToReview(t, w)

	adv, err := w.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	outcome := adv.Outcome
	if outcome.Status != StatusSuccess || !outcome.VerificationSent {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.RedirectURL != "/verify-email?email=x@dup.org&org=Green%20Leaf" {
		t.Fatalf("unexpected redirect: %s", outcome.RedirectURL)
	}

	u, err := url.Parse(outcome.RedirectURL)
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	q := u.Query()
	if q.Get("email") != "x@dup.org" || q.Get("org") != "Green Leaf" {
		t.Fatalf("unexpected query params: %v", q)
	}
	if len(dispatcher.calls) != 1 || !strings.HasPrefix(dispatcher.calls[0], "x@dup.org|") {
		t.Fatalf("dispatcher not invoked correctly: %v", dispatcher.calls)
	}
}

func TestSuccessWithDispatchFailureRoutesToLogin(t *testing.T) {
	creator := &fakeCreator{created: account.Created{OrganizationID: "org-1"}}
	dispatcher := &fakeDispatcher{err: errors.New("smtp unreachable")}
	toasts := &notify.Recorder{}
	w := newTestWizard(t, creator, dispatcher, toasts)
	walkToReview(t, w)

	adv, err := w.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	outcome := adv.Outcome
	if outcome.Status != StatusSuccess {
		t.Fatalf("dispatch failure must not undo creation: %+v", outcome)
	}
	if outcome.VerificationSent {
		t.Fatal("verification must not be marked sent")
	}
	if outcome.RedirectURL != "/login" {
		t.Fatalf("expected login redirect, got %s", outcome.RedirectURL)
	}

	var sawWarning bool
	for _, n := range toasts.All() {
		if strings.Contains(n.Title, "Verification email not sent") {
			sawWarning = true
		}
	}
	if !sawWarning {
		t.Fatalf("expected softened warning toast, got %+v", toasts.All())
	}
}

type blockingSubmitter struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSubmitter) Submit(context.Context, Record) Outcome {
	close(s.entered)
	<-s.release
	return Outcome{Status: StatusSuccess}
}

func TestNextRejectsReentrantSubmission(t *testing.T) {
	sub := &blockingSubmitter{entered: make(chan struct{}), release: make(chan struct{})}
	w := NewWizard(testCatalog(t), sub)
	fillOrganizationStep(w)
	plan := "growth"
	terms := true
	w.Apply(RecordUpdate{PricingPlan: &plan, TermsAccepted: &terms})
	for i := 0; i < 3; i++ {
		if _, err := w.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Next(context.Background())
	}()
	<-sub.entered

	if _, err := w.Next(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy during in-flight submission, got %v", err)
	}

	close(sub.release)
	<-done
}
