// Package notify delivers transient user-facing notices. Calls are
// fire-and-forget: producers never await or inspect delivery.
package notify

import (
	"context"
	"sync"
	"time"

	"ngodesk.org/internal/obs"
)

// Variants understood by client renderers.
const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Notification is a transient notice shown to the signing-up user.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant"`
}

// Notifier publishes notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications as structured log lines. It is the
// default sink when no push channel is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) {
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	obs.LogEvent(map[string]any{
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
		"type":        "notification",
		"title":       n.Title,
		"description": n.Description,
		"variant":     n.Variant,
	})
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
