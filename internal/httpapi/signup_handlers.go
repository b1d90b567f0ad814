package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"ngodesk.org/internal/access"
	"ngodesk.org/internal/audit"
	"ngodesk.org/internal/events"
	"ngodesk.org/internal/onboarding"
)

type toggleModuleRequest struct {
	Enabled bool `json:"enabled"`
}

type selectRoleRequest struct {
	RoleID string `json:"role_id"`
}

// sessionState is the full session snapshot returned to clients.
type sessionState struct {
	SessionID string                  `json:"session_id"`
	Step      int                     `json:"step"`
	Record    onboarding.Record       `json:"record"`
	Access    map[string]access.Entry `json:"access"`
}

func (a *API) handleSessionsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess := a.sessions.Open()
	ctx := audit.WithSessionID(r.Context(), sess.ID)
	_ = audit.LogEvent(ctx, "signup.session.open", nil)
	a.publish(events.Event{Type: events.TypeSessionOpened, SessionID: sess.ID, Step: sess.Wizard.Step()})
	w.Header().Set("Location", "/v1/signup/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, a.state(sess))
}

func (a *API) handleSessionResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/signup/sessions/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	sess, ok := a.sessions.Get(parts[0])
	if !ok {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	r = r.WithContext(audit.WithSessionID(r.Context(), sess.ID))

	switch {
	case len(parts) == 1:
		a.handleSession(w, r, sess)
	case len(parts) == 2 && parts[1] == "record":
		a.patchRecord(w, r, sess)
	case len(parts) == 2 && parts[1] == "next":
		a.next(w, r, sess)
	case len(parts) == 2 && parts[1] == "prev":
		a.prev(w, r, sess)
	case len(parts) == 2 && parts[1] == "access":
		a.listAccess(w, r, sess)
	case len(parts) == 3 && parts[1] == "access" && parts[2] == "validate":
		a.validateAccess(w, r, sess)
	case len(parts) == 3 && parts[1] == "access":
		a.toggleModule(w, r, sess, parts[2])
	case len(parts) == 4 && parts[1] == "access" && parts[3] == "role":
		a.selectRole(w, r, sess, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request, sess *session) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.state(sess))
	case http.MethodDelete:
		a.sessions.Close(sess.ID)
		_ = audit.LogEvent(r.Context(), "signup.session.close", nil)
		a.publish(events.Event{Type: events.TypeSessionClosed, SessionID: sess.ID})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) patchRecord(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	var upd onboarding.RecordUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rec := sess.Wizard.Apply(upd)
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) next(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	from := sess.Wizard.Step()
	adv, err := sess.Wizard.Next(r.Context())
	if err != nil {
		a.handleStepError(w, r, sess, from, err)
		return
	}
	if adv.Outcome == nil {
		a.publish(events.Event{Type: events.TypeStepAdvanced, SessionID: sess.ID, Step: adv.Step})
		writeJSON(w, http.StatusOK, adv)
		return
	}

	a.publish(events.Event{Type: events.TypeSignupSubmitted, SessionID: sess.ID, Step: from})
	switch adv.Outcome.Status {
	case onboarding.StatusSuccess:
		a.publish(events.Event{Type: events.TypeSignupCompleted, SessionID: sess.ID, Detail: adv.Outcome.RedirectURL})
		a.sessions.Close(sess.ID)
	case onboarding.StatusDuplicateEmail:
		a.publish(events.Event{Type: events.TypeSignupDuplicate, SessionID: sess.ID, Step: adv.Step})
	}
	writeJSON(w, http.StatusOK, adv)
}

func (a *API) prev(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	step := sess.Wizard.Prev()
	writeJSON(w, http.StatusOK, onboarding.Advance{Step: step})
}

func (a *API) listAccess(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, sess.Matrix.Entries())
}

func (a *API) validateAccess(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := sess.Matrix.Validate(); err != nil {
		var incomplete *access.IncompleteError
		if errors.As(err, &incomplete) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  err.Error(),
				"module": incomplete.Module,
			})
			return
		}
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) toggleModule(w http.ResponseWriter, r *http.Request, sess *session, moduleKey string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req toggleModuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.Matrix.Toggle(moduleKey, req.Enabled); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	a.syncModules(sess)
	entry, _ := sess.Matrix.Entry(moduleKey)
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) selectRole(w http.ResponseWriter, r *http.Request, sess *session, moduleKey string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req selectRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.Matrix.SelectRole(moduleKey, strings.TrimSpace(req.RoleID)); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	// An off-catalog role id leaves the entry untouched; clients see the
	// unchanged state and can re-render from it.
	entry, _ := sess.Matrix.Entry(moduleKey)
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleStepError(w http.ResponseWriter, r *http.Request, sess *session, step int, err error) {
	if errors.Is(err, onboarding.ErrBusy) {
		writeError(w, r, http.StatusConflict, "submission already in progress")
		return
	}
	var fields onboarding.FieldErrors
	if errors.As(err, &fields) {
		a.publish(events.Event{Type: events.TypeStepBlocked, SessionID: sess.ID, Step: step})
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}
	var blocked *onboarding.StepBlockedError
	if errors.As(err, &blocked) {
		a.publish(events.Event{Type: events.TypeStepBlocked, SessionID: sess.ID, Step: blocked.Step, Detail: blocked.Reason})
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": blocked.Reason,
			"step":  blocked.Step,
		})
		return
	}
	writeError(w, r, http.StatusInternalServerError, "step transition failed")
}

// syncModules mirrors the matrix's enabled set into the wizard record so the
// module-selection validator sees what the client toggled.
func (a *API) syncModules(sess *session) {
	entries := sess.Matrix.Entries()
	var keys []string
	for _, mod := range a.cat.Modules {
		if entries[mod.Key].Enabled {
			keys = append(keys, mod.Key)
		}
	}
	sess.Wizard.Apply(onboarding.RecordUpdate{Modules: &keys})
}

func (a *API) state(sess *session) sessionState {
	return sessionState{
		SessionID: sess.ID,
		Step:      sess.Wizard.Step(),
		Record:    sess.Wizard.Record(),
		Access:    sess.Matrix.Entries(),
	}
}

func (a *API) publish(evt events.Event) {
	if a.stream == nil {
		return
	}
	a.stream.Publish(evt)
}

// --- helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
