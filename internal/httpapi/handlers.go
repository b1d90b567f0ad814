package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ngodesk.org/internal/catalog"
	"ngodesk.org/internal/events"
	"ngodesk.org/internal/obs"
	"ngodesk.org/internal/onboarding"
)

// ReadyProbe — простая проверка готовности (например, ping БД).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config собирает зависимости HTTP слоя.
type Config struct {
	Version    string
	Probe      ReadyProbe
	Catalog    *catalog.Catalog
	Submitter  onboarding.Submitter
	Stream     *events.Stream
	SessionTTL time.Duration
}

// API — HTTP слой поверх signup-сессий.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	cat        *catalog.Catalog
	sessions   *sessionManager
	stream     *events.Stream
}

func New(cfg Config) (*API, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("httpapi: catalog is required")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("httpapi: submitter is required")
	}

	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.Probe,
		version:    cfg.Version,
		cat:        cfg.Catalog,
		stream:     cfg.Stream,
	}
	a.sessions = newSessionManager(cfg.Catalog, cfg.Submitter, cfg.SessionTTL)

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// signup wizard
	a.mux.HandleFunc("/v1/signup/catalog", a.handleCatalog)
	a.mux.HandleFunc("/v1/signup/sessions", a.handleSessionsCollection)
	a.mux.HandleFunc("/v1/signup/sessions/", a.handleSessionResource)
	a.mux.HandleFunc("/v1/signup/events", a.StreamEvents)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a, nil
}

// Handler возвращает http.Handler для сервера (без доп. аргументов).
func (a *API) Handler() http.Handler {
	// оборачиваем весь mux метриками
	return obs.Instrument(a.mux)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "ngodesk-signup",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "ngodesk-signup",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// handleCatalog exposes the static module/plan catalog so clients can render
// the module picker without hardcoding it.
func (a *API) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, a.cat)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
