package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ngodesk.org/internal/account"
	"ngodesk.org/internal/account/remote"
	"ngodesk.org/internal/catalog"
	"ngodesk.org/internal/events"
	"ngodesk.org/internal/httpapi"
	"ngodesk.org/internal/obs"
	"ngodesk.org/internal/onboarding"
	"ngodesk.org/internal/store/pg"
	"ngodesk.org/internal/verify"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cat, err := catalog.Default()
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	// Хранилище аккаунтов: Postgres при заданном DSN, иначе память (dev).
	var (
		store account.Store
		db    *sql.DB
	)
	if dsn := os.Getenv("NGODESK_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
		db = pgStore.DB()
	} else {
		log.Println("NGODESK_PG_DSN not set, using in-memory store")
		store = account.NewMemoryStore()
	}

	// Создание аккаунта: удалённый сервис при заданном URL, иначе first-party.
	var creator onboarding.AccountCreator
	svc, err := account.NewService(store)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}
	creator = svc
	if base := os.Getenv("NGODESK_ACCOUNTS_URL"); base != "" {
		creator = remote.New(base)
	}

	dispatcher, err := verify.NewDispatcher(verify.LogMailer{})
	if err != nil {
		log.Fatalf("verify dispatcher: %v", err)
	}

	pipeline, err := onboarding.NewPipeline(creator, dispatcher, nil)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	stream := events.New()

	api, err := httpapi.New(httpapi.Config{
		Version:   version,
		Probe:     httpapi.ReadyProbe{DB: db},
		Catalog:   cat,
		Submitter: pipeline,
		Stream:    stream,
	})
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	handler := httpapi.RequestID(
		httpapi.Logging(
			httpapi.SecurityHeaders(
				httpapi.CORS(
					httpapi.MaxBodyBytes(
						httpapi.RateLimit(api.Handler(), 20, 10),
						1<<20)))))

	addr := os.Getenv("NGODESK_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting ngodesk-signup %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
