package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"donorlink.org/internal/api"
	"donorlink.org/internal/config"
	"donorlink.org/internal/keystore"
	"donorlink.org/internal/obs"
	"donorlink.org/internal/session"
	"donorlink.org/internal/stream"
	"donorlink.org/internal/webapp"
)

var (
	version = "1.2.0"
	commit  = "dev"
)

func main() {
	// Local overrides first; absent .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	keys, err := keystore.Open(cfg.StateDir)
	if err != nil {
		log.Fatalf("open keystore: %v", err)
	}

	backend, err := api.New(api.Config{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           cfg.Backend.Timeout,
		RefreshCookieName: cfg.Backend.RefreshCookieName,
	}, keys)
	if err != nil {
		log.Fatalf("backend client: %v", err)
	}

	events := stream.New[session.Event]()
	sessions := session.New(keys, backend, session.WithEvents(events))

	app := webapp.New(sessions, backend, events, webapp.Config{
		Version:            version,
		RateLimitPerSecond: cfg.RateLimit.PerSecond,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:              cfg.Gateway.ListenAddr,
		Handler:           app.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // SSE connections stay open
		IdleTimeout:       60 * time.Second,
	}

	// Restore the previous session before the first request lands, so the
	// guard never bounces a returning user to the login page.
	hydrateCtx, cancelHydrate := context.WithTimeout(context.Background(), cfg.Backend.Timeout+5*time.Second)
	snap := sessions.Hydrate(hydrateCtx)
	cancelHydrate()
	switch {
	case snap.User != nil:
		log.Printf("session restored for %s", snap.User.DisplayName)
	case snap.AccessToken != "":
		log.Printf("session restored, profile pending")
	default:
		log.Printf("starting as guest")
	}

	log.Printf("Starting donorlink-gateway %s on %s (backend %s)", version, srv.Addr, cfg.Backend.BaseURL)

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
	log.Println("Stopped")
}
