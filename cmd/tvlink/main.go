package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/cast"
	"github.com/acetvpair/tvlink-go/internal/config"
	"github.com/acetvpair/tvlink-go/internal/dispatch"
	"github.com/acetvpair/tvlink-go/internal/gateway"
	"github.com/acetvpair/tvlink-go/internal/jobs"
	"github.com/acetvpair/tvlink-go/internal/middleware"
	"github.com/acetvpair/tvlink-go/internal/notify"
	"github.com/acetvpair/tvlink-go/internal/pairing"
	"github.com/acetvpair/tvlink-go/internal/relay"
	"github.com/acetvpair/tvlink-go/internal/search"
	"github.com/acetvpair/tvlink-go/internal/session"
	"github.com/acetvpair/tvlink-go/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := store.Open(cfg.StateDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open state db")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping state db")
	}
	cancel()
	log.Info().Str("path", cfg.StateDBPath).Msg("state db opened")

	stateRepo := store.NewStateRepository(db.DB)

	relayClient := relay.NewClient(cfg.APIBaseURL, &http.Client{
		Timeout: config.RelayRequestTimeout,
	})

	broker := notify.NewBroker()
	defer broker.Close()

	sessions := session.NewManager(stateRepo, relayClient)
	go sessions.Ensure(context.Background())

	castCtrl := cast.NewUIController(broker)
	coordinator := cast.NewCoordinator(castCtrl)

	searches := search.NewController(relayClient, broker)
	pairCtrl := pairing.NewController(stateRepo, sessions, relayClient, broker, cfg.UnlinkTimeout())
	monitor := pairing.NewMonitor(stateRepo, sessions, relayClient, cfg.AuthWait())
	dispatcher := dispatch.NewDispatcher(stateRepo, sessions, relayClient, broker, broker, pairCtrl, coordinator, dispatch.Timing{
		CastReadyTimeout: cfg.CastReadyTimeout(),
		RetrySettle:      cfg.SendRetrySettle(),
		CastCloseDelay:   cfg.CastCloseDelay(),
	})

	searchHandler := gateway.NewSearchHandler(searches)
	pairingHandler := gateway.NewPairingHandler(pairCtrl, monitor, stateRepo)
	sendHandler := gateway.NewSendHandler(dispatcher)
	eventsHandler := gateway.NewEventsHandler(broker)
	uiHandler := gateway.NewUIHandler(broker, castCtrl, monitor, stateRepo)

	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Get("/v1/events", eventsHandler.ServeHTTP)

	// Everything except the SSE stream gets the request ceiling. The
	// send route blocks through the wake-and-retry flow, so the ceiling
	// has to cover cast wake plus the settle delay.
	r.Route("/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Mount("/search", searchHandler.Routes())
		r.Mount("/pairing", pairingHandler.Routes())
		r.Mount("/send", sendHandler.Routes())
		r.Mount("/ui", uiHandler.Routes())
	})

	revalidateJob := jobs.NewRevalidateJob(monitor, cfg.RevalidateInterval())
	revalidateJob.Start()
	defer revalidateJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting bridge")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down bridge")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("bridge stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
