package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"polylingo/internal/adapter/repo"
	"polylingo/internal/billing"
	"polylingo/internal/feed"
	"polylingo/internal/http/handlers"
	httpapi "polylingo/internal/http/httpapi"
	"polylingo/internal/infra"
	"polylingo/internal/infra/geoip"
	"polylingo/internal/middleware"
	"polylingo/internal/providers/genai"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	// DB pool (pgxpool)
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	users := repo.NewUserRepository(dbpool)
	lessons := repo.NewLessonRepository(dbpool)
	translations := repo.NewTranslationRepository(dbpool)

	// Live feed: NOTIFY listener plus fan-out hub.
	listener, err := feed.NewListener(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open feed listener")
	}
	hub := feed.NewHub(repo.FeedLoader{Lessons: lessons, Translations: translations}, logger)
	go listener.Run(ctx)
	go hub.Run(ctx, listener.Events())

	generator, err := genai.New(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GenerateTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generator")
	}

	polar := billing.NewClient(billing.Options{
		AccessToken: cfg.PolarAccessToken,
		BaseURL:     cfg.PolarBaseURL,
		Users:       users,
		Logger:      logger,
	})
	refresher := billing.NewRefresher(polar, users, cfg.BillingRefresh, logger)
	if polar.Enabled() {
		refresher.Start()
		defer refresher.Stop()
	}

	oidcAuth, err := handlers.NewOIDCAuthenticator(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure social sign-in")
	}

	app := &handlers.App{
		Config:       cfg,
		Logger:       logger,
		Users:        users,
		Lessons:      lessons,
		Translations: translations,
		Generator:    generator,
		Billing:      polar,
		Feed:         hub,
		OIDC:         oidcAuth,
	}

	// Country lookups for the language suggestion (optional).
	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip unavailable, skipping country lookups")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	stopSignals()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
