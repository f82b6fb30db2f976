package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/config"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/events"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/commercetools"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/vertex"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/store"
	catalogsync "github.com/nikhilrc-dev/ct-vertex-sync/internal/sync"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/transform"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Optional event ordering guard
	var guard events.VersionGuard
	if cfg.DatabaseURL != "" {
		st, err := store.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database: %v", err)
		}
		defer st.Close()
		guard = st
	}

	// Source catalog
	ctTokens := commercetools.NewTokenProvider(cfg.CTAuthHost, cfg.CTClientID, cfg.CTClientSecret, cfg.CTScopes, logger)
	rest := commercetools.NewClient(cfg.CTAPIHost, cfg.CTProjectKey, ctTokens, cfg.RESTPageSize, logger)

	var source catalogsync.ProductSource = rest
	if cfg.ReaderMode == "graphql" {
		gql := commercetools.NewGraphQLClient(cfg.CTAPIHost, cfg.CTProjectKey, ctTokens, cfg.GraphQLPageSize, logger)
		source = commercetools.NewHybridReader(gql, rest, logger)
	}

	// Destination catalog
	creds, err := cfg.VertexCredentials()
	if err != nil {
		logger.Fatal("Failed to load destination credentials: %v", err)
	}
	vertexTokens, err := vertex.NewTokenProvider(creds, logger)
	if err != nil {
		logger.Fatal("Failed to initialize destination credentials: %v", err)
	}
	writer := vertex.NewClient(
		cfg.VertexProjectID, cfg.VertexLocation, cfg.VertexCatalogID, cfg.VertexBranchID,
		vertexTokens,
		vertex.DefaultPollPolicy(cfg.PollInterval, cfg.PollMaxAttempts),
		logger,
	)

	transformer := transform.NewTransformer(cfg.LocalePreference, cfg.CurrencyFallback, cfg.RegionTag, cfg.ProductPageBase)
	dispatcher := events.NewDispatcher(source, writer, transformer, guard, logger)

	// Initialize worker
	w := worker.New(cfg, logger, dispatcher)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}
