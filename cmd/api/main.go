package main

import (
	"log"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/api"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/api/handlers"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/config"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/events"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/commercetools"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/vertex"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/store"
	catalogsync "github.com/nikhilrc-dev/ct-vertex-sync/internal/sync"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/transform"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Optional database: sync run history + event ordering guard
	var recorder catalogsync.RunRecorder
	var guard events.VersionGuard
	if cfg.DatabaseURL != "" {
		st, err := store.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database: %v", err)
		}
		defer st.Close()
		recorder = st
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
	var vertexTokens vertex.TokenSource
	if creds, err := cfg.VertexCredentials(); err != nil {
		if !cfg.AllowMissingCredentials {
			logger.Fatal("Failed to load destination credentials: %v", err)
		}
		logger.Error("Running without destination credentials; all writes will fail")
		vertexTokens = vertex.StaticTokenSource("")
	} else {
		provider, err := vertex.NewTokenProvider(creds, logger)
		if err != nil {
			logger.Fatal("Failed to initialize destination credentials: %v", err)
		}
		vertexTokens = provider
	}

	writer := vertex.NewClient(
		cfg.VertexProjectID, cfg.VertexLocation, cfg.VertexCatalogID, cfg.VertexBranchID,
		vertexTokens,
		vertex.DefaultPollPolicy(cfg.PollInterval, cfg.PollMaxAttempts),
		logger,
	)

	// Sync pipeline
	transformer := transform.NewTransformer(cfg.LocalePreference, cfg.CurrencyFallback, cfg.RegionTag, cfg.ProductPageBase)
	orchestrator := catalogsync.NewOrchestrator(source, writer, transformer, recorder, cfg.ChunkSize, cfg.BatchDelay, logger)
	dispatcher := events.NewDispatcher(source, writer, transformer, guard, logger)

	// Initialize API server
	syncHandler := handlers.NewSyncHandler(logger, rest, orchestrator, dispatcher)
	server := api.New(cfg, logger, syncHandler)

	// Start server
	logger.Info("Starting API server on port " + cfg.APIPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
