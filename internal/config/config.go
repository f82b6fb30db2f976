package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Regional hostnames for the commercetools platform. The region key selects
// both the auth and the API host.
var commercetoolsRegions = map[string]struct {
	AuthHost string
	APIHost  string
}{
	"us-central1":          {"auth.us-central1.gcp.commercetools.com", "api.us-central1.gcp.commercetools.com"},
	"us-east-2":            {"auth.us-east-2.aws.commercetools.com", "api.us-east-2.aws.commercetools.com"},
	"europe-west1":         {"auth.europe-west1.gcp.commercetools.com", "api.europe-west1.gcp.commercetools.com"},
	"eu-central-1":         {"auth.eu-central-1.aws.commercetools.com", "api.eu-central-1.aws.commercetools.com"},
	"australia-southeast1": {"auth.australia-southeast1.gcp.commercetools.com", "api.australia-southeast1.gcp.commercetools.com"},
}

type Config struct {
	// commercetools (source catalog)
	CTProjectKey   string
	CTClientID     string
	CTClientSecret string
	CTRegion       string
	CTAuthHost     string
	CTAPIHost      string
	CTScopes       string

	// Vertex AI Retail (destination catalog)
	VertexProjectID       string
	VertexLocation        string
	VertexCatalogID       string
	VertexBranchID        string
	VertexCredentialsJSON string
	VertexCredentialsFile string

	// Sync tuning
	ReaderMode       string // "rest" or "graphql" (hybrid with REST availability)
	RESTPageSize     int
	GraphQLPageSize  int
	ChunkSize        int
	BatchDelay       time.Duration
	PollInterval     time.Duration
	PollMaxAttempts  int
	CurrencyFallback string
	RegionTag        string
	LocalePreference []string
	ProductPageBase  string

	// Database (sync run history + event ordering guard); optional
	DatabaseURL string

	// Kafka (mirrored webhook deliveries for the worker)
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	// API Configuration
	APIPort string
	APIHost string

	// Environment
	Env      string
	LogLevel string

	// Degraded mode: skip credential validation, all upstream calls will fail
	// at call time. Only for local testing.
	AllowMissingCredentials bool
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	cfg := &Config{
		CTProjectKey:   getEnv("CT_PROJECT_KEY", ""),
		CTClientID:     getEnv("CT_CLIENT_ID", ""),
		CTClientSecret: getEnv("CT_CLIENT_SECRET", ""),
		CTRegion:       getEnv("CT_REGION", "us-central1"),
		CTScopes:       getEnv("CT_SCOPES", ""),

		VertexProjectID:       getEnv("VERTEX_PROJECT_ID", ""),
		VertexLocation:        getEnv("VERTEX_LOCATION", "global"),
		VertexCatalogID:       getEnv("VERTEX_CATALOG_ID", "default_catalog"),
		VertexBranchID:        getEnv("VERTEX_BRANCH_ID", "default_branch"),
		VertexCredentialsJSON: getEnv("VERTEX_CREDENTIALS_JSON", ""),
		VertexCredentialsFile: getEnv("VERTEX_CREDENTIALS_FILE", ""),

		ReaderMode:       getEnv("READER_MODE", "rest"),
		RESTPageSize:     getEnvAsInt("REST_PAGE_SIZE", 500),
		GraphQLPageSize:  getEnvAsInt("GRAPHQL_PAGE_SIZE", 100),
		ChunkSize:        getEnvAsInt("SYNC_CHUNK_SIZE", 50),
		BatchDelay:       getEnvAsDuration("SYNC_BATCH_DELAY", time.Second),
		PollInterval:     getEnvAsDuration("OPERATION_POLL_INTERVAL", 10*time.Second),
		PollMaxAttempts:  getEnvAsInt("OPERATION_POLL_MAX_ATTEMPTS", 30),
		CurrencyFallback: getEnv("CURRENCY_FALLBACK", "USD"),
		RegionTag:        getEnv("REGION_TAG", "us"),
		LocalePreference: splitList(getEnv("LOCALE_PREFERENCE", "en-US,en")),
		ProductPageBase:  getEnv("PRODUCT_PAGE_BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "product-events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "ct-vertex-sync-worker"),

		APIPort: getEnv("API_PORT", "8080"),
		APIHost: getEnv("API_HOST", "0.0.0.0"),

		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AllowMissingCredentials: getEnv("ALLOW_MISSING_CREDENTIALS", "") == "true",
	}

	region, ok := commercetoolsRegions[cfg.CTRegion]
	if !ok {
		return nil, &UnknownRegionError{Region: cfg.CTRegion}
	}
	cfg.CTAuthHost = region.AuthHost
	cfg.CTAPIHost = region.APIHost

	if cfg.CTScopes == "" && cfg.CTProjectKey != "" {
		cfg.CTScopes = "manage_project:" + cfg.CTProjectKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate fails fast on missing or malformed credentials. Degraded mode must
// be requested explicitly via ALLOW_MISSING_CREDENTIALS.
func (c *Config) Validate() error {
	if c.AllowMissingCredentials {
		return nil
	}

	required := []struct {
		name  string
		value string
	}{
		{"CT_PROJECT_KEY", c.CTProjectKey},
		{"CT_CLIENT_ID", c.CTClientID},
		{"CT_CLIENT_SECRET", c.CTClientSecret},
		{"VERTEX_PROJECT_ID", c.VertexProjectID},
	}
	for _, r := range required {
		if r.value == "" {
			return &MissingCredentialError{Name: r.name}
		}
	}

	if c.VertexCredentialsJSON == "" && c.VertexCredentialsFile == "" {
		return &MissingCredentialError{Name: "VERTEX_CREDENTIALS_JSON or VERTEX_CREDENTIALS_FILE"}
	}
	if c.VertexCredentialsJSON != "" && !json.Valid([]byte(c.VertexCredentialsJSON)) {
		return &InvalidCredentialError{Name: "VERTEX_CREDENTIALS_JSON", Reason: "not valid JSON"}
	}

	if c.ReaderMode != "rest" && c.ReaderMode != "graphql" {
		return &InvalidCredentialError{Name: "READER_MODE", Reason: `must be "rest" or "graphql"`}
	}

	return nil
}

// VertexCredentials returns the raw service account credential JSON, reading
// the key file when no inline JSON was configured.
func (c *Config) VertexCredentials() ([]byte, error) {
	if c.VertexCredentialsJSON != "" {
		return []byte(c.VertexCredentialsJSON), nil
	}
	if c.VertexCredentialsFile == "" {
		return nil, &MissingCredentialError{Name: "VERTEX_CREDENTIALS_JSON or VERTEX_CREDENTIALS_FILE"}
	}
	data, err := os.ReadFile(c.VertexCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Name)
}

type InvalidCredentialError struct {
	Name   string
	Reason string
}

func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Name, e.Reason)
}

type UnknownRegionError struct {
	Region string
}

func (e *UnknownRegionError) Error() string {
	return fmt.Sprintf("unknown commercetools region: %q", e.Region)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
