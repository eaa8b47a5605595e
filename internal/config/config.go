package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	CMS           CMSConfig
	ContentServer ContentServerConfig
	Render        RenderConfig
}

type AppConfig struct {
	Environment string
	HTTPAddr    string
	Endpoint    string
	LogLevel    string
	LogFilePath string
}

type CMSConfig struct {
	BaseURL        string
	APIKey         string
	AuthCollection string
	RetryAttempts  uint
	RetryDelay     time.Duration
}

type ContentServerConfig struct {
	URL             string
	SiteBaseURL     string
	ContentSelector string
	ScrapeSummaries bool
	// MimeTypeCollections maps content item mime types to
	// "collection:richTextField".
	MimeTypeCollections map[string]string
}

type RenderConfig struct {
	CacheTTL time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Load reads .env (if present) and the environment. Flags in main override
// the transport settings.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			HTTPAddr:    getEnv("HTTP_ADDR", ""),
			Endpoint:    getEnv("MCP_ENDPOINT", "/mcp"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFilePath: getEnv("LOG_FILE_PATH", ""),
		},
		CMS: CMSConfig{
			BaseURL:        getEnv("CMS_URL", "http://localhost:3000"),
			APIKey:         getEnv("CMS_API_KEY", ""),
			AuthCollection: getEnv("CMS_AUTH_COLLECTION", "users"),
			RetryAttempts:  uint(getEnvAsInt("CMS_RETRY_ATTEMPTS", 3)),
			RetryDelay:     getEnvAsDuration("CMS_RETRY_DELAY", 200*time.Millisecond),
		},
		ContentServer: ContentServerConfig{
			URL:             getEnv("CONTENTSERVER_URL", ""),
			SiteBaseURL:     getEnv("SITE_BASE_URL", "http://localhost:3000"),
			ContentSelector: getEnv("SITE_CONTENT_SELECTOR", "main"),
			ScrapeSummaries: getEnvAsBool("SITE_SCRAPE_SUMMARIES", false),
			MimeTypeCollections: getEnvAsMap("CONTENT_COLLECTIONS", map[string]string{
				"application/x-page":      "pages:content",
				"application/x-treatment": "treatments:content",
				"application/x-team":      "team:bio",
				"application/x-faq":       "faqs:answer",
				"application/x-pricing":   "pricing:content",
				"application/x-career":    "careers:description",
				"application/x-legal":     "legal:content",
			}),
		},
		Render: RenderConfig{
			CacheTTL: getEnvAsDuration("RENDER_CACHE_TTL", 10*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsMap parses "k1=v1,k2=v2".
func getEnvAsMap(key string, fallback map[string]string) map[string]string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
