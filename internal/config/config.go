package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultDataDir         = ".storyagent"
	DefaultDBName          = "storyagent.db"
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "meta-llama/llama-3.3-70b-instruct:free"
	DefaultRequestTimeout  = 30  // seconds, per tracker call
	DefaultExportWorkers   = 1   // sequential unless configured
	DefaultWatchDebounce   = 500 // milliseconds
	DefaultStoryPointField = "customfield_10016"
)

// Group-failure policies for the export orchestrator
const (
	GroupFailureAbort    = "abort"
	GroupFailureContinue = "continue"
)

// Config holds all application configuration
type Config struct {
	// HTTP server
	Host               string
	Port               int
	APIKey             string
	CORSAllowedOrigins []string

	// Story generation (OpenRouter)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string

	// Ticket tracker (Jira)
	JiraURL         string
	JiraEmail       string
	JiraAPIToken    string
	StoryPointField string

	// Export settings
	ExportWorkers      int
	GroupFailurePolicy string
	RequestTimeout     int // seconds

	// Classification rules
	RulesPath     string
	WatchRules    bool
	WatchDebounce int // milliseconds

	// Storage
	DataDir      string
	DatabasePath string
}

// New creates a Config with default values
func New() *Config {
	wd, _ := os.Getwd()

	return &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		OpenRouterBaseURL:  DefaultOpenRouterURL,
		OpenRouterModel:    DefaultOpenRouterModel,
		StoryPointField:    DefaultStoryPointField,
		ExportWorkers:      DefaultExportWorkers,
		GroupFailurePolicy: GroupFailureAbort,
		RequestTimeout:     DefaultRequestTimeout,
		WatchDebounce:      DefaultWatchDebounce,
		DataDir:            filepath.Join(wd, DefaultDataDir),
		DatabasePath:       filepath.Join(wd, DefaultDataDir, DefaultDBName),
	}
}

// Load reads configuration from the environment, falling back to defaults.
// A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.APIKey = os.Getenv("API_KEY")
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitAndTrim(origins)
	}

	cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.OpenRouterBaseURL = getEnv("OPENROUTER_BASE_URL", cfg.OpenRouterBaseURL)
	cfg.OpenRouterModel = getEnv("OPENROUTER_MODEL", cfg.OpenRouterModel)

	cfg.JiraURL = strings.TrimRight(os.Getenv("JIRA_URL"), "/")
	cfg.JiraEmail = os.Getenv("JIRA_EMAIL")
	cfg.JiraAPIToken = os.Getenv("JIRA_API_TOKEN")
	cfg.StoryPointField = getEnv("JIRA_STORY_POINT_FIELD", cfg.StoryPointField)

	cfg.ExportWorkers = getEnvInt("EXPORT_WORKERS", cfg.ExportWorkers)
	cfg.GroupFailurePolicy = getEnv("EXPORT_GROUP_FAILURE_POLICY", cfg.GroupFailurePolicy)
	cfg.RequestTimeout = getEnvInt("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.RulesPath = os.Getenv("CLASSIFY_RULES_PATH")
	cfg.WatchRules = getEnvBool("CLASSIFY_WATCH_RULES", cfg.RulesPath != "")
	cfg.WatchDebounce = getEnvInt("CLASSIFY_WATCH_DEBOUNCE", cfg.WatchDebounce)

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
		cfg.DatabasePath = filepath.Join(dataDir, DefaultDBName)
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}

	return cfg, nil
}

// TrackerConfigured reports whether Jira credentials are present
func (c *Config) TrackerConfigured() bool {
	return c.JiraURL != "" && c.JiraEmail != "" && c.JiraAPIToken != ""
}

// GeneratorConfigured reports whether the OpenRouter key is present
func (c *Config) GeneratorConfigured() bool {
	return c.OpenRouterAPIKey != ""
}

// EnsureDataDir creates the data directory if it does not exist
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return strings.EqualFold(valueStr, "true") || valueStr == "1"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
