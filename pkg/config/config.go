package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ami-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Assistant (LLM + tool calling) configuration
	Assistant AssistantConfig `yaml:"assistant"`

	// Tool server configuration
	Tools ToolsConfig `yaml:"tools"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ami"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ami_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// AssistantConfig holds settings for the LLM-backed assistant.
// The API key is per-user (stored in the caller's profile), so only the
// endpoint and model are server-level settings.
type AssistantConfig struct {
	LLMBaseURL string `yaml:"llm_base_url" env:"ASSISTANT_LLM_BASE_URL" env-default:"https://api.deepseek.com/v1"`
	LLMModel   string `yaml:"llm_model" env:"ASSISTANT_LLM_MODEL" env-default:"deepseek-chat"`

	// MaxToolIterations bounds the tool-calling loop per chat request.
	MaxToolIterations int `yaml:"max_tool_iterations" env:"ASSISTANT_MAX_TOOL_ITERATIONS" env-default:"15"`

	// MaxHistoryMessages bounds caller-supplied history per chat request.
	MaxHistoryMessages int `yaml:"max_history_messages" env:"ASSISTANT_MAX_HISTORY_MESSAGES" env-default:"10"`
}

// ToolsConfig holds settings for the tool execution surface.
type ToolsConfig struct {
	// BaseURL is where the tool server (and its openapi.json) is reachable.
	// Defaults to the engine's own tool routes.
	BaseURL string `yaml:"base_url" env:"TOOLS_BASE_URL" env-default:"http://localhost:8000/tools"`

	// InvokeTimeoutSeconds bounds a single tool invocation.
	InvokeTimeoutSeconds int `yaml:"invoke_timeout_seconds" env:"TOOLS_INVOKE_TIMEOUT_SECONDS" env-default:"10"`

	// SchemaTimeoutSeconds bounds the openapi.json fetch.
	SchemaTimeoutSeconds int `yaml:"schema_timeout_seconds" env:"TOOLS_SCHEMA_TIMEOUT_SECONDS" env-default:"5"`

	// SystemInfoPath points at the system description document served by
	// the get_system_info tool.
	SystemInfoPath string `yaml:"system_info_path" env:"TOOLS_SYSTEM_INFO_PATH" env-default:"prompt/system_info.txt"`

	// FAQPath points at the YAML corpus used by the rule-based chatbot.
	FAQPath string `yaml:"faq_path" env:"TOOLS_FAQ_PATH" env-default:"prompt/faq.yaml"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
