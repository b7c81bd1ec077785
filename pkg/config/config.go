package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	NextdoorEmail    string   `mapstructure:"NEXTDOOR_EMAIL"`
	NextdoorPassword string   `mapstructure:"NEXTDOOR_PASSWORD"`
	NextdoorBaseURL  string   `mapstructure:"NEXTDOOR_BASE_URL"`
	HeadlessMode     bool     `mapstructure:"HEADLESS_MODE"`
	UserAgentList    string   `mapstructure:"USER_AGENTS"` // "|" separated

	OracleProvider  string `mapstructure:"ORACLE_PROVIDER"`
	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel     string `mapstructure:"OPENAI_MODEL"`
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `mapstructure:"ANTHROPIC_MODEL"`

	BusinessName string   `mapstructure:"BUSINESS_NAME"`
	ServiceList  []string `mapstructure:"SERVICE_LIST"`
	ContactInfo  string   `mapstructure:"CONTACT_INFO"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	PostgresURL string `mapstructure:"POSTGRES_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	DefaultMaxPosts          int `mapstructure:"DEFAULT_MAX_POSTS"`
	DefaultMaxRuntimeSeconds int `mapstructure:"DEFAULT_MAX_RUNTIME_SECONDS"`
	LoginCheckAttempts       int `mapstructure:"LOGIN_CHECK_ATTEMPTS"`
	LoginCheckDelaySeconds   int `mapstructure:"LOGIN_CHECK_DELAY_SECONDS"`
	PageLoadTimeoutSeconds   int `mapstructure:"PAGE_LOAD_TIMEOUT_SECONDS"`
	RestartDelaySeconds      int `mapstructure:"RESTART_DELAY_SECONDS"`
}

var defaults = map[string]any{
	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "console",

	"NEXTDOOR_EMAIL":    "",
	"NEXTDOOR_PASSWORD": "",
	"NEXTDOOR_BASE_URL": "https://nextdoor.com",
	"HEADLESS_MODE":     false,
	"USER_AGENTS": strings.Join([]string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
	}, "|"),

	"ORACLE_PROVIDER":   "openai",
	"OPENAI_API_KEY":    "",
	"OPENAI_BASE_URL":   "https://api.openai.com/v1",
	"OPENAI_MODEL":      "gpt-4",
	"ANTHROPIC_API_KEY": "",
	"ANTHROPIC_MODEL":   "claude-sonnet-4-5",

	"BUSINESS_NAME": "Moku",
	"SERVICE_LIST":  []string{"lawn care", "snow blowing", "landscaping", "waste removal", "power washing"},
	"CONTACT_INFO":  "808-987-6065 cj@mokunebraska.com",

	"STORE_DRIVER": "sqlite",
	"SQLITE_PATH":  "nextdoor_posts.db",
	"POSTGRES_URL": "",

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"HTTP_ADDR": "",

	"DEFAULT_MAX_POSTS":           50,
	"DEFAULT_MAX_RUNTIME_SECONDS": 1200,
	"LOGIN_CHECK_ATTEMPTS":        3,
	"LOGIN_CHECK_DELAY_SECONDS":   4,
	"PAGE_LOAD_TIMEOUT_SECONDS":   10,
	"RESTART_DELAY_SECONDS":       5,
}

// Load reads configuration from an env file and environment variables.
// Every key is registered with a default so that environment-only values
// survive Unmarshal.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present.
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ServiceList = trimAll(cfg.ServiceList)
	return &cfg, nil
}

// ValidateForCrawl checks the settings the interactive crawler cannot run without.
func (c *Config) ValidateForCrawl() error {
	var errs []error
	if c.NextdoorEmail == "" || c.NextdoorPassword == "" {
		errs = append(errs, errors.New("NEXTDOOR_EMAIL and NEXTDOOR_PASSWORD are required"))
	}
	switch strings.ToLower(c.OracleProvider) {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ORACLE_PROVIDER %q", c.OracleProvider))
	}
	if c.DefaultMaxPosts <= 0 || c.DefaultMaxRuntimeSeconds <= 0 {
		errs = append(errs, errors.New("DEFAULT_MAX_POSTS and DEFAULT_MAX_RUNTIME_SECONDS must be positive"))
	}
	return errors.Join(errs...)
}

// UserAgents splits USER_AGENTS on "|"; agent strings contain commas.
func (c *Config) UserAgents() []string {
	return trimAll(strings.Split(c.UserAgentList, "|"))
}

func (c *Config) DefaultMaxRuntime() time.Duration {
	return time.Duration(c.DefaultMaxRuntimeSeconds) * time.Second
}

func (c *Config) LoginCheckDelay() time.Duration {
	return time.Duration(c.LoginCheckDelaySeconds) * time.Second
}

func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutSeconds) * time.Second
}

func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelaySeconds) * time.Second
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
