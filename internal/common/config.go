package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Scraper     ScraperConfig `toml:"scraper"`
	LLM         LLMConfig     `toml:"llm"`
	Engine      EngineConfig  `toml:"engine"`
	Resumes     ResumesConfig `toml:"resumes"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// ScraperConfig contains browser automation configuration for the job board
type ScraperConfig struct {
	UserAgent        string        `toml:"user_agent"`
	BaseURL          string        `toml:"base_url"`           // Job board search base URL
	SourcePlatform   string        `toml:"source_platform"`    // Platform identifier stamped on found jobs
	Headless         bool          `toml:"headless"`           // Run the browser headless
	NavTimeout       time.Duration `toml:"nav_timeout"`        // Per-navigation timeout
	MinHumanDelay    time.Duration `toml:"min_human_delay"`    // Lower bound for jitter between navigations
	MaxHumanDelay    time.Duration `toml:"max_human_delay"`    // Upper bound for jitter between navigations
	MaxPagesPerTitle int           `toml:"max_pages_per_title"`
	MaxNavRetries    int           `toml:"max_nav_retries"` // Retries per navigation on 429/403
}

// ProviderConfig holds one LLM provider's connection settings
type ProviderConfig struct {
	APIKey                string  `toml:"api_key"`
	BaseURL               string  `toml:"base_url"`
	Model                 string  `toml:"model"`
	SupportsFunctionCalls bool    `toml:"supports_function_calls"`
	Temperature           float32 `toml:"temperature"`
	Timeout               string  `toml:"timeout"` // Per-call timeout as duration string
}

// LLMConfig contains configuration for all scoring providers
type LLMConfig struct {
	OpenAI      ProviderConfig `toml:"openai"`
	DeepSeek    ProviderConfig `toml:"deepseek"`
	Google      ProviderConfig `toml:"google"`
	AzureOpenAI ProviderConfig `toml:"azure_openai"`
	Ollama      ProviderConfig `toml:"ollama"`
	Claude      ProviderConfig `toml:"claude"`
}

// EngineConfig contains task engine limits
type EngineConfig struct {
	MaxActivePerUser  int           `toml:"max_active_per_user"` // Concurrent running tasks per user
	JobAgentBudget    time.Duration `toml:"job_agent_budget"`    // Wall-clock budget per task type
	ScraperBudget     time.Duration `toml:"scraper_budget"`
	MatchingBudget    time.Duration `toml:"matching_budget"`
	MatcherBatchSize  int           `toml:"matcher_batch_size"`
	MatcherMaxBatches int           `toml:"matcher_max_batches"` // Concurrent batches in flight
}

// ResumesConfig contains configuration for resume seed file loading
type ResumesConfig struct {
	Dir string `toml:"dir"` // Directory containing resume files (TOML)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in scout.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Scraper: ScraperConfig{
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			BaseURL:          "https://www.seek.com.au",
			SourcePlatform:   "seek",
			Headless:         true,
			NavTimeout:       30 * time.Second,
			MinHumanDelay:    200 * time.Millisecond,
			MaxHumanDelay:    2 * time.Second,
			MaxPagesPerTitle: 20,
			MaxNavRetries:    3,
		},
		LLM: LLMConfig{
			OpenAI: ProviderConfig{
				BaseURL:               "https://api.openai.com/v1",
				Model:                 "gpt-4o-mini",
				SupportsFunctionCalls: true,
				Temperature:           0.2,
				Timeout:               "60s",
			},
			DeepSeek: ProviderConfig{
				BaseURL:               "https://api.deepseek.com/v1",
				Model:                 "deepseek-chat",
				SupportsFunctionCalls: false,
				Temperature:           0.2,
				Timeout:               "60s",
			},
			Google: ProviderConfig{
				Model:       "gemini-2.0-flash",
				Temperature: 0.2,
				Timeout:     "60s",
			},
			AzureOpenAI: ProviderConfig{
				Model:                 "gpt-4o-mini",
				SupportsFunctionCalls: true,
				Temperature:           0.2,
				Timeout:               "60s",
			},
			Ollama: ProviderConfig{
				BaseURL:     "http://localhost:11434/v1",
				Model:       "llama3.1",
				Temperature: 0.2,
				Timeout:     "120s",
			},
			Claude: ProviderConfig{
				Model:       "claude-haiku-3-5-20241022",
				Temperature: 0.2,
				Timeout:     "60s",
			},
		},
		Engine: EngineConfig{
			MaxActivePerUser:  2,
			JobAgentBudget:    30 * time.Minute,
			ScraperBudget:     15 * time.Minute,
			MatchingBudget:    20 * time.Minute,
			MatcherBatchSize:  5,
			MatcherMaxBatches: 2,
		},
		Resumes: ResumesConfig{
			Dir: "./resumes",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files. A .env file beside the
// process is loaded first so container deployments can inject keys without
// touching the TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Best effort; absence of .env is normal
	_ = godotenv.Load()

	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCOUT_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("SCOUT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCOUT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("SCOUT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("SCOUT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SCOUT_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if userAgent := os.Getenv("SCOUT_SCRAPER_USER_AGENT"); userAgent != "" {
		config.Scraper.UserAgent = userAgent
	}
	if baseURL := os.Getenv("SCOUT_SCRAPER_BASE_URL"); baseURL != "" {
		config.Scraper.BaseURL = baseURL
	}
	if headless := os.Getenv("SCOUT_SCRAPER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Scraper.Headless = h
		}
	}

	if dir := os.Getenv("SCOUT_RESUMES_DIR"); dir != "" {
		config.Resumes.Dir = dir
	}

	// Provider API keys come from the environment in production
	applyProviderKey(&config.LLM.OpenAI, "OPENAI_API_KEY")
	applyProviderKey(&config.LLM.DeepSeek, "DEEPSEEK_API_KEY")
	applyProviderKey(&config.LLM.Google, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	applyProviderKey(&config.LLM.AzureOpenAI, "AZURE_OPENAI_API_KEY")
	applyProviderKey(&config.LLM.Claude, "ANTHROPIC_API_KEY")
	if baseURL := os.Getenv("AZURE_OPENAI_ENDPOINT"); baseURL != "" {
		config.LLM.AzureOpenAI.BaseURL = baseURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.Ollama.BaseURL = baseURL
	}
}

func applyProviderKey(provider *ProviderConfig, envNames ...string) {
	for _, name := range envNames {
		if key := os.Getenv(name); key != "" {
			provider.APIKey = key
			return
		}
	}
}

// ApplyFlagOverrides applies command-line flag values over the loaded config.
// Zero values mean the flag was not set.
func (c *Config) ApplyFlagOverrides(port int, host, logLevel, badgerPath string) {
	if port > 0 {
		c.Server.Port = port
	}
	if host != "" {
		c.Server.Host = host
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if badgerPath != "" {
		c.Storage.Badger.Path = badgerPath
	}
}

// Provider returns the configuration for a provider key
func (c *LLMConfig) Provider(key string) (ProviderConfig, error) {
	switch key {
	case "openai":
		return c.OpenAI, nil
	case "deepseek":
		return c.DeepSeek, nil
	case "google":
		return c.Google, nil
	case "azure_openai":
		return c.AzureOpenAI, nil
	case "ollama":
		return c.Ollama, nil
	case "claude":
		return c.Claude, nil
	}
	return ProviderConfig{}, fmt.Errorf("unknown provider: %s", key)
}

// CallTimeout parses the provider's per-call timeout, defaulting to 60s
func (p *ProviderConfig) CallTimeout() time.Duration {
	if p.Timeout == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// ValidateRecurrenceConfig checks a task's recurrence schedule. Schedules are
// persisted but never executed; validation keeps bad cron expressions from
// entering the store.
func ValidateRecurrenceConfig(schedule string) error {
	if schedule == "" {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid recurrence schedule %q: %w", schedule, err)
	}
	return nil
}
