package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full runtime configuration of the assistant.
type Config struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	CalCom CalComConfig `yaml:"calcom"`
	Agent  AgentConfig  `yaml:"agent"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// OpenAIConfig configures the chat model.
type OpenAIConfig struct {
	APIKey      string  `yaml:"apiKey"`
	Model       string  `yaml:"model"`       // default "gpt-4"
	BaseURL     string  `yaml:"baseUrl"`     // optional OpenAI-compatible endpoint
	Temperature float64 `yaml:"temperature"` // default 0.1
}

// CalComConfig configures the Cal.com calendar backend.
type CalComConfig struct {
	APIKey             string `yaml:"apiKey"`
	BaseURL            string `yaml:"baseUrl"` // default "https://api.cal.com/v1"
	EventTypeID        int    `yaml:"eventTypeId"`
	EventLengthMinutes int    `yaml:"eventLengthMinutes"` // default 30
	TimeoutSeconds     int    `yaml:"timeoutSeconds"`     // default 30
	DefaultEmail       string `yaml:"defaultEmail"`       // calendar owner's address
}

// AgentConfig bounds the conversation loop.
type AgentConfig struct {
	MaxToolIterations int `yaml:"maxToolIterations"` // default 3
	MaxHistory        int `yaml:"maxHistory"`        // default 20 messages
}

// ServerConfig configures the chat web server.
type ServerConfig struct {
	Addr                string `yaml:"addr"`                // default ":8080"
	MetricsAddr         string `yaml:"metricsAddr"`         // default ":9090"
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`  // default 15
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"` // default 120, model turns are slow
	IdleTimeoutSeconds  int    `yaml:"idleTimeoutSeconds"`  // default 120
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // default "info"
	Format string `yaml:"format"` // "text" or "json", default "text"
}

// Default returns a Config populated with all default values.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model:       "gpt-4",
			Temperature: 0.1,
		},
		CalCom: CalComConfig{
			BaseURL:            "https://api.cal.com/v1",
			EventLengthMinutes: 30,
			TimeoutSeconds:     30,
		},
		Agent: AgentConfig{
			MaxToolIterations: 3,
			MaxHistory:        20,
		},
		Server: ServerConfig{
			Addr:                ":8080",
			MetricsAddr:         ":9090",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 120,
			IdleTimeoutSeconds:  120,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the effective configuration: defaults, then the optional
// YAML file, then a .env file when present, then process environment
// variables. The environment always wins so deployments can override
// anything a checked-in file says.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// .env is a development convenience; a missing file is not an error
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := os.Getenv("CAL_API_KEY"); v != "" {
		c.CalCom.APIKey = v
	}
	if v := os.Getenv("CAL_API_URL"); v != "" {
		c.CalCom.BaseURL = v
	}
	if v := os.Getenv("CAL_EVENT_TYPE_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CAL_EVENT_TYPE_ID %q: %w", v, err)
		}
		c.CalCom.EventTypeID = id
	}
	if v := os.Getenv("DEFAULT_USER_EMAIL"); v != "" {
		c.CalCom.DefaultEmail = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// ValidateCalendar checks the credentials needed to reach Cal.com.
// This is the minimum for the MCP tool server and the check command.
func (c *Config) ValidateCalendar() error {
	if c.CalCom.APIKey == "" {
		return fmt.Errorf("CAL_API_KEY is required")
	}
	if c.CalCom.EventTypeID <= 0 {
		return fmt.Errorf("CAL_EVENT_TYPE_ID is required")
	}
	return nil
}

// ValidateChat checks everything a conversation needs: the model
// credentials on top of the calendar credentials.
func (c *Config) ValidateChat() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return c.ValidateCalendar()
}

// EventLength returns the configured booking slot length.
func (c CalComConfig) EventLength() time.Duration {
	return time.Duration(c.EventLengthMinutes) * time.Minute
}

// RequestTimeout returns the per-request timeout for Cal.com calls.
func (c CalComConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReadTimeout returns the HTTP server read timeout.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP server write timeout.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the HTTP server idle timeout.
func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}
