package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Models    ModelsConfig    `yaml:"models"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	NATS      NATSConfig      `yaml:"nats"`
	Store     StoreConfig     `yaml:"store"`
	Web       WebConfig       `yaml:"web"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Vault     VaultConfig     `yaml:"vault"`
}

// ProvidersConfig holds per-provider credentials. A key may be a literal
// value or a "secret:name" reference resolved through the vault at startup.
type ProvidersConfig struct {
	Anthropic ProviderCredentials `yaml:"anthropic"`
	OpenAI    ProviderCredentials `yaml:"openai"`
	Groq      ProviderCredentials `yaml:"groq"`
	XAI       ProviderCredentials `yaml:"xai"`
}

type ProviderCredentials struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type ModelsConfig struct {
	CatalogPath string `yaml:"catalog_path"`
}

type PipelineConfig struct {
	// Mode is "auto" (advance immediately) or "manual" (pause after each
	// sequential stage until resumed).
	Mode            string        `yaml:"mode"`
	CreatorFanOut   int           `yaml:"creator_fan_out"`
	StepTimeout     time.Duration `yaml:"step_timeout"`
	ResearchTimeout time.Duration `yaml:"research_timeout"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	MaxTokens       int           `yaml:"max_tokens"`
	Temperature     float64       `yaml:"temperature"`
	// Seed pins the router's tie-break source. Zero means a fresh seed per run.
	Seed int64 `yaml:"seed"`
	// RetainTerminal is how long a finished run stays in memory before the
	// reaper evicts it. Zero disables eviction.
	RetainTerminal time.Duration `yaml:"retain_terminal"`
}

type NATSConfig struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Auth    string `yaml:"auth"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type VaultConfig struct {
	Passphrase string `yaml:"passphrase"`
}

func defaults() Config {
	return Config{
		Pipeline: PipelineConfig{
			Mode:            "auto",
			CreatorFanOut:   3,
			StepTimeout:     75 * time.Second,
			ResearchTimeout: 130 * time.Second,
			RunTimeout:      15 * time.Minute,
			MaxTokens:       4096,
			Temperature:     0.7,
			RetainTerminal:  15 * time.Minute,
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: "data/nats",
		},
		Store: StoreConfig{
			Path: "data/syntra.db",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("SYNTRA_CONFIG")
	if path == "" {
		path = "config/syntra.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Providers.Groq.APIKey = v
	}
	if v := os.Getenv("XAI_API_KEY"); v != "" {
		cfg.Providers.XAI.APIKey = v
	}
	if v := os.Getenv("SYNTRA_MODELS_CATALOG"); v != "" {
		cfg.Models.CatalogPath = v
	}
	if v := os.Getenv("SYNTRA_WEB_AUTH"); v != "" {
		cfg.Web.Auth = v
	}
	if v := os.Getenv("SYNTRA_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("SYNTRA_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("SYNTRA_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SYNTRA_PIPELINE_MODE"); v != "" {
		cfg.Pipeline.Mode = v
	}
	if v := os.Getenv("SYNTRA_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("SYNTRA_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("SYNTRA_VAULT_PASSPHRASE"); v != "" {
		cfg.Vault.Passphrase = v
	}
}
