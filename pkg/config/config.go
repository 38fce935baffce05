package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MaxPollWait is the longest wait the VK long-poll server accepts.
const MaxPollWait = 90 * time.Second

// PollMargin is added to the long-poll wait to obtain the read deadline of a poll call.
const PollMargin = 10 * time.Second

const (
	IntentBackendDialogflow = "dialogflow"
	IntentBackendAnthropic  = "anthropic"
	IntentBackendOpenAI     = "openai"
)

type Config struct {
	VK         VKConfig         `json:"vk"`
	Telegram   TelegramConfig   `json:"telegram"`
	Dialogflow DialogflowConfig `json:"dialogflow"`
	Intent     IntentConfig     `json:"intent"`
	Anthropic  ProviderConfig   `json:"anthropic"  envPrefix:"ANTHROPIC__"`
	OpenAI     ProviderConfig   `json:"openai"     envPrefix:"OPENAI__"`
	Gateway    GatewayConfig    `json:"gateway"`
	Log        LogConfig        `json:"log"`
}

type VKConfig struct {
	Enabled        bool          `env:"VK__ENABLED"         json:"enabled"`
	Token          string        `env:"VK__TOKEN"           json:"token"`
	GroupID        int64         `env:"VK__GROUP_ID"        json:"group_id"`
	APIURL         string        `env:"VK__API_URL"         json:"api_url"`
	APIVersion     string        `env:"VK__API_VERSION"     json:"api_version"`
	Wait           time.Duration `env:"VK__WAIT"            json:"wait"`
	Backoff        time.Duration `env:"VK__BACKOFF"         json:"backoff"`
	RequestTimeout time.Duration `env:"VK__REQUEST_TIMEOUT" json:"request_timeout"`
	AllowFrom      []string      `env:"VK__ALLOW_FROM"      json:"allow_from"`
}

// PollTimeout is the read deadline of a single poll call. It is always strictly
// greater than Wait so an empty long-poll answer is never mistaken for a timeout.
func (c VKConfig) PollTimeout() time.Duration {
	return c.Wait + PollMargin
}

type TelegramConfig struct {
	Enabled      bool     `env:"TELEGRAM__ENABLED"       json:"enabled"`
	Token        string   `env:"TELEGRAM__TOKEN"         json:"token"`
	ChatID       int64    `env:"TELEGRAM__CHAT_ID"       json:"chat_id"`
	SkipFallback bool     `env:"TELEGRAM__SKIP_FALLBACK" json:"skip_fallback"`
	AllowFrom    []string `env:"TELEGRAM__ALLOW_FROM"    json:"allow_from"`
}

type DialogflowConfig struct {
	ProjectID       string `env:"DIALOGFLOW__PROJECT_ID"       json:"project_id"`
	LanguageCode    string `env:"DIALOGFLOW__LANGUAGE_CODE"    json:"language_code"`
	CredentialsFile string `env:"DIALOGFLOW__CREDENTIALS_FILE" json:"credentials_file"`
}

type IntentConfig struct {
	Backend string        `env:"INTENT__BACKEND" json:"backend"`
	Model   string        `env:"INTENT__MODEL"   json:"model"`
	Timeout time.Duration `env:"INTENT__TIMEOUT" json:"timeout"`
	Prompt  string        `env:"INTENT__PROMPT"  json:"prompt,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `env:"API_KEY"  json:"api_key"`
	APIBase string `env:"API_BASE" json:"api_base,omitempty"`
}

type GatewayConfig struct {
	Host string `env:"GATEWAY__HOST" json:"host"`
	Port int    `env:"GATEWAY__PORT" json:"port"`
}

type LogConfig struct {
	Level  string `env:"LOG__LEVEL"  json:"level"`
	Format string `env:"LOG__FORMAT" json:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		VK: VKConfig{
			Enabled:        true,
			APIURL:         "https://api.vk.com/method",
			APIVersion:     "5.199",
			Wait:           25 * time.Second,
			Backoff:        5 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Telegram: TelegramConfig{
			Enabled: true,
		},
		Dialogflow: DialogflowConfig{
			LanguageCode: "ru",
		},
		Intent: IntentConfig{
			Backend: IntentBackendDialogflow,
			Timeout: 10 * time.Second,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18790,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads the configuration with ReadConfig and validates it.
func LoadConfig(envFile string) (*Config, error) {
	cfg, err := ReadConfig(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig overlays the process environment, and the optional dotenv file at
// envFile, onto DefaultConfig without validating the result. Variables already
// present in the environment win over the file. A missing file is not an error.
func ReadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields required by the enabled channels and the selected
// intent backend.
func (c *Config) Validate() error {
	var errs []error

	if c.VK.Enabled {
		if c.VK.Token == "" {
			errs = append(errs, errors.New("VK__TOKEN is required when VK is enabled"))
		}
		if c.VK.GroupID <= 0 {
			errs = append(errs, errors.New("VK__GROUP_ID must be a positive community id"))
		}
		if c.VK.Wait <= 0 || c.VK.Wait > MaxPollWait {
			errs = append(errs, fmt.Errorf("VK__WAIT must be within (0, %s]", MaxPollWait))
		}
		if c.VK.Backoff <= 0 {
			errs = append(errs, errors.New("VK__BACKOFF must be positive"))
		}
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM__TOKEN is required when Telegram is enabled"))
	}

	switch c.Intent.Backend {
	case IntentBackendDialogflow:
		if c.Dialogflow.ProjectID == "" {
			errs = append(errs, errors.New("DIALOGFLOW__PROJECT_ID is required for the dialogflow backend"))
		}
	case IntentBackendAnthropic:
		if c.Anthropic.APIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC__API_KEY is required for the anthropic backend"))
		}
	case IntentBackendOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI__API_KEY is required for the openai backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown INTENT__BACKEND %q", c.Intent.Backend))
	}

	if c.Intent.Timeout <= 0 {
		errs = append(errs, errors.New("INTENT__TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}
