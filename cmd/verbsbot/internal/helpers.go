package internal

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/tinyland-inc/verbsbot/pkg/config"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

const Logo = "💬"

// EnvFile is the dotenv file read from the working directory.
const EnvFile = ".env"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(EnvFile)
}

// ReadConfig loads the configuration without validating it, for commands that
// only need part of it.
func ReadConfig() (*config.Config, error) {
	return config.ReadConfig(EnvFile)
}

// SetupLogging applies the log format and level. debug forces DEBUG.
func SetupLogging(cfg config.LogConfig, debug bool) error {
	if err := logger.Configure(cfg.Format, os.Stderr); err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)
	return nil
}

// NewDetector builds the intent backend selected by cfg.Intent.Backend. The
// returned close function releases backend connections.
func NewDetector(ctx context.Context, cfg *config.Config) (intent.Detector, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Intent.Backend {
	case config.IntentBackendAnthropic:
		d := intent.NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.APIBase, cfg.Intent.Model, cfg.Intent.Prompt)
		return intent.WithLogging(cfg.Intent.Backend, d), noop, nil

	case config.IntentBackendOpenAI:
		d := intent.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, cfg.Intent.Model, cfg.Intent.Prompt)
		return intent.WithLogging(cfg.Intent.Backend, d), noop, nil

	case config.IntentBackendDialogflow:
		d, err := intent.NewDialogflow(ctx, DialogflowConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		return intent.WithLogging(cfg.Intent.Backend, d), d.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown intent backend %q", cfg.Intent.Backend)
	}
}

func DialogflowConfig(cfg *config.Config) intent.DialogflowConfig {
	return intent.DialogflowConfig{
		ProjectID:       cfg.Dialogflow.ProjectID,
		LanguageCode:    cfg.Dialogflow.LanguageCode,
		CredentialsFile: cfg.Dialogflow.CredentialsFile,
	}
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
