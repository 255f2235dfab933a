package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

const (
	EngineSpleeter = "spleeter"
	EngineRemote   = "remote"
)

type Config struct {
	ListenAddr        string
	Engine            string
	SpleeterBin       string
	SpleeterParam     string
	WorkDir           string
	UpstreamBaseURL   string
	RequestTimeout    time.Duration
	SeparationTimeout time.Duration
	MaxBodyBytes      int64
	MaxConcurrent     int64
	LogLevel          string
}

type envConfig struct {
	ListenAddr               string `env:"LISTEN_ADDR" envDefault:":8080"`
	Engine                   string `env:"ENGINE" envDefault:"spleeter"`
	SpleeterBin              string `env:"SPLEETER_BIN" envDefault:"spleeter"`
	SpleeterParam            string `env:"SPLEETER_PARAM" envDefault:"spleeter:2stems-16kHz"`
	WorkDir                  string `env:"WORK_DIR"`
	UpstreamBaseURL          string `env:"UPSTREAM_BASE_URL"`
	RequestTimeoutSeconds    int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"300"`
	SeparationTimeoutSeconds int    `env:"SEPARATION_TIMEOUT_SECONDS" envDefault:"240"`
	MaxBodyBytes             int64  `env:"MAX_BODY_BYTES" envDefault:"134217728"`
	MaxConcurrent            int64  `env:"MAX_CONCURRENT_SEPARATIONS" envDefault:"2"`
	LogLevel                 string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:        strings.TrimSpace(raw.ListenAddr),
		Engine:            strings.ToLower(strings.TrimSpace(raw.Engine)),
		SpleeterBin:       strings.TrimSpace(raw.SpleeterBin),
		SpleeterParam:     strings.TrimSpace(raw.SpleeterParam),
		WorkDir:           strings.TrimSpace(raw.WorkDir),
		UpstreamBaseURL:   strings.TrimRight(strings.TrimSpace(raw.UpstreamBaseURL), "/"),
		RequestTimeout:    time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		SeparationTimeout: time.Duration(raw.SeparationTimeoutSeconds) * time.Second,
		MaxBodyBytes:      raw.MaxBodyBytes,
		MaxConcurrent:     raw.MaxConcurrent,
		LogLevel:          strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	switch c.Engine {
	case EngineSpleeter:
		if c.SpleeterBin == "" {
			return errors.New("SPLEETER_BIN must not be empty")
		}
		if c.SpleeterParam == "" {
			return errors.New("SPLEETER_PARAM must not be empty")
		}
	case EngineRemote:
		if c.UpstreamBaseURL == "" {
			return errors.New("UPSTREAM_BASE_URL must not be empty when ENGINE=remote")
		}
	default:
		return fmt.Errorf("ENGINE must be %q or %q, got %q", EngineSpleeter, EngineRemote, c.Engine)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.SeparationTimeout <= 0 {
		return errors.New("SEPARATION_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	if c.MaxConcurrent <= 0 {
		return errors.New("MAX_CONCURRENT_SEPARATIONS must be > 0")
	}
	return nil
}
