// Package config loads the reconciler's process configuration, the
// same way the teacher's health-check controller does
// (healthcheck/cmd/controller/main.go): envconfig over environment
// variables, with an optional .env file loaded first for local runs.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/vrischmann/envconfig"
)

// Config is the reconciler's process configuration, see spec.md §6.
type Config struct {
	LoggerLevel string `envconfig:"LOGGER_LEVEL"`

	NodeID string `envconfig:"NODE_ID"`

	EtcdEndpoints []string `envconfig:"ETCD_ENDPOINTS"`

	HcloudToken string `envconfig:"HCLOUD_TOKEN"`

	GrpcServerAddr string `envconfig:"GRPC_SERVER_ADDR"`
	GrpcServerPort uint16 `envconfig:"GRPC_SERVER_PORT"`
	GrpcDebug      bool   `envconfig:"GRPC_DEBUG"`

	ProbeAddr string `envconfig:"PROBE_ADDR"`

	StatsdAddr string `envconfig:"STATSD_ADDR"`

	ReconciliationDelayMs   int `envconfig:"RECONCILIATION_DELAY_MS"`
	ReconciliationTimeoutMs int `envconfig:"RECONCILIATION_TIMEOUT_MS"`
	FanOut                  int `envconfig:"RECONCILIATION_FAN_OUT"`
}

// Load reads an optional .env file (ignoring its absence) and then
// populates Config from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Init(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LogLevel maps the configured level name to a zerolog.Level, defaulting
// to Warn for anything unrecognized, same as
// healthcheck/cmd/controller/main.go's loggerLevelFromString.
func LogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	default:
		return zerolog.WarnLevel
	}
}
