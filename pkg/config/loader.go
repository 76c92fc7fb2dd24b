package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/astdiff/pkg/matcher"
)

// configName is the config file name without extension.
const configName = ".astdiff"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for astdiff settings.
const envPrefix = "ASTDIFF"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Diff defaults.
const (
	DefaultDiffWorkers     = 0
	DefaultDiffPairTimeout = "30s"
	DefaultDiffTieBreak    = TieBreakScore
	DefaultDiffMaxFileSize = "1MB"
	DefaultDiffSkipVendor  = true
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("diff.workers", DefaultDiffWorkers)
	viperCfg.SetDefault("diff.pair_timeout", DefaultDiffPairTimeout)
	viperCfg.SetDefault("diff.opaque_kinds", []string{})
	viperCfg.SetDefault("diff.tie_break", DefaultDiffTieBreak)
	viperCfg.SetDefault("diff.max_file_size", DefaultDiffMaxFileSize)
	viperCfg.SetDefault("diff.skip_vendor", DefaultDiffSkipVendor)

	viperCfg.SetDefault("matcher.min_height", matcher.DefaultMinHeight)
	viperCfg.SetDefault("matcher.container_threshold", matcher.DefaultContainerThreshold)
	viperCfg.SetDefault("matcher.label_threshold", matcher.DefaultLabelThreshold)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}
