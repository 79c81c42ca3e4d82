package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".hackfang"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for hackfang settings.
const envPrefix = "HACKFANG"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// When the search finds no config file, defaults are used; an explicit
// configPath that cannot be read is an error.
func Load(configPath string) (*Config, error) {
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
	viperCfg.SetDefault("orchestrator.tick_interval_ms", DefaultTickIntervalMS)
	viperCfg.SetDefault("orchestrator.max_targets_per_tick", DefaultMaxTargetsPerTick)
	viperCfg.SetDefault("orchestrator.ignore_home", false)
	viperCfg.SetDefault("orchestrator.use_formulas", false)

	viperCfg.SetDefault("scoring.min_growth", DefaultMinGrowth)
	viperCfg.SetDefault("scoring.blacklist", DefaultBlacklist)

	viperCfg.SetDefault("snapshot.artifact_path", DefaultArtifactPath)
	viperCfg.SetDefault("snapshot.history_path", DefaultHistoryPath)
	viperCfg.SetDefault("snapshot.history_cap", DefaultHistoryCap)

	viperCfg.SetDefault("observability.metrics_addr", "")
	viperCfg.SetDefault("observability.log_json", false)
	viperCfg.SetDefault("observability.verbose", false)
}
