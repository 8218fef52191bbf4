// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the scanner's ambient application configuration:
// default tool paths, default logger level, and default scan parameters.
// This is distinct from the taxonomy overlay file (pkg/taxonomy), which
// remains the spec-mandated key=value format for one run's thresholds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/stratastor/logger"
	"gopkg.in/yaml.v3"
)

const configFileName = "diskscan.yaml"

var (
	instance   *Config
	once       sync.Once
	configPath string
)

// Config is the application-level configuration: tool discovery paths,
// logger settings, and Scan/Retest/Watch sections that are loaded and
// saved with the file. The scan and watch commands take their option
// defaults from their own flag definitions and do not read those sections.
type Config struct {
	Logger struct {
		LogLevel     string `mapstructure:"logLevel"`
		EnableSentry bool   `mapstructure:"enableSentry"`
		SentryDSN    string `mapstructure:"sentryDSN"`
	} `mapstructure:"logger"`

	Tools struct {
		SmartctlPath string `mapstructure:"smartctlPath"`
		NvmePath     string `mapstructure:"nvmePath"`
		UdevadmPath  string `mapstructure:"udevadmPath"`
		LsblkPath    string `mapstructure:"lsblkPath"`
	} `mapstructure:"tools"`

	Scan struct {
		BlockSize      int     `mapstructure:"blockSize"`
		SampleRatio    float64 `mapstructure:"sampleRatio"`
		WaitFactor     int     `mapstructure:"waitFactor"`
		LogThresholdMs int     `mapstructure:"logThresholdMs"`
	} `mapstructure:"scan"`

	Retest struct {
		MaxAttempts int `mapstructure:"maxAttempts"`
		IntervalMs  int `mapstructure:"intervalMs"`
	} `mapstructure:"retest"`

	Watch struct {
		Daemonize bool   `mapstructure:"daemonize"`
		PidFile   string `mapstructure:"pidFile"`
		HistorySize int  `mapstructure:"historySize"`
	} `mapstructure:"watch"`
}

// LoadConfig loads the configuration with precedence rules: explicit
// path > DISKSCAN_CONFIG env var > system default path.
func LoadConfig(configFilePath string) *Config {
	once.Do(func() {
		logCfg := logger.Config{LogLevel: "info", EnableSentry: false, SentryDSN: ""}
		l, err := logger.NewTag(logCfg, "config")
		if err != nil {
			fmt.Printf("failed to create logger: %v\n", err)
			os.Exit(1)
		}

		viper.Reset()
		viper.SetConfigType("yaml")

		systemConfigPath := filepath.Join(systemConfigDir(), configFileName)

		switch {
		case configFilePath != "":
			configPath = configFilePath
		case os.Getenv("DISKSCAN_CONFIG") != "":
			configPath = os.Getenv("DISKSCAN_CONFIG")
		default:
			configPath = systemConfigPath
		}

		l.Info("using config file", "path", configPath)

		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
		viper.SetConfigFile(configPath)

		viper.SetDefault("logger.logLevel", "info")
		viper.SetDefault("logger.enableSentry", false)
		viper.SetDefault("logger.sentryDSN", "")

		viper.SetDefault("tools.smartctlPath", "")
		viper.SetDefault("tools.nvmePath", "")
		viper.SetDefault("tools.udevadmPath", "")
		viper.SetDefault("tools.lsblkPath", "")

		viper.SetDefault("scan.blockSize", 4096)
		viper.SetDefault("scan.sampleRatio", 1.0)
		viper.SetDefault("scan.waitFactor", 0)
		viper.SetDefault("scan.logThresholdMs", 0)

		viper.SetDefault("retest.maxAttempts", 10)
		viper.SetDefault("retest.intervalMs", 100)

		viper.SetDefault("watch.daemonize", false)
		viper.SetDefault("watch.pidFile", "/var/run/diskscan-watch.pid")
		viper.SetDefault("watch.historySize", 20)

		viper.AutomaticEnv()
		viper.SetEnvPrefix("DISKSCAN")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		err = viper.ReadInConfig()
		if err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				l.Info("config file not found, creating default at system path", "path", systemConfigPath)
				if mkErr := os.MkdirAll(systemConfigDir(), 0755); mkErr != nil {
					l.Error("failed to create config directory", "err", mkErr)
				}
				var cfg Config
				if uErr := viper.Unmarshal(&cfg); uErr != nil {
					l.Error("failed to unmarshal default configuration", "err", uErr)
				}
				instance = &cfg
				configPath = systemConfigPath
				if sErr := SaveConfig(systemConfigPath); sErr != nil {
					l.Error("failed to save default configuration", "err", sErr)
				}
			} else {
				l.Error("error reading config file", "err", err)
				var cfg Config
				if uErr := viper.Unmarshal(&cfg); uErr != nil {
					l.Error("failed to unmarshal default configuration", "err", uErr)
				}
				instance = &cfg
			}
		} else {
			l.Info("config file loaded", "path", viper.ConfigFileUsed())
			configPath = viper.ConfigFileUsed()
			var cfg Config
			if uErr := viper.Unmarshal(&cfg); uErr != nil {
				l.Error("failed to parse configuration", "err", uErr)
			} else {
				instance = &cfg
			}
		}
	})

	return instance
}

// SaveConfig persists the current configuration to path, or to a
// privilege-appropriate default location when path is empty.
func SaveConfig(path string) error {
	if path == "" {
		if os.Geteuid() == 0 {
			if err := os.MkdirAll(systemConfigDir(), 0755); err != nil {
				return fmt.Errorf("failed to create system config directory: %w", err)
			}
			path = filepath.Join(systemConfigDir(), configFileName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			userDir := filepath.Join(home, ".diskscan")
			if err := os.MkdirAll(userDir, 0755); err != nil {
				return fmt.Errorf("failed to create user config directory: %w", err)
			}
			path = filepath.Join(userDir, configFileName)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := yaml.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	configPath = path
	return nil
}

// GetConfig returns the loaded configuration, loading defaults if no
// explicit LoadConfig call has happened yet.
func GetConfig() *Config {
	if instance == nil {
		return LoadConfig("")
	}
	return instance
}

// GetLoadedConfigPath returns the path the active configuration was
// loaded from.
func GetLoadedConfigPath() string {
	return configPath
}

// NewLoggerConfig builds a logger.Config from the resolved Config.
func NewLoggerConfig(cfg *Config) logger.Config {
	if cfg == nil {
		return logger.Config{LogLevel: "info", EnableSentry: false, SentryDSN: ""}
	}
	return logger.Config{
		LogLevel:     cfg.Logger.LogLevel,
		EnableSentry: cfg.Logger.EnableSentry,
		SentryDSN:    cfg.Logger.SentryDSN,
	}
}

func systemConfigDir() string {
	return "/etc/diskscan"
}
