// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/canopy/database/plugin"
	"github.com/blinklabs-io/canopy/database/sops"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "canopy.config"

const DefaultShutdownTimeout = 30 * time.Second

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type tempConfig struct {
	Config   yaml.Node                 `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// LedgerConfig tunes the ledger gateway
type LedgerConfig struct {
	ConfirmTimeout   time.Duration `yaml:"confirmTimeout" split_words:"true"`
	PollInterval     time.Duration `yaml:"pollInterval" split_words:"true"`
	RetryMaxElapsed  time.Duration `yaml:"retryMaxElapsed" split_words:"true"`
	BreakerCooldown  time.Duration `yaml:"breakerCooldown" split_words:"true"`
	BreakerThreshold uint32        `yaml:"breakerThreshold" split_words:"true"`
}

// DevnetConfig configures the in-process credit token contract
type DevnetConfig struct {
	Owner         string        `yaml:"owner"`
	BlockInterval time.Duration `yaml:"blockInterval" split_words:"true"`
}

type ReconcileConfig struct {
	// Interval between passes while serving (0 = disabled)
	Interval   time.Duration `yaml:"interval"`
	StallAfter time.Duration `yaml:"stallAfter" split_words:"true"`
}

type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	Stdout  bool `yaml:"stdout"`
}

type Config struct {
	MetadataPlugin     string          `yaml:"metadataPlugin" envconfig:"CANOPY_DATABASE_METADATA_PLUGIN"`
	BlobPlugin         string          `yaml:"blobPlugin" envconfig:"CANOPY_DATABASE_BLOB_PLUGIN"`
	DatabasePath       string          `yaml:"databasePath" split_words:"true"`
	BindAddr           string          `yaml:"bindAddr" split_words:"true"`
	Certifier          string          `yaml:"certifier"`
	Devnet             DevnetConfig    `yaml:"devnet"`
	Ledger             LedgerConfig    `yaml:"ledger"`
	Reconcile          ReconcileConfig `yaml:"reconcile"`
	Tracing            TracingConfig   `yaml:"tracing"`
	ApiPort            uint            `yaml:"apiPort" split_words:"true"`
	MetricsPort        uint            `yaml:"metricsPort" split_words:"true"`
	BalanceConcurrency int             `yaml:"balanceConcurrency" split_words:"true"`
	ShutdownTimeout    time.Duration   `yaml:"shutdownTimeout" split_words:"true"`
}

// ApiListenAddress returns the reporting API address, or an empty string
// when the API is disabled
func (c *Config) ApiListenAddress() string {
	if c.ApiPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.BindAddr, c.ApiPort)
}

func defaultConfig() *Config {
	return &Config{
		BindAddr:       "0.0.0.0",
		DatabasePath:   ".canopy",
		ApiPort:        8080,
		MetricsPort:    12799,
		BlobPlugin:     DefaultBlobPlugin,
		MetadataPlugin: DefaultMetadataPlugin,
		Ledger: LedgerConfig{
			ConfirmTimeout:   30 * time.Second,
			PollInterval:     250 * time.Millisecond,
			RetryMaxElapsed:  10 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Devnet: DevnetConfig{
			BlockInterval: 2 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Interval:   time.Minute,
			StallAfter: 5 * time.Minute,
		},
		BalanceConcurrency: 8,
		ShutdownTimeout:    DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

// defaultConfigFile returns the first of ~/.canopy/canopy.yaml and
// /etc/canopy/canopy.yaml that exists
func defaultConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".canopy", "canopy.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/canopy/canopy.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// ReadFile reads a config file, decrypting it first when it is SOPS
// encrypted
func ReadFile(configFile string) ([]byte, error) {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if sops.IsEncrypted(buf) {
		buf, err = sops.Decrypt(buf)
		if err != nil {
			return nil, fmt.Errorf("error decrypting config file: %w", err)
		}
	}
	return buf, nil
}

func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = defaultConfigFile()
	}

	if configFile != "" {
		buf, err := ReadFile(configFile)
		if err != nil {
			return nil, err
		}

		// First unmarshal into temp config to handle plugin sections
		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if !tempCfg.Config.IsZero() {
			// Overlay config values onto existing defaults
			err = tempCfg.Config.Decode(globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}

		// Process plugin configurations
		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Blob != nil {
			pluginConfig["blob"] = tempCfg.Blob
		}
		if tempCfg.Metadata != nil {
			pluginConfig["metadata"] = tempCfg.Metadata
		}
		// The database section may select the plugin and carry its options
		if tempCfg.Database != nil {
			if tempCfg.Database.Blob != nil {
				mergePluginSection(
					pluginConfig,
					"blob",
					tempCfg.Database.Blob,
					&globalConfig.BlobPlugin,
				)
			}
			if tempCfg.Database.Metadata != nil {
				mergePluginSection(
					pluginConfig,
					"metadata",
					tempCfg.Database.Metadata,
					&globalConfig.MetadataPlugin,
				)
			}
		}
		if len(pluginConfig) > 0 {
			err = plugin.ProcessConfig(pluginConfig)
			if err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("canopy", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func (c *Config) validate() error {
	if c.Ledger.ConfirmTimeout <= 0 {
		return errors.New("ledger.confirmTimeout must be positive")
	}
	if c.Devnet.BlockInterval < 0 {
		return errors.New("devnet.blockInterval must not be negative")
	}
	if c.Reconcile.Interval < 0 {
		return errors.New("reconcile.interval must not be negative")
	}
	return nil
}

// mergePluginSection moves the options of a database.<kind> section into
// pluginConfig. A "plugin" key selects the plugin by name
func mergePluginSection(
	pluginConfig map[string]map[string]map[string]any,
	kind string,
	section map[string]any,
	pluginName *string,
) {
	if pluginVal, exists := section["plugin"]; exists {
		if name, ok := pluginVal.(string); ok {
			*pluginName = name
			delete(section, "plugin")
		}
	}
	sectionConfig := make(map[string]map[string]any)
	for k, v := range section {
		switch val := v.(type) {
		case map[string]any:
			sectionConfig[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			sectionConfig[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				kind,
				k,
				v,
			)
		}
	}
	if pluginConfig[kind] == nil {
		pluginConfig[kind] = sectionConfig
	} else {
		maps.Copy(pluginConfig[kind], sectionConfig)
	}
}

func GetConfig() *Config {
	return globalConfig
}
