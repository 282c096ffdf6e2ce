// Copyright 2026 Blink Labs Software
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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/coffer/dao"
)

type ctxKey string

const configContextKey ctxKey = "coffer.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultDatabasePath    = ".coffer"
	DefaultBindAddr        = "0.0.0.0"
	DefaultMetricsPort     = 12799
)

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

// RunMode represents the operational mode of the treasury
type RunMode string

const (
	RunModeServe RunMode = "serve" // Wall clock time (default)
	RunModeDev   RunMode = "dev"   // Manual clock persisted in the database
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeDev, "":
		return true
	default:
		return false
	}
}

// IsDevMode returns true if the mode uses the manual clock
func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

// tempConfig allows the settings to be nested under a top-level config key
type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

// GenesisConfig describes the treasury created by the init command.
// Durations are in seconds.
type GenesisConfig struct {
	Founder      string `yaml:"founder"`
	Deposit      uint64 `yaml:"deposit"`
	Quorum       uint64 `yaml:"quorum"`
	BuyInFee     uint64 `yaml:"buyInFee"     split_words:"true"`
	VoteTime     uint64 `yaml:"voteTime"     split_words:"true"`
	VotingReward uint64 `yaml:"votingReward" split_words:"true"`
	PeriodFee    uint64 `yaml:"periodFee"    split_words:"true"`
	PeriodLength uint64 `yaml:"periodLength" split_words:"true"`
}

// Params returns the DAO parameters described by the genesis config
func (g GenesisConfig) Params() dao.Params {
	return dao.Params{
		Quorum:       g.Quorum,
		BuyInFee:     g.BuyInFee,
		VoteTime:     time.Duration(g.VoteTime) * time.Second,
		VotingReward: g.VotingReward,
		PeriodFee:    g.PeriodFee,
		PeriodLength: time.Duration(g.PeriodLength) * time.Second,
	}
}

type Config struct {
	DatabasePath    string        `yaml:"databasePath"    split_words:"true"`
	BindAddr        string        `yaml:"bindAddr"        split_words:"true"`
	ShutdownTimeout string        `yaml:"shutdownTimeout" split_words:"true"`
	QuorumBasis     string        `yaml:"quorumBasis"     split_words:"true"`
	RunMode         RunMode       `yaml:"runMode"         split_words:"true"`
	MetricsPort     uint          `yaml:"metricsPort"     split_words:"true"`
	Tracing         bool          `yaml:"tracing"`
	TracingStdout   bool          `yaml:"tracingStdout"   split_words:"true"`
	Genesis         GenesisConfig `yaml:"genesis"`
}

// ShutdownTimeoutDuration parses ShutdownTimeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", c.ShutdownTimeout, err)
	}
	return timeout, nil
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:    DefaultDatabasePath,
		BindAddr:        DefaultBindAddr,
		MetricsPort:     DefaultMetricsPort,
		ShutdownTimeout: DefaultShutdownTimeout,
		QuorumBasis:     string(dao.QuorumBasisActive),
		RunMode:         RunModeServe,
		Genesis: GenesisConfig{
			Deposit:      dao.DefaultBuyInFee,
			Quorum:       dao.DefaultQuorum,
			BuyInFee:     dao.DefaultBuyInFee,
			VoteTime:     uint64(dao.DefaultVoteTime / time.Second),
			VotingReward: dao.DefaultVotingReward,
			PeriodFee:    dao.DefaultPeriodFee,
			PeriodLength: uint64(dao.DefaultPeriodLength / time.Second),
		},
	}
}

var globalConfig = defaultConfig()

// LoadConfig builds the config from defaults, the YAML config file and
// COFFER_* environment variables, in that order. Without an explicit file
// ~/.coffer/coffer.yaml and then /etc/coffer/coffer.yaml are tried.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".coffer", "coffer.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/coffer/coffer.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if !tempCfg.Config.IsZero() {
			// Overlay the config section onto the defaults
			if err := tempCfg.Config.Decode(cfg); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(buf, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	if err := envconfig.Process("coffer", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RunMode == "" {
		cfg.RunMode = RunModeServe
	}
	globalConfig = cfg
	return cfg, nil
}

// Validate checks the fields that have a fixed set of values
func (c *Config) Validate() error {
	if !c.RunMode.Valid() {
		return fmt.Errorf(
			"invalid runMode: %q (must be 'serve' or 'dev')",
			c.RunMode,
		)
	}
	if _, err := dao.ParseQuorumBasis(c.QuorumBasis); err != nil {
		return fmt.Errorf("invalid quorumBasis: %w", err)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func GetConfig() *Config {
	return globalConfig
}
