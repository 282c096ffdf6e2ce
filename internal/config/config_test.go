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
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/blinklabs-io/coffer/dao"
)

// isolate keeps a config file in the user's home directory from leaking
// into the test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "coffer.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return tmpFile
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	expected := &Config{
		DatabasePath:    ".coffer",
		BindAddr:        "0.0.0.0",
		MetricsPort:     12799,
		ShutdownTimeout: "30s",
		QuorumBasis:     "active",
		RunMode:         RunModeServe,
		Genesis: GenesisConfig{
			Deposit:      1_000_000_000_000_000_000,
			Quorum:       50,
			BuyInFee:     1_000_000_000_000_000_000,
			VoteTime:     604800,
			VotingReward: 10_000_000_000_000_000,
			PeriodFee:    100_000_000_000_000_000,
			PeriodLength: 2629800,
		},
	}
	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
	if GetConfig() != cfg {
		t.Errorf("expected GetConfig to return the loaded config")
	}
	if !reflect.DeepEqual(cfg.Genesis.Params(), dao.DefaultParams()) {
		t.Errorf("expected default genesis params, got: %s", cfg.Genesis.Params())
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	isolate(t)
	tmpFile := writeConfig(t, `
databasePath: "/var/lib/coffer"
bindAddr: "127.0.0.1"
metricsPort: 8088
shutdownTimeout: "5s"
quorumBasis: "all"
runMode: "dev"
tracing: true
tracingStdout: true
genesis:
  founder: "creator"
  deposit: 2000000000000000000
  quorum: 66
  buyInFee: 2000000000000000000
  voteTime: 3600
  votingReward: 0
  periodFee: 5
  periodLength: 86400
`)
	expected := &Config{
		DatabasePath:    "/var/lib/coffer",
		BindAddr:        "127.0.0.1",
		MetricsPort:     8088,
		ShutdownTimeout: "5s",
		QuorumBasis:     "all",
		RunMode:         RunModeDev,
		Tracing:         true,
		TracingStdout:   true,
		Genesis: GenesisConfig{
			Founder:      "creator",
			Deposit:      2_000_000_000_000_000_000,
			Quorum:       66,
			BuyInFee:     2_000_000_000_000_000_000,
			VoteTime:     3600,
			VotingReward: 0,
			PeriodFee:    5,
			PeriodLength: 86400,
		},
	}
	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
	params := actual.Genesis.Params()
	if params.VoteTime != time.Hour || params.PeriodLength != 24*time.Hour {
		t.Errorf("unexpected genesis durations: %s", params)
	}
}

func TestLoad_ConfigSection(t *testing.T) {
	isolate(t)
	tmpFile := writeConfig(t, `
config:
  metricsPort: 9100
  genesis:
    founder: "treasurer"
`)
	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.MetricsPort != 9100 {
		t.Errorf("expected metricsPort 9100, got: %d", cfg.MetricsPort)
	}
	if cfg.Genesis.Founder != "treasurer" {
		t.Errorf("expected founder treasurer, got: %s", cfg.Genesis.Founder)
	}
	// Unset values keep their defaults
	if cfg.DatabasePath != DefaultDatabasePath {
		t.Errorf("expected default databasePath, got: %s", cfg.DatabasePath)
	}
	if cfg.Genesis.Quorum != dao.DefaultQuorum {
		t.Errorf("expected default quorum, got: %d", cfg.Genesis.Quorum)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	tmpFile := writeConfig(t, `
metricsPort: 8088
runMode: "serve"
`)
	t.Setenv("COFFER_METRICS_PORT", "9999")
	t.Setenv("COFFER_RUN_MODE", "dev")
	t.Setenv("COFFER_GENESIS_FOUNDER", "env-founder")
	t.Setenv("COFFER_GENESIS_PERIOD_LENGTH", "60")
	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.MetricsPort != 9999 {
		t.Errorf("expected metricsPort 9999, got: %d", cfg.MetricsPort)
	}
	if !cfg.RunMode.IsDevMode() {
		t.Errorf("expected dev run mode, got: %s", cfg.RunMode)
	}
	if cfg.Genesis.Founder != "env-founder" {
		t.Errorf("expected founder from environment, got: %s", cfg.Genesis.Founder)
	}
	if cfg.Genesis.PeriodLength != 60 {
		t.Errorf("expected period length 60, got: %d", cfg.Genesis.PeriodLength)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"run mode", `runMode: "load"`},
		{"quorum basis", `quorumBasis: "some"`},
		{"shutdown timeout", `shutdownTimeout: "soon"`},
		{"yaml", `metricsPort: [`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			if _, err := LoadConfig(writeConfig(t, tc.content)); err == nil {
				t.Errorf("expected error for invalid %s", tc.name)
			}
		})
	}
	isolate(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing config file")
	}
}

func TestRunMode(t *testing.T) {
	if !RunMode("").Valid() || !RunModeServe.Valid() || !RunModeDev.Valid() {
		t.Errorf("expected known run modes to be valid")
	}
	if RunMode("load").Valid() {
		t.Errorf("expected unknown run mode to be invalid")
	}
	if RunModeServe.IsDevMode() {
		t.Errorf("serve is not dev mode")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Errorf("expected nil config from empty context")
	}
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	if FromContext(ctx) != cfg {
		t.Errorf("expected config from context")
	}
	timeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil || timeout != 30*time.Second {
		t.Errorf("unexpected shutdown timeout: %s, %v", timeout, err)
	}
}
