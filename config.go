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

package coffer

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/ledger"
)

type Config struct {
	promRegistry  prometheus.Registerer
	logger        *slog.Logger
	clock         ledger.Clock
	ledger        Ledger
	dataDir       string
	quorumBasis   dao.QuorumBasis
	blobCacheSize uint64
	devMode       bool
	tracing       bool
	tracingStdout bool
}

// ConfigOptionFunc is a function that modifies a Config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new coffer config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobCacheSize specifies the block cache size in bytes for the journal store
func WithBlobCacheSize(size uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.blobCacheSize = size
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock specifies the time source. This defaults to the system clock, or
// a persisted manual clock in dev mode
func WithClock(clock ledger.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithLedger specifies the ledger that moves value between identities and
// the treasury pool. This defaults to a persisted in-memory ledger
func WithLedger(l Ledger) ConfigOptionFunc {
	return func(c *Config) {
		c.ledger = l
	}
}

// WithQuorumBasis specifies how quorum participation is counted. It only
// applies when deploying; a deployed treasury keeps the basis it was created with
func WithQuorumBasis(basis dao.QuorumBasis) ConfigOptionFunc {
	return func(c *Config) {
		c.quorumBasis = basis
	}
}

// WithDevMode enables the development mode, where time only moves through AdvanceClock
func WithDevMode(devMode bool) ConfigOptionFunc {
	return func(c *Config) {
		c.devMode = devMode
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector at localhost:4318 using the
// OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// shutdownTimeout bounds flushing of trace exporters on Close
const shutdownTimeout = 10 * time.Second
