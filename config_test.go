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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/ledger"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	// Default should discard logs rather than be nil
	assert.NotNil(t, cfg.logger)
	assert.Empty(t, cfg.dataDir)
	assert.Nil(t, cfg.clock)
	assert.Nil(t, cfg.ledger)
	assert.False(t, cfg.devMode)
	assert.False(t, cfg.tracing)
}

func TestNewConfigOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	clock := ledger.NewManualClock(ledger.SystemClock{}.Now())
	l := ledger.NewMemoryLedger()
	cfg := NewConfig(
		WithDatabasePath("/tmp/coffer"),
		WithBlobCacheSize(1<<20),
		WithPrometheusRegistry(reg),
		WithClock(clock),
		WithLedger(l),
		WithQuorumBasis(dao.QuorumBasisAll),
		WithDevMode(true),
		WithTracing(true),
		WithTracingStdout(true),
	)
	assert.Equal(t, "/tmp/coffer", cfg.dataDir)
	assert.Equal(t, uint64(1<<20), cfg.blobCacheSize)
	assert.Equal(t, reg, cfg.promRegistry)
	assert.Equal(t, clock, cfg.clock)
	assert.Equal(t, l, cfg.ledger)
	assert.Equal(t, dao.QuorumBasisAll, cfg.quorumBasis)
	assert.True(t, cfg.devMode)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)

	// Later options win
	cfg = NewConfig(WithDevMode(true), WithDevMode(false))
	assert.False(t, cfg.devMode)
}
