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


package badger

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlockCacheSize = 64 << 20
	DefaultGcInterval     = 5 * time.Minute
)

type StoreOptionFunc func(*Store)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) StoreOptionFunc {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) StoreOptionFunc {
	return func(s *Store) {
		s.promRegistry = registry
	}
}

// WithDataDir keeps the journal under dataDir/journal
func WithDataDir(dataDir string) StoreOptionFunc {
	return func(s *Store) {
		s.dataDir = dataDir
	}
}

// WithBlockCacheSize sets the badger block cache size in bytes
func WithBlockCacheSize(size uint64) StoreOptionFunc {
	return func(s *Store) {
		s.cacheSize = size
	}
}

// WithGc enables or disables periodic value log GC
func WithGc(enabled bool) StoreOptionFunc {
	return func(s *Store) {
		s.gcEnabled = enabled
	}
}

// WithGcInterval sets how often value log GC runs
func WithGcInterval(interval time.Duration) StoreOptionFunc {
	return func(s *Store) {
		if interval > 0 {
			s.gcInterval = interval
		}
	}
}
