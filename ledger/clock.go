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

package ledger

import (
	"sync"
	"time"
)

// SystemClock reports wall-clock time truncated to whole seconds
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Unix(time.Now().Unix(), 0)
}

// ManualClock is a Clock that only moves when told to. It backs the dev
// run mode and tests.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{
		now: time.Unix(start.Unix(), 0),
	}
}

func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward. Negative durations are ignored so the
// clock stays monotonic.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d.Truncate(time.Second))
	}
	return c.now
}

// Set moves the clock to t if t is not earlier than the current time
func (c *ManualClock) Set(t time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t = time.Unix(t.Unix(), 0)
	if t.After(c.now) {
		c.now = t
	}
	return c.now
}
