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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// mockPeriodSchedule has fixed-length periods starting at origin
type mockPeriodSchedule struct {
	origin time.Time
	length time.Duration
}

func (m mockPeriodSchedule) NextPeriodStartAt(t time.Time) time.Time {
	if t.Before(m.origin) {
		return m.origin
	}
	n := t.Sub(m.origin)/m.length + 1
	return m.origin.Add(n * m.length)
}

func newTestPeriodClock(start time.Time) (*PeriodClock, *ManualClock) {
	clock := NewManualClock(start)
	pc := NewPeriodClock(
		mockPeriodSchedule{origin: start, length: time.Hour},
		PeriodClockConfig{
			Clock:        clock,
			PollInterval: 5 * time.Millisecond,
		},
	)
	return pc, clock
}

func TestPeriodClockDefaults(t *testing.T) {
	pc := NewPeriodClock(mockPeriodSchedule{length: time.Hour}, PeriodClockConfig{})
	assert.Equal(t, time.Second, pc.config.ClockTolerance)
	assert.Equal(t, time.Minute, pc.config.PollInterval)
	assert.NotNil(t, pc.config.Logger)
	assert.IsType(t, SystemClock{}, pc.config.Clock)
}

func TestPeriodClockTimeUntilNextPeriod(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	pc, clock := newTestPeriodClock(start)
	assert.Equal(t, time.Hour, pc.TimeUntilNextPeriod())
	clock.Advance(15 * time.Minute)
	assert.Equal(t, 45*time.Minute, pc.TimeUntilNextPeriod())
	clock.Advance(45 * time.Minute)
	assert.Equal(t, time.Hour, pc.TimeUntilNextPeriod())
}

func TestPeriodClockTicks(t *testing.T) {
	defer goleak.VerifyNone(t)
	start := time.Unix(1_700_000_000, 0)
	pc, clock := newTestPeriodClock(start)
	ch := pc.Subscribe()
	pc.Start(context.Background())
	defer pc.Stop()

	var tick PeriodTick
	require.Eventually(t, func() bool {
		clock.Advance(time.Hour)
		select {
		case tick = <-ch:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, tick.Observed.Before(tick.PeriodStart))
	assert.Equal(t, time.Duration(0), tick.PeriodStart.Sub(start)%time.Hour)
	assert.True(t, tick.NextPeriodStart.After(tick.Observed))
}

func TestPeriodClockStopClosesSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	pc, _ := newTestPeriodClock(time.Unix(1_700_000_000, 0))
	ch := pc.Subscribe()
	pc.Start(context.Background())
	// Second start is a no-op
	pc.Start(context.Background())
	pc.Stop()
	pc.Stop()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestPeriodClockContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	pc, _ := newTestPeriodClock(time.Unix(1_700_000_000, 0))
	ctx, cancel := context.WithCancel(context.Background())
	pc.Start(ctx)
	cancel()
	pc.Stop()
}

func TestPeriodClockUnsubscribe(t *testing.T) {
	pc, _ := newTestPeriodClock(time.Unix(1_700_000_000, 0))
	ch := pc.Subscribe()
	other := pc.Subscribe()
	pc.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
	pc.mu.RLock()
	assert.Len(t, pc.subscribers, 1)
	pc.mu.RUnlock()
	pc.Unsubscribe(other)
}
