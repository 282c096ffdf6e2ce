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
	"log/slog"
	"sync"
	"time"
)

// PeriodTick represents a notification that a dues period boundary has been
// reached
type PeriodTick struct {
	// PeriodStart is the boundary that was crossed
	PeriodStart time.Time
	// NextPeriodStart is the following boundary
	NextPeriodStart time.Time
	// Observed is the clock time at which the boundary was noticed
	Observed time.Time
}

// PeriodSchedule maps a point in time to the next dues period boundary
type PeriodSchedule interface {
	// NextPeriodStartAt returns the first boundary strictly after t
	NextPeriodStartAt(t time.Time) time.Time
}

// PeriodClockConfig holds configuration for the PeriodClock
type PeriodClockConfig struct {
	Logger *slog.Logger
	// Clock is the time source. Default: SystemClock
	Clock Clock
	// ClockTolerance is the maximum lateness allowed when waking at a
	// boundary before a warning is logged. Default: 1s
	ClockTolerance time.Duration
	// PollInterval caps each sleep so that schedule changes made by
	// governance are picked up. Default: 1m
	PollInterval time.Duration
}

func DefaultPeriodClockConfig() PeriodClockConfig {
	return PeriodClockConfig{
		ClockTolerance: time.Second,
		PollInterval:   time.Minute,
	}
}

// PeriodClock ticks at every dues period boundary and notifies subscribers
type PeriodClock struct {
	schedule    PeriodSchedule
	config      PeriodClockConfig
	subscribers []chan PeriodTick
	mu          sync.RWMutex
	cancel      context.CancelFunc
	ctx         context.Context
	running     bool
	wg          sync.WaitGroup

	nowFunc func() time.Time
}

func NewPeriodClock(
	schedule PeriodSchedule,
	config PeriodClockConfig,
) *PeriodClock {
	defaults := DefaultPeriodClockConfig()
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}
	if config.ClockTolerance == 0 {
		config.ClockTolerance = defaults.ClockTolerance
	}
	if config.PollInterval == 0 {
		config.PollInterval = defaults.PollInterval
	}
	return &PeriodClock{
		schedule: schedule,
		config:   config,
		nowFunc:  config.Clock.Now,
	}
}

// Start begins the tick loop. It returns immediately.
func (pc *PeriodClock) Start(ctx context.Context) {
	pc.mu.Lock()
	if pc.running {
		pc.mu.Unlock()
		return
	}
	pc.running = true
	pc.ctx, pc.cancel = context.WithCancel(ctx)
	pc.mu.Unlock()

	pc.wg.Add(1)
	go pc.run()
}

// Stop halts the tick loop and closes all subscriber channels
func (pc *PeriodClock) Stop() {
	pc.mu.Lock()
	if !pc.running {
		pc.mu.Unlock()
		return
	}
	pc.running = false
	if pc.cancel != nil {
		pc.cancel()
	}
	pc.mu.Unlock()

	pc.wg.Wait()

	pc.mu.Lock()
	for _, ch := range pc.subscribers {
		close(ch)
	}
	pc.subscribers = nil
	pc.mu.Unlock()
}

// Subscribe returns a buffered channel that receives PeriodTick notifications
func (pc *PeriodClock) Subscribe() <-chan PeriodTick {
	ch := make(chan PeriodTick, 1)
	pc.mu.Lock()
	pc.subscribers = append(pc.subscribers, ch)
	pc.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel
func (pc *PeriodClock) Unsubscribe(ch <-chan PeriodTick) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for i, sub := range pc.subscribers {
		if sub == ch {
			close(sub)
			pc.subscribers = append(pc.subscribers[:i], pc.subscribers[i+1:]...)
			return
		}
	}
}

// TimeUntilNextPeriod returns the duration until the next boundary
func (pc *PeriodClock) TimeUntilNextPeriod() time.Duration {
	now := pc.nowFunc()
	return pc.schedule.NextPeriodStartAt(now).Sub(now)
}

func (pc *PeriodClock) run() {
	defer pc.wg.Done()

	logger := pc.config.Logger.With("component", "period_clock")

	for {
		select {
		case <-pc.ctx.Done():
			return
		default:
		}

		now := pc.nowFunc()
		target := pc.schedule.NextPeriodStartAt(now)
		sleep := min(target.Sub(now), pc.config.PollInterval)
		if sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-pc.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		actualNow := pc.nowFunc()
		if actualNow.Before(target) {
			continue
		}
		if drift := actualNow.Sub(target); drift > pc.config.ClockTolerance {
			logger.Warn(
				"period clock drift detected",
				"period_start", target,
				"drift", drift,
			)
		}
		pc.emitTick(PeriodTick{
			PeriodStart:     target,
			NextPeriodStart: pc.schedule.NextPeriodStartAt(actualNow),
			Observed:        actualNow,
		})
	}
}

// emitTick sends without blocking; a subscriber that has not drained its
// previous tick misses this one
func (pc *PeriodClock) emitTick(tick PeriodTick) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	for _, ch := range pc.subscribers {
		select {
		case ch <- tick:
		default:
		}
	}
}
