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


package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const raceTestEventType = EventType("dao.vote_cast")

// waitTimeout fails the test if wg has not finished within d
func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("timed out after %s", d)
	}
}

func TestPublishWhileStopping(t *testing.T) {
	for range 500 {
		eb := NewEventBus(nil, nil)
		subId, ch := eb.Subscribe(raceTestEventType)
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for i := range 10 {
				eb.Publish(raceTestEventType, NewEvent(raceTestEventType, i))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(raceTestEventType, subId)
			eb.Stop()
		}()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		waitTimeout(t, &wg, 5*time.Second)
	}
}

func TestSubscribeFuncWhileStopping(t *testing.T) {
	for range 500 {
		eb := NewEventBus(nil, nil)
		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				eb.SubscribeFunc(raceTestEventType, func(Event) {})
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			eb.Stop()
		}()
		waitTimeout(t, &wg, 5*time.Second)
	}
}

func TestFullChannelDropsEvents(t *testing.T) {
	eb := NewEventBus(nil, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(raceTestEventType)
	for i := range EventQueueSize {
		eb.Publish(raceTestEventType, NewEvent(raceTestEventType, i))
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		eb.Publish(raceTestEventType, NewEvent(raceTestEventType, "dropped"))
	}()
	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	for i := range EventQueueSize {
		select {
		case evt := <-ch:
			assert.Equal(t, i, evt.Data)
		default:
			t.Fatalf("expected %d buffered events, got %d", EventQueueSize, i)
		}
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event: %v", evt.Data)
	default:
	}
}

func TestUnsubscribeWithFullChannel(t *testing.T) {
	for range 200 {
		eb := NewEventBus(nil, nil)
		subId, ch := eb.Subscribe(raceTestEventType)
		for range EventQueueSize {
			eb.Publish(raceTestEventType, NewEvent(raceTestEventType, "fill"))
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				eb.Publish(raceTestEventType, NewEvent(raceTestEventType, "more"))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(raceTestEventType, subId)
		}()
		go func() {
			for range ch {
			}
		}()
		waitTimeout(t, &wg, 5*time.Second)
		eb.Stop()
	}
}
