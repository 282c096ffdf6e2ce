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
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventQueueSize is the buffer of each Subscribe channel
const EventQueueSize = 20

type (
	EventType         string
	EventSubscriberId int
	EventHandlerFunc  func(Event)
)

// Event is a typed notification. Data is the payload struct of the
// publisher, e.g. one of the dao event types.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from the bus. Deliver runs on the publishing
// goroutine; a returned error or panic unregisters the subscriber. Close
// may be called more than once.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// SubscriberFunc adapts a function to Subscriber
type SubscriberFunc func(Event) error

func (f SubscriberFunc) Deliver(evt Event) error {
	return f(evt)
}

func (f SubscriberFunc) Close() {}

type subscription struct {
	id   EventSubscriberId
	sub  Subscriber
	kind string
}

// EventBus fans events out to subscribers in registration order. Delivery
// is synchronous: Publish returns once every subscriber has been handed the
// event.
type EventBus struct {
	mu      sync.RWMutex
	topics  map[EventType][]subscription
	lastId  EventSubscriberId
	stopped bool
	metrics *eventMetrics
	logger  *slog.Logger
}

func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		topics: make(map[EventType][]subscription),
		logger: logger.With("component", "event"),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

// mailbox is the buffered channel behind Subscribe. Deliver never blocks;
// events that do not fit are dropped.
type mailbox struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
	logger *slog.Logger
}

func newMailbox(size int, logger *slog.Logger) *mailbox {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &mailbox{
		ch:     make(chan Event, size),
		logger: logger,
	}
}

func (m *mailbox) Deliver(evt Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}
	select {
	case m.ch <- evt:
	default:
		m.logger.Warn("subscriber queue full, event dropped", "type", evt.Type)
	}
	return nil
}

func (m *mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}

func kindOf(sub Subscriber) string {
	switch sub.(type) {
	case *mailbox:
		return "channel"
	case SubscriberFunc:
		return "func"
	default:
		return "custom"
	}
}

// Subscribe returns a channel carrying events of the given type. The
// channel is closed by Unsubscribe or Stop.
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	box := newMailbox(EventQueueSize, e.logger)
	return e.RegisterSubscriber(eventType, box), box.ch
}

// SubscribeFunc runs handlerFunc on its own goroutine for each event of the
// given type. A panicking handler is logged and keeps receiving.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	id, ch := e.Subscribe(eventType)
	go func() {
		for evt := range ch {
			e.handle(handlerFunc, evt)
		}
	}()
	return id
}

func (e *EventBus) handle(handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panic", "type", evt.Type, "panic", r)
		}
	}()
	handlerFunc(evt)
}

// RegisterSubscriber attaches sub to eventType. On a stopped bus the
// subscriber is closed immediately and 0 is returned.
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		sub.Close()
		return 0
	}
	e.lastId++
	s := subscription{id: e.lastId, sub: sub, kind: kindOf(sub)}
	e.topics[eventType] = append(e.topics[eventType], s)
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), s.kind).Inc()
	}
	return s.id
}

// Unsubscribe removes and closes a subscriber. Unknown ids are ignored.
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	subs := e.topics[eventType]
	idx := slices.IndexFunc(subs, func(s subscription) bool { return s.id == subId })
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	removed := subs[idx]
	// Publish may hold the old slice, so never modify it in place
	subs = slices.Concat(subs[:idx], subs[idx+1:])
	if len(subs) == 0 {
		delete(e.topics, eventType)
	} else {
		e.topics[eventType] = subs
	}
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), removed.kind).Dec()
	}
	removed.sub.Close()
}

// Publish hands evt to every subscriber of eventType in registration order
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	subs := e.topics[eventType]
	e.mu.RUnlock()
	for _, s := range subs {
		if err := deliver(s.sub, evt); err != nil {
			e.Unsubscribe(eventType, s.id)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType), s.kind).Inc()
			}
			e.logger.Warn(
				"event delivery failed, subscriber removed",
				"type", eventType,
				"subscriber", s.id,
				"error", err,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// Stop closes every subscriber. Later registrations are closed right away
// and Publish has nobody to deliver to.
func (e *EventBus) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	topics := e.topics
	e.topics = make(map[EventType][]subscription)
	e.mu.Unlock()
	for _, subs := range topics {
		for _, s := range subs {
			s.sub.Close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
