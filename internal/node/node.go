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

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/event"
	"github.com/blinklabs-io/coffer/internal/config"
	"github.com/blinklabs-io/coffer/ledger"
)

const defaultShutdownTimeout = 30 * time.Second

// followedEvents change the gauges the node serves
var followedEvents = []event.EventType{
	dao.EventMemberJoined,
	dao.EventPeriodFeePaid,
	dao.EventVoteCast,
	dao.EventFundsReserved,
	dao.EventFundsWithdrawn,
	dao.EventGovernanceImplemented,
}

type eventSubscription struct {
	eventType event.EventType
	id        event.EventSubscriberId
}

type Config struct {
	Logger   *slog.Logger
	Treasury *coffer.Treasury
	// PromRegistry receives the node metrics. Default: none
	PromRegistry prometheus.Registerer
	// Gatherer is served on /metrics. Default: prometheus.DefaultGatherer
	Gatherer      prometheus.Gatherer
	ListenAddress string
	// PollInterval bounds how long a period boundary can go unnoticed
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
}

// Node serves treasury metrics and follows dues period boundaries
type Node struct {
	config      Config
	logger      *slog.Logger
	listener    net.Listener
	server      *http.Server
	periodClock *ledger.PeriodClock
	ticks       <-chan ledger.PeriodTick
	eventSubs   []eventSubscription
	rollovers   prometheus.Counter
	events      *prometheus.CounterVec
	errCh       chan error
	wg          sync.WaitGroup
	mu          sync.Mutex
	started     bool
}

func New(cfg Config) (*Node, error) {
	if cfg.Treasury == nil {
		return nil, errors.New("no treasury configured")
	}
	if !cfg.Treasury.Deployed() {
		return nil, coffer.ErrNotDeployed
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	n := &Node{
		config: cfg,
		logger: cfg.Logger.With("component", "node"),
		errCh:  make(chan error, 1),
	}
	if cfg.PromRegistry != nil {
		factory := promauto.With(cfg.PromRegistry)
		n.rollovers = factory.NewCounter(
			prometheus.CounterOpts{
				Name: "coffer_node_period_rollovers_total",
				Help: "total number of dues period boundaries observed",
			},
		)
		n.events = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffer_node_events_total",
				Help: "total number of treasury events observed",
			},
			[]string{"type"},
		)
	}
	return n, nil
}

// Start binds the metrics listener and begins following period boundaries.
// It returns once the listener is ready.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return errors.New("node already started")
	}
	listener, err := net.Listen("tcp", n.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	n.listener = listener
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.config.Gatherer, promhttp.HandlerOpts{}))
	n.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	n.logger.Info(
		"serving prometheus metrics on " + listener.Addr().String(),
	)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.server.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			n.logger.Error("metrics listener failed", "error", err)
			n.errCh <- err
		}
	}()

	tr := n.config.Treasury
	n.periodClock = ledger.NewPeriodClock(
		tr.DAO(),
		ledger.PeriodClockConfig{
			Logger:       n.config.Logger,
			Clock:        tr.Clock(),
			PollInterval: n.config.PollInterval,
		},
	)
	n.ticks = n.periodClock.Subscribe()
	n.periodClock.Start(ctx)
	n.wg.Add(1)
	go n.followPeriods(n.ticks)
	n.logger.Info(
		"following dues periods",
		"next_period_start", tr.DAO().NextPeriodStartAt(tr.Now()),
		"time_until_next_period", n.periodClock.TimeUntilNextPeriod(),
		"dev_mode", tr.IsDevMode(),
	)
	bus := tr.EventBus()
	for _, evtType := range followedEvents {
		n.eventSubs = append(n.eventSubs, eventSubscription{
			eventType: evtType,
			id:        bus.SubscribeFunc(evtType, n.handleEvent),
		})
	}
	n.started = true
	return nil
}

func (n *Node) followPeriods(ticks <-chan ledger.PeriodTick) {
	defer n.wg.Done()
	d := n.config.Treasury.DAO()
	for tick := range ticks {
		d.RefreshMetrics()
		if n.rollovers != nil {
			n.rollovers.Inc()
		}
		n.logger.Info(
			"dues period started",
			"period_start", tick.PeriodStart,
			"next_period_start", tick.NextPeriodStart,
			"active_members", d.ActiveMemberCount(),
			"members", d.MemberCount(),
		)
	}
}

// handleEvent refreshes the treasury gauges after an operation that
// changed them
func (n *Node) handleEvent(evt event.Event) {
	n.config.Treasury.DAO().RefreshMetrics()
	if n.events != nil {
		n.events.WithLabelValues(string(evt.Type)).Inc()
	}
	switch data := evt.Data.(type) {
	case dao.FundsWithdrawnEvent:
		n.logger.Info(
			"treasury funds withdrawn",
			"proposal", data.ID,
			"recipient", data.Recipient,
			"amount", data.Amount,
		)
	case dao.GovernanceImplementedEvent:
		n.logger.Info(
			"governance proposal implemented",
			"proposal", data.ID,
			"outcome", data.Outcome.String(),
			"applied", data.Applied,
			"params_version", data.ParamsVersion,
		)
	default:
		n.logger.Debug("treasury event", "type", evt.Type)
	}
}

// Addr returns the bound metrics address, or nil before Start
func (n *Node) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// Err delivers a metrics listener failure
func (n *Node) Err() <-chan error {
	return n.errCh
}

// Stop shuts down the metrics server and period follower
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return nil
	}
	n.started = false
	ctx, cancel := context.WithTimeout(context.Background(), n.config.ShutdownTimeout)
	defer cancel()
	var err error
	if shutdownErr := n.server.Shutdown(ctx); shutdownErr != nil {
		err = fmt.Errorf("metrics server shutdown: %w", shutdownErr)
	}
	bus := n.config.Treasury.EventBus()
	for _, sub := range n.eventSubs {
		bus.Unsubscribe(sub.eventType, sub.id)
	}
	n.eventSubs = nil
	// Closes the tick channel, ending followPeriods
	n.periodClock.Unsubscribe(n.ticks)
	n.periodClock.Stop()
	n.wg.Wait()
	n.logger.Debug("node stopped")
	return err
}

// Run opens the treasury from cfg and serves until SIGINT or SIGTERM
func Run(cfg *config.Config, logger *slog.Logger) error {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	tr, err := Open(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	n, err := New(Config{
		Logger:          logger,
		Treasury:        tr,
		PromRegistry:    prometheus.DefaultRegisterer,
		Gatherer:        prometheus.DefaultGatherer,
		ListenAddress:   net.JoinHostPort(cfg.BindAddr, fmt.Sprint(cfg.MetricsPort)),
		ShutdownTimeout: shutdownTimeout,
	})
	if err != nil {
		return errors.Join(err, tr.Close())
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	if err := n.Start(signalCtx); err != nil {
		return errors.Join(err, tr.Close())
	}

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-n.Err():
		logger.Error("node error", "error", runErr, "component", "node")
	}
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err, "component", "node")
		runErr = errors.Join(runErr, err)
	}
	if err := tr.Close(); err != nil {
		logger.Error("treasury close error", "error", err, "component", "node")
		runErr = errors.Join(runErr, err)
	}
	if runErr == nil {
		logger.Info("shutdown complete", "component", "node")
	}
	return runErr
}
