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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/internal/config"
)

// Open opens the treasury described by cfg. A nil promRegistry disables metrics.
func Open(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*coffer.Treasury, error) {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	return coffer.New(
		coffer.NewConfig(
			coffer.WithLogger(logger),
			coffer.WithDatabasePath(cfg.DatabasePath),
			coffer.WithPrometheusRegistry(promRegistry),
			coffer.WithQuorumBasis(dao.QuorumBasis(cfg.QuorumBasis)),
			coffer.WithDevMode(cfg.RunMode.IsDevMode()),
			coffer.WithTracing(cfg.Tracing),
			coffer.WithTracingStdout(cfg.TracingStdout),
		),
	)
}

// Init deploys the treasury from the genesis section of cfg
func Init(ctx context.Context, tr *coffer.Treasury, cfg *config.Config) error {
	if cfg.Genesis.Founder == "" {
		return errors.New("no genesis founder configured")
	}
	genesis := dao.Genesis{
		Founder: dao.Identity(cfg.Genesis.Founder),
		Deposit: cfg.Genesis.Deposit,
		Params:  cfg.Genesis.Params(),
	}
	if err := tr.Deploy(ctx, genesis); err != nil {
		return err
	}
	tr.Logger().Info(
		"initialized treasury",
		"founder", genesis.Founder,
		"deposit", genesis.Deposit,
		"quorum_basis", tr.QuorumBasis(),
	)
	return nil
}
