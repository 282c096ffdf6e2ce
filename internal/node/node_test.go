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

package node_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/internal/config"
	"github.com/blinklabs-io/coffer/internal/node"
)

const founder = "creator"

func testConfig() *config.Config {
	return &config.Config{
		DatabasePath:    "",
		QuorumBasis:     string(dao.QuorumBasisActive),
		RunMode:         config.RunModeDev,
		ShutdownTimeout: "5s",
		Genesis: config.GenesisConfig{
			Founder:      founder,
			Deposit:      dao.DefaultBuyInFee,
			Quorum:       dao.DefaultQuorum,
			BuyInFee:     dao.DefaultBuyInFee,
			VoteTime:     uint64(dao.DefaultVoteTime / time.Second),
			VotingReward: dao.DefaultVotingReward,
			PeriodFee:    dao.DefaultPeriodFee,
			PeriodLength: uint64(dao.DefaultPeriodLength / time.Second),
		},
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func openTreasury(t *testing.T, reg prometheus.Registerer) *coffer.Treasury {
	t.Helper()
	tr, err := node.Open(testConfig(), slogDiscard(), reg)
	require.NoError(t, err)
	return tr
}

func getMetrics(addr string) (string, error) {
	client := &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
		Timeout:   5 * time.Second,
	}
	resp, err := client.Get("http://" + addr + "/metrics")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

func fetchMetrics(t *testing.T, addr string) string {
	t.Helper()
	body, err := getMetrics(addr)
	require.NoError(t, err)
	return body
}

func TestInit(t *testing.T) {
	tr := openTreasury(t, nil)
	defer tr.Close()
	ctx := context.Background()

	cfg := testConfig()
	cfg.Genesis.Founder = ""
	require.Error(t, node.Init(ctx, tr, cfg))

	// The founder needs funds for the deposit
	require.ErrorIs(t, node.Init(ctx, tr, testConfig()), dao.ErrTransferFailed)
	require.NoError(t, tr.Credit(ctx, founder, 2*dao.DefaultBuyInFee))
	require.NoError(t, node.Init(ctx, tr, testConfig()))
	assert.True(t, tr.IsDevMode())
	assert.Equal(t, dao.DefaultParams(), tr.DAO().Params())
	require.ErrorIs(t, node.Init(ctx, tr, testConfig()), coffer.ErrAlreadyDeployed)
}

func TestNewRequiresDeployedTreasury(t *testing.T) {
	_, err := node.New(node.Config{})
	require.Error(t, err)
	tr := openTreasury(t, nil)
	defer tr.Close()
	_, err = node.New(node.Config{Treasury: tr})
	require.ErrorIs(t, err, coffer.ErrNotDeployed)
}

func TestNodeFollowsPeriods(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	reg := prometheus.NewRegistry()
	tr := openTreasury(t, reg)
	ctx := context.Background()
	require.NoError(t, tr.Credit(ctx, founder, dao.DefaultBuyInFee))
	require.NoError(t, node.Init(ctx, tr, testConfig()))

	n, err := node.New(node.Config{
		Treasury:      tr,
		PromRegistry:  reg,
		Gatherer:      reg,
		ListenAddress: "127.0.0.1:0",
		PollInterval:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Nil(t, n.Addr())
	require.NoError(t, n.Start(ctx))
	require.Error(t, n.Start(ctx))
	addr := n.Addr().String()

	body := fetchMetrics(t, addr)
	assert.Contains(t, body, "coffer_dao_members 1")
	assert.Contains(t, body, "coffer_dao_active_members 1")

	_, err = tr.AdvanceClock(dao.DefaultPeriodLength + time.Second)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		body, err := getMetrics(addr)
		return err == nil &&
			strings.Contains(body, "coffer_node_period_rollovers_total 1")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, fetchMetrics(t, addr), "coffer_dao_active_members 0")

	require.NoError(t, n.Stop())
	require.NoError(t, n.Stop())
	require.NoError(t, tr.Close())
}

func TestNodeFollowsEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	reg := prometheus.NewRegistry()
	tr := openTreasury(t, reg)
	ctx := context.Background()
	require.NoError(t, tr.Credit(ctx, founder, dao.DefaultBuyInFee))
	require.NoError(t, node.Init(ctx, tr, testConfig()))

	n, err := node.New(node.Config{
		Treasury:      tr,
		PromRegistry:  reg,
		Gatherer:      reg,
		ListenAddress: "127.0.0.1:0",
	})
	require.NoError(t, err)
	require.NoError(t, n.Start(ctx))
	addr := n.Addr().String()

	var id uint64
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		params := d.Params()
		params.Quorum = 100
		id, err = d.ProposeGovernanceUpdate(ctx, params, founder)
		return err
	}))
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.VoteGovProposal(ctx, id, dao.ChoiceYes, founder)
	}))
	require.Eventually(t, func() bool {
		body, err := getMetrics(addr)
		return err == nil &&
			strings.Contains(body, `coffer_node_events_total{type="dao.vote_cast"} 1`)
	}, 5*time.Second, 20*time.Millisecond)
	// Proposals are not followed
	assert.NotContains(t, fetchMetrics(t, addr), `type="dao.governance_proposed"`)

	require.NoError(t, n.Stop())
	// Events after Stop are no longer observed
	_, err = tr.AdvanceClock(dao.DefaultVoteTime)
	require.NoError(t, err)
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.ImplementGovProposal(ctx, id)
	}))
	assert.Equal(t, uint64(2), tr.DAO().ParamsVersion())
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "coffer_node_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				assert.NotEqual(t, string(dao.EventGovernanceImplemented), label.GetValue())
			}
		}
	}
	require.NoError(t, tr.Close())
}

func TestNodeStartListenError(t *testing.T) {
	tr := openTreasury(t, nil)
	defer tr.Close()
	ctx := context.Background()
	require.NoError(t, tr.Credit(ctx, founder, dao.DefaultBuyInFee))
	require.NoError(t, node.Init(ctx, tr, testConfig()))
	n, err := node.New(node.Config{
		Treasury:      tr,
		Gatherer:      prometheus.NewRegistry(),
		ListenAddress: "127.0.0.1:-1",
	})
	require.NoError(t, err)
	require.Error(t, n.Start(ctx))
	require.NoError(t, n.Stop())
}
