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

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
)

func govCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gov",
		Aliases: []string{"governance"},
		Short:   "Governance proposals that replace the treasury parameters",
	}
	cmd.AddCommand(
		govProposeCommand(c),
		govVoteCommand(c),
		govImplementCommand(c),
		govShowCommand(c),
		govListCommand(c),
	)
	return cmd
}

func showGovernanceID(id *uint64) func(tr *coffer.Treasury) (any, error) {
	return func(tr *coffer.Treasury) (any, error) {
		return showGovernance(tr, *id)
	}
}

// paramFlags holds governance proposal flags. Amounts are strings so that
// units can be given.
type paramFlags struct {
	quorum       uint64
	buyInFee     string
	voteTime     time.Duration
	votingReward string
	periodFee    string
	periodLength time.Duration
}

// apply overrides the parameters whose flags were set
func (f *paramFlags) apply(cmd *cobra.Command, p dao.Params) (dao.Params, error) {
	flags := cmd.Flags()
	var err error
	if flags.Changed("quorum") {
		p.Quorum = f.quorum
	}
	if flags.Changed("buy-in-fee") {
		if p.BuyInFee, err = parseAmount(f.buyInFee); err != nil {
			return p, err
		}
	}
	if flags.Changed("vote-time") {
		p.VoteTime = f.voteTime
	}
	if flags.Changed("voting-reward") {
		if p.VotingReward, err = parseAmount(f.votingReward); err != nil {
			return p, err
		}
	}
	if flags.Changed("period-fee") {
		if p.PeriodFee, err = parseAmount(f.periodFee); err != nil {
			return p, err
		}
	}
	if flags.Changed("period-length") {
		p.PeriodLength = f.periodLength
	}
	return p, nil
}

func govProposeCommand(c *cli) *cobra.Command {
	f := &paramFlags{}
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose new parameters; unset flags keep their current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			var id uint64
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				params, err := f.apply(cmd, d.Params())
				if err != nil {
					return err
				}
				id, err = d.ProposeGovernanceUpdate(ctx, params, from)
				return err
			}, showGovernanceID(&id))
		},
	}
	cmd.Flags().Uint64Var(&f.quorum, "quorum", 0, "participation quorum in percent")
	cmd.Flags().StringVar(&f.buyInFee, "buy-in-fee", "", "fee to join")
	cmd.Flags().DurationVar(&f.voteTime, "vote-time", 0, "length of each ballot")
	cmd.Flags().StringVar(&f.votingReward, "voting-reward", "", "points credited per vote")
	cmd.Flags().StringVar(&f.periodFee, "period-fee", "", "dues per period")
	cmd.Flags().DurationVar(&f.periodLength, "period-length", 0, "length of a dues period")
	return cmd
}

func govVoteCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <id> <yes|no>",
		Short: "Vote on a governance proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			choice, err := dao.ParseChoice(args[1])
			if err != nil {
				return err
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.VoteGovProposal(ctx, id, choice, from)
			}, showGovernanceID(&id))
		},
	}
}

func govImplementCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "implement <id>",
		Short: "Close a governance proposal, applying it if it passed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.ImplementGovProposal(ctx, id)
			}, showGovernanceID(&id))
		},
	}
}

func govShowCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a governance proposal and its ballot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return c.query(cmd, showGovernanceID(&id))
		},
	}
}

func govListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List governance proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.query(cmd, func(tr *coffer.Treasury) (any, error) {
				count := tr.DAO().GovernanceProposalCount()
				views := make([]any, 0, count)
				for id := range count {
					view, err := showGovernance(tr, id)
					if err != nil {
						return nil, err
					}
					views = append(views, view)
				}
				return views, nil
			})
		},
	}
}
