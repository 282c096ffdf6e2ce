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

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
)

func spendingCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "spending",
		Aliases: []string{"spend"},
		Short:   "Two-round spending proposals",
	}
	cmd.AddCommand(
		spendingProposeCommand(c),
		spendingVoteCommand(c, false),
		spendingVoteCommand(c, true),
		spendingReserveCommand(c),
		spendingWithdrawCommand(c),
		spendingShowCommand(c),
		spendingListCommand(c),
	)
	return cmd
}

func showSpendingID(id *uint64) func(tr *coffer.Treasury) (any, error) {
	return func(tr *coffer.Treasury) (any, error) {
		return showSpending(tr, *id)
	}
}

func spendingProposeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "propose <name> <amount> <recipient>",
		Short: "Propose paying amount to a member",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			recipient := dao.Identity(args[2])
			var id uint64
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				id, err = d.ProposeSpending(ctx, args[0], amount, recipient, from)
				return err
			}, showSpendingID(&id))
		},
	}
}

func spendingVoteCommand(c *cli, release bool) *cobra.Command {
	use, short := "vote <id> <yes|no>", "Vote in the initial round"
	if release {
		use, short = "vote-release <id> <yes|no>", "Vote in the release round"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
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
				if release {
					return d.VoteReleaseFundsSpendingProposal(ctx, id, choice, from)
				}
				return d.VoteSpendingProposal(ctx, id, choice, from)
			}, showSpendingID(&id))
		},
	}
}

func spendingReserveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <id>",
		Short: "Earmark the funds of a released proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.ReserveFunds(ctx, id, from)
			}, showSpendingID(&id))
		},
	}
}

func spendingWithdrawCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <id>",
		Short: "Pay out a released proposal to its recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.Withdraw(ctx, id, from)
			}, showSpendingID(&id))
		},
	}
}

func spendingShowCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a spending proposal and its ballots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return c.query(cmd, showSpendingID(&id))
		},
	}
}

func spendingListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List spending proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.query(cmd, func(tr *coffer.Treasury) (any, error) {
				count := tr.DAO().SpendingProposalCount()
				views := make([]any, 0, count)
				for id := range count {
					view, err := showSpending(tr, id)
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
