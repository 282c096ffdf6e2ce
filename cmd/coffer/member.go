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

func memberCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Membership and dues",
	}
	cmd.AddCommand(
		memberRequestCommand(c),
		memberApproveCommand(c),
		memberJoinCommand(c),
		memberFundCommand(c),
		memberPayFeeCommand(c),
		memberStatusCommand(c),
		memberListCommand(c),
	)
	return cmd
}

// showCaller prints the caller's identity view after a membership change
func showCaller(id dao.Identity) func(tr *coffer.Treasury) (any, error) {
	return func(tr *coffer.Treasury) (any, error) {
		return showIdentity(tr, id)
	}
}

func memberRequestCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "request <fee>",
		Short: "Ask to join, offering at least the buy-in fee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			fee, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.RequestToJoin(ctx, from, fee)
			}, showCaller(from))
		},
	}
}

func memberApproveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <identity>",
		Short: "Approve a pending join request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			id := dao.Identity(args[0])
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.ApproveJoinRequest(ctx, id, from)
			}, showCaller(id))
		},
	}
}

func memberJoinCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "join <amount>",
		Short: "Pay the buy-in and become a member once approved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.Join(ctx, from, amount)
			}, showCaller(from))
		},
	}
}

func memberFundCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <amount>",
		Short: "Contribute to the treasury in exchange for points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				return d.Fund(ctx, from, amount)
			}, showCaller(from))
		},
	}
}

func memberPayFeeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pay-fee [amount]",
		Short: "Pay dues for every missed period, defaulting to the amount due",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			var amount uint64
			if len(args) > 0 {
				if amount, err = parseAmount(args[0]); err != nil {
					return err
				}
			}
			return c.exec(cmd, func(ctx context.Context, d *dao.DAO) error {
				if len(args) == 0 {
					due, _, err := d.FeeDue(from)
					if err != nil {
						return err
					}
					amount = due
				}
				return d.PayPeriodFee(ctx, from, amount)
			}, showCaller(from))
		},
	}
}

func memberStatusCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status [identity]",
		Short: "Show membership, join request and balance of an identity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id dao.Identity
			if len(args) > 0 {
				id = dao.Identity(args[0])
			} else {
				var err error
				if id, err = c.caller(); err != nil {
					return err
				}
			}
			return c.query(cmd, func(tr *coffer.Treasury) (any, error) {
				return showIdentity(tr, id)
			})
		},
	}
}

type memberListView struct {
	Members      []memberView      `json:"members"`
	JoinRequests []joinRequestView `json:"joinRequests"`
}

func memberListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members and pending join requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.query(cmd, func(tr *coffer.Treasury) (any, error) {
				d := tr.DAO()
				st := d.Snapshot()
				view := memberListView{
					Members:      make([]memberView, 0, len(st.Members)),
					JoinRequests: make([]joinRequestView, 0, len(st.JoinRequests)),
				}
				for _, m := range st.Members {
					mv, err := newMemberView(d, m)
					if err != nil {
						return nil, err
					}
					view.Members = append(view.Members, mv)
				}
				for _, req := range st.JoinRequests {
					view.JoinRequests = append(view.JoinRequests, newJoinRequestView(req))
				}
				return view, nil
			})
		},
	}
}
