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

func accountCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Ledger accounts held outside the treasury",
	}
	cmd.AddCommand(
		accountCreditCommand(c),
		accountBalanceCommand(c),
	)
	return cmd
}

type balanceView struct {
	Identity   dao.Identity `json:"identity"`
	Balance    uint64       `json:"balance"`
	BalanceEth string       `json:"balanceEth"`
}

func newBalanceView(tr *coffer.Treasury, id dao.Identity) balanceView {
	bal := tr.AccountBalance(id)
	return balanceView{
		Identity:   id,
		Balance:    bal,
		BalanceEth: formatEth(bal),
	}
}

func accountCreditCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "credit <identity> <amount>",
		Short: "Add funds to a ledger account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := dao.Identity(args[0])
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return c.withTreasury(cmd, func(ctx context.Context, tr *coffer.Treasury) error {
				if err := tr.Credit(ctx, id, amount); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newBalanceView(tr, id))
			})
		},
	}
}

func accountBalanceCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [identity]",
		Short: "Show a ledger account balance",
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
			return c.withTreasury(cmd, func(_ context.Context, tr *coffer.Treasury) error {
				return printJSON(cmd.OutOrStdout(), newBalanceView(tr, id))
			})
		},
	}
}
