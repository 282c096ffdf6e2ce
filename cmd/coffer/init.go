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
	"github.com/blinklabs-io/coffer/internal/config"
	"github.com/blinklabs-io/coffer/internal/node"
)

func initCommand(c *cli) *cobra.Command {
	var founder, deposit string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Deploy the treasury from the genesis config",
		Long: "Deploy the treasury from the genesis config. The founder's ledger " +
			"account must hold the deposit; see 'account credit'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *config.FromContext(cmd.Context())
			if founder != "" {
				cfg.Genesis.Founder = founder
			} else if c.from != "" {
				cfg.Genesis.Founder = c.from
			}
			if deposit != "" {
				amount, err := parseAmount(deposit)
				if err != nil {
					return err
				}
				cfg.Genesis.Deposit = amount
			}
			return c.withTreasury(cmd, func(ctx context.Context, tr *coffer.Treasury) error {
				if err := node.Init(ctx, tr, &cfg); err != nil {
					return err
				}
				view, err := showStatus(tr)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	cmd.Flags().StringVar(&founder, "founder", "", "founder identity, overriding the genesis config and --from")
	cmd.Flags().StringVar(&deposit, "deposit", "", "founder deposit, overriding the genesis config")
	return cmd
}
