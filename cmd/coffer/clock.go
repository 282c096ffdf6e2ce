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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/coffer"
)

func clockCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Treasury time; it can only be moved in dev mode",
	}
	cmd.AddCommand(
		clockShowCommand(c),
		clockAdvanceCommand(c),
	)
	return cmd
}

type clockView struct {
	Now             time.Time  `json:"now"`
	DevMode         bool       `json:"devMode"`
	NextPeriodStart *time.Time `json:"nextPeriodStart,omitempty"`
}

func newClockView(tr *coffer.Treasury) clockView {
	now := tr.Now()
	view := clockView{
		Now:     now.UTC(),
		DevMode: tr.IsDevMode(),
	}
	if d := tr.DAO(); d != nil {
		nps := d.NextPeriodStartAt(now).UTC()
		view.NextPeriodStart = &nps
	}
	return view
}

func clockShowCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the treasury time and next period boundary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTreasury(cmd, func(_ context.Context, tr *coffer.Treasury) error {
				return printJSON(cmd.OutOrStdout(), newClockView(tr))
			})
		},
	}
}

func clockAdvanceCommand(c *cli) *cobra.Command {
	var periods uint64
	cmd := &cobra.Command{
		Use:   "advance [duration]",
		Short: "Move the dev mode clock forward",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d time.Duration
			if len(args) > 0 {
				var err error
				if d, err = time.ParseDuration(args[0]); err != nil {
					return fmt.Errorf("invalid duration: %w", err)
				}
			}
			if d <= 0 && periods == 0 {
				return fmt.Errorf("duration or --periods required")
			}
			return c.withTreasury(cmd, func(_ context.Context, tr *coffer.Treasury) error {
				if periods > 0 {
					dd := tr.DAO()
					if dd == nil {
						return coffer.ErrNotDeployed
					}
					d += time.Duration(periods) * dd.Params().PeriodLength
				}
				if _, err := tr.AdvanceClock(d); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newClockView(tr))
			})
		},
	}
	cmd.Flags().Uint64Var(&periods, "periods", 0, "also advance by this many dues periods")
	return cmd
}
