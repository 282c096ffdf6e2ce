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
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/coffer"
)

func journalCommand(c *cli) *cobra.Command {
	var after uint64
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print recorded treasury events, one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTreasury(cmd, func(_ context.Context, tr *coffer.Treasury) error {
				entries, err := tr.Journal(after, limit)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, entry := range entries {
					if err := enc.Encode(entry); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&after, "after", 0, "only show entries after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of entries, 0 for all")
	return cmd
}

func statusCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show treasury totals and parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.query(cmd, showStatus)
		},
	}
}
