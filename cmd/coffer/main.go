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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/internal/config"
	"github.com/blinklabs-io/coffer/internal/node"
	"github.com/blinklabs-io/coffer/internal/version"
)

const (
	programName = "coffer"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

// cli holds the global flags shared by every subcommand
type cli struct {
	debug      bool
	from       string
	configFile string
}

// commonRun configures logging for long-running commands
func (c *cli) commonRun() *slog.Logger {
	// Configure logger
	logLevel := slog.LevelInfo
	addSource := false
	if c.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

// logger returns a logger for one-shot commands. It writes to stderr so
// that command output stays machine readable.
func (c *cli) logger(cmd *cobra.Command) *slog.Logger {
	logLevel := slog.LevelWarn
	if c.debug {
		logLevel = slog.LevelDebug
	}
	return slog.New(
		slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: logLevel,
		}),
	)
}

// caller returns the identity given with --from
func (c *cli) caller() (dao.Identity, error) {
	if c.from == "" {
		return "", errors.New("caller identity required (--from)")
	}
	return dao.Identity(c.from), nil
}

func (c *cli) withTreasury(
	cmd *cobra.Command,
	fn func(ctx context.Context, tr *coffer.Treasury) error,
) (err error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	tr, err := node.Open(cfg, c.logger(cmd), nil)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tr.Close())
	}()
	return fn(cmd.Context(), tr)
}

// exec runs one state change and prints the view returned by show
func (c *cli) exec(
	cmd *cobra.Command,
	fn func(ctx context.Context, d *dao.DAO) error,
	show func(tr *coffer.Treasury) (any, error),
) error {
	return c.withTreasury(cmd, func(ctx context.Context, tr *coffer.Treasury) error {
		if err := tr.Exec(ctx, fn); err != nil {
			return err
		}
		if show == nil {
			return nil
		}
		view, err := show(tr)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), view)
	})
}

// query prints the view returned by show against a deployed treasury
func (c *cli) query(
	cmd *cobra.Command,
	show func(tr *coffer.Treasury) (any, error),
) error {
	return c.withTreasury(cmd, func(_ context.Context, tr *coffer.Treasury) error {
		if !tr.Deployed() {
			return coffer.ErrNotDeployed
		}
		view, err := show(tr)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), view)
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Member-governed treasury",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&c.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&c.configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().
		StringVarP(&c.from, "from", "f", "", "identity of the caller")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(c.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(
		initCommand(c),
		memberCommand(c),
		spendingCommand(c),
		govCommand(c),
		accountCommand(c),
		clockCommand(c),
		journalCommand(c),
		statusCommand(c),
		serveCommand(c),
		versionCommand(),
	)
	return rootCmd
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if code := dao.CodeOf(err); code != "" {
			fmt.Fprintf(os.Stderr, "Code: %s (%s)\n", code, dao.KindOf(err))
		}
		os.Exit(1)
	}
}
