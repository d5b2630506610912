// Package cli implements the poctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/PPA-BE/Orders-At-Peak/internal/app"
)

var version = "dev"

// ConfigLoader reads runtime configuration. Tests replace it.
type ConfigLoader func() (*app.Config, error)

// Root holds state shared by every subcommand.
type Root struct {
	loadConfig ConfigLoader
	stdout     io.Writer
	stderr     io.Writer
	stdin      io.Reader
	cfg        *app.Config
	logger     *slog.Logger
}

// Option customises the root command.
type Option func(*Root)

// WithConfigLoader overrides how configuration is read.
func WithConfigLoader(fn ConfigLoader) Option {
	return func(r *Root) { r.loadConfig = fn }
}

// WithIO redirects command input and output.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Root) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewRootCommand assembles the poctl command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	root := &Root{
		loadConfig: app.LoadConfig,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		stdin:      os.Stdin,
	}
	for _, opt := range opts {
		opt(root)
	}

	cmd := &cobra.Command{
		Use:   "poctl",
		Short: "Operator CLI for the purchase order service",
		Long: `poctl runs database migrations, renders PO workbooks and previews,
manages the spreadsheet template and inspects the background job queue.

Configuration is read from the environment and an optional .env file,
using the same keys as the HTTP server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(root.stdout)
	cmd.SetErr(root.stderr)
	cmd.SetIn(root.stdin)

	cmd.AddCommand(
		root.migrateCommand(),
		root.exportCommand(),
		root.previewCommand(),
		root.templateCommand(),
		root.jobsCommand(),
	)
	return cmd
}

// config loads configuration once per invocation.
func (r *Root) config() (*app.Config, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	r.cfg = cfg
	r.logger = slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return cfg, nil
}

func (r *Root) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// Execute runs poctl and exits non-zero on failure.
func Execute() {
	ctx := context.Background()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "poctl: %v\n", err)
		os.Exit(1)
	}
}
