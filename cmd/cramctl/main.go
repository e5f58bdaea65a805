// Command cramctl is the operator tool for cramdeck: schema migrations, deck
// import and export, account maintenance and a terminal study client.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/cramdeck/internal/config"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/platform/postgres"
	"github.com/phrazzld/cramdeck/internal/redact"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "cramctl:", redact.Error(err))
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configDir string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "cramctl",
		Short:         "Operate a cramdeck installation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "directory holding config.yaml and .env (default: working directory)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override server.log_level for this run")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newUsersCmd(opts))
	root.AddCommand(newStudyCmd(opts))
	return root
}

// env is what a subcommand needs from the installation.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
}

// openEnv loads configuration and connects to Postgres. Logs go to stderr
// so command output on stdout stays clean.
func openEnv(ctx context.Context, opts *rootOptions, logOut io.Writer) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configDir != "" {
		cfg, err = config.LoadFrom(opts.configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Server.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	l := logger.Setup(logger.LoggerConfig{Level: level, Output: logOut})

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: l, db: db}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Error("error closing database connection", "error", err)
	}
}
