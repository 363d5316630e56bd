// Package cli implements cmsctl, an operator tool that works directly
// against the CMS database and payload store.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/incubrix/cms/internal/app"
	"github.com/incubrix/cms/internal/config"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Opener wires the service graph for a command invocation.
type Opener func(ctx context.Context) (*app.Services, error)

// DefaultOpener loads configuration from the environment and an optional
// .env file, then connects to the configured database and storage.
func DefaultOpener(ctx context.Context) (*app.Services, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}
	return app.Open(ctx, cfg)
}

type runtime struct {
	open    Opener
	svc     *app.Services
	out     io.Writer
	jsonOut bool
}

func (r *runtime) services(ctx context.Context) (*app.Services, error) {
	if r.svc != nil {
		return r.svc, nil
	}
	svc, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	r.svc = svc
	return svc, nil
}

// NewRootCommand builds the cmsctl command tree. Output goes to out.
func NewRootCommand(open Opener, out io.Writer) *cobra.Command {
	rt := &runtime{open: open, out: out}

	root := &cobra.Command{
		Use:   "cmsctl",
		Short: "Incubrix CMS operator tool",
		Long: `cmsctl inspects and maintains an Incubrix CMS installation using the
same configuration as the server.

  cmsctl ls                      List top-level nodes
  cmsctl feed --format json      Print the global feed
  cmsctl feed --slug podcast     Print a named feed
  cmsctl export -o tree.csv      Export every node as CSV
  cmsctl regenerate              Rebuild the global feed files`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&rt.jsonOut, "json", false, "Output as JSON")

	root.AddCommand(
		newLsCommand(rt),
		newStatsCommand(rt),
		newFeedCommand(rt),
		newFeedsCommand(rt),
		newExportCommand(rt),
		newRegenerateCommand(rt),
	)
	return root
}

// Execute runs cmsctl against the configured installation.
func Execute() error {
	root := NewRootCommand(DefaultOpener, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
