package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rybkr/gitlane/internal/config"
	"github.com/rybkr/gitlane/internal/gitcore"
	"github.com/rybkr/gitlane/internal/layout"
	"github.com/rybkr/gitlane/internal/logging"
	"github.com/rybkr/gitlane/internal/render"
	"github.com/rybkr/gitlane/internal/server"
)

const cacheSize = 16

// app carries configuration and shared collaborators across subcommands.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Load()}

	root := &cobra.Command{
		Use:           "gitlane",
		Short:         "Lay out git history as branch lanes",
		Long:          "gitlane turns a repository's commit history into a multi-lane timeline, with one lane per branch, and renders it as text, JSON, SVG or a live web view.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = logging.New(os.Stderr, logging.ParseLevel(a.cfg.LogLevel))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfg.Repo, "repo", "r", a.cfg.Repo, "path to git repository")
	pf.IntVarP(&a.cfg.Limit, "limit", "n", a.cfg.Limit, "maximum number of commits to read")
	pf.BoolVar(&a.cfg.All, "all", a.cfg.All, "include every ref, not just HEAD")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&a.cfg.GitBin, "git", a.cfg.GitBin, "git executable")

	root.AddCommand(a.serveCmd(), a.logCmd(), a.layoutCmd(), a.svgCmd())
	return root
}

func (a *app) serveCmd() *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout over HTTP and push updates over websockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, src, err := a.open()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.NewServer(repo, src, server.Options{
				Addr:       a.cfg.Addr(),
				PollPeriod: a.cfg.PollInterval,
				WebDir:     a.cfg.WebDir,
				Watch:      !noWatch,
			}, a.logger)

			fmt.Fprintf(cmd.ErrOrStderr(), "gitlane running at http://localhost%s\n", a.cfg.Addr())
			return srv.Start(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&a.cfg.Port, "port", "p", a.cfg.Port, "port to serve on")
	f.StringVar(&a.cfg.WebDir, "web", a.cfg.WebDir, "directory of static files served at /")
	f.DurationVar(&a.cfg.PollInterval, "poll", a.cfg.PollInterval, "poll interval (negative disables polling)")
	f.DurationVar(&a.cfg.CacheTTL, "cache-ttl", a.cfg.CacheTTL, "how long loaded history stays cached")
	f.BoolVar(&noWatch, "no-watch", false, "disable the filesystem watcher")
	return cmd
}

func (a *app) logCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the lane layout as a colored text log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.compute(cmd.Context())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), render.NewTerminal(cmd.OutOrStdout()).Render(res))
			return err
		},
	}
}

func (a *app) layoutCmd() *cobra.Command {
	var indent bool
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the computed layout as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.compute(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if indent {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}

func (a *app) svgCmd() *cobra.Command {
	var (
		output string
		opts   = render.DefaultSVGOptions()
	)
	cmd := &cobra.Command{
		Use:   "svg",
		Short: "Render the layout as an SVG document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.compute(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return render.SVG(cmd.OutOrStdout(), res, opts)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := render.SVG(f, res, opts); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().IntVar(&opts.Width, "width", opts.Width, "document width in pixels")
	cmd.Flags().IntVar(&opts.LaneHeight, "lane-height", opts.LaneHeight, "lane height in pixels")
	return cmd
}

func (a *app) openRepository() (*gitcore.Repository, error) {
	repo, err := gitcore.NewRepository(a.cfg.Repo)
	if err != nil {
		return nil, err
	}
	repo.SetGitBinary(a.cfg.GitBin)
	return repo, nil
}

func (a *app) logOptions() gitcore.LogOptions {
	return gitcore.LogOptions{Limit: a.cfg.Limit, All: a.cfg.All}
}

// open returns the repository and a cached commit source for long-running use.
func (a *app) open() (*gitcore.Repository, *gitcore.CachedSource, error) {
	repo, err := a.openRepository()
	if err != nil {
		return nil, nil, err
	}
	cache := gitcore.NewCommitCache(cacheSize, a.cfg.CacheTTL)
	return repo, gitcore.NewRepositorySource(repo, a.logOptions(), cache, a.logger), nil
}

// compute reads history once and lays it out. One-shot commands skip the
// cache since nothing would read it again.
func (a *app) compute(ctx context.Context) (layout.Result, error) {
	repo, err := a.openRepository()
	if err != nil {
		return layout.Result{}, err
	}

	start := time.Now()
	commits, err := repo.Log(ctx, a.logOptions())
	if err != nil {
		return layout.Result{}, err
	}
	res := layout.Compute(commits)
	a.logger.Debug("layout computed", "commits", res.CommitCount(), "branches", res.BranchCount(), "elapsed", time.Since(start))
	return res, nil
}
