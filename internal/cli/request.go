package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/prchanges/internal/cache"
	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/config"
	"github.com/dshills/prchanges/internal/gitctx"
	"github.com/dshills/prchanges/internal/github"
	"github.com/dshills/prchanges/internal/observability"
	"github.com/dshills/prchanges/internal/output"
	"github.com/dshills/prchanges/internal/selection"
)

// Shared request flags
var (
	flagLocal      bool
	flagDir        string
	flagOwner      string
	flagRepo       string
	flagFormat     string
	flagOut        string
	flagPaths      string
	flagExclude    string
	flagNoCache    bool
	flagFetch      bool
	flagMetricsOut string
)

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagLocal, "local", false, "Treat the argument as a local revision range (base..head)")
	cmd.Flags().StringVarP(&flagDir, "dir", "C", ".", "Repository directory for --local and repo detection")
	cmd.Flags().StringVar(&flagOwner, "owner", "", "GitHub repository owner (auto-detected if omitted)")
	cmd.Flags().StringVar(&flagRepo, "repo", "", "GitHub repository name (auto-detected if omitted)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the commit diff cache")
	cmd.Flags().BoolVar(&flagFetch, "fetch", false, "Fetch from the configured remote before reading a local range")
	cmd.Flags().StringVar(&flagMetricsOut, "metrics-out", "", "Write Prometheus metrics to this file when done")
}

func buildOverrides() map[string]any {
	m := make(map[string]any)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagPaths != "" {
		m["include"] = splitComma(flagPaths)
	}
	if flagExclude != "" {
		m["exclude"] = splitComma(flagExclude)
	}
	if flagOwner != "" {
		m["github.owner"] = flagOwner
	}
	if flagRepo != "" {
		m["github.repo"] = flagRepo
	}
	if flagNoCache {
		m["cache.enabled"] = false
	}
	if flagLogLevel != "" {
		m["logging.level"] = flagLogLevel
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// session carries what one request command needs: the effective config, a
// logger on stderr and a private metrics registry.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
}

func newSession(cmd *cobra.Command, overrides map[string]any) (*session, error) {
	cfg, err := config.Load(flagConfig, overrides)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, registry: registry, metrics: metrics}, nil
}

// flush writes the gathered metrics when --metrics-out is set.
func (s *session) flush() {
	if flagMetricsOut == "" {
		return
	}
	if err := observability.WriteTextfile(flagMetricsOut, s.registry); err != nil {
		s.logger.Warn("metrics not written", "path", flagMetricsOut, "err", err)
	}
}

// withCache wraps inner in the commit diff cache unless caching is off.
func (s *session) withCache(inner changes.Source, scope string) changes.Source {
	if !s.cfg.Cache.Enabled {
		return inner
	}
	c, err := cache.New(true, s.cfg.Cache.Dir, s.cfg.Cache.TTLSeconds)
	if err != nil {
		s.logger.Warn("cache unavailable", "err", err)
		return inner
	}
	return cache.NewSource(inner, c, scope, s.metrics).WithLogger(s.logger)
}

func (s *session) builder(source changes.Source) *changes.Builder {
	return changes.NewBuilder(source,
		changes.WithLogger(s.logger),
		changes.WithMetrics(s.metrics),
	)
}

// load builds the bundle for arg: a pull request number, or a revision range
// with --local. It returns the bundle and a title naming the request.
func (s *session) load(ctx context.Context, arg string) (*changes.Bundle, string, error) {
	if flagLocal {
		return s.loadRange(ctx, arg)
	}
	return s.loadPullRequest(ctx, arg)
}

func (s *session) loadRange(ctx context.Context, revRange string) (*changes.Bundle, string, error) {
	base, head, err := gitctx.ParseRevRange(revRange)
	if err != nil {
		return nil, "", err
	}
	repo, err := gitctx.Open(ctx, flagDir)
	if err != nil {
		return nil, "", err
	}
	meta := repo.Meta(ctx)
	s.logger.DebugContext(ctx, "repository", "root", meta.Root, "branch", meta.Branch, "head", meta.Head)
	headLabel := head
	if head == "HEAD" && meta.Branch != "" && meta.Branch != "HEAD" {
		headLabel = meta.Branch
	}
	if flagFetch {
		s.logger.InfoContext(ctx, "fetching", "remote", s.cfg.Remote)
		if err := repo.Fetch(ctx, s.cfg.Remote); err != nil {
			return nil, "", err
		}
	}

	source := s.withCache(repo, "git:"+repo.Dir())
	bundle, err := s.builder(source).Load(ctx, revRange, base, head)
	if err != nil {
		return nil, "", err
	}
	return bundle, "Range " + base + ".." + headLabel, nil
}

func (s *session) loadPullRequest(ctx context.Context, number string) (*changes.Bundle, string, error) {
	client, err := github.NewClient(s.cfg.GitHub.Token, s.cfg.GitHub.APIURL)
	if err != nil {
		return nil, "", err
	}

	owner, repo := s.cfg.GitHub.Owner, s.cfg.GitHub.Repo
	if owner == "" || repo == "" {
		detectedOwner, detectedRepo, err := github.DetectRepo(ctx, flagDir)
		if err != nil {
			return nil, "", fmt.Errorf("%w (use --owner and --repo to specify manually)", err)
		}
		if owner == "" {
			owner = detectedOwner
		}
		if repo == "" {
			repo = detectedRepo
		}
	}

	prs := github.NewPullRequestSource(client, owner, repo)
	pr, err := prs.PullRequest(ctx, number)
	if err != nil {
		return nil, "", err
	}
	s.logger.InfoContext(ctx, "pull request",
		"repo", owner+"/"+repo,
		"number", pr.Number,
		"base", pr.Base.Ref,
		"head", pr.Head.SHA,
		"commits", pr.Commits,
	)

	source := s.withCache(prs, "github:"+owner+"/"+repo)
	bundle, err := s.builder(source).Load(ctx, number, pr.Base.Ref, pr.Head.SHA)
	if err != nil {
		return nil, "", err
	}
	return bundle, fmt.Sprintf("%s/%s#%d %s", owner, repo, pr.Number, pr.Title), nil
}

// exitCodeFor maps a failure onto an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, changes.ErrCancelled), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, github.ErrAuth), errors.Is(err, github.ErrNoToken):
		return ExitAuthError
	case errors.Is(err, gitctx.ErrInvalidRange),
		errors.Is(err, selection.ErrOutOfRange),
		errors.Is(err, selection.ErrUnknownCommit),
		errors.Is(err, output.ErrUnsupportedFormat),
		errors.Is(err, config.ErrInvalidFormat),
		errors.Is(err, config.ErrInvalidLogLevel),
		errors.Is(err, config.ErrInvalidLogFormat),
		errors.Is(err, config.ErrInvalidTTL),
		errors.Is(err, config.ErrUnknownKey):
		return ExitUsageError
	default:
		return ExitRuntimeError
	}
}

// fail records err as the exit code and reports it. Cancellation is silent.
func fail(cmd *cobra.Command, err error) {
	exitCode = exitCodeFor(err)
	if exitCode == ExitCancelled {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}
