package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repomine/repomine/internal/config"
	"github.com/repomine/repomine/internal/github"
	"github.com/repomine/repomine/internal/logging"
	"github.com/repomine/repomine/internal/metrics"
	"github.com/repomine/repomine/internal/mine"
	"github.com/repomine/repomine/internal/store"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run an extraction over the configured number range",
}

var mineIssuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Extract the configured issue fields",
	RunE:  runMineIssues,
}

var minePullsCmd = &cobra.Command{
	Use:   "prs",
	Short: "Extract the configured pull request and commit fields",
	RunE:  runMinePulls,
}

func init() {
	mineCmd.AddCommand(mineIssuesCmd)
	mineCmd.AddCommand(minePullsCmd)
	rootCmd.AddCommand(mineCmd)
}

// job holds everything an extraction run needs.
type job struct {
	cfg      *config.Config
	registry *mine.Registry
	session  *github.Session
	store    *store.JSONStore
	loop     *mine.Loop
}

// setupJob loads and validates configuration, authenticates the session,
// and assembles the loop. Any failure here is fatal before mining starts.
func setupJob(ctx context.Context) (*job, error) {
	registry := mine.NewRegistry()

	cfgStore, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Parse(cfgStore, registry.FieldSets())
	if err != nil {
		return nil, err
	}

	token, err := github.ReadTokenFile(cfg.AuthFile)
	if err != nil {
		return nil, err
	}

	session, err := github.NewSession(ctx, token, cfg.Repo, logging.NewLogger("github"))
	if err != nil {
		return nil, err
	}
	if err := session.Validate(ctx); err != nil {
		if github.IsUnauthorized(err) {
			return nil, fmt.Errorf("token in %s was rejected: %w", cfg.AuthFile, err)
		}
		return nil, err
	}

	jsonStore, err := store.NewJSONStore(cfg.OutputFile)
	if err != nil {
		return nil, err
	}

	if metricsAddr != "" {
		log := logging.NewLogger("metrics")
		metrics.Serve(metricsAddr, func(err error) {
			log.Warn().Err(err).Msg("metrics endpoint failed")
		})
	}

	return &job{
		cfg:      cfg,
		registry: registry,
		session:  session,
		store:    jsonStore,
		loop:     mine.NewLoop(registry, session, jsonStore, logging.NewLogger("mine")),
	}, nil
}

func runMineIssues(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.NewLogger("cli")

	j, err := setupJob(ctx)
	if err != nil {
		return err
	}

	coll := j.session.Issues(j.cfg.State)

	start, end, err := mine.ResolveRange(ctx, coll, j.cfg.Range[0], j.cfg.Range[1])
	if err != nil {
		return fmt.Errorf("resolve range: %w", err)
	}
	log.Info().
		Str("repo", j.cfg.Repo).
		Ints("range", j.cfg.Range[:]).
		Int("start_index", start).
		Int("end_index", end).
		Msg("beginning issue extraction")

	if err := j.loop.RunIssues(ctx, coll, start, end, j.cfg.IssueFields); err != nil {
		return fmt.Errorf("issue extraction: %w", err)
	}

	log.Info().Str("output", j.store.Path()).Msg("issue extraction complete")
	return nil
}

func runMinePulls(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.NewLogger("cli")

	j, err := setupJob(ctx)
	if err != nil {
		return err
	}

	coll := j.session.Pulls(j.cfg.State)

	start, end, err := mine.ResolveRange(ctx, coll, j.cfg.Range[0], j.cfg.Range[1])
	if err != nil {
		return fmt.Errorf("resolve range: %w", err)
	}
	log.Info().
		Str("repo", j.cfg.Repo).
		Ints("range", j.cfg.Range[:]).
		Int("start_index", start).
		Int("end_index", end).
		Msg("beginning pull request extraction")

	err = j.loop.RunPulls(ctx, coll, start, end, j.cfg.PRFields, j.cfg.CommitFields, j.cfg.State)
	if err != nil {
		return fmt.Errorf("pull request extraction: %w", err)
	}

	log.Info().Str("output", j.store.Path()).Msg("pull request extraction complete")
	return nil
}
