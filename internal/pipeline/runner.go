package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mortalitytool/internal/model"
	"mortalitytool/internal/refdata"
	"mortalitytool/internal/source"
)

// Sources loads the raw table for a source spec. source.DirSources reads
// the latest snapshot from disk; tests supply tables directly.
type Sources interface {
	Load(ctx context.Context, spec source.Spec) (*source.Table, error)
}

// Options configures a Runner.
type Options struct {
	Join JoinOptions
}

// Request selects optional outputs of a run. Week 0 skips the weekly roster.
type Request struct {
	Week int
}

// Result is everything a run produces. Tables are fully built before Run
// returns; a failed run returns no Result.
type Result struct {
	RunID       uuid.UUID
	Joined      []model.JoinedDeathRecord
	Aggregates  Aggregates
	Week        int
	Weekly      []model.WeeklyExtractRow
	Diagnostics Diagnostics
}

// Runner executes the reconciliation pipeline.
type Runner struct {
	sources Sources
	ref     *refdata.Reference
	opts    Options
	logger  zerolog.Logger
}

func NewRunner(sources Sources, ref *refdata.Reference, opts Options, logger zerolog.Logger) *Runner {
	return &Runner{sources: sources, ref: ref, opts: opts, logger: logger}
}

// Run loads and normalizes the four sources concurrently, joins them, and
// builds the aggregate tables and (if requested) the weekly roster.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Week < 0 || req.Week > 53 {
		return nil, fmt.Errorf("week %d out of range 1..53", req.Week)
	}
	start := time.Now()

	var (
		deaths       []model.MortalityRecord
		attrition    []model.AttritionRecord
		sponsors     []model.SponsorRecord
		categories   []model.DeathCategoryRecord
		deathDiags   Diagnostics
		sponsorDiags Diagnostics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := r.sources.Load(gctx, source.Mortality)
		if err != nil {
			return err
		}
		deaths, deathDiags, err = NormalizeMortality(t, r.ref)
		return err
	})
	g.Go(func() error {
		t, err := r.sources.Load(gctx, source.Attrition)
		if err != nil {
			return err
		}
		attrition = FilterAttrition(t)
		return nil
	})
	g.Go(func() error {
		t, err := r.sources.Load(gctx, source.Sponsor)
		if err != nil {
			return err
		}
		sponsors, sponsorDiags = ResolveSponsors(t)
		return nil
	})
	g.Go(func() error {
		t, err := r.sources.Load(gctx, source.DeathCategory)
		if err != nil {
			return err
		}
		categories = ProjectDeathCategories(t)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info().
		Int("deaths", len(deaths)).
		Int("attrition_deaths", len(attrition)).
		Int("sponsors", len(sponsors)).
		Int("categories", len(categories)).
		Msg("sources normalized")

	joined, err := NewJoiner(r.opts.Join).Join(deaths, attrition, sponsors, categories)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       uuid.New(),
		Joined:      joined,
		Aggregates:  Aggregate(joined),
		Diagnostics: append(deathDiags, sponsorDiags...),
	}
	if req.Week > 0 {
		res.Week = req.Week
		res.Weekly = GenWeeklyDeath(joined, req.Week)
	}

	r.logger.Info().
		Str("run_id", res.RunID.String()).
		Int("joined", len(joined)).
		Int("weekly", len(res.Weekly)).
		Int("diagnostics", len(res.Diagnostics)).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")
	res.Diagnostics.Log(r.logger)

	return res, nil
}
