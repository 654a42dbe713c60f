// Package pipeline drives a dataset run: resolve the latest release,
// archive each of its files, then record the archived locations in the
// registry.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nestauk/asf-mission-data-tool/pkg/ledger"
	"github.com/nestauk/asf-mission-data-tool/pkg/observability"
	"github.com/nestauk/asf-mission-data-tool/pkg/provenance"
	"github.com/nestauk/asf-mission-data-tool/pkg/publish"
	"github.com/nestauk/asf-mission-data-tool/pkg/registry"
)

// State is the terminal state of a run.
type State string

const (
	// StateDone means at least one file was archived and the registry was
	// updated.
	StateDone State = "DONE"
	// StateSkipped means nothing was archived. The registry is untouched.
	StateSkipped State = "SKIPPED"
)

// Publisher archives one URL.
type Publisher interface {
	Publish(ctx context.Context, dataset, url string) (string, error)
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	Record(ctx context.Context, r *ledger.Run) error
}

// URLFailure is a URL that was skipped and why.
type URLFailure struct {
	URL string
	Err error
}

// RunResult summarises one run.
type RunResult struct {
	RunID       string
	Dataset     string
	Filter      string
	ReleaseDate string
	State       State
	Locations   []string
	Failures    []URLFailure
}

// Runner executes dataset runs sequentially.
type Runner struct {
	registry  registry.Store
	publisher Publisher
	ledger    RunRecorder
	identity  provenance.IdentityProvider
	obs       *observability.Provider
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLedger records every finished run.
func WithLedger(l RunRecorder) Option {
	return func(r *Runner) { r.ledger = l }
}

// WithOperator sets the identity stored with ledger entries.
func WithOperator(id provenance.IdentityProvider) Option {
	return func(r *Runner) { r.identity = id }
}

// WithObservability wraps each run in a tracked operation.
func WithObservability(obs *observability.Provider) Option {
	return func(r *Runner) { r.obs = obs }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner.
func NewRunner(reg registry.Store, pub Publisher, opts ...Option) *Runner {
	r := &Runner{
		registry:  reg,
		publisher: pub,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run archives the latest release of dataset matching filter.
//
// Per-URL failures that only affect that URL are logged and collected in
// the result; the remaining URLs are still attempted. Resolution errors,
// registry errors and cancellation end the run with an error.
func (r *Runner) Run(ctx context.Context, dataset, filter string) (res *RunResult, err error) {
	ctx, done := r.obs.TrackOperation(ctx, "bronze.run", observability.RunOperation(dataset, filter)...)
	defer func() { done(err) }()

	started := r.now()
	logger := r.logger.With("dataset", dataset)
	if filter != "" {
		logger = logger.With("filter", filter)
	}

	reg, err := r.registry.Load(ctx)
	if err != nil {
		return nil, err
	}
	release, err := reg.Resolve(dataset, filter)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "resolved latest release", "release_date", release.ReleaseDate, "files", len(release.FileURL))

	res = &RunResult{
		RunID:       ledger.NewRunID(),
		Dataset:     dataset,
		Filter:      filter,
		ReleaseDate: release.ReleaseDate,
	}

	for _, u := range release.FileURL {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loc, err := r.publisher.Publish(ctx, dataset, u)
		if err != nil {
			if !publish.IsSkippable(err) {
				return nil, fmt.Errorf("publish %s: %w", u, err)
			}
			logger.WarnContext(ctx, "skipping file", "url", u, "error", err)
			res.Failures = append(res.Failures, URLFailure{URL: u, Err: err})
			continue
		}
		res.Locations = append(res.Locations, loc)
	}

	if len(res.Locations) == 0 {
		res.State = StateSkipped
		logger.InfoContext(ctx, "nothing archived, registry not updated")
		r.recordRun(ctx, res, started)
		return res, nil
	}

	if _, err := registry.RecordPublish(ctx, r.registry, dataset, filter, res.Locations); err != nil {
		return nil, err
	}
	res.State = StateDone
	logger.InfoContext(ctx, "registry updated", "locations", res.Locations)
	r.recordRun(ctx, res, started)
	return res, nil
}

// RunDefinition runs def once per filter, stopping at the first fatal
// error.
func (r *Runner) RunDefinition(ctx context.Context, def Definition) ([]*RunResult, error) {
	filters := def.Filters
	if len(filters) == 0 {
		filters = []string{""}
	}
	results := make([]*RunResult, 0, len(filters))
	for _, f := range filters {
		res, err := r.Run(ctx, def.Dataset, f)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) recordRun(ctx context.Context, res *RunResult, started time.Time) {
	if r.ledger == nil {
		return
	}
	var operator string
	if r.identity != nil {
		name, err := r.identity.Identity(ctx)
		if err != nil {
			r.logger.DebugContext(ctx, "operator unknown", "error", err)
		}
		operator = name
	}
	run := &ledger.Run{
		RunID:       res.RunID,
		Dataset:     res.Dataset,
		Filter:      res.Filter,
		ReleaseDate: res.ReleaseDate,
		State:       string(res.State),
		Locations:   res.Locations,
		Operator:    operator,
		StartedAt:   started,
		FinishedAt:  r.now(),
	}
	if err := r.ledger.Record(ctx, run); err != nil {
		r.logger.WarnContext(ctx, "failed to record run", "run_id", res.RunID, "error", err)
	}
}
