package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/nestauk/asf-mission-data-tool/pkg/fetch"
	"github.com/nestauk/asf-mission-data-tool/pkg/ledger"
	"github.com/nestauk/asf-mission-data-tool/pkg/observability"
	"github.com/nestauk/asf-mission-data-tool/pkg/pipeline"
	"github.com/nestauk/asf-mission-data-tool/pkg/prompt"
	"github.com/nestauk/asf-mission-data-tool/pkg/provenance"
	"github.com/nestauk/asf-mission-data-tool/pkg/publish"
)

func newGetCmd(a *app) *cobra.Command {
	var (
		filters []string
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "get <dataset>...",
		Short: "Archive the latest release of one or more datasets",
		Long: `get resolves the latest release of each dataset, archives its files in the
bronze layer and records the archived locations in the registry.

Catalogued datasets run once per configured filter; public_attitudes_tracking_survey,
for example, runs for its Summer, Spring and Winter waves. --filter replaces the
catalogued filters.`,
		Example: `  asf-bronze get heat_pump_deployment_quarterly_statistics
  asf-bronze get public_attitudes_tracking_survey --filter Summer --yes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, cleanup, err := a.newRunner(ctx, yes)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, name := range args {
				def := pipeline.Lookup(name)
				if len(filters) > 0 {
					def.Filters = filters
				}
				results, err := runner.RunDefinition(ctx, def)
				for _, res := range results {
					printResult(cmd.OutOrStdout(), res)
				}
				if err != nil {
					a.logger.ErrorContext(ctx, "run failed", "dataset", name, "error", err)
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "only consider releases with a file URL containing this token (repeatable)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "overwrite existing files without asking")
	return cmd
}

// newRunner assembles the run pipeline from the loaded configuration. The
// returned cleanup flushes telemetry and closes the ledger.
func (a *app) newRunner(ctx context.Context, yes bool) (*pipeline.Runner, func(), error) {
	cfg := a.cfg
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := a.newStore(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, cleanup, fmt.Errorf("open object store: %w", err)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.TelemetryEnabled
	if cfg.OTLPEndpoint != "" {
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	}
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() { _ = obs.Shutdown(context.Background()) })

	var confirm prompt.Confirmer = &prompt.Terminal{In: a.stdin, Out: a.stdout}
	if yes {
		confirm = prompt.Fixed(true)
	}

	fetcher := fetch.New(a.httpClient, fetch.Options{
		Timeout:   cfg.FetchTimeout,
		Rate:      rate.Limit(cfg.FetchRate),
		UserAgent: cfg.UserAgent,
	})
	recorder := provenance.NewRecorder(store, confirm, a.identity,
		provenance.WithLayer(cfg.Layer),
		provenance.WithLogger(a.logger.With("component", "provenance")),
	)
	publisher := publish.New(fetcher, store, confirm,
		publish.WithProvenance(recorder),
		publish.WithObservability(obs),
		publish.WithLayer(cfg.Layer),
		publish.WithLogger(a.logger.With("component", "publish")),
	)

	opts := []pipeline.Option{
		pipeline.WithOperator(a.identity),
		pipeline.WithObservability(obs),
		pipeline.WithLogger(a.logger.With("component", "pipeline")),
	}
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			a.logger.WarnContext(ctx, "run ledger unavailable", "path", cfg.LedgerPath, "error", err)
		} else {
			closers = append(closers, func() { _ = l.Close() })
			opts = append(opts, pipeline.WithLedger(l))
		}
	}
	return pipeline.NewRunner(a.registryStore(), publisher, opts...), cleanup, nil
}

func printResult(w io.Writer, res *pipeline.RunResult) {
	name := res.Dataset
	if res.Filter != "" {
		name += " [" + res.Filter + "]"
	}
	_, _ = fmt.Fprintf(w, "%s %s release %s\n", res.State, name, res.ReleaseDate)
	for _, loc := range res.Locations {
		_, _ = fmt.Fprintf(w, "  archived %s\n", loc)
	}
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(w, "  skipped  %s: %s\n", f.URL, strings.TrimSpace(f.Err.Error()))
	}
}
