package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestauk/asf-mission-data-tool/pkg/artifacts"
	"github.com/nestauk/asf-mission-data-tool/pkg/fetch"
	"github.com/nestauk/asf-mission-data-tool/pkg/ledger"
	"github.com/nestauk/asf-mission-data-tool/pkg/provenance"
	"github.com/nestauk/asf-mission-data-tool/pkg/publish"
	"github.com/nestauk/asf-mission-data-tool/pkg/registry"
)

type fakePublisher struct {
	results map[string]error
	calls   []string
}

func (f *fakePublisher) Publish(ctx context.Context, dataset, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err := f.results[url]; err != nil {
		return "", err
	}
	return "mem://bucket/bronze/" + dataset + "/" + url[strings.LastIndex(url, "/")+1:], nil
}

type memLedger struct {
	runs []*ledger.Run
	err  error
}

func (m *memLedger) Record(ctx context.Context, r *ledger.Run) error {
	m.runs = append(m.runs, r)
	return m.err
}

func newRegistry(t *testing.T, datasets map[string]*registry.Dataset) *registry.MemoryStore {
	t.Helper()
	store, err := registry.NewMemoryStore(&registry.Registry{Datasets: datasets})
	require.NoError(t, err)
	return store
}

func release(date string, urls ...string) *registry.Release {
	return &registry.Release{ReleaseDate: date, FileURL: urls}
}

func TestRunDone(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, map[string]*registry.Dataset{
		"X": {Versions: []*registry.Release{
			release("2022-01-01", "http://a/old.csv"),
			release("2023-01-01", "http://a/f.csv"),
		}},
	})
	pub := &fakePublisher{}
	led := &memLedger{}
	r := NewRunner(reg, pub, WithLedger(led), WithOperator(provenance.StaticIdentity("ops")))

	res, err := r.Run(ctx, "X", "")
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, "2023-01-01", res.ReleaseDate)
	assert.Equal(t, []string{"mem://bucket/bronze/X/f.csv"}, res.Locations)
	assert.Equal(t, []string{"http://a/f.csv"}, pub.calls)
	assert.Equal(t, 1, reg.Saves())

	loaded, err := reg.Load(ctx)
	require.NoError(t, err)
	latest, err := loaded.Resolve("X", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mem://bucket/bronze/X/f.csv"}, latest.FileBronze)
	assert.Nil(t, loaded.Datasets["X"].Versions[0].FileBronze)

	require.Len(t, led.runs, 1)
	assert.Equal(t, res.RunID, led.runs[0].RunID)
	assert.Equal(t, "DONE", led.runs[0].State)
	assert.Equal(t, "ops", led.runs[0].Operator)
}

func TestRunSkippedNeverWritesRegistry(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, map[string]*registry.Dataset{
		"X": {Versions: []*registry.Release{release("2023-01-01", "http://a/f.csv", "http://a/g.csv")}},
	})
	pub := &fakePublisher{results: map[string]error{
		"http://a/f.csv": &fetch.FetchError{URL: "http://a/f.csv", StatusCode: http.StatusNotFound},
		"http://a/g.csv": publish.ErrOverwriteDeclined,
	}}
	led := &memLedger{}
	r := NewRunner(reg, pub, WithLedger(led))

	res, err := r.Run(ctx, "X", "")
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, res.State)
	assert.Empty(t, res.Locations)
	assert.Len(t, res.Failures, 2)
	assert.Zero(t, reg.Saves())

	require.Len(t, led.runs, 1)
	assert.Equal(t, "SKIPPED", led.runs[0].State)
}

func TestRunContinuesAfterSiblingFailure(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, map[string]*registry.Dataset{
		"X": {Versions: []*registry.Release{release("2023-01-01", "http://a/1.csv", "http://a/2.csv", "http://a/3.csv")}},
	})
	pub := &fakePublisher{results: map[string]error{
		"http://a/2.csv": &artifacts.StorageError{Op: "put", Key: "bronze/X/2.csv", Err: errors.New("no credentials")},
	}}
	r := NewRunner(reg, pub)

	res, err := r.Run(ctx, "X", "")
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"http://a/1.csv", "http://a/2.csv", "http://a/3.csv"}, pub.calls)
	assert.Equal(t, []string{"mem://bucket/bronze/X/1.csv", "mem://bucket/bronze/X/3.csv"}, res.Locations)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "http://a/2.csv", res.Failures[0].URL)
}

func TestRunFatalErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown dataset", func(t *testing.T) {
		reg := newRegistry(t, map[string]*registry.Dataset{})
		pub := &fakePublisher{}
		_, err := NewRunner(reg, pub).Run(ctx, "nope", "")
		assert.ErrorIs(t, err, registry.ErrDatasetNotFound)
		assert.Empty(t, pub.calls)
	})

	t.Run("no match", func(t *testing.T) {
		reg := newRegistry(t, map[string]*registry.Dataset{
			"X": {Versions: []*registry.Release{release("2023-01-01", "http://a/Summer.csv")}},
		})
		_, err := NewRunner(reg, &fakePublisher{}).Run(ctx, "X", "Winter")
		assert.ErrorIs(t, err, registry.ErrNoMatch)
	})

	t.Run("non skippable publish error", func(t *testing.T) {
		reg := newRegistry(t, map[string]*registry.Dataset{
			"X": {Versions: []*registry.Release{release("2023-01-01", "http://a/1.csv", "http://a/2.csv")}},
		})
		pub := &fakePublisher{results: map[string]error{"http://a/1.csv": errors.New("terminal closed")}}
		_, err := NewRunner(reg, pub).Run(ctx, "X", "")
		require.Error(t, err)
		assert.Equal(t, []string{"http://a/1.csv"}, pub.calls)
		assert.Zero(t, reg.Saves())
	})

	t.Run("canceled", func(t *testing.T) {
		reg := newRegistry(t, map[string]*registry.Dataset{
			"X": {Versions: []*registry.Release{release("2023-01-01", "http://a/1.csv")}},
		})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		pub := &fakePublisher{}
		_, err := NewRunner(reg, pub).Run(cctx, "X", "")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, pub.calls)
	})
}

func TestRunLedgerFailureIsNotFatal(t *testing.T) {
	reg := newRegistry(t, map[string]*registry.Dataset{
		"X": {Versions: []*registry.Release{release("2023-01-01", "http://a/f.csv")}},
	})
	led := &memLedger{err: errors.New("disk full")}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRunner(reg, &fakePublisher{}, WithLedger(led), WithClock(func() time.Time { return now }))

	res, err := r.Run(context.Background(), "X", "")
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	require.Len(t, led.runs, 1)
	assert.Equal(t, now, led.runs[0].StartedAt)
}

func TestRunDefinitionPerFilter(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, map[string]*registry.Dataset{
		"public_attitudes_tracking_survey": {Versions: []*registry.Release{
			release("2023-07-01", "http://a/PAT_Summer_2023.xlsx"),
			release("2023-04-01", "http://a/PAT_Spring_2023.xlsx"),
			release("2023-01-01", "http://a/PAT_Winter_2023.xlsx"),
			release("2022-07-01", "http://a/PAT_Summer_2022.xlsx"),
		}},
	})
	pub := &fakePublisher{}
	r := NewRunner(reg, pub)

	results, err := r.RunDefinition(ctx, Lookup("public_attitudes_tracking_survey"))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{
		"http://a/PAT_Summer_2023.xlsx",
		"http://a/PAT_Spring_2023.xlsx",
		"http://a/PAT_Winter_2023.xlsx",
	}, pub.calls)
	assert.Equal(t, 3, reg.Saves())

	loaded, err := reg.Load(ctx)
	require.NoError(t, err)
	versions := loaded.Datasets["public_attitudes_tracking_survey"].Versions
	assert.NotEmpty(t, versions[0].FileBronze)
	assert.NotEmpty(t, versions[1].FileBronze)
	assert.NotEmpty(t, versions[2].FileBronze)
	assert.Empty(t, versions[3].FileBronze)
}

func TestRunDefinitionStopsOnFatal(t *testing.T) {
	reg := newRegistry(t, map[string]*registry.Dataset{
		"ds": {Versions: []*registry.Release{release("2023-01-01", "http://a/A.csv")}},
	})
	results, err := NewRunner(reg, &fakePublisher{}).RunDefinition(context.Background(),
		Definition{Dataset: "ds", Filters: []string{"A", "B", "A"}})
	assert.ErrorIs(t, err, registry.ErrNoMatch)
	assert.Len(t, results, 1)
}

func TestLookup(t *testing.T) {
	def := Lookup("public_attitudes_tracking_survey")
	assert.Equal(t, []string{"Summer", "Spring", "Winter"}, def.Filters)

	def.Filters[0] = "mutated"
	assert.Equal(t, "Summer", Lookup("public_attitudes_tracking_survey").Filters[0])

	assert.Empty(t, Lookup("heat_pump_deployment_quarterly_statistics").Filters)
	assert.Equal(t, Definition{Dataset: "anything"}, Lookup("anything"))
}
