package provenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nestauk/asf-mission-data-tool/pkg/artifacts"
	"github.com/nestauk/asf-mission-data-tool/pkg/prompt"
)

// ErrOverwriteDeclined is returned when the operator keeps an existing
// sidecar.
var ErrOverwriteDeclined = errors.New("metadata file not overwritten")

// Recorder writes provenance sidecars next to archived files.
type Recorder struct {
	store    artifacts.Store
	confirm  prompt.Confirmer
	identity IdentityProvider
	layer    string
	now      func() time.Time
	logger   *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLayer sets the storage layer prefix.
func WithLayer(layer string) RecorderOption {
	return func(r *Recorder) { r.layer = layer }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// NewRecorder creates a Recorder.
func NewRecorder(store artifacts.Store, confirm prompt.Confirmer, identity IdentityProvider, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:    store,
		confirm:  confirm,
		identity: identity,
		layer:    artifacts.DefaultLayer,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record writes the sidecar for fileName, archived in dataset from
// sourceURL, and returns its location. An existing sidecar is only
// replaced after confirmation.
func (r *Recorder) Record(ctx context.Context, dataset, sourceURL, fileName string) (string, error) {
	operator, err := r.identity.Identity(ctx)
	if err != nil {
		return "", err
	}
	rec := NewRecord(sourceURL, r.now(), operator)
	body, err := rec.Marshal()
	if err != nil {
		return "", err
	}

	key := artifacts.Key{Layer: r.layer, Dataset: dataset, FileName: fileName}.Sidecar(SidecarExtension).String()
	uri := r.store.URI(key)

	_, err = r.store.Stat(ctx, key)
	switch {
	case err == nil:
		ok, cerr := r.confirm.Confirm(ctx, fmt.Sprintf("File %s already exists. Do you want to overwrite it?", uri))
		if cerr != nil {
			return "", cerr
		}
		if !ok {
			r.logger.InfoContext(ctx, "metadata file not overwritten", "location", uri)
			return "", ErrOverwriteDeclined
		}
	case errors.Is(err, artifacts.ErrObjectNotFound):
	default:
		return "", err
	}

	if err := r.store.Put(ctx, key, body, "application/toml"); err != nil {
		return "", err
	}
	r.logger.InfoContext(ctx, "provenance metadata saved", "location", uri, "operator", operator)
	return uri, nil
}
