// Package publish archives remote dataset files into the bronze layer.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nestauk/asf-mission-data-tool/pkg/artifacts"
	"github.com/nestauk/asf-mission-data-tool/pkg/fetch"
	"github.com/nestauk/asf-mission-data-tool/pkg/observability"
	"github.com/nestauk/asf-mission-data-tool/pkg/prompt"
	"github.com/nestauk/asf-mission-data-tool/pkg/provenance"
)

// ErrOverwriteDeclined is returned when the operator keeps the existing
// object. Nothing is written.
var ErrOverwriteDeclined = errors.New("file not overwritten")

// Downloader fetches one remote file.
type Downloader interface {
	Fetch(ctx context.Context, url string) (*fetch.Download, error)
}

// ProvenanceRecorder writes the metadata sidecar for an archived file.
type ProvenanceRecorder interface {
	Record(ctx context.Context, dataset, sourceURL, fileName string) (string, error)
}

// Publisher downloads a file and writes it under {layer}/{dataset}/.
type Publisher struct {
	downloader Downloader
	store      artifacts.Store
	confirm    prompt.Confirmer
	provenance ProvenanceRecorder
	obs        *observability.Provider
	layer      string
	logger     *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithProvenance enables the sidecar step after every upload.
func WithProvenance(rec ProvenanceRecorder) Option {
	return func(p *Publisher) { p.provenance = rec }
}

// WithObservability wraps each publish in a tracked operation.
func WithObservability(obs *observability.Provider) Option {
	return func(p *Publisher) { p.obs = obs }
}

// WithLayer sets the storage layer prefix.
func WithLayer(layer string) Option {
	return func(p *Publisher) { p.layer = layer }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// New creates a Publisher.
func New(downloader Downloader, store artifacts.Store, confirm prompt.Confirmer, opts ...Option) *Publisher {
	p := &Publisher{
		downloader: downloader,
		store:      store,
		confirm:    confirm,
		layer:      artifacts.DefaultLayer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish downloads url and archives it in dataset, returning the storage
// location. When an object already exists the operator is asked first:
// the question differs depending on whether the sizes match.
//
// Returned errors are *fetch.FetchError, ErrOverwriteDeclined,
// *artifacts.StorageError or a context error. Provenance failures are
// logged and never change the result.
func (p *Publisher) Publish(ctx context.Context, dataset, url string) (location string, err error) {
	ctx, done := p.obs.TrackOperation(ctx, "bronze.publish", observability.PublishOperation(dataset, url)...)
	defer func() { done(err) }()

	dl, err := p.downloader.Fetch(ctx, url)
	if err != nil {
		p.logger.WarnContext(ctx, "download failed", "url", url, "error", err)
		return "", err
	}

	key := artifacts.Key{Layer: p.layer, Dataset: dataset, FileName: dl.FileName}.String()
	uri := p.store.URI(key)
	size := int64(len(dl.Content))

	info, err := p.store.Stat(ctx, key)
	switch {
	case err == nil:
		question := fmt.Sprintf("File %s exists, but sizes do not match. Do you still want to overwrite it?", uri)
		if info.Size == size {
			question = fmt.Sprintf("File %s already exists and has the same size. Do you want to overwrite it?", uri)
		}
		p.logger.InfoContext(ctx, "file exists", "location", uri, "existing_size", info.Size, "size", size)

		ok, cerr := p.confirm.Confirm(ctx, question)
		if cerr != nil {
			return "", cerr
		}
		if !ok {
			p.logger.InfoContext(ctx, "file not overwritten", "location", uri)
			return "", ErrOverwriteDeclined
		}
		p.logger.InfoContext(ctx, "overwriting file", "location", uri)
	case errors.Is(err, artifacts.ErrObjectNotFound):
	default:
		p.logger.ErrorContext(ctx, "cannot inspect destination", "location", uri, "error", err)
		return "", err
	}

	if err := p.store.Put(ctx, key, dl.Content, dl.ContentType); err != nil {
		p.logger.ErrorContext(ctx, "upload failed", "location", uri, "error", err)
		return "", err
	}
	p.obs.RecordBytes(ctx, size, observability.AttrDataset.String(dataset))
	observability.AddSpanEvent(ctx, "bronze.uploaded", observability.AttrLocation.String(uri))
	p.logger.InfoContext(ctx, "file uploaded", "location", uri, "size", size)

	p.recordProvenance(ctx, dataset, url, dl.FileName)
	return uri, nil
}

// recordProvenance runs after the object is persisted; the object is
// never rolled back.
func (p *Publisher) recordProvenance(ctx context.Context, dataset, url, fileName string) {
	if p.provenance == nil {
		return
	}
	loc, err := p.provenance.Record(ctx, dataset, url, fileName)
	switch {
	case err == nil:
		p.logger.DebugContext(ctx, "provenance recorded", "location", loc)
	case errors.Is(err, provenance.ErrOverwriteDeclined):
		p.logger.InfoContext(ctx, "provenance metadata kept", "url", url)
	default:
		p.logger.WarnContext(ctx, "provenance metadata not saved", "url", url, "error", err)
	}
}

// IsSkippable reports whether err only affects a single URL, so a run
// may continue with the next one.
func IsSkippable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *fetch.FetchError
	var se *artifacts.StorageError
	return errors.Is(err, ErrOverwriteDeclined) || errors.As(err, &fe) || errors.As(err, &se)
}
