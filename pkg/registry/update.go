package registry

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoLocations is returned when RecordPublish is called without any
// published location; the registry is left unwritten.
var ErrNoLocations = errors.New("no storage locations to record")

// RecordPublish re-reads the persisted registry, re-resolves the latest
// release of dataset with the same filter, overwrites its file_bronze with
// locations and writes the whole registry back. Resolution runs against
// the freshly loaded state, not any snapshot the caller may hold.
func RecordPublish(ctx context.Context, store Store, dataset, filter string, locations []string) (*Release, error) {
	if len(locations) == 0 {
		return nil, ErrNoLocations
	}

	reg, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := reg.Resolve(dataset, filter)
	if err != nil {
		return nil, fmt.Errorf("record publish: %w", err)
	}
	latest.FileBronze = append([]string(nil), locations...)

	if err := store.Save(ctx, reg); err != nil {
		return nil, err
	}
	return latest, nil
}
