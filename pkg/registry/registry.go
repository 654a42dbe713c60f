// Package registry holds the dataset version registry: the releases known
// for each dataset, resolution of the latest release, and persistence of
// bronze locations back into the registry file.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ReleaseDateLayout is the layout of release_date values.
const ReleaseDateLayout = "2006-01-02"

var (
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrNoMatch            = errors.New("no release matches filter")
	ErrInvalidReleaseDate = errors.New("invalid release date")
)

// Registry is the persisted form of the registry file. Keys other than
// "dataset" are carried through untouched.
type Registry struct {
	Datasets map[string]*Dataset `yaml:"dataset,omitempty"`
	Extra    map[string]any      `yaml:",inline"`
}

// Dataset is a named family of releases.
type Dataset struct {
	Versions []*Release     `yaml:"versions"`
	Extra    map[string]any `yaml:",inline"`
}

// Release is one dated version of a dataset, possibly spanning several
// files. FileBronze is populated once the files have been archived.
type Release struct {
	ReleaseDate string         `yaml:"release_date"`
	FileURL     []string       `yaml:"file_url"`
	FileBronze  []string       `yaml:"file_bronze,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

// Date parses ReleaseDate.
func (r *Release) Date() (time.Time, error) {
	t, err := time.Parse(ReleaseDateLayout, strings.TrimSpace(r.ReleaseDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidReleaseDate, r.ReleaseDate, err)
	}
	return t, nil
}

// Matches reports whether any file URL contains filter. An empty filter
// matches every release.
func (r *Release) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	for _, u := range r.FileURL {
		if strings.Contains(u, filter) {
			return true
		}
	}
	return false
}

// DatasetNames returns the dataset keys in sorted order.
func (r *Registry) DatasetNames() []string {
	names := make([]string, 0, len(r.Datasets))
	for name := range r.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the latest release of dataset. When filter is non-empty
// only releases with at least one URL containing filter are candidates.
//
// Releases sharing the maximum date resolve to the first one in stored
// order. The returned pointer aliases the registry entry.
func (r *Registry) Resolve(dataset, filter string) (*Release, error) {
	ds, ok := r.Datasets[dataset]
	if !ok || ds == nil {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, dataset)
	}

	var (
		latest     *Release
		latestDate time.Time
	)
	for _, rel := range ds.Versions {
		if rel == nil || !rel.Matches(filter) {
			continue
		}
		date, err := rel.Date()
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", dataset, err)
		}
		if latest == nil || date.After(latestDate) {
			latest, latestDate = rel, date
		}
	}

	if latest == nil {
		if filter == "" {
			return nil, fmt.Errorf("%w: dataset %s has no releases", ErrNoMatch, dataset)
		}
		return nil, fmt.Errorf("%w: dataset %s, filter %q", ErrNoMatch, dataset, filter)
	}
	return latest, nil
}
