// Package provenance writes the metadata sidecar that accompanies every
// archived file: where it came from, when, and who fetched it.
package provenance

import (
	"bytes"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// DateTimeLayout is the layout of download_date_time.
const DateTimeLayout = "2006-01-02 15:04:05"

// SidecarExtension replaces the archived file's extension in the sidecar key.
const SidecarExtension = ".meta"

// Record is immutable once written.
type Record struct {
	OriginalFileURL     string `toml:"original_file_url"`
	DownloadDateTime    string `toml:"download_date_time"`
	DownloadedByGitUser string `toml:"downloaded_by_git_user"`
}

// NewRecord stamps a record at t, truncated to the second.
func NewRecord(sourceURL string, t time.Time, operator string) Record {
	return Record{
		OriginalFileURL:     sourceURL,
		DownloadDateTime:    t.Format(DateTimeLayout),
		DownloadedByGitUser: operator,
	}
}

// Marshal encodes r as flat TOML.
func (r Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode provenance: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a sidecar.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if _, err := toml.Decode(string(data), &r); err != nil {
		return Record{}, fmt.Errorf("decode provenance: %w", err)
	}
	return r, nil
}
