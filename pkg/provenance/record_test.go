package provenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMarshal(t *testing.T) {
	ts := time.Date(2024, 3, 5, 9, 7, 2, 999_000_000, time.Local)
	rec := NewRecord("https://example.org/data.xlsx", ts, "Ada Lovelace")

	assert.Equal(t, "2024-03-05 09:07:02", rec.DownloadDateTime)

	data, err := rec.Marshal()
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `original_file_url = "https://example.org/data.xlsx"`)
	assert.Contains(t, text, `download_date_time = "2024-03-05 09:07:02"`)
	assert.Contains(t, text, `downloaded_by_git_user = "Ada Lovelace"`)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("original_file_url = "))
	assert.Error(t, err)
}
