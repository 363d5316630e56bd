package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/models"
	"github.com/stretchr/testify/require"
)

func TestWriteCSVOneRowPerNode(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	folder := models.Asset{Name: "Podcasts", IsFolder: true, ContentKind: models.ContentKindFolder}
	folder.ID = uuid.New()
	folder.CreatedAt, folder.UpdatedAt = created, created

	title := "Episode, one"
	episode := models.Asset{
		Name:          "ep1.mp3",
		ParentID:      &folder.ID,
		ContentKind:   models.ContentKindAudio,
		Format:        "mp3",
		MimeType:      "audio/mpeg",
		Size:          1536,
		IncludeInFeed: true,
		FeedTitle:     &title,
		Starred:       true,
	}
	episode.ID = uuid.New()
	episode.CreatedAt, episode.UpdatedAt = created, created

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Asset{folder, episode}))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, Columns, records[0])

	row := records[2]
	require.Len(t, row, len(Columns))
	require.Equal(t, episode.ID.String(), row[0])
	require.Equal(t, "file", row[2])
	require.Equal(t, "MP3", row[4])
	require.Equal(t, "1536", row[6])
	require.Equal(t, "1.5 KB", row[7])
	require.Equal(t, folder.ID.String(), row[8])
	require.Equal(t, "2024-03-01T09:30:00Z", row[9])
	require.Equal(t, "Yes", row[12])
	require.Equal(t, "No", row[13])
	require.Equal(t, "Yes", row[16])
	require.Equal(t, title, row[17])

	require.Equal(t, "folder", records[1][2])
	require.Empty(t, records[1][8])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	require.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestHumanSize(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		512:             "512.0 B",
		1024:            "1.0 KB",
		5 * 1024 * 1024: "5.0 MB",
		3 << 40:         "3.0 TB",
		5 << 50:         "5120.0 TB",
	}
	for in, want := range cases {
		require.Equal(t, want, HumanSize(in), in)
	}
}

func TestFilename(t *testing.T) {
	require.Equal(t, "Incubrix_Drive_Export_2024-06-01.csv", Filename(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)))
}
