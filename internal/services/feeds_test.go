package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/models"
	"github.com/stretchr/testify/require"
)

func TestGlobalFeedEmptyIsValid(t *testing.T) {
	f := newFixture(t)

	out, err := f.feeds.Global(f.ctx, feed.FormatXML)
	require.NoError(t, err)
	require.Zero(t, out.ItemCount)
	body := string(out.Body)
	require.Contains(t, body, "<title>"+models.DefaultFeedTitle+"</title>")
	require.Contains(t, body, `href="`+models.DefaultFeedSiteURL+`/api/rss/feed"`)
	require.NotContains(t, body, "<item>")
	require.NotContains(t, body, "<itunes:owner>")

	out, err = f.feeds.Global(f.ctx, feed.FormatJSON)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Body, &doc))
	require.Equal(t, models.DefaultFeedSiteURL+"/api/rss/feed?format=json", doc["feed_url"])
	require.Empty(t, doc["items"])
}

func TestFolderFeedUsesOverrideTitle(t *testing.T) {
	f := newFixture(t)

	folder := f.folder(t, "Talks", nil)
	f.file(t, "talk.txt", idPtr(folder.ID), included(testNow))
	_, err := f.settings.UpsertFolderOverride(f.ctx, folder.ID, FolderOverrideInput{
		IncludeInFeed: true,
		Title:         strPtr("Conference Talks"),
		Description:   strPtr("Recorded talks"),
	})
	require.NoError(t, err)

	out, err := f.feeds.Folder(f.ctx, folder.ID, feed.FormatJSON)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Body, &doc))
	require.Equal(t, "Conference Talks", doc["title"])
	require.Equal(t, "Recorded talks", doc["description"])
	require.Len(t, doc["items"], 1)

	plain := f.folder(t, "Plain", nil)
	out, err = f.feeds.Folder(f.ctx, plain.ID, feed.FormatXML)
	require.NoError(t, err)
	require.Contains(t, string(out.Body), "Files from Plain folder - "+models.DefaultFeedDescription)

	_, err = f.feeds.Folder(f.ctx, uuid.New(), feed.FormatXML)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPodcastScenario(t *testing.T) {
	f := newFixture(t)

	podcasts := f.folder(t, "Podcasts", nil)
	ep := f.file(t, "ep1.mp3", idPtr(podcasts.ID), withKind(models.ContentKindAudio, "audio/mpeg"), included(testNow), func(a *models.Asset) {
		a.Format = "mp3"
		a.Size = 4096
		a.FeedTitle = strPtr("Episode 1")
	})
	empty := f.folder(t, "Drafts", nil)

	global, err := f.feeds.Global(f.ctx, feed.FormatXML)
	require.NoError(t, err)
	require.Equal(t, 1, global.ItemCount)
	folder, err := f.feeds.Folder(f.ctx, podcasts.ID, feed.FormatXML)
	require.NoError(t, err)
	require.Equal(t, 1, folder.ItemCount)

	other, err := f.feeds.Folder(f.ctx, empty.ID, feed.FormatXML)
	require.NoError(t, err)
	require.Equal(t, 0, other.ItemCount)
	require.NotContains(t, string(other.Body), "<item>")

	for _, body := range []string{string(global.Body), string(folder.Body)} {
		require.Contains(t, body, "<title>Episode 1</title>")
		require.Contains(t, body, "<itunes:owner>")
		require.Contains(t, body, "<itunes:category text=\""+models.DefaultPodcastCategory+"\"")
		require.Contains(t, body, `length="4096" type="audio/mpeg"`)
		require.Contains(t, body, "<guid isPermaLink=\"false\">"+ep.ID.String()+"</guid>")
	}
}

func TestRegenerateWritesSnapshotAndFiles(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	f.feeds.OutputDir = filepath.Join(dir, "public")

	a := f.file(t, "a.txt", nil, included(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.feeds.Regenerate(f.ctx))
	require.False(t, f.feeds.BuiltAt().IsZero())

	for _, name := range []string{"rss.xml", "feed.xml", "feed.json"} {
		data, err := os.ReadFile(filepath.Join(f.feeds.OutputDir, name))
		require.NoError(t, err, name)
		require.Contains(t, string(data), a.ID.String(), name)
	}

	xmlBody, err := f.feeds.Snapshot(f.ctx, feed.FormatXML)
	require.NoError(t, err)
	fromFile, err := os.ReadFile(filepath.Join(f.feeds.OutputDir, "rss.xml"))
	require.NoError(t, err)
	require.Equal(t, string(fromFile), string(xmlBody))

	_, err = f.hierarchy.DeleteNode(f.ctx, a.ID)
	require.NoError(t, err)

	xmlBody, err = f.feeds.Snapshot(f.ctx, feed.FormatXML)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(xmlBody), a.ID.String()))
}

func TestFeedPreview(t *testing.T) {
	f := newFixture(t)

	older := f.file(t, "old.txt", nil, included(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)), withTags("a"))
	newer := f.file(t, "new.txt", nil, included(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	f.file(t, "hidden.txt", nil)

	preview, err := f.feeds.Preview(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, preview.ItemCount)
	require.Equal(t, newer.ID.String(), preview.Items[0].ID)
	require.Equal(t, older.ID.String(), preview.Items[1].ID)
	require.Equal(t, []string{"a"}, preview.Items[1].Tags)
	require.Equal(t, "text file: old.txt", preview.Items[1].Description)
	require.Equal(t, models.DefaultFeedSiteURL+"/api/rss/feed", preview.FeedURL)
}

func TestContentChangedKeepsMutationOnFailure(t *testing.T) {
	f := newFixture(t)
	a := f.file(t, "a.txt", nil, included(testNow))
	require.NoError(t, f.feeds.Regenerate(f.ctx))
	before, err := f.feeds.Snapshot(f.ctx, feed.FormatXML)
	require.NoError(t, err)

	require.NoError(t, f.db.Migrator().DropTable(&models.SyndicationSettings{}))

	view, err := f.assets.Rename(f.ctx, a.ID, "b.txt")
	require.NoError(t, err)
	require.Equal(t, "b.txt", view.Name)

	after, err := f.feeds.Snapshot(f.ctx, feed.FormatXML)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestConcurrentRegenerationsEndOnLatestState(t *testing.T) {
	f := newFixture(t)
	f.feeds.OutputDir = t.TempDir()

	const n = 12
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = f.file(t, fmt.Sprintf("f%02d.txt", i), nil).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			publish := testNow
			err := f.db.Model(&models.Asset{}).Where("id = ?", id).Updates(map[string]interface{}{
				"include_in_feed":   true,
				"feed_publish_date": &publish,
			}).Error
			if err != nil {
				errs <- err
				return
			}
			f.feeds.ContentChanged(f.ctx, "include")
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	fresh, err := f.feeds.Global(f.ctx, feed.FormatXML)
	require.NoError(t, err)
	require.Equal(t, n, fresh.ItemCount)

	snap, err := f.feeds.Snapshot(f.ctx, feed.FormatXML)
	require.NoError(t, err)
	for _, id := range ids {
		require.Contains(t, string(snap), id.String())
	}

	onDisk, err := os.ReadFile(filepath.Join(f.feeds.OutputDir, "rss.xml"))
	require.NoError(t, err)
	require.Equal(t, string(snap), string(onDisk))
}
