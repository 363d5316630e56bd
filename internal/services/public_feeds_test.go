package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/models"
	"github.com/stretchr/testify/require"
)

func TestPublicFeedCreateValidatesSlug(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("Bad"), Slug: strPtr("Bad Slug!")})
	require.ErrorIs(t, err, ErrValidation)
	require.EqualValues(t, 0, f.count(t, &models.PublicFeed{}))

	for _, slug := range []string{"-lead", "trail-", "double--hyphen", "UPPER"} {
		_, err := f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("x"), Slug: strPtr(slug)})
		require.ErrorIs(t, err, ErrValidation, slug)
	}

	_, err = f.registry.Create(f.ctx, PublicFeedInput{Slug: strPtr("no-name")})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("x"), Slug: strPtr("ok"), Criterion: strPtr("type:folder")})
	require.ErrorIs(t, err, ErrValidation)
}

func TestPublicFeedDuplicateSlug(t *testing.T) {
	f := newFixture(t)

	created, err := f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("News"), Slug: strPtr("news")})
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.Equal(t, "all", created.Criterion)
	require.Equal(t, models.DefaultFeedSiteURL+"/feeds/news", created.URL)
	require.Equal(t, models.DefaultFeedSiteURL+"/feeds/news.xml", created.XMLURL)
	require.Equal(t, models.DefaultFeedSiteURL+"/feeds/news.json", created.JSONURL)

	_, err = f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("News 2"), Slug: strPtr("news")})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), slugExistsMessage)

	other, err := f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("Other"), Slug: strPtr("other")})
	require.NoError(t, err)
	_, err = f.registry.Update(f.ctx, other.ID, PublicFeedInput{Slug: strPtr("news")})
	require.ErrorIs(t, err, ErrValidation)

	renamed, err := f.registry.Update(f.ctx, other.ID, PublicFeedInput{Slug: strPtr("other-news")})
	require.NoError(t, err)
	require.Equal(t, "other-news", renamed.Slug)
}

func TestPublicFeedResolve(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	podcasts := f.folder(t, "Podcasts", nil)
	ep := f.file(t, "ep1.mp3", idPtr(podcasts.ID), included(now), withKind(models.ContentKindAudio, "audio/mpeg"))
	f.file(t, "elsewhere.txt", nil, included(now))

	created, err := f.registry.Create(f.ctx, PublicFeedInput{
		Name:      strPtr("Podcasts"),
		Slug:      strPtr("podcasts"),
		Criterion: strPtr("folder:" + podcasts.ID.String()),
	})
	require.NoError(t, err)
	require.Equal(t, podcasts.ID.String(), *created.FolderID)
	require.Equal(t, "Podcasts", *created.FolderName)

	out, err := f.registry.Resolve(f.ctx, "podcasts", feed.FormatJSON)
	require.NoError(t, err)
	require.Equal(t, 1, out.ItemCount)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Body, &doc))
	require.Equal(t, "Podcasts", doc["title"])
	require.Equal(t, models.DefaultFeedDescription, doc["description"])
	items := doc["items"].([]interface{})
	require.Len(t, items, 1)
	require.Equal(t, ep.ID.String(), items[0].(map[string]interface{})["id"])

	xmlOut, err := f.registry.Resolve(f.ctx, "podcasts", feed.FormatXML)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(xmlOut.Body), "<itunes:"))
}

func TestPublicFeedResolveInactiveAndUnknown(t *testing.T) {
	f := newFixture(t)

	created, err := f.registry.Create(f.ctx, PublicFeedInput{
		Name:     strPtr("Hidden"),
		Slug:     strPtr("hidden"),
		IsActive: boolPtr(false),
	})
	require.NoError(t, err)
	require.False(t, created.IsActive)

	_, err = f.registry.Resolve(f.ctx, "hidden", feed.FormatXML)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.registry.Resolve(f.ctx, "missing", feed.FormatXML)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPublicFeedDeadFolderRendersEmpty(t *testing.T) {
	f := newFixture(t)

	folder := f.folder(t, "Gone", nil)
	f.file(t, "x.txt", idPtr(folder.ID), included(time.Now()))
	_, err := f.registry.Create(f.ctx, PublicFeedInput{
		Name:      strPtr("Gone"),
		Slug:      strPtr("gone"),
		Criterion: strPtr("folder:" + folder.ID.String()),
	})
	require.NoError(t, err)

	_, err = f.hierarchy.DeleteSubtree(f.ctx, folder.ID)
	require.NoError(t, err)

	out, err := f.registry.Resolve(f.ctx, "gone", feed.FormatXML)
	require.NoError(t, err)
	require.Zero(t, out.ItemCount)
	require.Contains(t, string(out.Body), "<rss")
}

func TestPublicFeedDeleteAndList(t *testing.T) {
	f := newFixture(t)

	a, err := f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("A"), Slug: strPtr("a")})
	require.NoError(t, err)
	_, err = f.registry.Create(f.ctx, PublicFeedInput{Name: strPtr("B"), Slug: strPtr("b"), Description: strPtr("Only B")})
	require.NoError(t, err)

	list, err := f.registry.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, f.registry.Delete(f.ctx, a.ID))
	require.ErrorIs(t, f.registry.Delete(f.ctx, a.ID), ErrNotFound)

	_, err = f.registry.Get(f.ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.registry.Resolve(f.ctx, "a", feed.FormatXML)
	require.ErrorIs(t, err, ErrNotFound)

	out, err := f.registry.Resolve(f.ctx, "b", feed.FormatJSON)
	require.NoError(t, err)
	require.Contains(t, string(out.Body), "Only B")

	_, err = f.registry.Get(f.ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
