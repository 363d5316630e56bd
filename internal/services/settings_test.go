package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/models"
	"github.com/stretchr/testify/require"
)

func TestSettingsLoadCreatesDefaults(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Where("1 = 1").Delete(&models.SyndicationSettings{}).Error)

	settings, err := f.settings.Load(f.ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultFeedTitle, settings.FeedTitle)
	require.Equal(t, models.DefaultMaxItems, settings.MaxItems)
	require.EqualValues(t, 1, f.count(t, &models.SyndicationSettings{}))
}

func TestSettingsUpdate(t *testing.T) {
	f := newFixture(t)

	updated, err := f.settings.Update(f.ctx, SettingsInput{
		SiteURL:    strPtr("https://cms.example.com/"),
		FeedTitle:  strPtr("  Weekly  "),
		MaxItems:   intPtr(50),
		OwnerEmail: strPtr("owner@example.com"),
	})
	require.NoError(t, err)
	require.Equal(t, "https://cms.example.com", updated.SiteURL)
	require.Equal(t, "Weekly", updated.FeedTitle)
	require.Equal(t, 50, updated.MaxItems)
	require.Equal(t, models.DefaultSiteTitle, updated.SiteTitle)

	reloaded, err := f.settings.Load(f.ctx)
	require.NoError(t, err)
	require.Equal(t, updated.SiteURL, reloaded.SiteURL)
	require.Equal(t, "owner@example.com", reloaded.OwnerEmail)
}

func TestSettingsUpdateValidation(t *testing.T) {
	f := newFixture(t)

	cases := []SettingsInput{
		{SiteURL: strPtr("")},
		{SiteURL: strPtr("ftp://example.com")},
		{MaxItems: intPtr(0)},
		{MaxItems: intPtr(501)},
		{Language: strPtr("e")},
		{AuthorEmail: strPtr("not-an-email")},
	}
	for _, in := range cases {
		_, err := f.settings.Update(f.ctx, in)
		require.ErrorIs(t, err, ErrValidation)
	}

	settings, err := f.settings.Load(f.ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultFeedSiteURL, settings.SiteURL)
	require.Equal(t, models.DefaultMaxItems, settings.MaxItems)
}

func TestFolderOverrideDefaults(t *testing.T) {
	f := newFixture(t)

	folder := f.folder(t, "Podcasts", nil)
	view, err := f.settings.FolderOverride(f.ctx, folder.ID)
	require.NoError(t, err)
	require.False(t, view.Stored)
	require.False(t, view.IncludeInFeed)
	require.Equal(t, "Podcasts", *view.Title)

	_, err = f.settings.FolderOverride(f.ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	file := f.file(t, "x.txt", nil)
	_, err = f.settings.FolderOverride(f.ctx, file.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertFolderOverrideIncludesDirectChildren(t *testing.T) {
	f := newFixture(t)

	folder := f.folder(t, "Podcasts", nil)
	sub := f.folder(t, "Archive", idPtr(folder.ID))
	direct := f.file(t, "ep1.mp3", idPtr(folder.ID), withKind(models.ContentKindAudio, "audio/mpeg"))
	custom := f.file(t, "ep2.mp3", idPtr(folder.ID), withKind(models.ContentKindAudio, "audio/mpeg"), func(a *models.Asset) {
		a.FeedTitle = strPtr("Custom title")
	})
	nested := f.file(t, "old.mp3", idPtr(sub.ID))

	view, err := f.settings.UpsertFolderOverride(f.ctx, folder.ID, FolderOverrideInput{
		IncludeInFeed:       true,
		Title:               strPtr("The Show"),
		AutoIncludeNewFiles: true,
	})
	require.NoError(t, err)
	require.True(t, view.Stored)
	require.Equal(t, 2, view.FilesIncluded)
	require.Equal(t, "The Show", *view.Title)

	got, err := f.store.Get(f.ctx, direct.ID)
	require.NoError(t, err)
	require.True(t, got.IncludeInFeed)
	require.Equal(t, "ep1.mp3", *got.FeedTitle)
	require.Equal(t, "audio", *got.FeedCategory)
	require.Equal(t, direct.ID.String(), *got.FeedGUID)
	require.True(t, got.FeedPublishDate.Equal(direct.CreatedAt))

	got, err = f.store.Get(f.ctx, custom.ID)
	require.NoError(t, err)
	require.Equal(t, "Custom title", *got.FeedTitle)

	got, err = f.store.Get(f.ctx, nested.ID)
	require.NoError(t, err)
	require.False(t, got.IncludeInFeed)

	view, err = f.settings.UpsertFolderOverride(f.ctx, folder.ID, FolderOverrideInput{IncludeInFeed: false})
	require.NoError(t, err)
	require.False(t, view.IncludeInFeed)
	require.Nil(t, view.Title)
	require.EqualValues(t, 1, f.count(t, &models.FolderOverride{}))
}

func intPtr(i int) *int { return &i }
