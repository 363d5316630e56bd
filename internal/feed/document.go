// Package feed renders syndication documents as RSS 2.0 and JSON Feed 1.1.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/incubrix/cms/internal/models"
)

const (
	Generator          = "Incubrix CMS Feed Generator"
	DefaultAuthorName  = "Incubrix CMS"
	DefaultOwnerEmail  = "contact@incubrix.com"
	NoDescription      = "no description provided"
	TTLMinutes         = 60
	ContentPathPrefix  = "/api/assets/file/"
	DefaultImagePath   = "/logo.png"
	DefaultCategory    = models.DefaultPodcastCategory
	jsonFeedVersionURL = "https://jsonfeed.org/version/1.1"
)

// Channel carries the feed-level metadata shared by both formats.
type Channel struct {
	Title           string
	Description     string
	SiteURL         string
	SelfURL         string
	JSONURL         string
	Language        string
	AuthorName      string
	AuthorEmail     string
	OwnerName       string
	OwnerEmail      string
	PodcastCategory string
	ImageURL        string
}

type Item struct {
	NodeID          string
	Title           string
	Description     string
	Link            string
	GUID            string
	Category        string
	PublishDate     time.Time
	Tags            []string
	Kind            models.ContentKind
	MimeType        string
	Size            int64
	DurationSeconds *float64
	Width           *int
	Height          *int
}

// HasMedia reports whether the item carries a media descriptor.
func (i Item) HasMedia() bool {
	return i.Kind.IsMedia()
}

type Document struct {
	Channel Channel
	Items   []Item
}

// HasPodcastItems reports whether any item is audio or video.
func (d Document) HasPodcastItems() bool {
	for _, item := range d.Items {
		if item.Kind.IsPodcast() {
			return true
		}
	}
	return false
}

// ContentURL is the public content endpoint of a node.
func ContentURL(siteURL, nodeID string) string {
	return strings.TrimRight(siteURL, "/") + ContentPathPrefix + nodeID
}

// ItemFromAsset projects a stored node into a feed item, applying the
// per-item fallbacks: title to name, description to the node description
// and then "<kind> file: <name>", guid to the node id.
func ItemFromAsset(asset models.Asset, siteURL string) Item {
	id := asset.ID.String()

	title := asset.Name
	if asset.FeedTitle != nil && strings.TrimSpace(*asset.FeedTitle) != "" {
		title = *asset.FeedTitle
	}

	description := DefaultItemDescription(asset.ContentKind, asset.Name)
	switch {
	case asset.FeedDescription != nil && strings.TrimSpace(*asset.FeedDescription) != "":
		description = *asset.FeedDescription
	case asset.Description != nil && strings.TrimSpace(*asset.Description) != "":
		description = *asset.Description
	}

	guid := id
	if asset.FeedGUID != nil && strings.TrimSpace(*asset.FeedGUID) != "" {
		guid = *asset.FeedGUID
	}

	var category string
	if asset.FeedCategory != nil {
		category = strings.TrimSpace(*asset.FeedCategory)
	}

	return Item{
		NodeID:          id,
		Title:           title,
		Description:     description,
		Link:            ContentURL(siteURL, id),
		GUID:            guid,
		Category:        category,
		PublishDate:     asset.EffectivePublishDate().UTC(),
		Tags:            asset.TagList(),
		Kind:            asset.ContentKind,
		MimeType:        asset.MimeType,
		Size:            asset.Size,
		DurationSeconds: asset.DurationSeconds,
		Width:           asset.Width,
		Height:          asset.Height,
	}
}

func DefaultItemDescription(kind models.ContentKind, name string) string {
	return fmt.Sprintf("%s file: %s", kind, name)
}

// ChannelFromSettings fills channel identity from the global settings. The
// caller sets title, description and the self links.
func ChannelFromSettings(s models.SyndicationSettings) Channel {
	site := strings.TrimRight(strings.TrimSpace(s.SiteURL), "/")
	image := strings.TrimSpace(s.ImageURL)
	if image == "" && site != "" {
		image = site + DefaultImagePath
	}
	return Channel{
		Title:           s.FeedTitle,
		Description:     s.FeedDescription,
		SiteURL:         site,
		Language:        s.Language,
		AuthorName:      s.AuthorName,
		AuthorEmail:     s.AuthorEmail,
		OwnerName:       s.OwnerName,
		OwnerEmail:      s.OwnerEmail,
		PodcastCategory: s.PodcastCategory,
		ImageURL:        image,
	}
}

func (c Channel) description() string {
	if strings.TrimSpace(c.Description) == "" {
		return NoDescription
	}
	return c.Description
}

func (c Channel) authorName() string {
	if c.AuthorName != "" {
		return c.AuthorName
	}
	return DefaultAuthorName
}

func (c Channel) ownerName() string {
	if c.OwnerName != "" {
		return c.OwnerName
	}
	return c.authorName()
}

func (c Channel) ownerEmail() string {
	if c.OwnerEmail != "" {
		return c.OwnerEmail
	}
	if c.AuthorEmail != "" {
		return c.AuthorEmail
	}
	return DefaultOwnerEmail
}

func (c Channel) category() string {
	if c.PodcastCategory != "" {
		return c.PodcastCategory
	}
	return DefaultCategory
}

// managingEditor and webMaster are always emitted in "email (name)" form.
func (c Channel) managingEditor() string {
	email := c.AuthorEmail
	if email == "" {
		email = c.SiteURL
	}
	return fmt.Sprintf("%s (%s)", email, c.authorName())
}

func (c Channel) webMaster() string {
	email := c.OwnerEmail
	if email == "" {
		email = c.SiteURL
	}
	name := c.OwnerName
	if name == "" {
		name = DefaultAuthorName
	}
	return fmt.Sprintf("%s (%s)", email, name)
}

// buildDate is the most recent effective publish date, or now when the
// document has no items.
func (d Document) buildDate(now func() time.Time) time.Time {
	var latest time.Time
	for _, item := range d.Items {
		if item.PublishDate.After(latest) {
			latest = item.PublishDate
		}
	}
	if latest.IsZero() {
		return now().UTC()
	}
	return latest.UTC()
}
