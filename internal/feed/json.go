package feed

import (
	"encoding/json"
)

type jsonAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type jsonOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type jsonPodcast struct {
	Summary     string    `json:"summary"`
	Author      string    `json:"author"`
	Owner       jsonOwner `json:"owner"`
	Category    string    `json:"category"`
	Description string    `json:"googleplay_description"`
}

type jsonAttachment struct {
	URL               string `json:"url"`
	MimeType          string `json:"mime_type"`
	SizeInBytes       int64  `json:"size_in_bytes"`
	DurationInSeconds *int   `json:"duration_in_seconds,omitempty"`
	Width             *int   `json:"_width,omitempty"`
	Height            *int   `json:"_height,omitempty"`
}

type jsonItemPodcast struct {
	Duration int    `json:"duration"`
	Summary  string `json:"summary"`
	Author   string `json:"author"`
}

type jsonItem struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	ContentHTML   string           `json:"content_html"`
	ContentText   string           `json:"content_text"`
	DatePublished string           `json:"date_published"`
	Tags          []string         `json:"tags"`
	Category      string           `json:"_category,omitempty"`
	Authors       []jsonAuthor     `json:"authors"`
	Attachments   []jsonAttachment `json:"attachments,omitempty"`
	Podcast       *jsonItemPodcast `json:"_podcast,omitempty"`
}

type jsonFeed struct {
	Version        string       `json:"version"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	HomePageURL    string       `json:"home_page_url"`
	FeedURL        string       `json:"feed_url"`
	Language       string       `json:"language,omitempty"`
	Icon           string       `json:"icon,omitempty"`
	Authors        []jsonAuthor `json:"authors"`
	RSSURL         string       `json:"_rss_url"`
	BuildDate      string       `json:"_build_date"`
	Generator      string       `json:"_generator"`
	TTL            int          `json:"_ttl"`
	Category       string       `json:"_category"`
	ManagingEditor string       `json:"_managing_editor"`
	WebMaster      string       `json:"_web_master"`
	Owner          jsonOwner    `json:"_owner"`
	Podcast        *jsonPodcast `json:"_podcast,omitempty"`
	Items          []jsonItem   `json:"items"`
}

// JSON renders a JSON Feed 1.1 document carrying the same information as
// the XML form; fields without a JSON Feed equivalent use "_" extensions.
func (r *Renderer) JSON(doc Document) ([]byte, error) {
	ch := doc.Channel
	description := ch.description()
	author := jsonAuthor{Name: ch.authorName(), Email: ch.AuthorEmail}
	owner := jsonOwner{Name: ch.ownerName(), Email: ch.ownerEmail()}

	out := jsonFeed{
		Version:        jsonFeedVersionURL,
		Title:          ch.Title,
		Description:    description,
		HomePageURL:    ch.SiteURL,
		FeedURL:        ch.JSONURL,
		Language:       ch.Language,
		Icon:           ch.ImageURL,
		Authors:        []jsonAuthor{author},
		RSSURL:         ch.SelfURL,
		BuildDate:      formatJSONDate(doc.buildDate(r.now)),
		Generator:      Generator,
		TTL:            TTLMinutes,
		Category:       ch.category(),
		ManagingEditor: ch.managingEditor(),
		WebMaster:      ch.webMaster(),
		Owner:          owner,
		Items:          make([]jsonItem, 0, len(doc.Items)),
	}

	if doc.HasPodcastItems() {
		out.Podcast = &jsonPodcast{
			Summary:     description,
			Author:      ch.authorName(),
			Owner:       owner,
			Category:    ch.category(),
			Description: description,
		}
	}

	for _, item := range doc.Items {
		guid := item.GUID
		if guid == "" {
			guid = item.NodeID
		}
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}

		ji := jsonItem{
			ID:            guid,
			URL:           item.Link,
			Title:         item.Title,
			ContentHTML:   r.sanitizeHTML(item.Description),
			ContentText:   r.plainText(item.Description),
			DatePublished: formatJSONDate(item.PublishDate),
			Tags:          tags,
			Category:      item.Category,
			Authors:       []jsonAuthor{author},
		}

		if item.HasMedia() {
			width, height := dimensions(item.Width, item.Height)
			ji.Attachments = []jsonAttachment{{
				URL:               item.Link,
				MimeType:          item.MimeType,
				SizeInBytes:       item.Size,
				DurationInSeconds: roundSeconds(item.DurationSeconds),
				Width:             width,
				Height:            height,
			}}
		}

		if item.Kind.IsPodcast() {
			duration := 0
			if d := roundSeconds(item.DurationSeconds); d != nil {
				duration = *d
			}
			ji.Podcast = &jsonItemPodcast{
				Duration: duration,
				Summary:  ji.ContentText,
				Author:   ch.authorName(),
			}
		}

		out.Items = append(out.Items, ji)
	}

	return json.MarshalIndent(out, "", "  ")
}
