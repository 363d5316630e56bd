package feed

import (
	"bytes"
	"encoding/xml"
	"strconv"
)

const (
	nsContent    = "http://purl.org/rss/1.0/modules/content/"
	nsMedia      = "http://search.yahoo.com/mrss/"
	nsAtom       = "http://www.w3.org/2005/Atom"
	nsItunes     = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	nsGooglePlay = "http://www.google.com/schemas/play-podcasts/1.0"
)

type rssDocument struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	ContentNS    string     `xml:"xmlns:content,attr"`
	MediaNS      string     `xml:"xmlns:media,attr"`
	AtomNS       string     `xml:"xmlns:atom,attr"`
	ItunesNS     string     `xml:"xmlns:itunes,attr"`
	GooglePlayNS string     `xml:"xmlns:googleplay,attr"`
	Channel      rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string    `xml:"title"`
	Link           string    `xml:"link"`
	Description    string    `xml:"description"`
	Language       string    `xml:"language,omitempty"`
	LastBuildDate  string    `xml:"lastBuildDate"`
	PubDate        string    `xml:"pubDate"`
	Generator      string    `xml:"generator"`
	ManagingEditor string    `xml:"managingEditor"`
	WebMaster      string    `xml:"webMaster"`
	Category       string    `xml:"category,omitempty"`
	TTL            int       `xml:"ttl"`
	Image          *rssImage `xml:"image"`
	AtomLink       atomLink  `xml:"atom:link"`

	ItunesSummary         string        `xml:"itunes:summary,omitempty"`
	ItunesAuthor          string        `xml:"itunes:author,omitempty"`
	ItunesOwner           *itunesOwner  `xml:"itunes:owner"`
	ItunesCategory        *categoryText `xml:"itunes:category"`
	GooglePlayDescription string        `xml:"googleplay:description,omitempty"`
	GooglePlayAuthor      string        `xml:"googleplay:author,omitempty"`
	GooglePlayOwner       string        `xml:"googleplay:owner,omitempty"`
	GooglePlayCategory    *categoryText `xml:"googleplay:category"`
	Items                 []rssItem     `xml:"item"`
}

type rssImage struct {
	URL   string `xml:"url"`
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type itunesOwner struct {
	Name  string `xml:"itunes:name"`
	Email string `xml:"itunes:email"`
}

type categoryText struct {
	Text string `xml:"text,attr"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type mediaContent struct {
	URL      string `xml:"url,attr"`
	FileSize int64  `xml:"fileSize,attr"`
	Type     string `xml:"type,attr"`
	Duration *int   `xml:"duration,attr,omitempty"`
	Width    *int   `xml:"width,attr,omitempty"`
	Height   *int   `xml:"height,attr,omitempty"`
}

type rssItem struct {
	Title          string        `xml:"title"`
	Link           string        `xml:"link"`
	Description    cdata         `xml:"description"`
	PubDate        string        `xml:"pubDate"`
	GUID           rssGUID       `xml:"guid"`
	Category       string        `xml:"category,omitempty"`
	Enclosure      *rssEnclosure `xml:"enclosure"`
	MediaContent   *mediaContent `xml:"media:content"`
	ItunesDuration string        `xml:"itunes:duration,omitempty"`
	ItunesSummary  string        `xml:"itunes:summary,omitempty"`
	ItunesAuthor   string        `xml:"itunes:author,omitempty"`
}

// XML renders an RSS 2.0 document with content, media, atom, itunes and
// googleplay extensions. Podcast elements appear only when at least one
// item is audio or video.
func (r *Renderer) XML(doc Document) ([]byte, error) {
	ch := doc.Channel
	built := formatRSSDate(doc.buildDate(r.now))
	description := ch.description()

	channel := rssChannel{
		Title:          ch.Title,
		Link:           ch.SiteURL,
		Description:    description,
		Language:       ch.Language,
		LastBuildDate:  built,
		PubDate:        built,
		Generator:      Generator,
		ManagingEditor: ch.managingEditor(),
		WebMaster:      ch.webMaster(),
		Category:       ch.category(),
		TTL:            TTLMinutes,
		AtomLink: atomLink{
			Href: ch.SelfURL,
			Rel:  "self",
			Type: "application/rss+xml",
		},
	}
	if ch.ImageURL != "" {
		channel.Image = &rssImage{URL: ch.ImageURL, Title: ch.Title, Link: ch.SiteURL}
	}

	podcast := doc.HasPodcastItems()
	if podcast {
		channel.ItunesSummary = description
		channel.ItunesAuthor = ch.authorName()
		channel.ItunesOwner = &itunesOwner{Name: ch.ownerName(), Email: ch.ownerEmail()}
		channel.ItunesCategory = &categoryText{Text: ch.category()}
		channel.GooglePlayDescription = description
		channel.GooglePlayAuthor = ch.authorName()
		channel.GooglePlayOwner = ch.ownerEmail()
		channel.GooglePlayCategory = &categoryText{Text: ch.category()}
	}

	channel.Items = make([]rssItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		body := r.sanitizeHTML(item.Description)
		guid := item.GUID
		if guid == "" {
			guid = item.NodeID
		}

		out := rssItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: cdata{Text: body},
			PubDate:     formatRSSDate(item.PublishDate),
			GUID:        rssGUID{IsPermaLink: "false", Value: guid},
			Category:    item.Category,
		}

		if item.HasMedia() {
			width, height := dimensions(item.Width, item.Height)
			out.Enclosure = &rssEnclosure{URL: item.Link, Length: item.Size, Type: item.MimeType}
			out.MediaContent = &mediaContent{
				URL:      item.Link,
				FileSize: item.Size,
				Type:     item.MimeType,
				Duration: roundSeconds(item.DurationSeconds),
				Width:    width,
				Height:   height,
			}
		}

		if item.Kind.IsPodcast() {
			duration := 0
			if d := roundSeconds(item.DurationSeconds); d != nil {
				duration = *d
			}
			out.ItunesDuration = strconv.Itoa(duration)
			out.ItunesSummary = r.plainText(item.Description)
			out.ItunesAuthor = ch.authorName()
		}

		channel.Items = append(channel.Items, out)
	}

	rss := rssDocument{
		Version:      "2.0",
		ContentNS:    nsContent,
		MediaNS:      nsMedia,
		AtomNS:       nsAtom,
		ItunesNS:     nsItunes,
		GooglePlayNS: nsGooglePlay,
		Channel:      channel,
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(rss); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
