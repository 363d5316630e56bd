package models

import "time"

const (
	SyndicationSettingsID  = 1
	DefaultMaxItems        = 20
	DefaultPodcastCategory = "Technology"
	DefaultFeedLanguage    = "en-us"
	DefaultFeedSiteURL     = "http://localhost:3001"
	DefaultFeedTitle       = "Incubrix CMS Feed"
	DefaultFeedDescription = "Latest content from Incubrix CMS"
	DefaultSiteTitle       = "Incubrix CMS"
	DefaultSiteDescription = "Content Management System RSS Feed"
)

// SyndicationSettings is the singleton row holding the global feed
// configuration. It is seeded on first boot and only ever updated.
type SyndicationSettings struct {
	ID                  uint      `json:"-" gorm:"primaryKey"`
	SiteTitle           string    `json:"siteTitle" gorm:"type:varchar(255);not null"`
	SiteDescription     string    `json:"siteDescription" gorm:"type:text"`
	SiteURL             string    `json:"siteUrl" gorm:"type:varchar(500);not null"`
	FeedTitle           string    `json:"feedTitle" gorm:"type:varchar(255);not null"`
	FeedDescription     string    `json:"feedDescription" gorm:"type:text"`
	Language            string    `json:"language" gorm:"type:varchar(16);not null"`
	MaxItems            int       `json:"maxItems" gorm:"not null"`
	AuthorName          string    `json:"authorName" gorm:"type:varchar(255)"`
	AuthorEmail         string    `json:"authorEmail" gorm:"type:varchar(255)"`
	OwnerName           string    `json:"ownerName" gorm:"type:varchar(255)"`
	OwnerEmail          string    `json:"ownerEmail" gorm:"type:varchar(255)"`
	AutoIncludeNewFiles bool      `json:"autoIncludeNewFiles" gorm:"not null"`
	PodcastCategory     string    `json:"podcastCategory" gorm:"type:varchar(255)"`
	ImageURL            string    `json:"imageUrl" gorm:"type:varchar(500)"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (SyndicationSettings) TableName() string {
	return "syndication_settings"
}

func DefaultSyndicationSettings() SyndicationSettings {
	return SyndicationSettings{
		ID:              SyndicationSettingsID,
		SiteTitle:       DefaultSiteTitle,
		SiteDescription: DefaultSiteDescription,
		SiteURL:         DefaultFeedSiteURL,
		FeedTitle:       DefaultFeedTitle,
		FeedDescription: DefaultFeedDescription,
		Language:        DefaultFeedLanguage,
		MaxItems:        DefaultMaxItems,
		PodcastCategory: DefaultPodcastCategory,
	}
}

// EffectiveMaxItems guards against a zero or negative stored limit.
func (s SyndicationSettings) EffectiveMaxItems() int {
	if s.MaxItems <= 0 {
		return DefaultMaxItems
	}
	return s.MaxItems
}
