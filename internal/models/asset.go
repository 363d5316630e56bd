package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Asset is a node of the content tree: either a folder or an uploaded file.
// A nil ParentID places the node directly under the root.
type Asset struct {
	BaseModel
	Name          string         `json:"name" gorm:"type:varchar(255);not null"`
	IsFolder      bool           `json:"isFolder" gorm:"not null;default:false;index"`
	ParentID      *uuid.UUID     `json:"parentId,omitempty" gorm:"type:uuid;index"`
	ContentKind   ContentKind    `json:"contentKind" gorm:"type:varchar(32);not null;index"`
	Format        string         `json:"format" gorm:"type:varchar(32)"`
	MimeType      string         `json:"mimeType" gorm:"type:varchar(255)"`
	Size          int64          `json:"size" gorm:"not null;default:0"`
	StoragePath   string         `json:"-" gorm:"type:text"`
	ThumbnailPath *string        `json:"-" gorm:"type:text"`
	OriginalPath  string         `json:"originalPath,omitempty" gorm:"type:text"`
	UploadedBy    string         `json:"uploadedBy,omitempty" gorm:"type:varchar(255)"`
	DerivedFromID *uuid.UUID     `json:"derivedFromId,omitempty" gorm:"type:uuid"`
	Description   *string        `json:"description,omitempty" gorm:"type:text"`
	Color         string         `json:"color,omitempty" gorm:"type:varchar(32)"`
	Tags          datatypes.JSON `json:"-"`
	Starred       bool           `json:"starred" gorm:"not null;default:false"`
	Shared        bool           `json:"shared" gorm:"not null;default:false"`

	DurationSeconds  *float64 `json:"durationSeconds,omitempty"`
	PageCount        *int     `json:"pageCount,omitempty"`
	Width            *int     `json:"width,omitempty"`
	Height           *int     `json:"height,omitempty"`
	PreviewAvailable bool     `json:"previewAvailable" gorm:"not null;default:false"`

	IncludeInFeed   bool       `json:"includeInFeed" gorm:"not null;default:false;index"`
	FeedTitle       *string    `json:"feedTitle,omitempty" gorm:"type:varchar(500)"`
	FeedDescription *string    `json:"feedDescription,omitempty" gorm:"type:text"`
	FeedCategory    *string    `json:"feedCategory,omitempty" gorm:"type:varchar(255)"`
	FeedPublishDate *time.Time `json:"feedPublishDate,omitempty"`
	FeedGUID        *string    `json:"feedGuid,omitempty" gorm:"column:feed_guid;type:varchar(255)"`
}

func (a Asset) Kind() string {
	if a.IsFolder {
		return "folder"
	}
	return "file"
}

// TagList decodes the stored tag array. Malformed data yields no tags.
func (a Asset) TagList() []string {
	if len(a.Tags) == 0 {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal(a.Tags, &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func (a *Asset) SetTags(tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	a.Tags = datatypes.JSON(raw)
	return nil
}

// EffectivePublishDate is the syndication publish date, or the creation
// time when none was set.
func (a Asset) EffectivePublishDate() time.Time {
	if a.FeedPublishDate != nil && !a.FeedPublishDate.IsZero() {
		return *a.FeedPublishDate
	}
	return a.CreatedAt
}
