package models

import "github.com/google/uuid"

// FolderOverride customizes the per-folder feed. At most one row exists per
// folder and it is removed together with the folder.
type FolderOverride struct {
	BaseModel
	FolderID            uuid.UUID `json:"folderId" gorm:"type:uuid;not null;uniqueIndex"`
	IncludeInFeed       bool      `json:"includeInFeed" gorm:"not null"`
	Title               *string   `json:"title,omitempty" gorm:"type:varchar(500)"`
	Description         *string   `json:"description,omitempty" gorm:"type:text"`
	AutoIncludeNewFiles bool      `json:"autoIncludeNewFiles" gorm:"not null"`
}

func (FolderOverride) TableName() string {
	return "folder_syndication_overrides"
}
