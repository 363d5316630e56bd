package models

// PublicFeed is a named, slug-addressed feed whose items are selected by a
// stored criterion ("all", "folder:<id>", "type:<kind>" or "tag:<value>").
type PublicFeed struct {
	BaseModel
	Name        string  `json:"name" gorm:"type:varchar(255);not null"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	Slug        string  `json:"slug" gorm:"type:varchar(255);not null;uniqueIndex"`
	Criterion   string  `json:"criterion" gorm:"type:varchar(512);not null"`
	IsActive    bool    `json:"isActive" gorm:"not null"`
}
