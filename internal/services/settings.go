package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	siteURLPattern = regexp.MustCompile(`^https?://[^\s/$.?#][^\s]*$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// SettingsInput carries a partial update of the global settings; nil
// fields keep their stored value.
type SettingsInput struct {
	SiteTitle           *string `json:"siteTitle"`
	SiteDescription     *string `json:"siteDescription"`
	SiteURL             *string `json:"siteUrl"`
	FeedTitle           *string `json:"feedTitle"`
	FeedDescription     *string `json:"feedDescription"`
	Language            *string `json:"language"`
	MaxItems            *int    `json:"maxItems"`
	AuthorName          *string `json:"authorName"`
	AuthorEmail         *string `json:"authorEmail"`
	OwnerName           *string `json:"ownerName"`
	OwnerEmail          *string `json:"ownerEmail"`
	AutoIncludeNewFiles *bool   `json:"autoIncludeNewFiles"`
	PodcastCategory     *string `json:"podcastCategory"`
	ImageURL            *string `json:"imageUrl"`
}

type FolderOverrideInput struct {
	IncludeInFeed       bool    `json:"includeInFeed"`
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	AutoIncludeNewFiles bool    `json:"autoIncludeNewFiles"`
}

// FolderOverrideView is the effective override of a folder, with defaults
// filled in when none is stored.
type FolderOverrideView struct {
	FolderID            string  `json:"folderId"`
	FolderName          string  `json:"folderName"`
	Stored              bool    `json:"stored"`
	IncludeInFeed       bool    `json:"includeInFeed"`
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	AutoIncludeNewFiles bool    `json:"autoIncludeNewFiles"`
	FilesIncluded       int     `json:"filesIncluded,omitempty"`
}

type SettingsService struct {
	DB       *gorm.DB
	Store    *AssetStore
	Notifier ChangeNotifier
}

func NewSettingsService(db *gorm.DB, store *AssetStore, notifier ChangeNotifier) *SettingsService {
	return &SettingsService{DB: db, Store: store, Notifier: notifier}
}

// Load returns the settings aggregate, creating the default row when the
// store has none yet.
func (s *SettingsService) Load(ctx context.Context) (models.SyndicationSettings, error) {
	var settings models.SyndicationSettings
	err := s.DB.WithContext(ctx).First(&settings, models.SyndicationSettingsID).Error
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return settings, err
	}

	defaults := models.DefaultSyndicationSettings()
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return settings, err
	}
	return defaults, nil
}

func (s *SettingsService) Update(ctx context.Context, in SettingsInput) (models.SyndicationSettings, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return current, err
	}

	assignString(&current.SiteTitle, in.SiteTitle)
	assignString(&current.SiteDescription, in.SiteDescription)
	assignString(&current.SiteURL, in.SiteURL)
	assignString(&current.FeedTitle, in.FeedTitle)
	assignString(&current.FeedDescription, in.FeedDescription)
	assignString(&current.Language, in.Language)
	assignString(&current.AuthorName, in.AuthorName)
	assignString(&current.AuthorEmail, in.AuthorEmail)
	assignString(&current.OwnerName, in.OwnerName)
	assignString(&current.OwnerEmail, in.OwnerEmail)
	assignString(&current.PodcastCategory, in.PodcastCategory)
	assignString(&current.ImageURL, in.ImageURL)
	if in.MaxItems != nil {
		current.MaxItems = *in.MaxItems
	}
	if in.AutoIncludeNewFiles != nil {
		current.AutoIncludeNewFiles = *in.AutoIncludeNewFiles
	}
	current.SiteURL = strings.TrimRight(current.SiteURL, "/")

	if err := validateSettings(current); err != nil {
		return current, err
	}

	if err := s.DB.WithContext(ctx).Save(&current).Error; err != nil {
		return current, err
	}

	logger.Info("syndication_settings_updated", map[string]interface{}{
		"site_url":  current.SiteURL,
		"max_items": current.MaxItems,
	})
	notify(ctx, s.Notifier, "settings_updated")
	return current, nil
}

func assignString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func validateSettings(s models.SyndicationSettings) error {
	return fromValidation(validation.ValidateStruct(&s,
		validation.Field(&s.SiteTitle, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.SiteURL, validation.Required, validation.Match(siteURLPattern).Error("must be an http(s) URL")),
		validation.Field(&s.FeedTitle, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.Language, validation.Required, validation.Length(2, 16)),
		validation.Field(&s.MaxItems, validation.Required, validation.Min(1), validation.Max(500)),
		validation.Field(&s.AuthorEmail, validation.Match(emailPattern).Error("must be a valid email address")),
		validation.Field(&s.OwnerEmail, validation.Match(emailPattern).Error("must be a valid email address")),
		validation.Field(&s.ImageURL, validation.Match(siteURLPattern).Error("must be an http(s) URL")),
	))
}

func (s *SettingsService) FolderOverride(ctx context.Context, folderID uuid.UUID) (FolderOverrideView, error) {
	folder, err := s.Store.GetFolder(ctx, folderID)
	if err != nil {
		return FolderOverrideView{}, err
	}

	override, err := s.loadOverride(ctx, s.DB, folderID)
	if err != nil {
		return FolderOverrideView{}, err
	}
	return overrideView(folder, override), nil
}

func (s *SettingsService) loadOverride(ctx context.Context, db *gorm.DB, folderID uuid.UUID) (*models.FolderOverride, error) {
	var override models.FolderOverride
	err := db.WithContext(ctx).Where("folder_id = ?", folderID).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func overrideView(folder *models.Asset, override *models.FolderOverride) FolderOverrideView {
	view := FolderOverrideView{
		FolderID:   folder.ID.String(),
		FolderName: folder.Name,
	}
	if override == nil {
		name := folder.Name
		view.Title = &name
		view.Description = folder.Description
		return view
	}
	view.Stored = true
	view.IncludeInFeed = override.IncludeInFeed
	view.Title = override.Title
	view.Description = override.Description
	view.AutoIncludeNewFiles = override.AutoIncludeNewFiles
	return view
}

// UpsertFolderOverride stores the override of a folder. When the folder is
// included with auto-include on, its direct file children are included too.
func (s *SettingsService) UpsertFolderOverride(ctx context.Context, folderID uuid.UUID, in FolderOverrideInput) (FolderOverrideView, error) {
	folder, err := s.Store.GetFolder(ctx, folderID)
	if err != nil {
		return FolderOverrideView{}, err
	}

	override := models.FolderOverride{
		FolderID:            folderID,
		IncludeInFeed:       in.IncludeInFeed,
		Title:               trimmedOrNil(in.Title),
		Description:         trimmedOrNil(in.Description),
		AutoIncludeNewFiles: in.AutoIncludeNewFiles,
	}

	included := 0
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "folder_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"include_in_feed", "title", "description", "auto_include_new_files", "updated_at",
			}),
		}).Create(&override).Error; err != nil {
			return err
		}

		if !(in.IncludeInFeed && in.AutoIncludeNewFiles) {
			return nil
		}

		var children []models.Asset
		if err := tx.Where("parent_id = ? AND is_folder = ?", folderID, false).Find(&children).Error; err != nil {
			return err
		}
		for i := range children {
			child := &children[i]
			applySyndicationDefaults(child, child.CreatedAt)
			if err := tx.Save(child).Error; err != nil {
				return err
			}
			included++
		}
		return nil
	})
	if err != nil {
		return FolderOverrideView{}, err
	}

	stored, err := s.loadOverride(ctx, s.DB, folderID)
	if err != nil {
		return FolderOverrideView{}, err
	}
	view := overrideView(folder, stored)
	view.FilesIncluded = included

	logger.Info("folder_override_updated", map[string]interface{}{
		"folder_id":      folderID.String(),
		"include":        in.IncludeInFeed,
		"auto_include":   in.AutoIncludeNewFiles,
		"files_included": included,
	})
	notify(ctx, s.Notifier, "folder_override_updated")
	return view, nil
}

// applySyndicationDefaults includes a file and fills unset syndication
// fields from the node itself.
func applySyndicationDefaults(a *models.Asset, publishAt time.Time) {
	a.IncludeInFeed = true
	if a.FeedTitle == nil || strings.TrimSpace(*a.FeedTitle) == "" {
		title := a.Name
		a.FeedTitle = &title
	}
	if a.FeedCategory == nil || strings.TrimSpace(*a.FeedCategory) == "" {
		category := string(a.ContentKind)
		a.FeedCategory = &category
	}
	if a.FeedPublishDate == nil {
		published := publishAt.UTC()
		a.FeedPublishDate = &published
	}
	if a.FeedGUID == nil || strings.TrimSpace(*a.FeedGUID) == "" {
		guid := a.ID.String()
		a.FeedGUID = &guid
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
