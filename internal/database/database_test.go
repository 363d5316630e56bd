package database

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/incubrix/cms/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), GormConfig())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestSeedSettingsCreatesDefaultsOnce(t *testing.T) {
	db := openTestDB(t)

	if err := SeedSettings(db); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}

	var settings models.SyndicationSettings
	if err := db.First(&settings, models.SyndicationSettingsID).Error; err != nil {
		t.Fatalf("expected settings row: %v", err)
	}
	if settings.FeedTitle != models.DefaultFeedTitle {
		t.Fatalf("unexpected feed title %q", settings.FeedTitle)
	}
	if settings.MaxItems != models.DefaultMaxItems {
		t.Fatalf("unexpected max items %d", settings.MaxItems)
	}

	if err := db.Model(&settings).Update("feed_title", "Custom").Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := SeedSettings(db); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var count int64
	db.Model(&models.SyndicationSettings{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single settings row, got %d", count)
	}
	var reloaded models.SyndicationSettings
	db.First(&reloaded, models.SyndicationSettingsID)
	if reloaded.FeedTitle != "Custom" {
		t.Fatalf("seed must not overwrite existing settings, got %q", reloaded.FeedTitle)
	}
}
