package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/incubrix/cms/internal/config"
	"github.com/incubrix/cms/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedSettings(db); err != nil {
		return nil, err
	}

	return db, nil
}

func GormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Asset{},
		&models.SyndicationSettings{},
		&models.FolderOverride{},
		&models.PublicFeed{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'asset_content_kind_check'
  ) THEN
    ALTER TABLE assets
    ADD CONSTRAINT asset_content_kind_check
    CHECK (
      (is_folder AND content_kind = 'folder')
      OR
      (NOT is_folder AND content_kind IN ('text', 'audio', 'video', 'image', 'document', 'archive', 'other'))
    );
  END IF;
END $$;`

	return db.Exec(constraint).Error
}

// SeedSettings creates the singleton settings row with defaults on first
// boot. An existing row is never overwritten.
func SeedSettings(db *gorm.DB) error {
	var existing models.SyndicationSettings
	err := db.First(&existing, models.SyndicationSettingsID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	defaults := models.DefaultSyndicationSettings()
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
}
