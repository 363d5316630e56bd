package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/pkg/logger"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const slugExistsMessage = "feed slug already exists"

type PublicFeedInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	Criterion   *string `json:"criterion"`
	IsActive    *bool   `json:"isActive"`
}

// PublicFeedView adds the derived URLs and, for folder criteria, the name
// of the referenced folder.
type PublicFeedView struct {
	models.PublicFeed
	URL        string  `json:"url"`
	XMLURL     string  `json:"xmlUrl"`
	JSONURL    string  `json:"jsonUrl"`
	FolderID   *string `json:"folderId,omitempty"`
	FolderName *string `json:"folderName,omitempty"`
}

// PublicFeedRegistry manages named slug-addressed feeds and resolves them
// to rendered documents on demand.
type PublicFeedRegistry struct {
	DB       *gorm.DB
	Store    *AssetStore
	Settings *SettingsService
	Filter   *FeedFilterEngine
	Renderer *feed.Renderer
}

func NewPublicFeedRegistry(db *gorm.DB, store *AssetStore, settings *SettingsService, filter *FeedFilterEngine, renderer *feed.Renderer) *PublicFeedRegistry {
	return &PublicFeedRegistry{DB: db, Store: store, Settings: settings, Filter: filter, Renderer: renderer}
}

func publicFeedPath(slug string) string {
	return "/feeds/" + slug
}

func (r *PublicFeedRegistry) view(ctx context.Context, pf models.PublicFeed, siteURL string) PublicFeedView {
	base := strings.TrimRight(siteURL, "/") + publicFeedPath(pf.Slug)
	v := PublicFeedView{
		PublicFeed: pf,
		URL:        base,
		XMLURL:     base + ".xml",
		JSONURL:    base + ".json",
	}

	c, err := ParseCriterion(pf.Criterion)
	if err != nil || c.Kind != CriterionFolder {
		return v
	}
	id := c.FolderID.String()
	v.FolderID = &id
	if folder, err := r.Store.GetFolder(ctx, c.FolderID); err == nil {
		v.FolderName = &folder.Name
	}
	return v
}

func validatePublicFeed(pf *models.PublicFeed) error {
	return fromValidation(validation.ValidateStruct(pf,
		validation.Field(&pf.Name, validation.Required.Error("feed name is required"), validation.RuneLength(1, 255)),
		validation.Field(&pf.Slug,
			validation.Required.Error("feed slug is required"),
			validation.RuneLength(1, 255),
			validation.Match(slugPattern).Error("slug may only contain lowercase letters, digits and single hyphens"),
		),
	))
}

// normalizeCriterion validates the stored criterion and returns its
// canonical form.
func normalizeCriterion(raw string) (string, error) {
	c, err := ParseCriterion(raw)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func (r *PublicFeedRegistry) slugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.PublicFeed{}).Where("slug = ?", slug)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PublicFeedRegistry) Create(ctx context.Context, in PublicFeedInput) (PublicFeedView, error) {
	pf := models.PublicFeed{IsActive: true, Criterion: string(CriterionAll)}
	if in.Name != nil {
		pf.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		pf.Slug = strings.TrimSpace(*in.Slug)
	}
	pf.Description = trimmedOrNil(in.Description)
	if in.Criterion != nil {
		pf.Criterion = *in.Criterion
	}
	if in.IsActive != nil {
		pf.IsActive = *in.IsActive
	}

	if err := r.save(ctx, &pf, true); err != nil {
		return PublicFeedView{}, err
	}

	logger.Info("public_feed_created", map[string]interface{}{
		"feed_id":   pf.ID.String(),
		"slug":      pf.Slug,
		"criterion": pf.Criterion,
	})
	return r.viewWithSettings(ctx, pf)
}

func (r *PublicFeedRegistry) save(ctx context.Context, pf *models.PublicFeed, create bool) error {
	if err := validatePublicFeed(pf); err != nil {
		return err
	}
	criterion, err := normalizeCriterion(pf.Criterion)
	if err != nil {
		return err
	}
	pf.Criterion = criterion

	taken, err := r.slugTaken(ctx, pf.Slug, pf.ID)
	if err != nil {
		return err
	}
	if taken {
		return invalid("slug", slugExistsMessage)
	}

	db := r.DB.WithContext(ctx)
	if create {
		err = db.Create(pf).Error
	} else {
		err = db.Save(pf).Error
	}
	if isUniqueConstraintError(err) {
		return invalid("slug", slugExistsMessage)
	}
	return err
}

func (r *PublicFeedRegistry) viewWithSettings(ctx context.Context, pf models.PublicFeed) (PublicFeedView, error) {
	settings, err := r.Settings.Load(ctx)
	if err != nil {
		return PublicFeedView{}, err
	}
	return r.view(ctx, pf, settings.SiteURL), nil
}

func (r *PublicFeedRegistry) load(ctx context.Context, id uuid.UUID) (models.PublicFeed, error) {
	var pf models.PublicFeed
	if err := r.DB.WithContext(ctx).First(&pf, "id = ?", id).Error; err != nil {
		return pf, notFoundOr(err, "feed")
	}
	return pf, nil
}

func (r *PublicFeedRegistry) Get(ctx context.Context, id uuid.UUID) (PublicFeedView, error) {
	pf, err := r.load(ctx, id)
	if err != nil {
		return PublicFeedView{}, err
	}
	return r.viewWithSettings(ctx, pf)
}

// Update applies a partial change. The slug may change as long as it stays
// unique.
func (r *PublicFeedRegistry) Update(ctx context.Context, id uuid.UUID, in PublicFeedInput) (PublicFeedView, error) {
	pf, err := r.load(ctx, id)
	if err != nil {
		return PublicFeedView{}, err
	}

	if in.Name != nil {
		pf.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		pf.Slug = strings.TrimSpace(*in.Slug)
	}
	if in.Description != nil {
		pf.Description = trimmedOrNil(in.Description)
	}
	if in.Criterion != nil {
		pf.Criterion = *in.Criterion
	}
	if in.IsActive != nil {
		pf.IsActive = *in.IsActive
	}

	if err := r.save(ctx, &pf, false); err != nil {
		return PublicFeedView{}, err
	}

	logger.Info("public_feed_updated", map[string]interface{}{
		"feed_id": pf.ID.String(),
		"slug":    pf.Slug,
	})
	return r.viewWithSettings(ctx, pf)
}

func (r *PublicFeedRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.PublicFeed{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("feed")
	}
	logger.Info("public_feed_deleted", map[string]interface{}{
		"feed_id": id.String(),
	})
	return nil
}

// List returns every configured feed, newest first.
func (r *PublicFeedRegistry) List(ctx context.Context) ([]PublicFeedView, error) {
	settings, err := r.Settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	var feeds []models.PublicFeed
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id").Find(&feeds).Error; err != nil {
		return nil, err
	}

	views := make([]PublicFeedView, 0, len(feeds))
	for _, pf := range feeds {
		views = append(views, r.view(ctx, pf, settings.SiteURL))
	}
	return views, nil
}

// Resolve renders the active feed registered under slug. Inactive and
// unknown slugs are not found; a dead folder reference renders empty.
func (r *PublicFeedRegistry) Resolve(ctx context.Context, slug string, format feed.Format) (RenderedFeed, error) {
	var pf models.PublicFeed
	err := r.DB.WithContext(ctx).
		Where("slug = ? AND is_active = ?", strings.TrimSpace(slug), true).
		First(&pf).Error
	if err != nil {
		return RenderedFeed{}, notFoundOr(err, "feed")
	}

	criterion, err := ParseCriterion(pf.Criterion)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			logger.Warn("public_feed_bad_criterion", map[string]interface{}{
				"slug":      pf.Slug,
				"criterion": pf.Criterion,
			})
			return RenderedFeed{}, notFound("feed")
		}
		return RenderedFeed{}, err
	}

	settings, err := r.Settings.Load(ctx)
	if err != nil {
		return RenderedFeed{}, err
	}
	assets, err := r.Filter.ResolveAssetSet(ctx, criterion, settings)
	if err != nil {
		return RenderedFeed{}, err
	}

	description := settings.FeedDescription
	if pf.Description != nil && strings.TrimSpace(*pf.Description) != "" {
		description = *pf.Description
	}

	base := strings.TrimRight(settings.SiteURL, "/") + publicFeedPath(pf.Slug)
	doc := buildDocument(settings, assets, pf.Name, description, base, base+".json")

	body, err := r.Renderer.Render(doc, format)
	if err != nil {
		return RenderedFeed{}, err
	}
	recordRender(ScopePublic, format, len(doc.Items))
	return RenderedFeed{Body: body, Format: format, ItemCount: len(doc.Items)}, nil
}
