package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/models"
)

type CriterionKind string

const (
	CriterionAll    CriterionKind = "all"
	CriterionFolder CriterionKind = "folder"
	CriterionType   CriterionKind = "type"
	CriterionTag    CriterionKind = "tag"
)

// Criterion selects the items of a feed. Only the field matching Kind is
// meaningful.
type Criterion struct {
	Kind        CriterionKind
	FolderID    uuid.UUID
	ContentKind models.ContentKind
	Tag         string
}

func AllCriterion() Criterion { return Criterion{Kind: CriterionAll} }

func FolderCriterion(id uuid.UUID) Criterion { return Criterion{Kind: CriterionFolder, FolderID: id} }

func TypeCriterion(kind models.ContentKind) Criterion {
	return Criterion{Kind: CriterionType, ContentKind: kind}
}

func TagCriterion(tag string) Criterion { return Criterion{Kind: CriterionTag, Tag: tag} }

// ParseCriterion reads the stored form "all", "folder:<id>", "type:<kind>"
// or "tag:<value>". "folder:root" selects everything.
func ParseCriterion(raw string) (Criterion, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == string(CriterionAll) {
		return AllCriterion(), nil
	}

	kind, value, ok := strings.Cut(raw, ":")
	if !ok {
		return Criterion{}, invalid("criterion", "expected all, folder:<id>, type:<kind> or tag:<value>")
	}

	switch CriterionKind(kind) {
	case CriterionFolder:
		if IsRoot(value) {
			return AllCriterion(), nil
		}
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return Criterion{}, invalid("criterion", "invalid folder id")
		}
		return FolderCriterion(id), nil
	case CriterionType:
		ck := models.ContentKind(strings.ToLower(strings.TrimSpace(value)))
		if !ck.ValidFileKind() {
			return Criterion{}, invalid("criterion", "unknown content type "+value)
		}
		return TypeCriterion(ck), nil
	case CriterionTag:
		if strings.TrimSpace(value) == "" {
			return Criterion{}, invalid("criterion", "tag must not be empty")
		}
		return TagCriterion(value), nil
	default:
		return Criterion{}, invalid("criterion", "unknown filter "+kind)
	}
}

func (c Criterion) String() string {
	switch c.Kind {
	case CriterionFolder:
		return "folder:" + c.FolderID.String()
	case CriterionType:
		return "type:" + string(c.ContentKind)
	case CriterionTag:
		return "tag:" + c.Tag
	default:
		return string(CriterionAll)
	}
}

type FeedFilterEngine struct {
	Store     *AssetStore
	Hierarchy *HierarchyService
}

func NewFeedFilterEngine(store *AssetStore, hierarchy *HierarchyService) *FeedFilterEngine {
	return &FeedFilterEngine{Store: store, Hierarchy: hierarchy}
}

// ResolveAssetSet returns the included file nodes matching c, newest
// first, truncated to the configured item limit. A folder criterion covers
// the whole subtree; a folder that no longer exists selects nothing.
func (e *FeedFilterEngine) ResolveAssetSet(ctx context.Context, c Criterion, settings models.SyndicationSettings) ([]models.Asset, error) {
	var match func(models.Asset) bool

	switch c.Kind {
	case CriterionFolder:
		if _, err := e.Store.GetFolder(ctx, c.FolderID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return []models.Asset{}, nil
			}
			return nil, err
		}
		ids, err := e.Hierarchy.CollectDescendantIDs(ctx, c.FolderID)
		if err != nil {
			return nil, err
		}
		subtree := make(map[uuid.UUID]bool, len(ids)+1)
		subtree[c.FolderID] = true
		for _, id := range ids {
			subtree[id] = true
		}
		match = func(a models.Asset) bool {
			return a.ParentID != nil && subtree[*a.ParentID]
		}
	case CriterionType:
		match = func(a models.Asset) bool { return a.ContentKind == c.ContentKind }
	case CriterionTag:
		match = func(a models.Asset) bool { return hasTagContaining(a.TagList(), c.Tag) }
	default:
		match = func(models.Asset) bool { return true }
	}

	candidates, err := e.Store.IncludedFiles(ctx)
	if err != nil {
		return nil, err
	}

	selected := make([]models.Asset, 0, len(candidates))
	for _, a := range candidates {
		if match(a) {
			selected = append(selected, a)
		}
	}

	SortForFeed(selected)
	if limit := settings.EffectiveMaxItems(); len(selected) > limit {
		selected = selected[:limit]
	}
	return selected, nil
}

func hasTagContaining(tags []string, value string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, value) {
			return true
		}
	}
	return false
}

// SortForFeed orders by effective publish date descending, then creation
// time descending, then id so equal timestamps render in a stable order.
func SortForFeed(assets []models.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		pi, pj := assets[i].EffectivePublishDate(), assets[j].EffectivePublishDate()
		if !pi.Equal(pj) {
			return pi.After(pj)
		}
		if !assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].CreatedAt.After(assets[j].CreatedAt)
		}
		return assets[i].ID.String() < assets[j].ID.String()
	})
}
