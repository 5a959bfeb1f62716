package generation

import (
	"context"

	"stylrapi/models"
)

// ItemQuery mirrors the indexed query surface of the document store. The
// fallback service relies on the composite indexes over
// (owner, category, quality_score, pairability_score) and
// (owner, category, style_tags); without them a query degrades to a scan.
type ItemQuery struct {
	UserID       uint
	Category     string
	ClothingType string

	// array-contains-any over style tags
	StyleTagsAny []string
	// array-contains over season tags
	SeasonTag string

	// exclusion sets fed from the healing context
	ExcludeIDs       []uint
	ExcludeMaterials []string
	ExcludeStyles    []string

	MinQuality     float64
	MinPairability float64

	OrderByQualityDesc bool
	Limit              int
}

// WardrobeStore is the persistence collaborator of the pipeline. Implemented
// over GORM in services, mocked in tests. Every call takes the request
// context so an abandoned request cancels in-flight queries.
type WardrobeStore interface {
	ItemsForUser(ctx context.Context, userID uint) ([]models.ClothingItem, error)
	GetItem(ctx context.Context, userID uint, itemID uint) (*models.ClothingItem, error)
	QueryItems(ctx context.Context, query ItemQuery) ([]models.ClothingItem, error)
	RecentOutfits(ctx context.Context, userID uint, limit int) ([]models.Outfit, error)
}
