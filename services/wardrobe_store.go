package services

import (
	"context"

	"stylrapi/generation"
	"stylrapi/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormWardrobeStore backs the generation pipeline with Postgres. Queries lean
// on the idx_owner_category_scores composite index and the text[] overlap
// operator for tag filters.
type GormWardrobeStore struct {
	DB *gorm.DB
}

func NewGormWardrobeStore(db *gorm.DB) *GormWardrobeStore {
	return &GormWardrobeStore{DB: db}
}

func (s *GormWardrobeStore) ItemsForUser(ctx context.Context, userID uint) ([]models.ClothingItem, error) {
	var items []models.ClothingItem
	result := s.DB.WithContext(ctx).Where(
		"owner_id = ? and status = ?", userID, "active",
	).Find(&items)
	return items, result.Error
}

func (s *GormWardrobeStore) GetItem(ctx context.Context, userID uint, itemID uint) (*models.ClothingItem, error) {
	var item models.ClothingItem
	result := s.DB.WithContext(ctx).Where(
		"owner_id = ? and id = ? and status = ?", userID, itemID, "active",
	).First(&item)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &item, nil
}

func (s *GormWardrobeStore) QueryItems(ctx context.Context, query generation.ItemQuery) ([]models.ClothingItem, error) {
	tx := s.DB.WithContext(ctx).Model(&models.ClothingItem{}).Where(
		"owner_id = ? and status = ?", query.UserID, "active",
	)
	if query.Category != "" {
		tx = tx.Where("category = ?", query.Category)
	}
	if query.ClothingType != "" {
		tx = tx.Where("clothing_type = ?", query.ClothingType)
	}
	if len(query.StyleTagsAny) > 0 {
		tx = tx.Where("style_tags && ?", pq.StringArray(query.StyleTagsAny))
	}
	if query.SeasonTag != "" {
		tx = tx.Where("? = any(season_tags)", query.SeasonTag)
	}
	if len(query.ExcludeIDs) > 0 {
		tx = tx.Where("id not in ?", query.ExcludeIDs)
	}
	if len(query.ExcludeMaterials) > 0 {
		tx = tx.Where("coalesce(metadata->>'material', '') not in ?", query.ExcludeMaterials)
	}
	if len(query.ExcludeStyles) > 0 {
		tx = tx.Where("not (style_tags && ?)", pq.StringArray(query.ExcludeStyles))
	}
	if query.MinQuality > 0 {
		tx = tx.Where("quality_score >= ?", query.MinQuality)
	}
	if query.MinPairability > 0 {
		tx = tx.Where("pairability_score >= ?", query.MinPairability)
	}
	if query.OrderByQualityDesc {
		tx = tx.Order("quality_score desc")
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}

	var items []models.ClothingItem
	result := tx.Find(&items)
	return items, result.Error
}

func (s *GormWardrobeStore) RecentOutfits(ctx context.Context, userID uint, limit int) ([]models.Outfit, error) {
	var outfits []models.Outfit
	tx := s.DB.WithContext(ctx).Preload("Items.ClothingItem").Where(
		"user_account_id = ?", userID,
	).Order("created_at desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	result := tx.Find(&outfits)
	return outfits, result.Error
}
