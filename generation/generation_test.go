package generation

import (
	"context"

	"stylrapi/models"
)

// fakeStore is an in-memory WardrobeStore for pipeline and fallback tests.
type fakeStore struct {
	items   []models.ClothingItem
	outfits []models.Outfit

	itemsErr error
	queryErr error
}

func (s *fakeStore) ItemsForUser(ctx context.Context, userID uint) ([]models.ClothingItem, error) {
	if s.itemsErr != nil {
		return nil, s.itemsErr
	}
	result := make([]models.ClothingItem, 0, len(s.items))
	for _, item := range s.items {
		if item.OwnerID == userID {
			result = append(result, item)
		}
	}
	return result, nil
}

func (s *fakeStore) GetItem(ctx context.Context, userID uint, itemID uint) (*models.ClothingItem, error) {
	for i := range s.items {
		if s.items[i].OwnerID == userID && s.items[i].ID == itemID {
			item := s.items[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) QueryItems(ctx context.Context, query ItemQuery) ([]models.ClothingItem, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	excluded := map[uint]bool{}
	for _, id := range query.ExcludeIDs {
		excluded[id] = true
	}
	result := []models.ClothingItem{}
	for _, item := range s.items {
		if item.OwnerID != query.UserID || excluded[item.ID] {
			continue
		}
		if query.Category != "" && coreBucket(BucketForItem(&item)) != query.Category {
			continue
		}
		if query.MinQuality > 0 && item.QualityScore < query.MinQuality {
			continue
		}
		if query.MinPairability > 0 && item.PairabilityScore < query.MinPairability {
			continue
		}
		skip := false
		for _, banned := range query.ExcludeMaterials {
			if itemMaterial(&item) == banned {
				skip = true
			}
		}
		if skip {
			continue
		}
		result = append(result, item)
		if query.Limit > 0 && len(result) >= query.Limit {
			break
		}
	}
	return result, nil
}

func (s *fakeStore) RecentOutfits(ctx context.Context, userID uint, limit int) ([]models.Outfit, error) {
	result := make([]models.Outfit, 0, len(s.outfits))
	for _, outfit := range s.outfits {
		if outfit.UserAccountID == userID {
			result = append(result, outfit)
		}
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func fixtureItem(id uint, name, clothingType string) models.ClothingItem {
	item := models.ClothingItem{
		OwnerID:          1,
		Name:             name,
		ClothingType:     clothingType,
		QualityScore:     0.8,
		PairabilityScore: 0.7,
		Status:           "active",
	}
	item.ID = id
	return item
}

func withMaterial(item models.ClothingItem, material string) models.ClothingItem {
	item.Metadata.Material = material
	return item
}

func withTags(item models.ClothingItem, styles, occasions, seasons []string) models.ClothingItem {
	item.StyleTags = styles
	item.OccasionTags = occasions
	item.SeasonTags = seasons
	return item
}

// basicWardrobe is a small closet that can satisfy casual occasions.
func basicWardrobe() []models.ClothingItem {
	return []models.ClothingItem{
		withTags(fixtureItem(1, "White Tee", "tshirt"), []string{"casual"}, []string{"casual"}, []string{"summer"}),
		withTags(fixtureItem(2, "Blue Jeans", "jeans"), []string{"casual"}, []string{"casual"}, []string{"spring", "fall"}),
		withTags(fixtureItem(3, "White Sneakers", "sneakers"), []string{"casual", "athletic"}, []string{"casual"}, []string{"summer"}),
		withTags(fixtureItem(4, "Denim Jacket", "jacket"), []string{"casual"}, []string{"casual"}, []string{"fall"}),
		withTags(fixtureItem(5, "Leather Belt", "belt"), []string{"classic"}, []string{"casual", "business"}, nil),
	}
}

// businessWardrobe can satisfy a business casual request.
func businessWardrobe() []models.ClothingItem {
	return []models.ClothingItem{
		withTags(fixtureItem(10, "Oxford Shirt", "dress_shirt"), []string{"classic"}, []string{"business", "business casual"}, nil),
		withTags(fixtureItem(11, "Navy Chinos", "chinos"), []string{"classic"}, []string{"business casual"}, nil),
		withTags(fixtureItem(12, "Brown Loafers", "loafers"), []string{"classic"}, []string{"business", "business casual"}, nil),
		withTags(fixtureItem(13, "Navy Blazer", "blazer"), []string{"formal", "classic"}, []string{"business"}, nil),
		withTags(fixtureItem(14, "Leather Watch", "watch"), []string{"classic"}, []string{"business"}, nil),
	}
}

func moderateWeather() Weather {
	return Weather{TemperatureF: 65, Condition: "clear"}
}

func styleProfile() models.StyleProfile {
	return models.StyleProfile{PreferredStyles: []string{"classic"}}
}
