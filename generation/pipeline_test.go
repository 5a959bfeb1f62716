package generation

import (
	"context"
	"errors"
	"testing"

	"stylrapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBusinessCasualOutfit(t *testing.T) {
	store := &fakeStore{items: businessWardrobe()}
	pipeline := NewPipeline(store)

	outfit, err := pipeline.Generate(context.Background(), GenerateRequest{
		UserID:   1,
		Occasion: "business casual",
		Style:    "classic",
		Weather:  moderateWeather(),
	}, styleProfile())
	require.NoError(t, err)

	require.NotEmpty(t, outfit.Items)
	buckets := map[string]bool{}
	for _, item := range outfit.Items {
		buckets[coreBucket(BucketForItem(&item))] = true
	}
	assert.True(t, buckets[CategoryTop])
	assert.True(t, buckets[CategoryBottom])
	assert.True(t, buckets[CategoryShoes])
	assert.Equal(t, MethodPrimary, outfit.Method)
	assert.Greater(t, outfit.Confidence, 0.5)
	assert.NotEmpty(t, outfit.Trace)
}

func TestGenerateExcludesWoolInHeat(t *testing.T) {
	wardrobe := basicWardrobe()
	// jeans are excluded above 85F too, the closet needs a hot weather bottom
	wardrobe = append(wardrobe,
		withTags(fixtureItem(21, "Khaki Shorts", "shorts"), []string{"casual"}, []string{"casual"}, []string{"summer"}))
	wool := withMaterial(fixtureItem(20, "Wool Sweater", "sweater"), "wool")
	wool.QualityScore = 1.0
	wardrobe = append(wardrobe, wool)
	store := &fakeStore{items: wardrobe}
	pipeline := NewPipeline(store)

	outfit, err := pipeline.Generate(context.Background(), GenerateRequest{
		UserID:   1,
		Occasion: "casual",
		Weather:  Weather{TemperatureF: 95},
	}, models.StyleProfile{})
	require.NoError(t, err)

	for _, item := range outfit.Items {
		assert.NotEqual(t, "Wool Sweater", item.Name)
	}
}

func TestGenerateEmptyWardrobe(t *testing.T) {
	pipeline := NewPipeline(&fakeStore{})

	_, err := pipeline.Generate(context.Background(), GenerateRequest{UserID: 1, Occasion: "casual", Weather: moderateWeather()}, models.StyleProfile{})

	var genErr *OutfitGenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Reason, "empty")
}

func TestGenerateFailsWithoutShoes(t *testing.T) {
	store := &fakeStore{items: []models.ClothingItem{
		withTags(fixtureItem(1, "White Tee", "tshirt"), []string{"casual"}, []string{"casual"}, nil),
		withTags(fixtureItem(2, "Blue Jeans", "jeans"), []string{"casual"}, []string{"casual"}, nil),
	}}
	pipeline := NewPipeline(store)

	_, err := pipeline.Generate(context.Background(), GenerateRequest{UserID: 1, Occasion: "casual", Weather: moderateWeather()}, models.StyleProfile{})

	var genErr *OutfitGenerationError
	require.ErrorAs(t, err, &genErr)
	require.NotEmpty(t, genErr.Errors)
	assert.Contains(t, genErr.Errors[0], "shoes")
}

func TestGeneratePropagatesStoreErrors(t *testing.T) {
	store := &fakeStore{itemsErr: errors.New("connection refused")}
	pipeline := NewPipeline(store)

	_, err := pipeline.Generate(context.Background(), GenerateRequest{UserID: 1, Occasion: "casual", Weather: moderateWeather()}, models.StyleProfile{})

	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "load wardrobe", dbErr.Op)
}

func TestGenerateWithBaseItem(t *testing.T) {
	wardrobe := basicWardrobe()
	store := &fakeStore{items: wardrobe}
	pipeline := NewPipeline(store)
	baseID := wardrobe[3].ID // denim jacket

	outfit, err := pipeline.Generate(context.Background(), GenerateRequest{
		UserID:     1,
		Occasion:   "casual",
		Weather:    moderateWeather(),
		BaseItemID: &baseID,
	}, models.StyleProfile{})
	require.NoError(t, err)

	found := false
	for _, item := range outfit.Items {
		if item.ID == baseID {
			found = true
		}
	}
	assert.True(t, found, "anchor item must survive the whole pipeline")
}

func TestGenerateUnknownBaseItem(t *testing.T) {
	store := &fakeStore{items: basicWardrobe()}
	pipeline := NewPipeline(store)
	missing := uint(4242)

	_, err := pipeline.Generate(context.Background(), GenerateRequest{
		UserID:     1,
		Occasion:   "casual",
		Weather:    moderateWeather(),
		BaseItemID: &missing,
	}, models.StyleProfile{})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "base_item_id", valErr.Field)
}

func TestGenerateWarnsOnRepeatOutfit(t *testing.T) {
	wardrobe := basicWardrobe()
	store := &fakeStore{items: wardrobe}
	pipeline := NewPipeline(store)

	first, err := pipeline.Generate(context.Background(), GenerateRequest{UserID: 1, Occasion: "casual", Weather: moderateWeather()}, models.StyleProfile{})
	require.NoError(t, err)

	// persist the first outfit into history, then regenerate from the same
	// tiny closet
	store.outfits = []models.Outfit{outfitFromItems(1, 1, first.Items)}
	second, err := pipeline.Generate(context.Background(), GenerateRequest{UserID: 1, Occasion: "casual", Weather: moderateWeather()}, models.StyleProfile{})
	require.NoError(t, err)

	assert.True(t, second.Diversity.MaxSimilarity > 0)
	if second.Diversity.TooSimilar {
		assert.NotEmpty(t, second.Warnings)
	}
}

func TestGenerateStrictAppliesPreferences(t *testing.T) {
	wardrobe := basicWardrobe()
	orange := withTags(fixtureItem(30, "Orange Tee", "tshirt"), []string{"casual"}, []string{"casual"}, nil)
	orange.Color = "orange"
	orange.QualityScore = 1.0
	wardrobe = append(wardrobe, orange)
	store := &fakeStore{items: wardrobe}
	pipeline := NewPipeline(store)

	outfit, err := pipeline.Generate(context.Background(), GenerateRequest{
		UserID:   1,
		Occasion: "casual",
		Weather:  moderateWeather(),
		Strict:   true,
	}, models.StyleProfile{AvoidColors: []string{"orange"}})
	require.NoError(t, err)

	for _, item := range outfit.Items {
		assert.NotEqual(t, "Orange Tee", item.Name)
	}
}
