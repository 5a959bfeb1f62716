package generation

import (
	"testing"

	"stylrapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasItemNamed(items []models.ClothingItem, name string) bool {
	for _, item := range items {
		if item.Name == name {
			return true
		}
	}
	return false
}

func TestValidateBlazerNeverPairsWithShorts(t *testing.T) {
	genCtx := BuildContext(1, "business", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	items := []models.ClothingItem{
		fixtureItem(1, "Navy Blazer", "blazer"),
		fixtureItem(2, "Cargo Shorts", "shorts"),
		fixtureItem(3, "White Shirt", "shirt"),
		fixtureItem(4, "Loafers", "loafers"),
	}
	pool := append(items, fixtureItem(5, "Chinos", "chinos"))

	result := Validate(items, genCtx, pool)

	assert.False(t, hasItemNamed(result.FilteredItems, "Cargo Shorts"))
	assert.True(t, hasItemNamed(result.FilteredItems, "Navy Blazer"))
	// the safe bottom restore kicked in
	assert.True(t, hasItemNamed(result.FilteredItems, "Chinos"))
}

func TestValidateFormalShoesRejectCasualBottoms(t *testing.T) {
	genCtx := BuildContext(1, "business", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	items := []models.ClothingItem{
		fixtureItem(1, "Black Oxford Shoes", "dress_shoes"),
		fixtureItem(2, "Grey Joggers", "joggers"),
		fixtureItem(3, "Dress Shirt", "dress_shirt"),
	}
	pool := append(items, fixtureItem(4, "Wool Trousers", "trousers"))

	result := Validate(items, genCtx, pool)

	assert.False(t, hasItemNamed(result.FilteredItems, "Grey Joggers"))
	assert.True(t, hasItemNamed(result.FilteredItems, "Black Oxford Shoes"))
}

func TestValidateIsIdempotent(t *testing.T) {
	genCtx := BuildContext(1, "casual", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	items := []models.ClothingItem{
		fixtureItem(1, "Navy Blazer", "blazer"),
		fixtureItem(2, "Athletic Shorts", "shorts"),
		fixtureItem(3, "White Tee", "tshirt"),
		fixtureItem(4, "Sneakers", "sneakers"),
		fixtureItem(5, "Blue Jeans", "jeans"),
	}

	first := Validate(items, genCtx, items)
	second := Validate(first.FilteredItems, genCtx, items)

	require.Equal(t, len(first.FilteredItems), len(second.FilteredItems))
	for i := range first.FilteredItems {
		assert.Equal(t, first.FilteredItems[i].ID, second.FilteredItems[i].ID)
	}
}

func TestValidateCategoryCaps(t *testing.T) {
	genCtx := BuildContext(1, "casual", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	items := []models.ClothingItem{
		fixtureItem(1, "Jeans", "jeans"),
		fixtureItem(2, "Chinos", "chinos"),
		fixtureItem(3, "White Tee", "tshirt"),
		fixtureItem(4, "Sneakers", "sneakers"),
	}

	result := Validate(items, genCtx, items)

	bottoms := 0
	for _, item := range result.FilteredItems {
		if BucketForItem(&item) == CategoryBottom {
			bottoms++
		}
	}
	assert.Equal(t, 1, bottoms)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateFormalityConsistency(t *testing.T) {
	genCtx := BuildContext(1, "casual", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	// levels 4, 4, 2, 2, 1: the single level-1 item must go
	items := []models.ClothingItem{
		fixtureItem(1, "Navy Suit Jacket", "suit"),
		fixtureItem(2, "Black Heels", "heels"),
		fixtureItem(3, "Midi Skirt", "skirt"),
		fixtureItem(4, "Chino Trousers", "chino"),
		fixtureItem(5, "Gym Tank", "tank"),
	}

	result := Validate(items, genCtx, items)

	assert.False(t, hasItemNamed(result.FilteredItems, "Gym Tank"))
	levels := map[int]bool{}
	for _, item := range result.FilteredItems {
		levels[FormalityLevel(&item)] = true
	}
	assert.LessOrEqual(t, len(levels), 2)
}

func TestValidateMissingEssentialIsHardError(t *testing.T) {
	genCtx := BuildContext(1, "casual", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	// no shoes anywhere, not even in the pool
	items := []models.ClothingItem{
		fixtureItem(1, "White Tee", "tshirt"),
		fixtureItem(2, "Blue Jeans", "jeans"),
	}

	result := Validate(items, genCtx, items)

	require.False(t, result.IsValid)
	_, hard := SplitErrors(result.Errors)
	require.NotEmpty(t, hard)
	assert.Contains(t, hard[0].Message, "shoes")
}

func TestValidateInsufficientItemsIsSoftError(t *testing.T) {
	genCtx := BuildContext(1, "formal", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	// essentials present but the formal minimum is not met
	items := []models.ClothingItem{
		fixtureItem(1, "Dress Shirt", "dress_shirt"),
		fixtureItem(2, "Wool Trousers", "trousers"),
		fixtureItem(3, "Black Oxford Shoes", "dress_shoes"),
	}

	result := Validate(items, genCtx, items)

	soft, _ := SplitErrors(result.Errors)
	found := false
	for _, issue := range soft {
		if issue.Rule == "minimum_items" {
			found = true
		}
	}
	assert.True(t, found, "minimum item shortfall must classify as soft")
}

func TestValidateDressCoversTopAndBottom(t *testing.T) {
	genCtx := BuildContext(1, "date", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)
	items := []models.ClothingItem{
		fixtureItem(1, "Floral Midi Dress", "dress"),
		fixtureItem(2, "Strappy Heels", "heels"),
		fixtureItem(3, "Gold Necklace", "necklace"),
	}

	result := Validate(items, genCtx, items)

	for _, issue := range result.Errors {
		assert.NotContains(t, issue.Message, "no suitable top")
		assert.NotContains(t, issue.Message, "no suitable bottom")
	}
}

func TestSplitErrors(t *testing.T) {
	issues := []ValidationIssue{
		{Message: "insufficient items: 2 left", Severity: classify("insufficient items: 2 left")},
		{Message: "no suitable shoes available", Severity: classify("no suitable shoes available")},
	}

	soft, hard := SplitErrors(issues)

	require.Len(t, soft, 1)
	require.Len(t, hard, 1)
	assert.Contains(t, soft[0].Message, "insufficient")
	assert.Contains(t, hard[0].Message, "shoes")
}
