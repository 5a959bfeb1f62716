package generation

import (
	"testing"

	"stylrapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherAppropriateExcludesWoolInHeat(t *testing.T) {
	sweater := withMaterial(fixtureItem(1, "Wool Sweater", "sweater"), "wool")

	ok, reason := WeatherAppropriate(&sweater, Weather{TemperatureF: 95})
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	ok, _ = WeatherAppropriate(&sweater, Weather{TemperatureF: 40})
	assert.True(t, ok)
}

func TestWeatherAppropriateExcludesHeavyTypesInHeat(t *testing.T) {
	parka := fixtureItem(1, "Down Parka", "parka")

	ok, _ := WeatherAppropriate(&parka, Weather{TemperatureF: 85})
	assert.False(t, ok)
}

func TestWeatherAppropriateExcludesLightPiecesInCold(t *testing.T) {
	tank := fixtureItem(1, "Ribbed Tank", "tank")
	linen := withMaterial(fixtureItem(2, "Linen Shirt", "shirt"), "linen")

	ok, _ := WeatherAppropriate(&tank, Weather{TemperatureF: 35})
	assert.False(t, ok)
	ok, _ = WeatherAppropriate(&linen, Weather{TemperatureF: 35})
	assert.False(t, ok)
}

func TestWeatherAppropriateRainExcludesDelicates(t *testing.T) {
	suede := withMaterial(fixtureItem(1, "Suede Boots", "boots"), "suede")

	ok, reason := WeatherAppropriate(&suede, Weather{TemperatureF: 60, Condition: "Light Rain"})
	assert.False(t, ok)
	assert.Contains(t, reason, "rain")

	// precipitation probability alone triggers the same exclusion
	ok, _ = WeatherAppropriate(&suede, Weather{TemperatureF: 60, Precipitation: 0.8})
	assert.False(t, ok)

	ok, _ = WeatherAppropriate(&suede, Weather{TemperatureF: 60, Condition: "clear"})
	assert.True(t, ok)
}

func TestWindPenaltyOnlyDeprioritizes(t *testing.T) {
	flowy := fixtureItem(1, "Maxi Skirt", "skirt")
	flowy.Metadata.Silhouette = "flowy"

	windy := Weather{TemperatureF: 60, WindSpeed: 20}
	ok, _ := WeatherAppropriate(&flowy, windy)
	assert.True(t, ok, "wind must never hard-exclude")
	assert.Equal(t, 0.1, windPenalty(&flowy, windy))
	assert.Equal(t, 0.0, windPenalty(&flowy, Weather{TemperatureF: 60, WindSpeed: 5}))
}

func TestLightFilterAppliesOccasionBlocklist(t *testing.T) {
	wardrobe := []models.ClothingItem{
		fixtureItem(1, "Oxford Shirt", "dress_shirt"),
		fixtureItem(2, "Gym Hoodie", "hoodie"),
		fixtureItem(3, "Running Sneakers", "sneakers"),
	}
	genCtx := BuildContext(1, "formal", "", "", moderateWeather(), models.StyleProfile{}, nil, nil, nil)

	filtered := LightFilter(wardrobe, genCtx)

	require.Len(t, filtered, 1)
	assert.Equal(t, "Oxford Shirt", filtered[0].Name)
}

func TestStyleMatchesPriorityOrder(t *testing.T) {
	// style tags win
	tagged := withTags(fixtureItem(1, "Sequin Top", "top"), []string{"minimalist"}, nil, nil)
	assert.True(t, StyleMatches(&tagged, "minimalist"))

	// type implication without tags
	blazer := fixtureItem(2, "Navy Blazer", "blazer")
	assert.True(t, StyleMatches(&blazer, "formal"))

	// name veto as last resort
	pajama := fixtureItem(3, "Silk Pajama Set", "top")
	assert.False(t, StyleMatches(&pajama, "formal"))

	// no signal at all keeps the item
	plain := fixtureItem(4, "Grey Crewneck", "top")
	assert.True(t, StyleMatches(&plain, "formal"))
}

func TestStrictFilterAppliesUserPreferences(t *testing.T) {
	wardrobe := []models.ClothingItem{
		fixtureItem(1, "Orange Tee", "tshirt"),
		withMaterial(fixtureItem(2, "Wool Cardigan", "cardigan"), "wool"),
		fixtureItem(3, "Black Tee", "tshirt"),
	}
	wardrobe[0].Color = "orange"
	wardrobe[2].Color = "black"

	profile := models.StyleProfile{AvoidColors: []string{"Orange"}, AvoidMaterials: []string{"wool"}}
	genCtx := BuildContext(1, "casual", "", "", moderateWeather(), profile, nil, nil, nil)

	filtered := StrictFilter(wardrobe, genCtx)

	require.Len(t, filtered, 1)
	assert.Equal(t, "Black Tee", filtered[0].Name)
}
