package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemperatureDefaultsOnGarbage(t *testing.T) {
	assert.Equal(t, 70.0, ParseTemperature("not-a-number"))
	assert.Equal(t, 70.0, ParseTemperature(""))
	assert.Equal(t, 70.0, ParseTemperature("NaN degrees"))
}

func TestParseTemperatureValidInputs(t *testing.T) {
	assert.Equal(t, 95.0, ParseTemperature("95"))
	assert.Equal(t, 32.5, ParseTemperature(" 32.5 "))
	assert.Equal(t, 80.0, ParseTemperature("80F"))
	assert.Equal(t, -10.0, ParseTemperature("-10"))
}

func TestTemperatureBands(t *testing.T) {
	assert.Equal(t, BandVeryCold, TemperatureBand(20))
	assert.Equal(t, BandCold, TemperatureBand(40))
	assert.Equal(t, BandModerate, TemperatureBand(65))
	assert.Equal(t, BandWarm, TemperatureBand(75))
	assert.Equal(t, BandHot, TemperatureBand(95))
	// boundaries
	assert.Equal(t, BandCold, TemperatureBand(32))
	assert.Equal(t, BandModerate, TemperatureBand(50))
	assert.Equal(t, BandWarm, TemperatureBand(70))
	assert.Equal(t, BandHot, TemperatureBand(80))
}

func TestTemperatureRangeKey(t *testing.T) {
	assert.Equal(t, "90-100", TemperatureRangeKey(95))
	assert.Equal(t, "90-100", TemperatureRangeKey(90))
	assert.Equal(t, "60-70", TemperatureRangeKey(65.5))
	assert.Equal(t, "-10-0", TemperatureRangeKey(-5))
}

func TestDeriveTargetCountsBusinessOccasion(t *testing.T) {
	targets := DeriveTargetCounts("business casual", "", "", moderateWeather())

	assert.True(t, targets.Requires(CategoryTop))
	assert.True(t, targets.Requires(CategoryBottom))
	assert.True(t, targets.Requires(CategoryShoes))
	assert.True(t, targets.Requires(CategoryOuterwear))
	assert.GreaterOrEqual(t, targets.MinItems, 3)
	assert.LessOrEqual(t, targets.MaxItems, 7)
	assert.Greater(t, targets.MaxItems, len(targets.RequiredCategories))
}

func TestDeriveTargetCountsVeryColdAddsLayers(t *testing.T) {
	targets := DeriveTargetCounts("casual", "", "", Weather{TemperatureF: 20})

	assert.True(t, targets.Requires(CategorySweater))
	assert.True(t, targets.Requires(CategoryOuterwear))
}

func TestDeriveTargetCountsHotDropsLayers(t *testing.T) {
	targets := DeriveTargetCounts("business", "", "", Weather{TemperatureF: 95})

	assert.False(t, targets.Requires(CategoryOuterwear))
	assert.False(t, targets.Requires(CategorySweater))
}

func TestDeriveTargetCountsMinimalistStyle(t *testing.T) {
	base := DeriveTargetCounts("casual", "", "", moderateWeather())
	minimal := DeriveTargetCounts("casual", "minimalist", "", moderateWeather())

	assert.LessOrEqual(t, minimal.MaxItems, base.MaxItems)
	assert.False(t, minimal.Requires(CategoryAccessory))
}

func TestDeriveTargetCountsMaximalistWithBoldMood(t *testing.T) {
	targets := DeriveTargetCounts("casual", "maximalist", "bold", moderateWeather())

	assert.True(t, targets.Requires(CategoryAccessory))
	// pile-on adjustments still clamp to the hard ceiling
	assert.LessOrEqual(t, targets.MaxItems, 7)
}

func TestDeriveTargetCountsClampInvariants(t *testing.T) {
	occasions := []string{"formal", "wedding", "gym", "casual", "unheard-of occasion"}
	styles := []string{"", "minimalist", "maximalist"}
	moods := []string{"", "bold", "calm"}
	temperatures := []float64{10, 45, 65, 75, 95}

	for _, occasion := range occasions {
		for _, style := range styles {
			for _, mood := range moods {
				for _, temp := range temperatures {
					targets := DeriveTargetCounts(occasion, style, mood, Weather{TemperatureF: temp})
					require.GreaterOrEqual(t, targets.MinItems, 3, "occasion=%s style=%s mood=%s temp=%v", occasion, style, mood, temp)
					require.LessOrEqual(t, targets.MaxItems, 7)
					require.GreaterOrEqual(t, targets.MaxItems, targets.MinItems)
					require.NotEmpty(t, targets.RequiredCategories)
				}
			}
		}
	}
}

func TestBuildContextResolvesRuleAndTargets(t *testing.T) {
	genCtx := BuildContext(1, "Business Casual", "Classic", "confident", moderateWeather(), styleProfile(), nil, nil, nil)

	assert.Equal(t, "business casual", genCtx.OccasionKey())
	assert.Equal(t, "classic", genCtx.StyleKey())
	assert.Equal(t, 2, genCtx.OccasionRule.RequiredLevel)
	assert.NotZero(t, genCtx.Targets.MaxItems)
}
