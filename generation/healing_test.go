package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealingPassCounterIsMonotone(t *testing.T) {
	healing := NewHealingContext()

	assert.Equal(t, 0, healing.Pass())
	assert.Equal(t, 1, healing.NextPass())
	assert.Equal(t, 2, healing.NextPass())
	assert.Equal(t, 3, healing.NextPass())
	assert.Equal(t, 3, healing.Pass())
}

func TestHealingWeatherLearning(t *testing.T) {
	healing := NewHealingContext()
	sweater := withMaterial(fixtureItem(1, "Wool Sweater", "sweater"), "wool")
	hot := Weather{TemperatureF: 95}

	healing.AddItemRemoved(&sweater, "too warm", hot, "")

	assert.Equal(t, []string{"wool"}, healing.BadMaterials(hot))
	// a different range has learned nothing
	assert.Empty(t, healing.BadMaterials(Weather{TemperatureF: 45}))
	assert.True(t, healing.WasRemoved(1))
	assert.Equal(t, []uint{1}, healing.ExcludedIDs())
}

func TestHealingStyleLearning(t *testing.T) {
	healing := NewHealingContext()
	hoodie := withTags(fixtureItem(2, "Gym Hoodie", "hoodie"), []string{"athletic", "streetwear"}, nil, nil)

	healing.AddItemRemoved(&hoodie, "style conflict", moderateWeather(), "formal")

	assert.ElementsMatch(t, []string{"athletic", "streetwear"}, healing.BadStyles("formal"))
	assert.Empty(t, healing.BadStyles("casual"))
}

func TestHealingRemovalIsAppendOnly(t *testing.T) {
	healing := NewHealingContext()
	item := fixtureItem(3, "Cargo Shorts", "shorts")

	healing.AddItemRemoved(&item, "first", moderateWeather(), "")
	healing.AddItemRemoved(&item, "second", moderateWeather(), "")

	assert.Equal(t, []uint{3}, healing.ExcludedIDs())
}

func TestHealingRemovalKeepsReason(t *testing.T) {
	healing := NewHealingContext()
	healing.NextPass()
	sweater := fixtureItem(5, "Wool Sweater", "sweater")

	healing.AddItemRemoved(&sweater, "too warm for 95F", Weather{TemperatureF: 95}, "")

	removals := healing.Removals()
	require.Len(t, removals, 1)
	assert.Equal(t, uint(5), removals[0].ItemID)
	assert.Equal(t, "too warm for 95F", removals[0].Reason)
	assert.Equal(t, 1, removals[0].Pass)
}

func TestHealingSnapshotShape(t *testing.T) {
	healing := NewHealingContext()
	healing.NextPass()
	healing.AddError("minimum_items", "insufficient items: 2 left")
	healing.AddRuleTrigger("weather_appropriateness", "wool sweater at 95F")
	healing.AddFixAttempt(MethodFixedItems, "replaced wool sweater", true)
	sweater := withMaterial(fixtureItem(4, "Wool Sweater", "sweater"), "wool")
	healing.AddItemRemoved(&sweater, "too warm", Weather{TemperatureF: 95}, "")

	snapshot := healing.Snapshot()

	require.Equal(t, 1, snapshot["healing_pass"])
	assert.Contains(t, snapshot, "errors_seen")
	assert.Contains(t, snapshot, "items_removed")
	assert.Contains(t, snapshot, "rules_triggered")
	assert.Contains(t, snapshot, "fixes_attempted")
	weather, ok := snapshot["weather_learning"].(map[string][]string)
	require.True(t, ok)
	assert.Equal(t, []string{"wool"}, weather["90-100"])
}
