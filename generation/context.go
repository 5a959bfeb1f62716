package generation

import (
	"strconv"
	"strings"

	"stylrapi/models"
)

// DefaultTemperatureF is used whenever a temperature value cannot be parsed.
// Several call sites rely on this fallback silently, do not change it.
const DefaultTemperatureF = 70.0

// Temperature bands used by count derivation, filtering and healing.
const (
	BandVeryCold = "very_cold" // < 32F
	BandCold     = "cold"      // < 50F
	BandModerate = "moderate"  // 50-70F
	BandWarm     = "warm"      // 70-80F
	BandHot      = "hot"       // >= 80F
)

// Weather is the immutable weather snapshot inside a generation context.
type Weather struct {
	TemperatureF  float64
	Condition     string
	Humidity      float64
	WindSpeed     float64
	Precipitation float64
}

// ParseTemperature coerces a raw temperature string to float64 with the 70F
// default on parse failure.
func ParseTemperature(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "F")), 64)
	if err != nil {
		return DefaultTemperatureF
	}
	return value
}

// TemperatureBand maps a Fahrenheit temperature to its band name.
func TemperatureBand(tempF float64) string {
	switch {
	case tempF < 32:
		return BandVeryCold
	case tempF < 50:
		return BandCold
	case tempF < 70:
		return BandModerate
	case tempF < 80:
		return BandWarm
	default:
		return BandHot
	}
}

// TemperatureRangeKey buckets a temperature into a ten degree range key like
// "90-100", used by the healing context weather learning index.
func TemperatureRangeKey(tempF float64) string {
	low := int(tempF/10) * 10
	if tempF < 0 {
		low = -10
	}
	return strconv.Itoa(low) + "-" + strconv.Itoa(low+10)
}

// TargetCounts is the derived item count target for one generation request.
type TargetCounts struct {
	MinItems           int
	MaxItems           int
	RequiredCategories []string
}

func (t TargetCounts) Requires(category string) bool {
	for _, required := range t.RequiredCategories {
		if required == category {
			return true
		}
	}
	return false
}

// Context is the single immutable object threaded through every pipeline
// stage. Built once per request; later stages read it and never write back.
type Context struct {
	UserID   uint
	Occasion string
	Style    string
	Mood     string

	Weather Weather
	Profile models.StyleProfile

	// optional anchor item that must appear in the final outfit
	BaseItem *models.ClothingItem

	Targets      TargetCounts
	OccasionRule OccasionRule

	TrendingStyles []string
	// recent outfit history for the diversity filter, newest first
	History []models.Outfit
}

func (c *Context) OccasionKey() string {
	return strings.ToLower(strings.TrimSpace(c.Occasion))
}

func (c *Context) StyleKey() string {
	return strings.ToLower(strings.TrimSpace(c.Style))
}

func (c *Context) MoodKey() string {
	return strings.ToLower(strings.TrimSpace(c.Mood))
}

// occasionCountBases is an explicit ordered association list, first match on
// substring wins. Keeps tie-break behavior reproducible.
var occasionCountBases = []struct {
	keyword  string
	min, max int
	required []string
}{
	{"formal", 4, 6, []string{CategoryTop, CategoryBottom, CategoryShoes, CategoryOuterwear, CategoryAccessory}},
	{"wedding", 4, 6, []string{CategoryTop, CategoryBottom, CategoryShoes, CategoryOuterwear, CategoryAccessory}},
	{"interview", 4, 6, []string{CategoryTop, CategoryBottom, CategoryShoes, CategoryOuterwear}},
	{"business", 4, 6, []string{CategoryTop, CategoryBottom, CategoryShoes, CategoryOuterwear}},
	{"presentation", 4, 5, []string{CategoryTop, CategoryBottom, CategoryShoes, CategoryOuterwear}},
	{"athletic", 3, 4, []string{CategoryTop, CategoryBottom, CategoryShoes}},
	{"gym", 3, 4, []string{CategoryTop, CategoryBottom, CategoryShoes}},
	{"workout", 3, 4, []string{CategoryTop, CategoryBottom, CategoryShoes}},
	{"beach", 3, 4, []string{CategoryTop, CategoryBottom, CategoryShoes}},
	{"date", 3, 5, []string{CategoryTop, CategoryBottom, CategoryShoes}},
	{"party", 3, 5, []string{CategoryTop, CategoryBottom, CategoryShoes}},
	{"casual", 3, 5, []string{CategoryTop, CategoryBottom, CategoryShoes}},
}

var defaultCountBase = struct {
	min, max int
	required []string
}{3, 5, []string{CategoryTop, CategoryBottom, CategoryShoes}}

var plusOneStyleKeywords = []string{"maximalist", "bohemian", "boho", "streetwear", "layered"}
var minusOneStyleKeywords = []string{"minimalist", "minimal", "clean"}

var plusOneMoodKeywords = []string{"bold", "energetic", "adventurous", "confident"}
var minusOneMoodKeywords = []string{"subtle", "serene", "calm", "relaxed"}

func containsAnyKeyword(value string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(value, keyword) {
			return true
		}
	}
	return false
}

func appendCategory(categories []string, category string) []string {
	for _, existing := range categories {
		if existing == category {
			return categories
		}
	}
	return append(categories, category)
}

func removeCategory(categories []string, category string) []string {
	kept := categories[:0]
	for _, existing := range categories {
		if existing != category {
			kept = append(kept, existing)
		}
	}
	return kept
}

// DeriveTargetCounts computes the target item counts with the fixed
// precedence: occasion base, then temperature band, then style, then mood,
// then clamping. Later stages must not re-derive counts on their own.
func DeriveTargetCounts(occasion, style, mood string, weather Weather) TargetCounts {
	occasionKey := strings.ToLower(occasion)
	styleKey := strings.ToLower(style)
	moodKey := strings.ToLower(mood)

	target := TargetCounts{
		MinItems:           defaultCountBase.min,
		MaxItems:           defaultCountBase.max,
		RequiredCategories: append([]string(nil), defaultCountBase.required...),
	}
	for _, base := range occasionCountBases {
		if strings.Contains(occasionKey, base.keyword) {
			target.MinItems = base.min
			target.MaxItems = base.max
			target.RequiredCategories = append([]string(nil), base.required...)
			break
		}
	}

	// temperature adjustments
	switch TemperatureBand(weather.TemperatureF) {
	case BandVeryCold:
		target.RequiredCategories = appendCategory(target.RequiredCategories, CategorySweater)
		target.RequiredCategories = appendCategory(target.RequiredCategories, CategoryOuterwear)
		target.MaxItems++
	case BandCold:
		target.RequiredCategories = appendCategory(target.RequiredCategories, CategorySweater)
		target.MaxItems++
	case BandHot:
		target.RequiredCategories = removeCategory(target.RequiredCategories, CategoryOuterwear)
		target.RequiredCategories = removeCategory(target.RequiredCategories, CategorySweater)
	}

	// style adjustments
	if containsAnyKeyword(styleKey, minusOneStyleKeywords) {
		target.MaxItems--
		target.RequiredCategories = removeCategory(target.RequiredCategories, CategoryAccessory)
	} else if containsAnyKeyword(styleKey, plusOneStyleKeywords) {
		target.MaxItems++
		target.RequiredCategories = appendCategory(target.RequiredCategories, CategoryAccessory)
	}

	// mood adjustments
	if containsAnyKeyword(moodKey, plusOneMoodKeywords) {
		target.MaxItems++
	} else if containsAnyKeyword(moodKey, minusOneMoodKeywords) {
		target.MaxItems--
	}

	// clamp
	total := len(target.RequiredCategories)
	target.MinItems = total - 1
	if target.MinItems < 3 {
		target.MinItems = 3
	}
	if target.MaxItems > 7 {
		target.MaxItems = 7
	}
	if target.MaxItems < total+1 {
		target.MaxItems = total + 1
	}
	if target.MaxItems < target.MinItems {
		target.MaxItems = target.MinItems
	}
	return target
}

// BuildContext assembles the generation context consumed by every later
// stage.
func BuildContext(userID uint, occasion, style, mood string, weather Weather, profile models.StyleProfile, baseItem *models.ClothingItem, trending []string, history []models.Outfit) *Context {
	return &Context{
		UserID:         userID,
		Occasion:       occasion,
		Style:          style,
		Mood:           mood,
		Weather:        weather,
		Profile:        profile,
		BaseItem:       baseItem,
		Targets:        DeriveTargetCounts(occasion, style, mood, weather),
		OccasionRule:   LookupOccasionRule(occasion),
		TrendingStyles: trending,
		History:        history,
	}
}
