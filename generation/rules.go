package generation

import (
	"strings"

	"stylrapi/models"
)

// Coarse buckets. Selection-internal normalization maps the free-form
// clothing type onto these; the persisted item type is never rewritten.
const (
	CategoryTop       = "top"
	CategoryBottom    = "bottom"
	CategoryShoes     = "shoes"
	CategoryOuterwear = "outerwear"
	CategoryAccessory = "accessory"
	CategoryDress     = "dress"
	CategorySweater   = "sweater"
)

// EssentialCategories must all be present in any successful outfit.
var EssentialCategories = []string{CategoryTop, CategoryBottom, CategoryShoes}

// bucketKeywords is an ordered association list, first match wins. Order
// matters: "dress_shoes" must hit shoes before "dress" hits dress.
var bucketKeywords = []struct {
	keyword string
	bucket  string
}{
	{"dress_shoes", CategoryShoes},
	{"dress shoes", CategoryShoes},
	{"sneaker", CategoryShoes},
	{"oxford", CategoryShoes},
	{"loafer", CategoryShoes},
	{"heel", CategoryShoes},
	{"boot", CategoryShoes},
	{"sandal", CategoryShoes},
	{"flip_flop", CategoryShoes},
	{"flip flop", CategoryShoes},
	{"shoe", CategoryShoes},
	{"footwear", CategoryShoes},

	{"blazer", CategoryOuterwear},
	{"jacket", CategoryOuterwear},
	{"coat", CategoryOuterwear},
	{"parka", CategoryOuterwear},
	{"puffer", CategoryOuterwear},
	{"cardigan", CategoryOuterwear},
	{"outerwear", CategoryOuterwear},

	{"sweater", CategorySweater},
	{"sweatshirt", CategorySweater},
	{"pullover", CategorySweater},
	{"turtleneck", CategorySweater},

	{"dress", CategoryDress},
	{"gown", CategoryDress},
	{"jumpsuit", CategoryDress},

	{"short", CategoryBottom},
	{"pant", CategoryBottom},
	{"jean", CategoryBottom},
	{"trouser", CategoryBottom},
	{"chino", CategoryBottom},
	{"slack", CategoryBottom},
	{"skirt", CategoryBottom},
	{"legging", CategoryBottom},
	{"jogger", CategoryBottom},
	{"sweatpant", CategoryBottom},
	{"bottom", CategoryBottom},

	{"shirt", CategoryTop},
	{"tshirt", CategoryTop},
	{"t-shirt", CategoryTop},
	{"tee", CategoryTop},
	{"blouse", CategoryTop},
	{"polo", CategoryTop},
	{"tank", CategoryTop},
	{"hoodie", CategoryTop},
	{"top", CategoryTop},

	{"belt", CategoryAccessory},
	{"watch", CategoryAccessory},
	{"scarf", CategoryAccessory},
	{"hat", CategoryAccessory},
	{"cap", CategoryAccessory},
	{"bag", CategoryAccessory},
	{"tie", CategoryAccessory},
	{"jewelry", CategoryAccessory},
	{"necklace", CategoryAccessory},
	{"accessory", CategoryAccessory},
}

// BucketForItem normalizes an item type into a coarse bucket. Uses the
// persisted category when present, otherwise matches the type then the name.
func BucketForItem(item *models.ClothingItem) string {
	if item.Category != "" {
		return item.Category
	}
	haystacks := []string{
		strings.ToLower(item.ClothingType),
		strings.ToLower(item.SubType),
		strings.ToLower(item.Name),
	}
	for _, haystack := range haystacks {
		if haystack == "" {
			continue
		}
		for _, entry := range bucketKeywords {
			if strings.Contains(haystack, entry.keyword) {
				return entry.bucket
			}
		}
	}
	return CategoryAccessory
}

// coreBucket folds the fine-grained buckets to the five duplicate-avoidance
// buckets: a sweater competes with tops, a dress with bottoms.
func coreBucket(bucket string) string {
	switch bucket {
	case CategorySweater:
		return CategoryTop
	case CategoryDress:
		return CategoryDress
	default:
		return bucket
	}
}

// CategoryCaps are applied before the simple rule battery so later rules see
// a deduplicated set. Ordered list so cap application order is reproducible.
var CategoryCaps = []struct {
	Category string
	Max      int
}{
	{CategoryTop, 3},
	{CategoryBottom, 1},
	{CategoryShoes, 1},
	{CategoryAccessory, 2},
	{CategoryDress, 1},
	{CategoryOuterwear, 1},
	{CategorySweater, 1},
}

// Formality levels 1 (casual) to 4 (formal), keyword lookup over the item
// type and name, first match wins.
var formalityKeywords = []struct {
	keyword string
	level   int
}{
	{"tuxedo", 4},
	{"suit", 4},
	{"gown", 4},
	{"blazer", 4},
	{"dress_shoes", 4},
	{"dress shoes", 4},
	{"oxford", 4},
	{"heel", 4},
	{"dress_shirt", 3},
	{"dress shirt", 3},
	{"slack", 3},
	{"trouser", 3},
	{"blouse", 3},
	{"loafer", 3},
	{"tie", 3},
	{"polo", 2},
	{"chino", 2},
	{"cardigan", 2},
	{"skirt", 2},
	{"boot", 2},
	{"sweatpant", 1},
	{"jogger", 1},
	{"hoodie", 1},
	{"sneaker", 1},
	{"sandal", 1},
	{"flip flop", 1},
	{"flip_flop", 1},
	{"tank", 1},
	{"short", 1},
	{"jean", 1},
	{"tshirt", 1},
	{"t-shirt", 1},
	{"tee", 1},
}

const defaultFormalityLevel = 2

// FormalityLevel assigns an item an integer dress-code weight 1-4.
func FormalityLevel(item *models.ClothingItem) int {
	haystack := strings.ToLower(item.ClothingType + " " + item.SubType + " " + item.Name)
	for _, entry := range formalityKeywords {
		if strings.Contains(haystack, entry.keyword) {
			return entry.level
		}
	}
	return defaultFormalityLevel
}

// occasionFormality maps occasion keywords to the required formality level,
// ordered, first match wins.
var occasionFormality = []struct {
	keyword string
	level   int
}{
	{"formal", 4},
	{"interview", 4},
	{"wedding", 4},
	{"business casual", 2},
	{"business", 3},
	{"presentation", 3},
	{"date", 2},
	{"brunch", 2},
	{"casual", 1},
	{"gym", 1},
	{"athletic", 1},
	{"workout", 1},
	{"beach", 1},
	{"lounge", 1},
}

// OccasionRule is the resolved rule set for one occasion.
type OccasionRule struct {
	Key              string
	RequiredLevel    int
	BlockedKeywords  []string
	PreferredSeasons []string
}

// occasionBlocklists: coarse keyword blocklists used by light filtering.
// Formal occasions reject obviously casual pieces; athletic occasions reject
// obviously dressy ones.
var occasionBlocklists = []struct {
	occasionKeywords []string
	blocked          []string
}{
	{
		[]string{"formal", "interview", "wedding", "business"},
		[]string{"sneaker", "hoodie", "tank", "flip flop", "flip_flop", "sweatpant", "jogger", "swim"},
	},
	{
		[]string{"athletic", "gym", "workout", "sport"},
		[]string{"blazer", "oxford", "heel", "dress shirt", "dress_shirt", "suit", "gown", "tie"},
	},
	{
		[]string{"beach", "pool"},
		[]string{"blazer", "suit", "oxford", "boot", "coat", "parka"},
	},
}

// LookupOccasionRule resolves the required formality level and keyword
// blocklist for an occasion.
func LookupOccasionRule(occasion string) OccasionRule {
	key := strings.ToLower(strings.TrimSpace(occasion))
	rule := OccasionRule{Key: key, RequiredLevel: defaultFormalityLevel}
	for _, entry := range occasionFormality {
		if strings.Contains(key, entry.keyword) {
			rule.RequiredLevel = entry.level
			break
		}
	}
	for _, blocklist := range occasionBlocklists {
		for _, occasionKeyword := range blocklist.occasionKeywords {
			if strings.Contains(key, occasionKeyword) {
				rule.BlockedKeywords = append(rule.BlockedKeywords, blocklist.blocked...)
				break
			}
		}
	}
	return rule
}

// CompositionRule is one table-driven incompatible combination: if an item
// matching KeepKeywords is present, every item matching RemoveKeywords is
// removed.
type CompositionRule struct {
	Name           string
	KeepKeywords   []string
	RemoveKeywords []string
	Reason         string
}

var CompositionRules = []CompositionRule{
	{
		Name:           "blazer_shorts",
		KeepKeywords:   []string{"blazer", "suit jacket", "sport coat"},
		RemoveKeywords: []string{"shorts", "athletic short", "cargo short"},
		Reason:         "a blazer does not pair with shorts",
	},
	{
		Name:           "blazer_flip_flops",
		KeepKeywords:   []string{"blazer", "suit jacket", "sport coat"},
		RemoveKeywords: []string{"flip flop", "flip_flop", "slide"},
		Reason:         "a blazer does not pair with flip-flops",
	},
	{
		Name:           "blazer_cargo",
		KeepKeywords:   []string{"blazer", "suit jacket", "sport coat"},
		RemoveKeywords: []string{"cargo"},
		Reason:         "a blazer does not pair with cargo pants",
	},
	{
		Name:           "formal_shoes_casual_bottoms",
		KeepKeywords:   []string{"dress_shoes", "dress shoes", "oxford", "heel"},
		RemoveKeywords: []string{"athletic short", "cargo", "sweatpant", "jogger", "shorts"},
		Reason:         "formal shoes do not pair with casual bottoms",
	},
	{
		Name:           "formal_athletic",
		KeepKeywords:   []string{"suit", "blazer", "dress_shirt", "dress shirt", "gown"},
		RemoveKeywords: []string{"athletic", "gym", "jersey", "track"},
		Reason:         "formal wear does not pair with athletic wear",
	},
}

// finalLayerRules are re-applied unconditionally as the last line of defense,
// independent of which rules already fired. Rule interaction can reintroduce
// a violation an earlier pass fixed.
var finalLayerRules = []CompositionRule{
	CompositionRules[0], // blazer_shorts
	CompositionRules[3], // formal_shoes_casual_bottoms
}

func itemMatchesKeywords(item *models.ClothingItem, keywords []string) bool {
	haystack := strings.ToLower(item.ClothingType + " " + item.SubType + " " + item.Name)
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

// weatherMaterialExclusions: temperature banded material/type exclusion
// lists. Ordered association list, first matching band wins.
var weatherMaterialExclusions = []struct {
	appliesTo func(tempF float64) bool
	materials []string
	types     []string
	reason    string
}{
	{
		func(tempF float64) bool { return tempF >= 85 },
		[]string{"wool", "fleece", "cashmere", "flannel", "velvet"},
		[]string{"coat", "parka", "puffer", "jeans"},
		"too warm for hot weather",
	},
	{
		func(tempF float64) bool { return tempF >= 80 },
		[]string{"wool", "fleece", "cashmere"},
		[]string{"coat", "parka", "puffer"},
		"too warm for the forecast",
	},
	{
		func(tempF float64) bool { return tempF <= 40 },
		[]string{"linen", "mesh"},
		[]string{"tank", "sandal", "flip flop", "flip_flop", "shorts"},
		"too light for cold weather",
	},
}

// rain excludes delicate materials; wind only deprioritizes loose
// silhouettes in scoring, it never hard-excludes.
var rainExcludedMaterials = []string{"suede", "silk", "velvet"}
var windLooseSilhouettes = []string{"loose", "flowy", "oversized", "wide"}

// softErrorKeywords classify a validation error as auto-fixable by the
// healing ladder. Anything else is hard and requires a fresh attempt.
var softErrorKeywords = []string{
	"insufficient",
	"too few",
	"missing",
	"duplicate",
	"layering",
	"style mismatch",
	"color harmony",
	"weather appropriateness",
}

func IsSoftError(message string) bool {
	lowered := strings.ToLower(message)
	for _, keyword := range softErrorKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
