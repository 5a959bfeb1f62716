package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stylrapi/models"
)

// Generation methods recorded on healed outfits.
const (
	MethodPrimary       = "primary"
	MethodFixedItems    = "fixed_items"
	MethodReplacedItems = "replaced_items"
	MethodScratchRepair = "scratch_repair"
	MethodRelaxed       = "relaxed"
	MethodManual        = "manual"
)

// Outfit score thresholds. Healed outfits that miss the strict values carry
// a quality warning; the relaxed values gate the last rung of the ladder.
const (
	strictPairability  = 0.2
	relaxedPairability = 0.1
	strictStyle        = 0.3
	relaxedStyle       = 0.2
	strictWeather      = 0.4
	relaxedWeather     = 0.3
	strictOccasion     = 0.3
	relaxedOccasion    = 0.2
)

// replacement churn guard: an alternative must beat the original by more
// than this to be worth swapping in
const replacementMargin = 0.1

const lowQualityThreshold = 0.5

// HealResult is the outcome of the self-healing ladder.
type HealResult struct {
	Items           []models.ClothingItem
	Method          string
	Healed          bool
	RemainingErrors []ValidationIssue
	Warnings        []string
	Healing         *HealingContext
}

// FallbackService repairs failed outfits through a strict escalation ladder:
// targeted per-item fixes, low-score replacement, from-scratch reassembly,
// then relaxed-threshold acceptance. A strategy runs only after the previous
// one demonstrably could not clear all errors.
type FallbackService struct {
	Store WardrobeStore
}

func NewFallbackService(store WardrobeStore) *FallbackService {
	return &FallbackService{Store: store}
}

// HealOutfit walks the ladder until the errors clear or every strategy is
// exhausted. The healing context threads through every strategy so later
// passes never retry an item or material already proven bad.
func (s *FallbackService) HealOutfit(ctx context.Context, genCtx *Context, items []models.ClothingItem, issues []ValidationIssue, pool []models.ClothingItem) (*HealResult, error) {
	healing := NewHealingContext()
	for _, issue := range issues {
		healing.AddError(issue.Rule, issue.Message)
	}

	type strategy struct {
		name string
		run  func(context.Context, *Context, []models.ClothingItem, []ValidationIssue, []models.ClothingItem, *HealingContext) ([]models.ClothingItem, error)
	}
	ladder := []strategy{
		{MethodFixedItems, s.fixItems},
		{MethodReplacedItems, s.replaceLowScoringItems},
		{MethodScratchRepair, s.generateFromScratch},
	}

	current := append([]models.ClothingItem(nil), items...)
	remaining := issues
	warnings := []string{}

	for _, step := range ladder {
		if len(remaining) == 0 {
			break
		}
		healing.NextPass()
		repaired, err := step.run(ctx, genCtx, current, remaining, pool, healing)
		if err != nil {
			return nil, err
		}
		result := Validate(repaired, genCtx, pool)
		warnings = append(warnings, result.Warnings...)
		current = result.FilteredItems
		remaining = result.Errors
		if result.IsValid {
			healing.AddFixAttempt(step.name, "all errors cleared", true)
			if !metricsMeet(genCtx, current, strictPairability, strictStyle, strictWeather, strictOccasion) {
				warnings = append(warnings, "healed outfit scores below standard quality thresholds")
			}
			return &HealResult{
				Items:    current,
				Method:   step.name,
				Healed:   true,
				Warnings: warnings,
				Healing:  healing,
			}, nil
		}
		healing.AddFixAttempt(step.name, fmt.Sprintf("%d errors remain", len(remaining)), false)
		for _, issue := range remaining {
			healing.AddError(issue.Rule, issue.Message)
		}
	}

	if len(remaining) > 0 {
		healing.NextPass()
		if s.relaxedAccept(genCtx, current) {
			healing.AddFixAttempt(MethodRelaxed, "accepted under relaxed thresholds", true)
			warnings = append(warnings, "outfit accepted under relaxed quality thresholds")
			return &HealResult{
				Items:    current,
				Method:   MethodRelaxed,
				Healed:   true,
				Warnings: warnings,
				Healing:  healing,
			}, nil
		}
		healing.AddFixAttempt(MethodRelaxed, "relaxed thresholds still unmet", false)
	}

	return &HealResult{
		Items:           current,
		Method:          "",
		Healed:          len(remaining) == 0,
		RemainingErrors: remaining,
		Warnings:        warnings,
		Healing:         healing,
	}, nil
}

// queryReplacement issues an indexed query for a replacement of the given
// bucket, excluding everything the healing context already proved bad.
func (s *FallbackService) queryReplacement(ctx context.Context, genCtx *Context, healing *HealingContext, current []models.ClothingItem, category string) (*models.ClothingItem, error) {
	exclude := healing.ExcludedIDs()
	for _, item := range current {
		exclude = append(exclude, item.ID)
	}
	query := ItemQuery{
		UserID:             genCtx.UserID,
		Category:           category,
		ExcludeIDs:         exclude,
		ExcludeMaterials:   healing.BadMaterials(genCtx.Weather),
		ExcludeStyles:      healing.BadStyles(genCtx.StyleKey()),
		OrderByQualityDesc: true,
		Limit:              5,
	}
	if genCtx.Style != "" {
		query.StyleTagsAny = []string{genCtx.StyleKey()}
	}
	candidates, err := s.Store.QueryItems(ctx, query)
	if err != nil {
		return nil, &DatabaseError{Op: "query replacement " + category, Err: err}
	}
	for i := range candidates {
		candidate := &candidates[i]
		if healing.WasRemoved(candidate.ID) {
			continue
		}
		if ok, _ := WeatherAppropriate(candidate, genCtx.Weather); !ok {
			continue
		}
		if occasionBlocked(candidate, genCtx.OccasionRule) {
			continue
		}
		return candidate, nil
	}
	return nil, nil
}

// fixItems dispatches each error by keyword to a targeted fixer.
func (s *FallbackService) fixItems(ctx context.Context, genCtx *Context, items []models.ClothingItem, issues []ValidationIssue, pool []models.ClothingItem, healing *HealingContext) ([]models.ClothingItem, error) {
	current := items
	var err error
	for _, issue := range issues {
		lowered := strings.ToLower(issue.Message)
		switch {
		case strings.Contains(lowered, "duplicate"):
			current = s.fixDuplicateCategories(genCtx, current, healing)
		case strings.Contains(lowered, "weather"):
			current, err = s.fixWeatherConflicts(ctx, genCtx, current, healing)
		case strings.Contains(lowered, "layering") || strings.Contains(lowered, "sleeve"):
			current = s.fixLayeringConflicts(genCtx, current, healing)
		case strings.Contains(lowered, "style"):
			current, err = s.fixStyleConflicts(ctx, genCtx, current, healing)
		case strings.Contains(lowered, "missing") || strings.Contains(lowered, "no suitable") || strings.Contains(lowered, "insufficient") || strings.Contains(lowered, "too few"):
			current, err = s.fixMissingCategories(ctx, genCtx, current, healing)
		default:
			healing.AddFixAttempt(MethodFixedItems, "no targeted fixer for: "+issue.Message, false)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (s *FallbackService) fixDuplicateCategories(genCtx *Context, items []models.ClothingItem, healing *HealingContext) []models.ClothingItem {
	healing.AddRuleTrigger("duplicate_category", "removing surplus items per bucket")
	limits := map[string]int{}
	for _, cap := range CategoryCaps {
		limits[cap.Category] = cap.Max
	}
	// keep the higher quality items within each bucket
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].QualityScore > items[j].QualityScore
	})
	counts := map[string]int{}
	kept := make([]models.ClothingItem, 0, len(items))
	for _, item := range items {
		bucket := BucketForItem(&item)
		limit, capped := limits[bucket]
		if capped && counts[bucket] >= limit {
			healing.AddItemRemoved(&item, "duplicate "+bucket, genCtx.Weather, genCtx.StyleKey())
			continue
		}
		counts[bucket]++
		kept = append(kept, item)
	}
	return kept
}

func (s *FallbackService) fixWeatherConflicts(ctx context.Context, genCtx *Context, items []models.ClothingItem, healing *HealingContext) ([]models.ClothingItem, error) {
	kept := make([]models.ClothingItem, 0, len(items))
	var removedBuckets []string
	for _, item := range items {
		if ok, reason := WeatherAppropriate(&item, genCtx.Weather); !ok {
			healing.AddRuleTrigger("weather_appropriateness", fmt.Sprintf("%q: %s", item.Name, reason))
			healing.AddItemRemoved(&item, reason, genCtx.Weather, genCtx.StyleKey())
			removedBuckets = append(removedBuckets, coreBucket(BucketForItem(&item)))
			continue
		}
		kept = append(kept, item)
	}
	for _, bucket := range removedBuckets {
		replacement, err := s.queryReplacement(ctx, genCtx, healing, kept, bucket)
		if err != nil {
			return nil, err
		}
		if replacement != nil {
			kept = append(kept, *replacement)
			healing.AddFixAttempt(MethodFixedItems, fmt.Sprintf("replaced weather conflict with %q", replacement.Name), true)
		}
	}
	return kept, nil
}

// fixLayeringConflicts keeps at most one mid layer and one outer layer,
// dropping the lower quality duplicates.
func (s *FallbackService) fixLayeringConflicts(genCtx *Context, items []models.ClothingItem, healing *HealingContext) []models.ClothingItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].QualityScore > items[j].QualityScore
	})
	layerSeen := map[int]bool{}
	kept := make([]models.ClothingItem, 0, len(items))
	for _, item := range items {
		level := item.Metadata.LayerLevel
		if level >= 2 && layerSeen[level] {
			healing.AddRuleTrigger("layering_conflict", fmt.Sprintf("second layer-%d item %q", level, item.Name))
			healing.AddItemRemoved(&item, "layering conflict", genCtx.Weather, genCtx.StyleKey())
			continue
		}
		layerSeen[level] = true
		kept = append(kept, item)
	}
	return kept
}

func (s *FallbackService) fixStyleConflicts(ctx context.Context, genCtx *Context, items []models.ClothingItem, healing *HealingContext) ([]models.ClothingItem, error) {
	if genCtx.Style == "" {
		return items, nil
	}
	kept := make([]models.ClothingItem, 0, len(items))
	var removedBuckets []string
	for _, item := range items {
		if !StyleMatches(&item, genCtx.Style) {
			healing.AddRuleTrigger("style_conflict", fmt.Sprintf("%q does not match %q", item.Name, genCtx.Style))
			healing.AddItemRemoved(&item, "style conflict", genCtx.Weather, genCtx.StyleKey())
			removedBuckets = append(removedBuckets, coreBucket(BucketForItem(&item)))
			continue
		}
		kept = append(kept, item)
	}
	for _, bucket := range removedBuckets {
		replacement, err := s.queryReplacement(ctx, genCtx, healing, kept, bucket)
		if err != nil {
			return nil, err
		}
		if replacement != nil {
			kept = append(kept, *replacement)
			healing.AddFixAttempt(MethodFixedItems, fmt.Sprintf("replaced style conflict with %q", replacement.Name), true)
		}
	}
	return kept, nil
}

func (s *FallbackService) fixMissingCategories(ctx context.Context, genCtx *Context, items []models.ClothingItem, healing *HealingContext) ([]models.ClothingItem, error) {
	present := map[string]bool{}
	for _, item := range items {
		present[coreBucket(BucketForItem(&item))] = true
	}
	for _, essential := range EssentialCategories {
		if present[essential] {
			continue
		}
		healing.AddRuleTrigger("essential_categories", "missing "+essential)
		replacement, err := s.queryReplacement(ctx, genCtx, healing, items, essential)
		if err != nil {
			return nil, err
		}
		if replacement != nil {
			items = append(items, *replacement)
			present[essential] = true
			healing.AddFixAttempt(MethodFixedItems, fmt.Sprintf("filled missing %s with %q", essential, replacement.Name), true)
		} else {
			healing.AddFixAttempt(MethodFixedItems, "no candidate for missing "+essential, false)
		}
	}
	return items, nil
}

// replaceLowScoringItems swaps out low quality items when a clearly better
// alternative of the same bucket exists. The margin guard prevents churn
// from marginal gains.
func (s *FallbackService) replaceLowScoringItems(ctx context.Context, genCtx *Context, items []models.ClothingItem, issues []ValidationIssue, pool []models.ClothingItem, healing *HealingContext) ([]models.ClothingItem, error) {
	result := make([]models.ClothingItem, 0, len(items))
	for _, item := range items {
		if item.QualityScore >= lowQualityThreshold {
			result = append(result, item)
			continue
		}
		query := ItemQuery{
			UserID:             genCtx.UserID,
			Category:           coreBucket(BucketForItem(&item)),
			ExcludeIDs:         append(healing.ExcludedIDs(), item.ID),
			MinQuality:         0.7,
			MinPairability:     0.6,
			OrderByQualityDesc: true,
			Limit:              5,
		}
		alternatives, err := s.Store.QueryItems(ctx, query)
		if err != nil {
			return nil, &DatabaseError{Op: "query alternatives", Err: err}
		}
		replaced := false
		for i := range alternatives {
			alternative := &alternatives[i]
			if alternative.QualityScore <= item.QualityScore+replacementMargin {
				continue
			}
			if ok, _ := WeatherAppropriate(alternative, genCtx.Weather); !ok {
				continue
			}
			healing.AddItemRemoved(&item, "low quality replaced", genCtx.Weather, genCtx.StyleKey())
			healing.AddFixAttempt(MethodReplacedItems, fmt.Sprintf("replaced %q with %q", item.Name, alternative.Name), true)
			result = append(result, *alternative)
			replaced = true
			break
		}
		if !replaced {
			result = append(result, item)
		}
	}
	return result, nil
}

// generateFromScratch abandons incremental repair: the wardrobe is pulled
// fresh from storage and the filter/select stages re-run from raw data,
// ignoring the failed candidate entirely.
func (s *FallbackService) generateFromScratch(ctx context.Context, genCtx *Context, items []models.ClothingItem, issues []ValidationIssue, pool []models.ClothingItem, healing *HealingContext) ([]models.ClothingItem, error) {
	wardrobe, err := s.Store.ItemsForUser(ctx, genCtx.UserID)
	if err != nil {
		return nil, &DatabaseError{Op: "load wardrobe for scratch generation", Err: err}
	}
	usable := make([]models.ClothingItem, 0, len(wardrobe))
	for _, item := range wardrobe {
		if healing.WasRemoved(item.ID) {
			continue
		}
		usable = append(usable, item)
	}
	filtered := StrictFilter(usable, genCtx)
	if len(filtered) < len(EssentialCategories) {
		// strict filtering starved the pool, fall back to the light pass
		filtered = LightFilter(usable, genCtx)
	}
	healing.AddRuleTrigger("scratch_generation", fmt.Sprintf("reselecting from %d usable items", len(filtered)))
	return SelectItems(filtered, genCtx, nil), nil
}

// outfit level score metrics used by relaxed acceptance
func outfitMetrics(genCtx *Context, items []models.ClothingItem) (pairability, style, weather, occasion float64) {
	if len(items) == 0 {
		return 0, 0, 0, 0
	}
	var styleHits, weatherHits, occasionHits float64
	for _, item := range items {
		pairability += item.PairabilityScore
		if genCtx.Style == "" || StyleMatches(&item, genCtx.Style) {
			styleHits++
		}
		if ok, _ := WeatherAppropriate(&item, genCtx.Weather); ok {
			weatherHits++
		}
		if tagsContainAny(item.NormalizedOccasions(), genCtx.OccasionKey()) || FormalityLevel(&item) == genCtx.OccasionRule.RequiredLevel {
			occasionHits++
		}
	}
	count := float64(len(items))
	return pairability / count, styleHits / count, weatherHits / count, occasionHits / count
}

func metricsMeet(genCtx *Context, items []models.ClothingItem, pairMin, styleMin, weatherMin, occasionMin float64) bool {
	pairability, style, weather, occasion := outfitMetrics(genCtx, items)
	return pairability >= pairMin &&
		style >= styleMin &&
		weather >= weatherMin &&
		occasion >= occasionMin
}

// relaxedAccept recomputes the score based checks against loosened
// thresholds. Essential categories are never relaxed.
func (s *FallbackService) relaxedAccept(genCtx *Context, items []models.ClothingItem) bool {
	present := map[string]bool{}
	for _, item := range items {
		present[coreBucket(BucketForItem(&item))] = true
	}
	if present[CategoryDress] {
		present[CategoryTop] = true
		present[CategoryBottom] = true
	}
	for _, essential := range EssentialCategories {
		if !present[essential] {
			return false
		}
	}
	return metricsMeet(genCtx, items, relaxedPairability, relaxedStyle, relaxedWeather, relaxedOccasion)
}
