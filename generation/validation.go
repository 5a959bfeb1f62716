package generation

import (
	"fmt"
	"sort"

	"stylrapi/models"
)

type Severity string

const (
	SeveritySoft Severity = "soft" // auto-fixable by the healing ladder
	SeverityHard Severity = "hard" // requires a fresh generation attempt
)

// ValidationIssue is one categorized composition error.
type ValidationIssue struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	ItemIDs  []uint   `json:"item_ids,omitempty"`
}

// ValidationResult is the outcome of the ordered rule battery.
type ValidationResult struct {
	IsValid       bool
	Errors        []ValidationIssue
	Warnings      []string
	FilteredItems []models.ClothingItem
	RemovedItems  []models.ClothingItem
}

func (r *ValidationResult) Details() models.JSONMap {
	errorMessages := make([]string, 0, len(r.Errors))
	for _, issue := range r.Errors {
		errorMessages = append(errorMessages, issue.Message)
	}
	return models.JSONMap{
		"is_valid":   r.IsValid,
		"errors":     errorMessages,
		"warnings":   r.Warnings,
		"item_count": len(r.FilteredItems),
	}
}

func classify(message string) Severity {
	if IsSoftError(message) {
		return SeveritySoft
	}
	return SeverityHard
}

func itemIDs(items []models.ClothingItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func containsID(items []models.ClothingItem, id uint) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// applyCategoryCaps keeps the first allowed count per bucket in the current
// (score descending) order. Runs before the rule battery so later rules see a
// deduplicated set.
func applyCategoryCaps(items []models.ClothingItem, result *ValidationResult) []models.ClothingItem {
	limits := map[string]int{}
	for _, cap := range CategoryCaps {
		limits[cap.Category] = cap.Max
	}
	counts := map[string]int{}
	kept := make([]models.ClothingItem, 0, len(items))
	for _, item := range items {
		bucket := BucketForItem(&item)
		limit, capped := limits[bucket]
		if capped && counts[bucket] >= limit {
			result.RemovedItems = append(result.RemovedItems, item)
			result.Warnings = append(result.Warnings, fmt.Sprintf("removed %q: duplicate %s over the category limit", item.Name, bucket))
			continue
		}
		counts[bucket]++
		kept = append(kept, item)
	}
	return kept
}

// applyFormalityConsistency drops items at the least represented formality
// levels until the outfit spans at most two distinct levels.
func applyFormalityConsistency(items []models.ClothingItem, result *ValidationResult) []models.ClothingItem {
	for {
		levelCounts := map[int]int{}
		for _, item := range items {
			levelCounts[FormalityLevel(&item)]++
		}
		if len(levelCounts) <= 2 {
			return items
		}
		// find the least represented level, lowest level breaks ties so
		// behavior stays reproducible
		levels := make([]int, 0, len(levelCounts))
		for level := range levelCounts {
			levels = append(levels, level)
		}
		sort.Ints(levels)
		dropLevel := levels[0]
		for _, level := range levels {
			if levelCounts[level] < levelCounts[dropLevel] {
				dropLevel = level
			}
		}
		kept := items[:0]
		for _, item := range items {
			if FormalityLevel(&item) == dropLevel {
				result.RemovedItems = append(result.RemovedItems, item)
				result.Warnings = append(result.Warnings, fmt.Sprintf("removed %q: style mismatch across formality levels", item.Name))
				continue
			}
			kept = append(kept, item)
		}
		items = kept
	}
}

// applyOccasionAppropriateness removes items whose formality level is more
// than two levels away from the occasion requirement.
func applyOccasionAppropriateness(items []models.ClothingItem, rule OccasionRule, result *ValidationResult) []models.ClothingItem {
	kept := items[:0]
	for _, item := range items {
		delta := FormalityLevel(&item) - rule.RequiredLevel
		if delta < 0 {
			delta = -delta
		}
		if delta > 2 {
			result.RemovedItems = append(result.RemovedItems, item)
			result.Warnings = append(result.Warnings, fmt.Sprintf("removed %q: style mismatch with occasion %q", item.Name, rule.Key))
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// applyCompositionRule fires when an item matching KeepKeywords is present
// and removes every item matching RemoveKeywords.
func applyCompositionRule(items []models.ClothingItem, rule CompositionRule, result *ValidationResult) []models.ClothingItem {
	keeperPresent := false
	for _, item := range items {
		if itemMatchesKeywords(&item, rule.KeepKeywords) {
			keeperPresent = true
			break
		}
	}
	if !keeperPresent {
		return items
	}
	kept := items[:0]
	for _, item := range items {
		if itemMatchesKeywords(&item, rule.RemoveKeywords) && !itemMatchesKeywords(&item, rule.KeepKeywords) {
			result.RemovedItems = append(result.RemovedItems, item)
			result.Warnings = append(result.Warnings, fmt.Sprintf("removed %q: %s", item.Name, rule.Reason))
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// safeRestoreCandidate pulls the best unused pool item of a bucket that fits
// the weather and does not trip the final layer rules against the current
// set.
func safeRestoreCandidate(items []models.ClothingItem, pool []models.ClothingItem, category string, genCtx *Context) *models.ClothingItem {
	var best *models.ClothingItem
	for i := range pool {
		candidate := &pool[i]
		if containsID(items, candidate.ID) {
			continue
		}
		if coreBucket(BucketForItem(candidate)) != category {
			continue
		}
		if ok, _ := WeatherAppropriate(candidate, genCtx.Weather); !ok {
			continue
		}
		conflicts := false
		for _, rule := range finalLayerRules {
			if !itemMatchesKeywords(candidate, rule.RemoveKeywords) {
				continue
			}
			for _, existing := range items {
				if itemMatchesKeywords(&existing, rule.KeepKeywords) {
					conflicts = true
					break
				}
			}
		}
		if conflicts {
			continue
		}
		if best == nil || candidate.QualityScore > best.QualityScore {
			best = candidate
		}
	}
	return best
}

// restoreEssentials re-adds any missing essential bucket from the original
// pre-filter pool. Failure to restore is recorded as an error: soft when the
// pool simply had nothing analyzed for that bucket would not help, hard when
// no candidate exists at all.
func restoreEssentials(items []models.ClothingItem, pool []models.ClothingItem, genCtx *Context, result *ValidationResult) []models.ClothingItem {
	present := map[string]bool{}
	for _, item := range items {
		present[coreBucket(BucketForItem(&item))] = true
	}
	// a dress covers top and bottom at once
	if present[CategoryDress] {
		present[CategoryTop] = true
		present[CategoryBottom] = true
	}
	for _, essential := range EssentialCategories {
		if present[essential] {
			continue
		}
		if restored := safeRestoreCandidate(items, pool, essential, genCtx); restored != nil {
			items = append(items, *restored)
			present[essential] = true
			result.Warnings = append(result.Warnings, fmt.Sprintf("restored %q: outfit was missing a %s", restored.Name, essential))
			continue
		}
		message := fmt.Sprintf("no suitable %s available", essential)
		result.Errors = append(result.Errors, ValidationIssue{
			Rule:     "essential_categories",
			Message:  message,
			Severity: classify(message),
		})
	}
	return items
}

// Validate runs the ordered rule battery over an item set: category caps,
// formality consistency, occasion appropriateness, the table driven
// composition rules, then the unconditional final layer. originalPool is the
// pre-filter wardrobe used for restores.
func Validate(items []models.ClothingItem, genCtx *Context, originalPool []models.ClothingItem) ValidationResult {
	result := ValidationResult{}
	current := append([]models.ClothingItem(nil), items...)

	current = applyCategoryCaps(current, &result)
	current = applyFormalityConsistency(current, &result)
	current = applyOccasionAppropriateness(current, genCtx.OccasionRule, &result)

	for _, rule := range CompositionRules {
		current = applyCompositionRule(current, rule, &result)
	}

	// final validation layer: always runs, independent of what already
	// fired, because rule application order can reintroduce a violation
	for _, rule := range finalLayerRules {
		before := len(current)
		current = applyCompositionRule(current, rule, &result)
		if len(current) < before {
			// a bottom may have been forcibly removed; put a safe one back
			if restored := safeRestoreCandidate(current, originalPool, CategoryBottom, genCtx); restored != nil {
				hasBottom := false
				for _, item := range current {
					if coreBucket(BucketForItem(&item)) == CategoryBottom {
						hasBottom = true
						break
					}
				}
				if !hasBottom {
					current = append(current, *restored)
					result.Warnings = append(result.Warnings, fmt.Sprintf("restored %q after removing an incompatible bottom", restored.Name))
				}
			}
		}
	}

	current = restoreEssentials(current, originalPool, genCtx, &result)

	if len(current) < genCtx.Targets.MinItems {
		message := fmt.Sprintf("insufficient items: %d left, need at least %d", len(current), genCtx.Targets.MinItems)
		result.Errors = append(result.Errors, ValidationIssue{
			Rule:     "minimum_items",
			Message:  message,
			Severity: classify(message),
			ItemIDs:  itemIDs(current),
		})
	}

	result.FilteredItems = current
	result.IsValid = len(result.Errors) == 0
	return result
}

// SplitErrors separates soft from hard issues.
func SplitErrors(issues []ValidationIssue) (soft []ValidationIssue, hard []ValidationIssue) {
	for _, issue := range issues {
		if issue.Severity == SeveritySoft {
			soft = append(soft, issue)
		} else {
			hard = append(hard, issue)
		}
	}
	return soft, hard
}
