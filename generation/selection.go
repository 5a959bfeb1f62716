package generation

import (
	"sort"
	"strings"

	"stylrapi/models"
)

// baseItemScore pins the anchor item so nothing can displace it.
const baseItemScore = 1000.0

// seasonsForBand maps a temperature band to the season tags that count as a
// match for scoring.
func seasonsForBand(band string) []string {
	switch band {
	case BandHot, BandWarm:
		return []string{"summer"}
	case BandModerate:
		return []string{"spring", "fall", "autumn"}
	default:
		return []string{"winter"}
	}
}

func tagsContainAny(tags []string, wanted ...string) bool {
	for _, tag := range tags {
		lowered := strings.ToLower(tag)
		for _, want := range wanted {
			if strings.Contains(lowered, want) {
				return true
			}
		}
	}
	return false
}

// ScoredItem pairs an item with its relevance score for one request.
type ScoredItem struct {
	Item  models.ClothingItem
	Score float64
}

// ScoreItem computes the relevance score: 1.0 base, +0.3 occasion match,
// +0.2 style match, +0.2 season match for the current temperature band,
// +0.1 x quality, plus the externally computed diversity boost; minus the
// wind penalty for loose silhouettes.
func ScoreItem(item *models.ClothingItem, genCtx *Context, diversityBoost float64) float64 {
	score := 1.0

	if tagsContainAny(item.NormalizedOccasions(), genCtx.OccasionKey()) {
		score += 0.3
	}
	if genCtx.Style != "" && tagsContainAny(item.NormalizedStyles(), genCtx.StyleKey()) {
		score += 0.2
	}
	if tagsContainAny(item.SeasonTags, seasonsForBand(TemperatureBand(genCtx.Weather.TemperatureF))...) {
		score += 0.2
	}
	score += 0.1 * item.QualityScore
	score += diversityBoost
	score -= windPenalty(item, genCtx.Weather)
	return score
}

// SelectItems scores the filtered wardrobe and picks a working set: the base
// item always included, then the top item per coarse bucket up to the target
// count, then backfill for missing essential buckets regardless of rank.
func SelectItems(filtered []models.ClothingItem, genCtx *Context, diversityBoosts map[uint]float64) []models.ClothingItem {
	scored := make([]ScoredItem, 0, len(filtered))
	baseIncluded := false
	for _, item := range filtered {
		score := ScoreItem(&item, genCtx, diversityBoosts[item.ID])
		if genCtx.BaseItem != nil && item.ID == genCtx.BaseItem.ID {
			score = baseItemScore
			baseIncluded = true
		}
		scored = append(scored, ScoredItem{Item: item, Score: score})
	}
	if genCtx.BaseItem != nil && !baseIncluded {
		// the anchor survived no filter but the caller asked for it; honor it
		scored = append(scored, ScoredItem{Item: *genCtx.BaseItem, Score: baseItemScore})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	maxItems := genCtx.Targets.MaxItems
	if maxItems <= 0 {
		maxItems = len(scored)
	}

	picked := make([]models.ClothingItem, 0, maxItems)
	pickedIDs := map[uint]bool{}
	bucketTaken := map[string]bool{}
	for _, candidate := range scored {
		if len(picked) >= maxItems {
			break
		}
		bucket := coreBucket(BucketForItem(&candidate.Item))
		if bucketTaken[bucket] {
			continue
		}
		bucketTaken[bucket] = true
		pickedIDs[candidate.Item.ID] = true
		picked = append(picked, candidate.Item)
	}

	// backfill: essential buckets must be present even if every candidate of
	// that bucket ranked below the cutoff
	for _, essential := range EssentialCategories {
		if bucketTaken[essential] {
			continue
		}
		for _, candidate := range scored {
			if pickedIDs[candidate.Item.ID] {
				continue
			}
			if coreBucket(BucketForItem(&candidate.Item)) != essential {
				continue
			}
			bucketTaken[essential] = true
			pickedIDs[candidate.Item.ID] = true
			picked = append(picked, candidate.Item)
			break
		}
	}
	return picked
}
