package generation

import (
	"context"
	"fmt"
	"time"

	"stylrapi/models"
)

// GenerateRequest is the normalized input of one generation run. Temperature
// arrives as a raw string and degrades to the default on parse failure.
type GenerateRequest struct {
	UserID     uint
	Occasion   string
	Style      string
	Mood       string
	Weather    Weather
	BaseItemID *uint

	// strict applies style and preference filtering up front instead of
	// leaving it to validation and healing
	Strict bool

	Trending []string
}

// GeneratedOutfit is the pipeline output, ready to persist.
type GeneratedOutfit struct {
	Items             []models.ClothingItem
	Method            string
	Confidence        float64
	Warnings          []string
	Trace             models.TraceList
	ValidationDetails models.JSONMap
	HealingLog        models.JSONMap
	Diversity         DiversityCheck
}

// Pipeline wires filtering, selection, validation, healing and diversity into
// the single generation entrypoint.
type Pipeline struct {
	Store     WardrobeStore
	Fallback  *FallbackService
	Diversity *DiversityService
}

func NewPipeline(store WardrobeStore) *Pipeline {
	return &Pipeline{
		Store:     store,
		Fallback:  NewFallbackService(store),
		Diversity: NewDiversityService(store),
	}
}

func trace(steps models.TraceList, step, detail string) models.TraceList {
	return append(steps, models.TraceStep{Step: step, Detail: detail, At: time.Now().UnixMilli()})
}

// confidence maps the terminal method and remaining warnings to a 0..1 score.
func confidence(method string, warnings int) float64 {
	base := map[string]float64{
		MethodPrimary:       0.95,
		MethodFixedItems:    0.8,
		MethodReplacedItems: 0.75,
		MethodScratchRepair: 0.65,
		MethodRelaxed:       0.5,
	}[method]
	penalty := 0.02 * float64(warnings)
	if penalty > 0.2 {
		penalty = 0.2
	}
	score := base - penalty
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// Generate runs the full pipeline: context building, filtering, scored
// selection, the validation battery, then the healing ladder if needed, and
// finally the diversity pass. A hard validation error aborts immediately
// without healing.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest, profile models.StyleProfile) (*GeneratedOutfit, error) {
	steps := models.TraceList{}

	wardrobe, err := p.Store.ItemsForUser(ctx, req.UserID)
	if err != nil {
		return nil, &DatabaseError{Op: "load wardrobe", Err: err}
	}
	if len(wardrobe) == 0 {
		return nil, &OutfitGenerationError{Reason: "wardrobe is empty"}
	}
	steps = trace(steps, "load_wardrobe", fmt.Sprintf("%d items", len(wardrobe)))

	var baseItem *models.ClothingItem
	if req.BaseItemID != nil {
		baseItem, err = p.Store.GetItem(ctx, req.UserID, *req.BaseItemID)
		if err != nil {
			return nil, &DatabaseError{Op: "load base item", Err: err}
		}
		if baseItem == nil {
			return nil, &ValidationError{Field: "base_item_id", Reason: "item not found in wardrobe"}
		}
	}

	history, err := p.Diversity.LoadHistory(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	genCtx := BuildContext(req.UserID, req.Occasion, req.Style, req.Mood, req.Weather, profile, baseItem, req.Trending, history)
	steps = trace(steps, "build_context", fmt.Sprintf("targets %d-%d, occasion level %d", genCtx.Targets.MinItems, genCtx.Targets.MaxItems, genCtx.OccasionRule.RequiredLevel))

	filtered := LightFilter(wardrobe, genCtx)
	if req.Strict {
		filtered = StrictFilter(wardrobe, genCtx)
	}
	steps = trace(steps, "filter", fmt.Sprintf("%d of %d items pass", len(filtered), len(wardrobe)))
	if len(filtered) == 0 {
		return nil, &OutfitGenerationError{Reason: "no wardrobe items fit the requested weather and occasion"}
	}

	boosts := p.Diversity.BoostsFor(req.UserID, filtered, history, req.Trending)
	selected := SelectItems(filtered, genCtx, boosts)
	steps = trace(steps, "select", fmt.Sprintf("%d items selected", len(selected)))

	result := Validate(selected, genCtx, wardrobe)
	steps = trace(steps, "validate", fmt.Sprintf("%d errors, %d warnings", len(result.Errors), len(result.Warnings)))

	items := result.FilteredItems
	warnings := result.Warnings
	method := MethodPrimary
	healingLog := models.JSONMap{}

	if !result.IsValid {
		soft, hard := SplitErrors(result.Errors)
		if len(hard) > 0 {
			// hard errors cannot be healed within this attempt
			return nil, &OutfitGenerationError{
				Reason: "outfit failed validation",
				Errors: issueMessages(hard),
			}
		}
		steps = trace(steps, "heal", fmt.Sprintf("%d soft errors, entering repair ladder", len(soft)))
		healed, healErr := p.Fallback.HealOutfit(ctx, genCtx, items, soft, wardrobe)
		if healErr != nil {
			return nil, healErr
		}
		healingLog = healed.Healing.Snapshot()
		warnings = append(warnings, healed.Warnings...)
		if !healed.Healed {
			return nil, &OutfitGenerationError{
				Reason:     "healing ladder exhausted",
				Errors:     issueMessages(healed.RemainingErrors),
				HealingLog: healingLog,
			}
		}
		items = healed.Items
		method = healed.Method
		steps = trace(steps, "heal", "recovered via "+method)
	}

	check := p.Diversity.CheckDiversity(items, history)
	if check.TooSimilar {
		warnings = append(warnings, fmt.Sprintf("outfit is %.0f%% similar to a recent one", check.MaxSimilarity*100))
	}
	steps = trace(steps, "diversity", fmt.Sprintf("max similarity %.2f", check.MaxSimilarity))

	p.Diversity.RecordOutfit(req.UserID, items)

	return &GeneratedOutfit{
		Items:             items,
		Method:            method,
		Confidence:        confidence(method, len(warnings)),
		Warnings:          warnings,
		Trace:             steps,
		ValidationDetails: result.Details(),
		HealingLog:        healingLog,
		Diversity:         check,
	}, nil
}

func issueMessages(issues []ValidationIssue) []string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}
