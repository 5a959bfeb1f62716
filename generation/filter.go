package generation

import (
	"strings"

	"stylrapi/models"
)

// itemMaterial reads the analyzed material, lower-cased.
func itemMaterial(item *models.ClothingItem) string {
	return strings.ToLower(item.Metadata.Material)
}

// WeatherAppropriate checks an item against the temperature banded exclusion
// lists and the weather condition. Wind never hard-excludes.
func WeatherAppropriate(item *models.ClothingItem, weather Weather) (bool, string) {
	material := itemMaterial(item)
	typeAndName := strings.ToLower(item.ClothingType + " " + item.SubType + " " + item.Name)

	for _, exclusion := range weatherMaterialExclusions {
		if !exclusion.appliesTo(weather.TemperatureF) {
			continue
		}
		for _, banned := range exclusion.materials {
			if material != "" && strings.Contains(material, banned) {
				return false, exclusion.reason
			}
		}
		for _, banned := range exclusion.types {
			if strings.Contains(typeAndName, banned) {
				return false, exclusion.reason
			}
		}
	}

	if strings.Contains(strings.ToLower(weather.Condition), "rain") || weather.Precipitation > 0.5 {
		for _, delicate := range rainExcludedMaterials {
			if material != "" && strings.Contains(material, delicate) {
				return false, "delicate material in rain"
			}
		}
	}
	return true, ""
}

// windPenalty deprioritizes loose silhouettes on windy days in scoring.
func windPenalty(item *models.ClothingItem, weather Weather) float64 {
	if weather.WindSpeed < 15 {
		return 0
	}
	silhouette := strings.ToLower(item.Metadata.Silhouette)
	for _, loose := range windLooseSilhouettes {
		if strings.Contains(silhouette, loose) {
			return 0.1
		}
	}
	return 0
}

// occasionBlocked applies the coarse keyword blocklist of the occasion rule.
func occasionBlocked(item *models.ClothingItem, rule OccasionRule) bool {
	return itemMatchesKeywords(item, rule.BlockedKeywords)
}

// LightFilter prunes the wardrobe by weather and the coarse occasion
// blocklist. Cheap by design, errs toward over-inclusion; the first pipeline
// pass always uses it.
func LightFilter(wardrobe []models.ClothingItem, genCtx *Context) []models.ClothingItem {
	filtered := make([]models.ClothingItem, 0, len(wardrobe))
	for _, item := range wardrobe {
		if ok, _ := WeatherAppropriate(&item, genCtx.Weather); !ok {
			continue
		}
		if occasionBlocked(&item, genCtx.OccasionRule) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

// obviouslyWrongNameKeywords vetoes by name only as the very last resort of
// style matching.
var obviouslyWrongNameKeywords = map[string][]string{
	"formal":     {"pajama", "swim", "beach", "costume"},
	"minimalist": {"sequin", "neon", "glitter"},
	"classic":    {"costume", "neon"},
	"athletic":   {"gown", "tuxedo"},
}

// StyleMatches decides whether an item fits the target style. Priority
// order: the item's own style tags, then its type, then its brand, then the
// obviously-wrong name veto.
func StyleMatches(item *models.ClothingItem, targetStyle string) bool {
	target := strings.ToLower(strings.TrimSpace(targetStyle))
	if target == "" {
		return true
	}

	for _, tag := range item.NormalizedStyles() {
		if strings.Contains(strings.ToLower(tag), target) {
			return true
		}
	}

	// some types imply a style on their own
	typeKey := strings.ToLower(item.ClothingType + " " + item.SubType)
	switch target {
	case "formal", "classy", "elegant":
		if strings.Contains(typeKey, "blazer") || strings.Contains(typeKey, "dress") || strings.Contains(typeKey, "suit") {
			return true
		}
	case "athletic", "sporty":
		if strings.Contains(typeKey, "sneaker") || strings.Contains(typeKey, "jogger") || strings.Contains(typeKey, "jersey") {
			return true
		}
	case "casual":
		if strings.Contains(typeKey, "tee") || strings.Contains(typeKey, "jean") || strings.Contains(typeKey, "hoodie") {
			return true
		}
	}

	if brand := strings.ToLower(item.Brand); brand != "" && strings.Contains(brand, target) {
		return true
	}

	if vetoes, ok := obviouslyWrongNameKeywords[target]; ok {
		name := strings.ToLower(item.Name)
		for _, veto := range vetoes {
			if strings.Contains(name, veto) {
				return false
			}
		}
	}
	// no positive signal, no veto: keep, light touch beats over-filtering
	return true
}

// matchesPreferences applies the user color and material avoid lists.
func matchesPreferences(item *models.ClothingItem, profile models.StyleProfile) bool {
	color := strings.ToLower(item.Color)
	for _, avoid := range profile.AvoidColors {
		if avoid != "" && strings.Contains(color, strings.ToLower(avoid)) {
			return false
		}
	}
	material := itemMaterial(item)
	for _, avoid := range profile.AvoidMaterials {
		if avoid != "" && material != "" && strings.Contains(material, strings.ToLower(avoid)) {
			return false
		}
	}
	return true
}

// StrictFilter is light filtering plus style compatibility and user
// preference filtering. Used on explicit request and inside repair paths.
func StrictFilter(wardrobe []models.ClothingItem, genCtx *Context) []models.ClothingItem {
	filtered := make([]models.ClothingItem, 0, len(wardrobe))
	for _, item := range LightFilter(wardrobe, genCtx) {
		if !StyleMatches(&item, genCtx.Style) {
			continue
		}
		if !matchesPreferences(&item, genCtx.Profile) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}
