package generation

import (
	"sort"
	"time"

	"stylrapi/models"
)

// ErrorRecord is one validation error observed during healing.
type ErrorRecord struct {
	Pass    int    `json:"pass"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

// RuleTrigger records a rule firing during a fix attempt.
type RuleTrigger struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
	Pass   int    `json:"pass"`
}

// RemovalRecord is one item removal plus the reason that caused it.
type RemovalRecord struct {
	ItemID uint   `json:"item_id"`
	Reason string `json:"reason"`
	Pass   int    `json:"pass"`
}

// FixAttempt records one attempted fix, tagged with its outcome.
type FixAttempt struct {
	Strategy string `json:"strategy"`
	Detail   string `json:"detail"`
	Success  bool   `json:"success"`
	Pass     int    `json:"pass"`
}

// HealingContext is the append-only learning ledger scoped to one generation
// attempt. It remembers what failed across repair passes so later passes do
// not repeat the same mistakes. Never shared across requests.
type HealingContext struct {
	pass int

	errorsSeen     []ErrorRecord
	itemsRemoved   map[uint]bool
	removals       []RemovalRecord
	rulesTriggered map[string][]RuleTrigger
	fixesAttempted []FixAttempt

	// derived exclusion indexes, rebuilt incrementally on every record
	weatherLearning map[string]map[string]bool // temperature range -> materials proven unsuitable
	styleLearning   map[string]map[string]bool // target style -> styles proven incompatible
}

func NewHealingContext() *HealingContext {
	return &HealingContext{
		itemsRemoved:    map[uint]bool{},
		rulesTriggered:  map[string][]RuleTrigger{},
		weatherLearning: map[string]map[string]bool{},
		styleLearning:   map[string]map[string]bool{},
	}
}

// NextPass bumps the monotone pass counter and returns the new value.
func (h *HealingContext) NextPass() int {
	h.pass++
	return h.pass
}

func (h *HealingContext) Pass() int {
	return h.pass
}

func (h *HealingContext) AddError(rule, message string) {
	h.errorsSeen = append(h.errorsSeen, ErrorRecord{
		Pass:    h.pass,
		Rule:    rule,
		Message: message,
		At:      time.Now().UnixMilli(),
	})
}

func (h *HealingContext) AddRuleTrigger(rule, detail string) {
	h.rulesTriggered[rule] = append(h.rulesTriggered[rule], RuleTrigger{Rule: rule, Detail: detail, Pass: h.pass})
}

func (h *HealingContext) AddFixAttempt(strategy, detail string, success bool) {
	h.fixesAttempted = append(h.fixesAttempted, FixAttempt{Strategy: strategy, Detail: detail, Success: success, Pass: h.pass})
}

// AddItemRemoved records a removal and feeds the derived learning indexes.
// Once recorded the item is never reconsidered within this attempt.
func (h *HealingContext) AddItemRemoved(item *models.ClothingItem, reason string, weather Weather, targetStyle string) {
	if !h.itemsRemoved[item.ID] {
		h.itemsRemoved[item.ID] = true
		h.removals = append(h.removals, RemovalRecord{ItemID: item.ID, Reason: reason, Pass: h.pass})
	}

	if material := itemMaterial(item); material != "" {
		rangeKey := TemperatureRangeKey(weather.TemperatureF)
		if h.weatherLearning[rangeKey] == nil {
			h.weatherLearning[rangeKey] = map[string]bool{}
		}
		h.weatherLearning[rangeKey][material] = true
	}

	if targetStyle != "" {
		for _, style := range item.NormalizedStyles() {
			if h.styleLearning[targetStyle] == nil {
				h.styleLearning[targetStyle] = map[string]bool{}
			}
			h.styleLearning[targetStyle][style] = true
		}
	}
}

// WasRemoved reports whether an item is already excluded for this attempt.
func (h *HealingContext) WasRemoved(itemID uint) bool {
	return h.itemsRemoved[itemID]
}

// ExcludedIDs returns the removed item ids in removal order.
func (h *HealingContext) ExcludedIDs() []uint {
	ids := make([]uint, 0, len(h.removals))
	for _, removal := range h.removals {
		ids = append(ids, removal.ItemID)
	}
	return ids
}

// Removals returns the removal records in removal order.
func (h *HealingContext) Removals() []RemovalRecord {
	return append([]RemovalRecord(nil), h.removals...)
}

// BadMaterials returns the materials proven unsuitable for the temperature
// range of the given weather.
func (h *HealingContext) BadMaterials(weather Weather) []string {
	return sortedKeys(h.weatherLearning[TemperatureRangeKey(weather.TemperatureF)])
}

// BadStyles returns the styles proven incompatible with the target style.
func (h *HealingContext) BadStyles(targetStyle string) []string {
	return sortedKeys(h.styleLearning[targetStyle])
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot flattens the ledger for attachment to the outfit healing log.
func (h *HealingContext) Snapshot() models.JSONMap {
	weather := map[string][]string{}
	for rangeKey, materials := range h.weatherLearning {
		weather[rangeKey] = sortedKeys(materials)
	}
	styles := map[string][]string{}
	for target, incompatible := range h.styleLearning {
		styles[target] = sortedKeys(incompatible)
	}
	return models.JSONMap{
		"healing_pass":     h.pass,
		"errors_seen":      h.errorsSeen,
		"items_removed":    h.Removals(),
		"rules_triggered":  h.rulesTriggered,
		"fixes_attempted":  h.fixesAttempted,
		"weather_learning": weather,
		"style_learning":   styles,
	}
}
