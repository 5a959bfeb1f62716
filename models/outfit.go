package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// TraceStep is one pipeline step record kept on a generated outfit for
// observability.
type TraceStep struct {
	Step   string `json:"step"`
	Detail string `json:"detail,omitempty"`
	At     int64  `json:"at"` // epoch millis
}

type TraceList []TraceStep

func (t TraceList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	return json.Marshal(t)
}

func (t *TraceList) Scan(value interface{}) error {
	if value == nil {
		*t = TraceList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	}
	return fmt.Errorf("unsupported type for TraceList: %T", value)
}

// JSONMap is a generic jsonb column for loosely shaped audit payloads
// (validation details, wardrobe snapshot, healing log).
type JSONMap map[string]interface{}

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return fmt.Errorf("unsupported type for JSONMap: %T", value)
}

// OutfitItem keeps the item order inside an outfit.
type OutfitItem struct {
	OutfitID       uint         `gorm:"primaryKey" json:"-"`
	ClothingItemID uint         `gorm:"primaryKey" json:"clothing_item_id"`
	ClothingItem   ClothingItem `json:"item"`
	Position       int          `json:"position"`
}

// Outfit is a named set of clothing items plus the context that produced it.
type Outfit struct {
	JsonModel
	UserAccount   UserAccount `json:"-"`
	UserAccountID uint        `gorm:"index" json:"-"`

	Name     string  `json:"name"`
	Occasion string  `json:"occasion"`
	Style    string  `json:"style"`
	Mood     string  `json:"mood"`
	Season   *string `json:"season"`

	Items []OutfitItem `gorm:"foreignKey:OutfitID" json:"items"`

	// provenance
	GenerationMethod  string         `json:"generation_method"` // primary, fallback, scratch_repair, relaxed, manual
	GenerationTrace   TraceList      `gorm:"type:jsonb" json:"generation_trace"`
	ValidationDetails JSONMap        `gorm:"type:jsonb" json:"validation_details"`
	WardrobeSnapshot  JSONMap        `gorm:"type:jsonb" json:"wardrobe_snapshot"`
	HealingLog        JSONMap        `gorm:"type:jsonb" json:"healing_log"`
	Warnings          pq.StringArray `gorm:"type:text[]" json:"warnings"`
	Confidence        float64        `json:"confidence"`

	// usage state
	WearCount    int     `json:"wear_count"`
	LastWorn     *int64  `json:"last_worn"` // epoch millis
	IsFavorite   bool    `json:"is_favorite"`
	UserFeedback *string `gorm:"type:text" json:"user_feedback"`
}
