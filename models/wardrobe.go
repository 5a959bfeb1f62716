package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// ColorInfo is one detected color of an item, as returned by vision analysis.
type ColorInfo struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
	RGB  []int  `json:"rgb"`
}

type ColorList []ColorInfo

func (c ColorList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

func (c *ColorList) Scan(value interface{}) error {
	if value == nil {
		*c = ColorList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	}
	return fmt.Errorf("unsupported type for ColorList: %T", value)
}

// NormalizedTags is produced by the offline normalization pass: lower-cased
// canonical labels. Filtering reads these first and falls back to the raw
// top-level tags when empty.
type NormalizedTags struct {
	Occasions []string `json:"occasions,omitempty"`
	Styles    []string `json:"styles,omitempty"`
	Moods     []string `json:"moods,omitempty"`
}

type TemperatureCompatibility struct {
	MinF      float64  `json:"min_f,omitempty"`
	MaxF      float64  `json:"max_f,omitempty"`
	BestBands []string `json:"best_bands,omitempty"`
}

type MaterialCompatibility struct {
	GoodWith  []string `json:"good_with,omitempty"`
	AvoidWith []string `json:"avoid_with,omitempty"`
}

// ItemMetadata holds the AI analysis output for an item. The known fields are
// typed; anything else the analysis (or the source store) puts in metadata is
// kept in Extra so a round trip does not lose data.
type ItemMetadata struct {
	Material     string  `json:"material,omitempty"`
	Fit          string  `json:"fit,omitempty"`
	Silhouette   string  `json:"silhouette,omitempty"`
	SleeveLength string  `json:"sleeve_length,omitempty"`
	LayerLevel   int     `json:"layerLevel,omitempty"`
	WarmthFactor float64 `json:"warmthFactor,omitempty"`
	CoreCategory string  `json:"coreCategory,omitempty"`

	TemperatureCompatibility *TemperatureCompatibility `json:"temperature_compatibility,omitempty"`
	MaterialCompatibility    *MaterialCompatibility    `json:"material_compatibility,omitempty"`
	BodyTypeCompatibility    map[string]float64        `json:"body_type_compatibility,omitempty"`
	SkinToneCompatibility    map[string]float64        `json:"skin_tone_compatibility,omitempty"`

	Normalized *NormalizedTags `json:"normalized,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// itemMetadataAlias avoids recursion in the custom JSON round trip.
type itemMetadataAlias ItemMetadata

var itemMetadataKnownKeys = []string{
	"material", "fit", "silhouette", "sleeve_length",
	"layerLevel", "warmthFactor", "coreCategory",
	"temperature_compatibility", "material_compatibility",
	"body_type_compatibility", "skin_tone_compatibility", "normalized",
}

func (m ItemMetadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(itemMetadataAlias(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}
	merged := map[string]json.RawMessage{}
	for key, raw := range m.Extra {
		merged[key] = raw
	}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

func (m *ItemMetadata) UnmarshalJSON(data []byte) error {
	var alias itemMetadataAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range itemMetadataKnownKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	}
	*m = ItemMetadata(alias)
	return nil
}

func (m ItemMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *ItemMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = ItemMetadata{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported type for ItemMetadata: %T", value)
}

// ClothingItem is one physical garment in a user closet.
type ClothingItem struct {
	JsonModel
	Owner   UserAccount `json:"-"`
	OwnerID uint        `gorm:"index" json:"-"`

	Name         string  `json:"name"`
	ClothingType string  `json:"clothing_type"` // e.g., shirt, pants, jacket, shoes, accessory
	SubType      string  `json:"sub_type"`
	Category     string  `gorm:"index:idx_owner_category_scores,priority:2" json:"category"` // coarse bucket: top, bottom, shoes, outerwear, accessory, dress
	Brand        string  `json:"brand"`
	Color        string  `json:"color"`
	Description  *string `gorm:"type:text" json:"description"`

	DominantColors ColorList `gorm:"type:jsonb" json:"dominant_colors"`
	MatchingColors ColorList `gorm:"type:jsonb" json:"matching_colors"`

	StyleTags    pq.StringArray `gorm:"type:text[]" json:"style"`
	OccasionTags pq.StringArray `gorm:"type:text[]" json:"occasion"`
	SeasonTags   pq.StringArray `gorm:"type:text[]" json:"season"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`

	// usage derived fields, mutated by wear/favorite/edit events
	WearCount     int    `json:"wear_count"`
	LastWorn      *int64 `json:"last_worn"` // epoch millis
	FavoriteScore float64 `json:"favorite_score"`
	// the fallback service runs range queries over these two, keep them in
	// the composite index with owner and category
	QualityScore     float64 `gorm:"index:idx_owner_category_scores,priority:3" json:"quality_score"`
	PairabilityScore float64 `gorm:"index:idx_owner_category_scores,priority:4" json:"pairability_score"`

	Metadata ItemMetadata `gorm:"type:jsonb" json:"metadata"`

	ImageURL            *string `json:"image_url"`
	Status              string  `json:"status"`            // active, removed
	ProcessingStatus    string  `json:"processing_status"` // idle, pending, analyzing, completed, failed
	ProcessRetryTimes   int     `json:"process_retry_times"`
	ProcessErrorMessage *string `json:"process_error_message"`
}

// NormalizedOccasions returns the offline-normalized occasion labels, falling
// back to the raw tags. The normalized-first, raw-fallback rule is used by
// every filtering stage.
func (item *ClothingItem) NormalizedOccasions() []string {
	if item.Metadata.Normalized != nil && len(item.Metadata.Normalized.Occasions) > 0 {
		return item.Metadata.Normalized.Occasions
	}
	return item.OccasionTags
}

func (item *ClothingItem) NormalizedStyles() []string {
	if item.Metadata.Normalized != nil && len(item.Metadata.Normalized.Styles) > 0 {
		return item.Metadata.Normalized.Styles
	}
	return item.StyleTags
}

func (item *ClothingItem) NormalizedMoods() []string {
	if item.Metadata.Normalized != nil {
		return item.Metadata.Normalized.Moods
	}
	return nil
}
