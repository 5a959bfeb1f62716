package models

// Envelope is the response wrapper used by the outfit and diversity
// endpoints: {success, data|error, message}.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WeatherIn is the weather snapshot supplied with a generation request.
// Temperature is accepted as a raw string so a bad client value degrades to
// the 70F default instead of a 400.
type WeatherIn struct {
	Temperature   string  `json:"temperature"`
	Condition     string  `json:"condition"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	Precipitation float64 `json:"precipitation"`
}

type GenerateOutfitIn struct {
	Occasion   string    `json:"occasion" validate:"required,max=60"`
	Weather    WeatherIn `json:"weather"`
	Style      string    `json:"style" validate:"omitempty,max=60"`
	Mood       string    `json:"mood" validate:"omitempty,max=60"`
	BaseItemID *uint     `json:"baseItemId"`
}

type CreateOutfitIn struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	Occasion string `json:"occasion" validate:"required,max=60"`
	Style    string `json:"style" validate:"omitempty,max=60"`
	Mood     string `json:"mood" validate:"omitempty,max=60"`
	ItemIDs  []uint `json:"item_ids" validate:"required,min=1,max=10"`
}

type UpdateOutfitIn struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Occasion *string `json:"occasion" validate:"omitempty,max=60"`
	Style    *string `json:"style" validate:"omitempty,max=60"`
	Mood     *string `json:"mood" validate:"omitempty,max=60"`
}

type OutfitFeedbackIn struct {
	Feedback string `json:"feedback" validate:"required,max=1000"`
}

type CreateWardrobeItemIn struct {
	Name         string  `json:"name" validate:"omitempty,max=100"`
	FileName     *string `json:"file_name" validate:"required,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	ClothingType string  `json:"clothing_type" validate:"required,max=40"`
	Analyze      *bool   `json:"analyze" validate:"required"`
}

type UpdateWardrobeItemIn struct {
	Name         *string  `json:"name" validate:"omitempty,max=100"`
	Description  *string  `json:"description" validate:"omitempty,max=500"`
	ClothingType *string  `json:"clothing_type" validate:"omitempty,max=40"`
	Color        *string  `json:"color" validate:"omitempty,max=40"`
	StyleTags    []string `json:"style" validate:"omitempty,max=10"`
	OccasionTags []string `json:"occasion" validate:"omitempty,max=10"`
	SeasonTags   []string `json:"season" validate:"omitempty,max=4"`
}

type StyleQuizIn struct {
	Answers map[string]string `json:"answers" validate:"required"`
}
