package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

// LLMModelName is the GenAI model to use for a vision call.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite-preview-06-17"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

func floatPointer(f float32) *float32 {
	return &f
}

func Int64Pointer(i int64) *int64 {
	return &i
}

func Int32Pointer(i int32) *int32 {
	return &i
}

type LLMResponse struct {
	Response           string `json:"response"`
	Thoughts           string `json:"thoughts"`
	InputTokenCount    int32  `json:"input_token_count"`
	ThoughtsTokenCount int32  `json:"thoughts_token_count"`
	OutputTokenCount   int32  `json:"output_token_count"`
	TotalTokenCount    int32  `json:"total_token_count"`
	IsTest             bool   `json:"is_test"`
}

// ClothingAnalysis is the structured vision output for one garment photo.
// Field names mirror the response schema below.
type ClothingAnalysis struct {
	Name         string   `json:"name"`
	ClothingType string   `json:"clothing_type"`
	SubType      string   `json:"sub_type"`
	Category     string   `json:"category"`
	Brand        string   `json:"brand"`
	Color        string   `json:"color"`
	Material     string   `json:"material"`
	Fit          string   `json:"fit"`
	Silhouette   string   `json:"silhouette"`
	SleeveLength string   `json:"sleeve_length"`
	LayerLevel   int      `json:"layer_level"`
	WarmthFactor float64  `json:"warmth_factor"`
	Styles       []string `json:"styles"`
	Occasions    []string `json:"occasions"`
	Seasons      []string `json:"seasons"`
	Quality      float64  `json:"quality"`
	Pairability  float64  `json:"pairability"`
	IsClothing   bool     `json:"is_clothing"`
}

// VisionProvider analyzes a garment photo into structured attributes.
// Implemented against Gemini, mocked in tests.
type VisionProvider interface {
	AnalyzeClothing(filePath string, modelName LLMModelName) (*ClothingAnalysis, *LLMResponse, error)
}

type GoogleVisionAnalyzer struct{}

type ResponseWithThoughts struct {
	Thoughts string `json:"thoughts"`
	Text     string `json:"text"`
}

var dashAlphaRule = regexp.MustCompile(`[^a-zA-Z0-9-]`)

func tryUploadGoogleStorage(ctx context.Context, client *genai.Client, filePath string, newName *string) (*genai.File, error) {
	var genFile *genai.File
	var err error
	maxUploadTimes := 3
	for i := range maxUploadTimes {
		config := &genai.UploadFileConfig{}
		if newName != nil {
			config = &genai.UploadFileConfig{
				Name: *newName,
			}
		}

		genFile, err = client.Files.UploadFromPath(ctx, filePath, config)
		if err == nil {
			fmt.Println("File uploaded successfully:", filePath, "Attempt:", i+1)
			return genFile, nil
		}
		fmt.Printf("Error uploading file %s, attempt %d: %v\n", filePath, i+1, err)
	}
	return nil, fmt.Errorf("failed to upload file to google storage after %d attempts: %s", maxUploadTimes, filePath)
}

func GetFirstCandidateTextWithThoughts(result *genai.GenerateContentResponse) (*ResponseWithThoughts, error) {
	var thinkingContent string
	for _, c := range result.Candidates {
		fmt.Println("Finish reason: ", c.FinishReason, " Finish message: ", c.FinishMessage)

		if len(c.SafetyRatings) > 0 {
			fmt.Println("[Safety] Safety ratings present:", len(c.SafetyRatings))
			for _, rating := range c.SafetyRatings {
				fmt.Println("[Safety] rating:", rating.Category, "Score:", rating.Probability, " Blocked:", rating.Blocked)
				if rating.Blocked {
					return nil, fmt.Errorf("content violation: couldn't analyze the photo, because it contains %s", rating.Category)
				}
			}
		}
		for _, part := range c.Content.Parts {
			if part.Thought && part.Text != "" {
				thinkingContent = part.Text
				continue
			}
		}
	}
	return &ResponseWithThoughts{
		Thoughts: thinkingContent,
		Text:     result.Text(),
	}, nil
}

var clothingAnalysisSchema = &genai.Schema{
	Type: "object",
	Properties: map[string]*genai.Schema{
		"name":          {Type: "string"},
		"clothing_type": {Type: "string"},
		"sub_type":      {Type: "string"},
		"category":      {Type: "string", Enum: []string{"top", "bottom", "shoes", "outerwear", "accessory", "dress", "sweater"}},
		"brand":         {Type: "string"},
		"color":         {Type: "string"},
		"material":      {Type: "string"},
		"fit":           {Type: "string"},
		"silhouette":    {Type: "string"},
		"sleeve_length": {Type: "string"},
		"layer_level":   {Type: "integer"},
		"warmth_factor": {Type: "number"},
		"styles":        {Type: "array", Items: &genai.Schema{Type: "string"}},
		"occasions":     {Type: "array", Items: &genai.Schema{Type: "string"}},
		"seasons":       {Type: "array", Items: &genai.Schema{Type: "string"}},
		"quality":       {Type: "number"},
		"pairability":   {Type: "number"},
		"is_clothing":   {Type: "boolean"},
	},
	Required: []string{"name", "clothing_type", "category", "color", "is_clothing"},
}

// AnalyzeClothing uploads a garment photo and asks the model for structured
// attributes. Returns is_clothing=false inside the analysis when the photo
// holds no recognizable garment, that is not an error.
func (GoogleVisionAnalyzer) AnalyzeClothing(filePath string, modelName LLMModelName) (*ClothingAnalysis, *LLMResponse, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating genai client: %v", err)
	}

	fileName := filepath.Base(filePath)
	sanitizedFileName := dashAlphaRule.ReplaceAllString(strings.ReplaceAll(fileName, ".", "-"), "")
	genFile, err := tryUploadGoogleStorage(ctx, client, filePath, &sanitizedFileName)
	if err != nil {
		fmt.Println("Error uploading file:", filePath, err)
		return nil, nil, fmt.Errorf("error uploading file to google storage %s: %v", filePath, err)
	}

	parts := []*genai.Part{
		{
			FileData: &genai.FileData{
				FileURI:  genFile.URI,
				MIMEType: genFile.MIMEType,
			},
		},
		{
			Text: `Analyze the single clothing item on the photo. Identify its type and sub type (e.g. "shirt"/"dress_shirt", "shoes"/"sneakers"), its coarse category, primary color, dominant material, fit, silhouette and sleeve length. Assign layer_level (0 base layer, 1 regular, 2 mid layer like a sweater, 3 outer layer like a coat) and warmth_factor between 0 and 1. Tag the styles (e.g. casual, formal, athletic, streetwear, classic, bohemian, minimalist), occasions (e.g. casual, business, business casual, formal, athletic, date, party, beach) and seasons (summer, winter, spring, fall) the item suits. Estimate quality and pairability between 0 and 1: quality reflects the apparent garment condition and make, pairability reflects how easily it combines with other items. If the photo holds no recognizable clothing item, set is_clothing to false and leave the other fields empty.`,
		},
	}

	result, err := client.Models.GenerateContent(ctx, modelName.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		CandidateCount:   1,
		MaxOutputTokens:  50000,
		Temperature:      floatPointer(0.2),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: `You are an expert fashion merchandiser cataloguing wardrobe items from photos. Be precise about materials and conservative with brand attribution: only name a brand when a logo or label is clearly visible, otherwise return an empty string. Return the response in JSON format with the specified fields.`},
			},
		},
		ResponseSchema: clothingAnalysisSchema,
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, nil, fmt.Errorf("%v", err)
	}

	var inputTokenCount int32
	var thoughtsTokenCount int32
	var outputTokenCount int32
	var totalTokenCount int32
	if result.UsageMetadata != nil {
		inputTokenCount = result.UsageMetadata.PromptTokenCount
		thoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		outputTokenCount = result.UsageMetadata.CandidatesTokenCount
		totalTokenCount = result.UsageMetadata.TotalTokenCount
		fmt.Println("Input token count:", inputTokenCount)
		fmt.Println("Output token count:", outputTokenCount)
	} else {
		fmt.Println("UsageMetadata is nil!")
	}

	llmResponseText, err := GetFirstCandidateTextWithThoughts(result)
	if err != nil {
		fmt.Println("Error getting first candidate text: ", err)
		if result.PromptFeedback != nil {
			fmt.Println(result.PromptFeedback.BlockReason)
			fmt.Println(result.PromptFeedback.BlockReasonMessage)
			return nil, nil, fmt.Errorf("content violation: %s", result.PromptFeedback.BlockReasonMessage)
		}
		return nil, nil, fmt.Errorf("error getting first candidate text: %v", err)
	}

	response := &LLMResponse{
		Response:           llmResponseText.Text,
		Thoughts:           llmResponseText.Thoughts,
		InputTokenCount:    inputTokenCount,
		ThoughtsTokenCount: thoughtsTokenCount,
		OutputTokenCount:   outputTokenCount,
		TotalTokenCount:    totalTokenCount,
	}

	var analysis ClothingAnalysis
	if err := json.Unmarshal([]byte(CleanAIResponseText(llmResponseText.Text)), &analysis); err != nil {
		return nil, response, fmt.Errorf("error parsing clothing analysis JSON: %v", err)
	}
	return &analysis, response, nil
}

// CleanAIResponseText strips markdown code fences the model sometimes wraps
// around JSON output.
func CleanAIResponseText(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
