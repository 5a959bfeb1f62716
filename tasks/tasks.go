package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"stylrapi/models"
	"stylrapi/services"
	"stylrapi/telegram"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/lib/pq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const (
	TypeAnalyzeItem   = "wardrobe:analyze_item"
	TypeStyleReminder = "outfit:style_reminder"
)

type AnalyzeItemPayload struct {
	ItemID uint `json:"item_id"`
}

// Client initializes an asynq client for enqueuing tasks
func NewClient() (*asynq.Client, error) {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}), nil
}

func NewAnalyzeItemTask(itemID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(AnalyzeItemPayload{ItemID: itemID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAnalyzeItem, payload), nil
}

func NewStyleReminderTask() *asynq.Task {
	return asynq.NewTask(TypeStyleReminder, nil)
}

var titleCaser = cases.Title(language.English)
var lowerCaser = cases.Lower(language.English)

// tagSynonyms folds the vision model's free vocabulary onto the canonical
// labels the generation filters match against.
var tagSynonyms = map[string]string{
	"sporty":        "athletic",
	"sportswear":    "athletic",
	"gym":           "athletic",
	"autumn":        "fall",
	"smart casual":  "business casual",
	"office":        "business",
	"work":          "business",
	"evening":       "formal",
	"black tie":     "formal",
	"elegant":       "classy",
	"boho":          "bohemian",
	"street":        "streetwear",
	"minimal":       "minimalist",
	"every day":     "casual",
	"everyday":      "casual",
	"going out":     "party",
	"night out":     "party",
	"vacation":      "beach",
	"comfy":         "casual",
	"comfortable":   "casual",
	"athleisure":    "athletic",
	"professional":  "business",
	"semi formal":   "business casual",
	"semi-formal":   "business casual",
	"date night":    "date",
	"working out":   "workout",
	"all season":    "",
	"all-season":    "",
	"year round":    "",
}

// NormalizeTags lower-cases, trims and canonicalizes a tag list, dropping
// duplicates and empty results. Order of first appearance is preserved.
func NormalizeTags(tags []string) []string {
	seen := map[string]bool{}
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		key := strings.TrimSpace(lowerCaser.String(tag))
		if canonical, ok := tagSynonyms[key]; ok {
			key = canonical
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, key)
	}
	return normalized
}

// DisplayName title-cases an analysis name for the wardrobe list.
func DisplayName(name string) string {
	return titleCaser.String(strings.TrimSpace(name))
}

func saveItemProcessingFail(db *gorm.DB, item models.ClothingItem, msg string, shouldRetry bool, ops *telegram.OpsNotifier) error {
	item.ProcessRetryTimes = item.ProcessRetryTimes + 1
	item.ProcessErrorMessage = &msg
	if !shouldRetry || item.ProcessRetryTimes >= 3 {
		item.ProcessingStatus = "failed"
		ops.AlertAnalysisFailed(item.ID, msg)
	}
	tx := db.Save(&item)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Item %v] Error on saving item for failed status", item.ID))
		return tx.Error
	}
	return nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// HandleAnalyzeItemTask downloads the uploaded item photo, normalizes its
// background, runs vision analysis and writes the structured attributes back
// to the item. Fields the user filled by hand are never overwritten.
func HandleAnalyzeItemTask(
	ctx context.Context, t *asynq.Task, db *gorm.DB, vision services.VisionProvider,
	awsService services.AWSServiceProvider, fbApp *firebase.App, ops *telegram.OpsNotifier) error {
	google_key := os.Getenv("GOOGLE_API_KEY")
	if google_key == "" {
		sentry.CaptureException(fmt.Errorf("[QUEUE] %s Google API key is not set", string(t.Payload())))
		return fmt.Errorf("[QUEUE] %s Google API key is not set", string(t.Payload()))
	}
	var payload AnalyzeItemPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Item: %v] Start Processing\n", payload.ItemID)
	var item models.ClothingItem
	res := db.First(&item, payload.ItemID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving item for processing %v", payload.ItemID))
		return res.Error
	}
	if item.ImageURL == nil {
		saveItemProcessingFail(db, item, "Item has no photo to analyze, please re-upload", false, ops)
		sentry.CaptureException(fmt.Errorf("[Item: %v] No image url on item", payload.ItemID))
		return fmt.Errorf("[Item: %v] No image url on item", payload.ItemID)
	}

	item.ProcessingStatus = "analyzing"
	db.Save(&item)

	readURL, err := awsService.GetPresignedR2FileReadURL(ctx, services.GetEnv("R2_BUCKET_NAME", "stylr-wardrobe"), *item.ImageURL)
	if err != nil {
		saveItemProcessingFail(db, item, "Failed to read item photo, please re-upload", true, ops)
		sentry.CaptureException(fmt.Errorf("[Item: %v] Error presigning read url %s: %v", payload.ItemID, *item.ImageURL, err))
		return err
	}
	fileBytes, err := services.ReadFileFromUrl(readURL)
	if err != nil {
		saveItemProcessingFail(db, item, "Failed to download item photo, please re-upload", true, ops)
		sentry.CaptureException(fmt.Errorf("[Item: %v] Error downloading photo %s: %v", payload.ItemID, *item.ImageURL, err))
		return err
	}
	fmt.Printf("[Item: %v] Downloaded file size: %d bytes\n", payload.ItemID, len(fileBytes))

	// background normalization helps the model focus on the garment; on
	// failure the original photo goes through as-is
	processedBytes, err := services.WhitenBackgroundFeathered(fileBytes, 180, 235, 0.5)
	if err != nil {
		fmt.Printf("[Item: %v] Background whitening failed, using original photo: %v\n", payload.ItemID, err)
		processedBytes = fileBytes
	}

	filePath, err := services.CreateTempFile(processedBytes, *item.ImageURL)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Item: %v] Error on creating temp file %s: %v", payload.ItemID, *item.ImageURL, err))
		return err
	}
	defer os.Remove(filePath)

	fmt.Printf("[Item: %v] Analyzing..\n", payload.ItemID)
	analysis, llmResponse, err := vision.AnalyzeClothing(filePath, services.Flash25)
	if err != nil {
		if strings.Contains(err.Error(), "content violation") {
			saveItemProcessingFail(db, item, "Sorry, this photo contains content we cannot process.", false, ops)
			sentry.CaptureException(fmt.Errorf("[Item: %v] Content violation on analyzing photo %s: %v", payload.ItemID, *item.ImageURL, err))
			return nil
		}
		saveItemProcessingFail(db, item, "Sorry, we failed to analyze this photo, please try again or contact support", true, ops)
		sentry.CaptureException(fmt.Errorf("[Item: %v] Error on analyzing photo %s: %v", payload.ItemID, *item.ImageURL, err))
		return err
	}
	if analysis == nil {
		saveItemProcessingFail(db, item, "Sorry, we failed to analyze this photo, please try again or contact support", true, ops)
		sentry.CaptureException(fmt.Errorf("[Item: %v] Analysis is nil but no error provided %s", payload.ItemID, *item.ImageURL))
		return fmt.Errorf("[Item: %v] Analysis is nil but no error provided %s", payload.ItemID, *item.ImageURL)
	}
	if llmResponse != nil {
		fmt.Printf("[Item: %v] Tokens: in=%d out=%d total=%d\n", payload.ItemID, llmResponse.InputTokenCount, llmResponse.OutputTokenCount, llmResponse.TotalTokenCount)
	}
	if !analysis.IsClothing {
		saveItemProcessingFail(db, item, "We could not find a clothing item on this photo, please upload a clear photo of a single garment", false, ops)
		return nil
	}

	// user-entered fields win over the analysis
	if item.Name == "" {
		item.Name = DisplayName(analysis.Name)
	}
	if item.ClothingType == "" {
		item.ClothingType = analysis.ClothingType
	}
	if item.SubType == "" {
		item.SubType = analysis.SubType
	}
	if item.Category == "" {
		item.Category = analysis.Category
	}
	if item.Brand == "" {
		item.Brand = analysis.Brand
	}
	if item.Color == "" {
		item.Color = analysis.Color
	}
	if len(item.StyleTags) == 0 {
		item.StyleTags = pq.StringArray(analysis.Styles)
	}
	if len(item.OccasionTags) == 0 {
		item.OccasionTags = pq.StringArray(analysis.Occasions)
	}
	if len(item.SeasonTags) == 0 {
		item.SeasonTags = pq.StringArray(NormalizeTags(analysis.Seasons))
	}

	item.Metadata.Material = analysis.Material
	item.Metadata.Fit = analysis.Fit
	item.Metadata.Silhouette = analysis.Silhouette
	item.Metadata.SleeveLength = analysis.SleeveLength
	item.Metadata.LayerLevel = analysis.LayerLevel
	item.Metadata.WarmthFactor = analysis.WarmthFactor
	item.Metadata.CoreCategory = analysis.Category
	item.Metadata.Normalized = &models.NormalizedTags{
		Occasions: NormalizeTags(analysis.Occasions),
		Styles:    NormalizeTags(analysis.Styles),
	}
	item.QualityScore = clampScore(analysis.Quality)
	item.PairabilityScore = clampScore(analysis.Pairability)
	item.ProcessingStatus = "completed"
	item.ProcessErrorMessage = nil

	tx := db.Save(&item)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Item: %v] Error saving analyzed item: %v", payload.ItemID, tx.Error))
		return tx.Error
	}
	fmt.Printf("[Item: %v] Analysis complete: %s / %s\n", payload.ItemID, item.Category, item.Color)

	var user models.UserAccount
	if res := db.First(&user, item.OwnerID); res.Error == nil && user.ReceiveNotifications && fbApp != nil {
		services.SendNotification(fbApp, db, user.ID,
			"Item ready 👕",
			fmt.Sprintf("%s is analyzed and ready for outfits", item.Name),
			map[string]string{"item_id": fmt.Sprintf("%d", item.ID), "type": "item_analyzed"})
	}
	return nil
}

// ScheduledStyleReminderTask nudges users who built a wardrobe but have not
// generated an outfit recently. Registered on the worker scheduler.
func ScheduledStyleReminderTask(ctx context.Context, t *asynq.Task, db *gorm.DB, fbApp *firebase.App) error {

	fmt.Printf("[Style Reminder] Processing for all users\n")

	var users []models.UserAccount
	result := db.Where("banned = ? and receive_notifications = ?", false, true).Find(&users)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Style Reminder] Error fetching users: %v", result.Error))
		return result.Error
	}

	fmt.Printf("[Style Reminder] Found %d users to check\n", len(users))

	for _, user := range users {
		err := sendStyleReminderToUser(ctx, db, fbApp, user.ID)
		if err != nil {
			fmt.Printf("[Style Reminder] Failed to send to user %d: %v\n", user.ID, err)
			sentry.CaptureException(fmt.Errorf("[Style Reminder] Failed to send to user %d: %v", user.ID, err))
			continue
		}
		time.Sleep(1 * time.Second) // To avoid hitting rate limits
	}

	return nil
}

func sendStyleReminderToUser(ctx context.Context, db *gorm.DB, fbApp *firebase.App, userID uint) error {
	var itemCount int64
	if res := db.Model(&models.ClothingItem{}).Where(
		"owner_id = ? and status = ? and processing_status = ?", userID, "active", "completed",
	).Count(&itemCount); res.Error != nil {
		return fmt.Errorf("error counting items: %v", res.Error)
	}
	if itemCount < 3 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -3)
	var recentOutfits int64
	if res := db.Model(&models.Outfit{}).Where(
		"user_account_id = ? and created_at > ?", userID, cutoff,
	).Count(&recentOutfits); res.Error != nil {
		return fmt.Errorf("error counting outfits: %v", res.Error)
	}
	if recentOutfits > 0 {
		return nil
	}

	title := "✨ Fresh outfit time"
	message := fmt.Sprintf("Your closet has %d ready items. Generate a new look for today!", itemCount)

	fmt.Println("[Style Reminder] Sending notification to user", userID)
	services.SendNotification(fbApp, db, userID, title, message, map[string]string{"type": "style_reminder"})

	return nil
}
