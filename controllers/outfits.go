package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"stylrapi/generation"
	"stylrapi/models"
	"stylrapi/services"
	"stylrapi/telegram"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// free accounts get a daily generation allowance
const freeDailyGenerateLimit = 3

type OutfitResponse struct {
	ID                uint                   `json:"id"`
	Name              string                 `json:"name"`
	Occasion          string                 `json:"occasion"`
	Style             string                 `json:"style"`
	Mood              string                 `json:"mood"`
	GenerationMethod  string                 `json:"generation_method"`
	Confidence        float64                `json:"confidence"`
	Warnings          []string               `json:"warnings"`
	IsFavorite        bool                   `json:"is_favorite"`
	WearCount         int                    `json:"wear_count"`
	LastWorn          *int64                 `json:"last_worn"`
	UserFeedback      *string                `json:"user_feedback"`
	Items             []WardrobeItemResponse `json:"items"`
	ValidationDetails models.JSONMap         `json:"validation_details,omitempty"`
	HealingLog        models.JSONMap         `json:"healing_log,omitempty"`
	CreatedAt         string                 `json:"created_at"`
}

type OutfitsController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
	Ops         *telegram.OpsNotifier
	Pipeline    *generation.Pipeline
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("/generate", controller.GenerateOutfit)
	g.POST("/create", controller.CreateOutfit)
	g.GET("/list", controller.ListOutfits)
	g.GET("/suggestions", controller.SuggestItems)
	g.GET("/analytics", controller.DiversityAnalytics)
	g.GET("/:outfitId", controller.GetOutfit)
	g.PUT("/:outfitId", controller.UpdateOutfit)
	g.DELETE("/:outfitId", controller.DeleteOutfit)
	g.POST("/:outfitId/wear", controller.WearOutfit)
	g.POST("/:outfitId/favorite", controller.FavoriteOutfit)
	g.POST("/:outfitId/feedback", controller.OutfitFeedback)
}

func (controller *OutfitsController) outfitResponse(c echo.Context, outfit models.Outfit, includeAudit bool) OutfitResponse {
	items := make([]models.ClothingItem, 0, len(outfit.Items))
	for _, outfitItem := range outfit.Items {
		items = append(items, outfitItem.ClothingItem)
	}
	wardrobeController := WardrobeController{AWSService: controller.AWSService, URLCache: controller.URLCache}
	itemResponses := wardrobeController.populatePresignedItemImages(c.Request().Context(), items)

	response := OutfitResponse{
		ID:               outfit.ID,
		Name:             outfit.Name,
		Occasion:         outfit.Occasion,
		Style:            outfit.Style,
		Mood:             outfit.Mood,
		GenerationMethod: outfit.GenerationMethod,
		Confidence:       outfit.Confidence,
		Warnings:         outfit.Warnings,
		IsFavorite:       outfit.IsFavorite,
		WearCount:        outfit.WearCount,
		LastWorn:         outfit.LastWorn,
		UserFeedback:     outfit.UserFeedback,
		Items:            itemResponses,
		CreatedAt:        outfit.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if includeAudit {
		response.ValidationDetails = outfit.ValidationDetails
		response.HealingLog = outfit.HealingLog
	}
	return response
}

func wardrobeSnapshot(items []models.ClothingItem) models.JSONMap {
	ids := make([]interface{}, 0, len(items))
	categories := map[string]int{}
	for _, item := range items {
		ids = append(ids, item.ID)
		categories[item.Category] = categories[item.Category] + 1
	}
	categoriesOut := models.JSONMap{}
	for category, count := range categories {
		categoriesOut[category] = count
	}
	return models.JSONMap{
		"item_ids":   ids,
		"categories": categoriesOut,
	}
}

func (controller *OutfitsController) checkGenerateLimits(c echo.Context, db *gorm.DB, user models.UserAccount) error {
	today := time.Now().UTC().Format("2006-01-02")
	if user.Subscription == nil || *user.Subscription == string(models.Free) {
		var dailyCount int64
		if err := db.Model(&models.Outfit{}).Where("user_account_id = ? AND DATE(created_at) = ?", user.ID, today).Count(&dailyCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get outfit data"})
		}
		fmt.Printf("[User %v] Free plan, daily outfit count: %v", user.ID, dailyCount)
		if dailyCount >= freeDailyGenerateLimit {
			return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("You have reached the free limit of %v daily outfits, please subscribe", freeDailyGenerateLimit)})
		}
	}
	if user.EnforcedDailyGenerateLimit != nil {
		var dailyCount int64
		if err := db.Model(&models.Outfit{}).Where("user_account_id = ? AND DATE(created_at) = ?", user.ID, today).Count(&dailyCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get outfit data"})
		}
		fmt.Printf("[User %v] Enforced daily limit, outfit count: %v", user.ID, dailyCount)
		if dailyCount >= int64(*user.EnforcedDailyGenerateLimit) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("You have reached the limit of %v daily generations. Please wait for the next day.", *user.EnforcedDailyGenerateLimit)})
		}
	}
	return nil
}

func (controller *OutfitsController) GenerateOutfit(c echo.Context) error {
	var req models.GenerateOutfitIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, models.Envelope{Success: false, Error: "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Database connection error"})
	}

	if resp := controller.checkGenerateLimits(c, db, user); resp != nil {
		return resp
	}

	genReq := generation.GenerateRequest{
		UserID:   user.ID,
		Occasion: req.Occasion,
		Style:    req.Style,
		Mood:     req.Mood,
		Weather: generation.Weather{
			TemperatureF:  generation.ParseTemperature(req.Weather.Temperature),
			Condition:     req.Weather.Condition,
			Humidity:      req.Weather.Humidity,
			WindSpeed:     req.Weather.WindSpeed,
			Precipitation: req.Weather.Precipitation,
		},
		BaseItemID: req.BaseItemID,
		Strict:     c.QueryParam("strict") == "true",
	}

	result, err := controller.Pipeline.Generate(c.Request().Context(), genReq, user.StyleProfile)
	if err != nil {
		var validationErr *generation.ValidationError
		if errors.As(err, &validationErr) {
			return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: validationErr.Error()})
		}
		var genErr *generation.OutfitGenerationError
		if errors.As(err, &genErr) {
			if genErr.Reason == "healing ladder exhausted" {
				controller.Ops.AlertGenerationExhausted(user.ID, req.Occasion, genErr.Errors)
			}
			return c.JSON(http.StatusUnprocessableEntity, models.Envelope{
				Success: false,
				Error:   genErr.Reason,
				Data: echo.Map{
					"errors":      genErr.Errors,
					"healing_log": genErr.HealingLog,
				},
			})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Sorry, outfit generation failed, please try again"})
	}

	outfit := models.Outfit{
		UserAccountID:     user.ID,
		Name:              fmt.Sprintf("%s look", req.Occasion),
		Occasion:          req.Occasion,
		Style:             req.Style,
		Mood:              req.Mood,
		GenerationMethod:  result.Method,
		GenerationTrace:   result.Trace,
		ValidationDetails: result.ValidationDetails,
		WardrobeSnapshot:  wardrobeSnapshot(result.Items),
		HealingLog:        result.HealingLog,
		Warnings:          pq.StringArray(result.Warnings),
		Confidence:        result.Confidence,
	}
	for i, item := range result.Items {
		outfit.Items = append(outfit.Items, models.OutfitItem{
			ClothingItemID: item.ID,
			Position:       i,
		})
	}
	if err := db.Omit("Items.ClothingItem").Create(&outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to save generated outfit"})
	}
	db.Preload("Items.ClothingItem").First(&outfit, outfit.ID)
	fmt.Printf("[User %v] Generated outfit %v via %s, confidence %.2f\n", user.ID, outfit.ID, result.Method, result.Confidence)

	return c.JSON(http.StatusCreated, models.Envelope{
		Success: true,
		Data:    controller.outfitResponse(c, outfit, true),
	})
}

func (controller *OutfitsController) CreateOutfit(c echo.Context) error {
	var req models.CreateOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: err.Error()})
	}

	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var items []models.ClothingItem
	if err := db.Where("id in ? and owner_id = ? and status = ?", req.ItemIDs, user.ID, "active").Find(&items).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to fetch wardrobe items"})
	}
	if len(items) != len(req.ItemIDs) {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: "Some items were not found in your wardrobe"})
	}

	// manual outfits still go through the validation battery so the user
	// sees composition warnings, but nothing is removed or healed
	genCtx := generation.BuildContext(user.ID, req.Occasion, req.Style, req.Mood,
		generation.Weather{TemperatureF: generation.DefaultTemperatureF}, user.StyleProfile, nil, nil, nil)
	validation := generation.Validate(items, genCtx, items)

	warnings := validation.Warnings
	for _, issue := range validation.Errors {
		warnings = append(warnings, issue.Message)
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s look", req.Occasion)
	}
	outfit := models.Outfit{
		UserAccountID:     user.ID,
		Name:              name,
		Occasion:          req.Occasion,
		Style:             req.Style,
		Mood:              req.Mood,
		GenerationMethod:  generation.MethodManual,
		ValidationDetails: validation.Details(),
		WardrobeSnapshot:  wardrobeSnapshot(items),
		Warnings:          pq.StringArray(warnings),
		Confidence:        0.9,
	}
	for i, itemID := range req.ItemIDs {
		outfit.Items = append(outfit.Items, models.OutfitItem{
			ClothingItemID: itemID,
			Position:       i,
		})
	}
	if err := db.Create(&outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to save outfit"})
	}
	db.Preload("Items.ClothingItem").First(&outfit, outfit.ID)

	return c.JSON(http.StatusCreated, models.Envelope{
		Success: true,
		Data:    controller.outfitResponse(c, outfit, true),
	})
}

func (controller *OutfitsController) ListOutfits(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var outfits []models.Outfit
	tx := db.Preload("Items.ClothingItem").Where("user_account_id = ?", user.ID).Order("created_at desc")
	if c.QueryParam("favorites") == "true" {
		tx = tx.Where("is_favorite = ?", true)
	}
	if err := tx.Limit(100).Find(&outfits).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to fetch outfits"})
	}

	responses := make([]OutfitResponse, 0, len(outfits))
	for _, outfit := range outfits {
		responses = append(responses, controller.outfitResponse(c, outfit, false))
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    responses,
	})
}

func (controller *OutfitsController) loadOwnedOutfit(c echo.Context) (*models.Outfit, *gorm.DB, error) {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var outfitId uint
	if err := echo.PathParamsBinder(c).Uint("outfitId", &outfitId).BindError(); err != nil {
		return nil, nil, c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: "Invalid outfit id"})
	}

	var outfit models.Outfit
	result := db.Preload("Items.ClothingItem").Where("id = ? and user_account_id = ?", outfitId, user.ID).First(&outfit)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil, c.JSON(http.StatusNotFound, models.Envelope{Success: false, Error: "Outfit not found"})
	}
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return nil, nil, c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to fetch outfit"})
	}
	return &outfit, db, nil
}

func (controller *OutfitsController) GetOutfit(c echo.Context) error {
	outfit, _, err := controller.loadOwnedOutfit(c)
	if outfit == nil {
		return err
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    controller.outfitResponse(c, *outfit, true),
	})
}

func (controller *OutfitsController) UpdateOutfit(c echo.Context) error {
	outfit, db, err := controller.loadOwnedOutfit(c)
	if outfit == nil {
		return err
	}

	var req models.UpdateOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: err.Error()})
	}

	if req.Name != nil {
		outfit.Name = *req.Name
	}
	if req.Occasion != nil {
		outfit.Occasion = *req.Occasion
	}
	if req.Style != nil {
		outfit.Style = *req.Style
	}
	if req.Mood != nil {
		outfit.Mood = *req.Mood
	}
	if err := db.Save(outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to update outfit"})
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    controller.outfitResponse(c, *outfit, false),
	})
}

func (controller *OutfitsController) DeleteOutfit(c echo.Context) error {
	outfit, db, err := controller.loadOwnedOutfit(c)
	if outfit == nil {
		return err
	}
	if err := db.Where("outfit_id = ?", outfit.ID).Delete(&models.OutfitItem{}).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to delete outfit"})
	}
	if err := db.Delete(outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to delete outfit"})
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "deleted"})
}

func (controller *OutfitsController) WearOutfit(c echo.Context) error {
	outfit, db, err := controller.loadOwnedOutfit(c)
	if outfit == nil {
		return err
	}

	now := time.Now().UnixMilli()
	outfit.WearCount = outfit.WearCount + 1
	outfit.LastWorn = &now
	if err := db.Save(outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to record wear"})
	}
	// wear counts feed the diversity boosts on the next generation
	for _, outfitItem := range outfit.Items {
		item := outfitItem.ClothingItem
		item.WearCount = item.WearCount + 1
		item.LastWorn = &now
		if err := db.Save(&item).Error; err != nil {
			sentry.CaptureException(err)
		}
	}

	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data: echo.Map{
			"wear_count": outfit.WearCount,
			"last_worn":  outfit.LastWorn,
		},
	})
}

func (controller *OutfitsController) FavoriteOutfit(c echo.Context) error {
	outfit, db, err := controller.loadOwnedOutfit(c)
	if outfit == nil {
		return err
	}

	outfit.IsFavorite = !outfit.IsFavorite
	if err := db.Save(outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to update favorite"})
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data: echo.Map{
			"is_favorite": outfit.IsFavorite,
		},
	})
}

func (controller *OutfitsController) OutfitFeedback(c echo.Context) error {
	outfit, db, err := controller.loadOwnedOutfit(c)
	if outfit == nil {
		return err
	}

	var req models.OutfitFeedbackIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Envelope{Success: false, Error: err.Error()})
	}

	outfit.UserFeedback = &req.Feedback
	if err := db.Save(outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to save feedback"})
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "Feedback saved"})
}

func outfitItems(outfit *models.Outfit) []models.ClothingItem {
	items := make([]models.ClothingItem, 0, len(outfit.Items))
	for _, outfitItem := range outfit.Items {
		items = append(items, outfitItem.ClothingItem)
	}
	return items
}

func (controller *OutfitsController) DiversityAnalytics(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	ctx := c.Request().Context()

	wardrobe, err := controller.Pipeline.Store.ItemsForUser(ctx, user.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to fetch wardrobe"})
	}
	history, err := controller.Pipeline.Diversity.LoadHistory(ctx, user.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to fetch outfit history"})
	}

	wornItems := 0
	var mostWorn *models.ClothingItem
	for i := range wardrobe {
		if wardrobe[i].WearCount > 0 {
			wornItems++
		}
		if mostWorn == nil || wardrobe[i].WearCount > mostWorn.WearCount {
			mostWorn = &wardrobe[i]
		}
	}
	utilization := 0.0
	if len(wardrobe) > 0 {
		utilization = float64(wornItems) / float64(len(wardrobe))
	}

	// mean similarity between consecutive outfits in the history window
	var similaritySum float64
	pairs := 0
	for i := 0; i+1 < len(history); i++ {
		similaritySum = similaritySum + generation.Similarity(outfitItems(&history[i]), outfitItems(&history[i+1]))
		pairs = pairs + 1
	}
	avgSimilarity := 0.0
	if pairs > 0 {
		avgSimilarity = similaritySum / float64(pairs)
	}

	var favoriteCount int64
	db.Model(&models.Outfit{}).Where("user_account_id = ? and is_favorite = ?", user.ID, true).Count(&favoriteCount)

	data := echo.Map{
		"wardrobe_items":       len(wardrobe),
		"worn_items":           wornItems,
		"utilization":          utilization,
		"outfits_in_window":    len(history),
		"favorite_outfits":     favoriteCount,
		"avg_similarity":       avgSimilarity,
		"similarity_threshold": generation.SimilarityThreshold,
	}
	if mostWorn != nil && mostWorn.WearCount > 0 {
		data["most_worn_item"] = echo.Map{
			"id":         mostWorn.ID,
			"name":       mostWorn.Name,
			"wear_count": mostWorn.WearCount,
		}
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    data,
	})
}

func (controller *OutfitsController) SuggestItems(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)

	limit := 5
	echo.QueryParamsBinder(c).Int("limit", &limit)
	if limit < 1 || limit > 20 {
		limit = 5
	}

	ctx := c.Request().Context()
	wardrobe, err := controller.Pipeline.Store.ItemsForUser(ctx, user.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to fetch wardrobe"})
	}
	history, err := controller.Pipeline.Diversity.LoadHistory(ctx, user.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Failed to fetch outfit history"})
	}

	suggested := controller.Pipeline.Diversity.SuggestDiverseItems(user.ID, wardrobe, history, limit)
	wardrobeController := WardrobeController{AWSService: controller.AWSService, URLCache: controller.URLCache}
	responses := wardrobeController.populatePresignedItemImages(ctx, suggested)

	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    responses,
		Message: "Items you have not worn in a while",
	})
}
