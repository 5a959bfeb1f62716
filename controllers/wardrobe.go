package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"stylrapi/models"
	"stylrapi/services"
	"stylrapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// free accounts get a hard cap on total wardrobe size
const freeWardrobeItemLimit = 20

type WardrobeItemResponse struct {
	ID               uint                `json:"id"`
	Name             string              `json:"name"`
	Description      *string             `json:"description"`
	ClothingType     string              `json:"clothing_type"`
	SubType          string              `json:"sub_type"`
	Category         string              `json:"category"`
	Brand            string              `json:"brand"`
	Color            string              `json:"color"`
	StyleTags        []string            `json:"style"`
	OccasionTags     []string            `json:"occasion"`
	SeasonTags       []string            `json:"season"`
	QualityScore     float64             `json:"quality_score"`
	PairabilityScore float64             `json:"pairability_score"`
	WearCount        int                 `json:"wear_count"`
	Metadata         models.ItemMetadata `json:"metadata"`
	ProcessingStatus string              `json:"processing_status"`
	ProcessError     *string             `json:"process_error_message"`
	Uri              *string             `json:"uri,omitempty"`
	CreatedAt        string              `json:"created_at"`
	UpdatedAt        string              `json:"updated_at"`
}

type WardrobeItemCreatedResponse struct {
	Item          WardrobeItemResponse `json:"item"`
	FileUploadUrl string               `json:"file_upload_url"`
}

type WardrobeListResponse struct {
	Tops        []WardrobeItemResponse `json:"tops"`
	Bottoms     []WardrobeItemResponse `json:"bottoms"`
	Shoes       []WardrobeItemResponse `json:"shoes"`
	Outerwear   []WardrobeItemResponse `json:"outerwear"`
	Dresses     []WardrobeItemResponse `json:"dresses"`
	Accessories []WardrobeItemResponse `json:"accessories"`
	Other       []WardrobeItemResponse `json:"other"`
}

type WardrobeController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateItem)
	g.GET("/list", controller.ListItems)
	g.GET("/:itemId", controller.GetItem)
	g.PATCH("/:itemId", controller.UpdateItem)
	g.DELETE("/:itemId", controller.DeleteItem)
	g.POST("/:itemId/reanalyze", controller.ReanalyzeItem)
	g.POST("/:itemId/wear", controller.WearItem)
	g.POST("/:itemId/favorite", controller.FavoriteItem)
}

func itemResponse(item models.ClothingItem, uri *string) WardrobeItemResponse {
	return WardrobeItemResponse{
		ID:               item.ID,
		Name:             item.Name,
		Description:      item.Description,
		ClothingType:     item.ClothingType,
		SubType:          item.SubType,
		Category:         item.Category,
		Brand:            item.Brand,
		Color:            item.Color,
		StyleTags:        item.StyleTags,
		OccasionTags:     item.OccasionTags,
		SeasonTags:       item.SeasonTags,
		QualityScore:     item.QualityScore,
		PairabilityScore: item.PairabilityScore,
		WearCount:        item.WearCount,
		Metadata:         item.Metadata,
		ProcessingStatus: item.ProcessingStatus,
		ProcessError:     item.ProcessErrorMessage,
		Uri:              uri,
		CreatedAt:        item.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:        item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func enqueueItemAnalysis(c echo.Context, db *gorm.DB, item *models.ClothingItem) error {
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return fmt.Errorf("asynq client is not available")
	}
	item.ProcessingStatus = "pending"
	if err := db.Save(item).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}
	task, err := tasks.NewAnalyzeItemTask(item.ID)
	if err != nil {
		sentry.CaptureException(err)
		return err
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("analyze"))
	if err != nil {
		sentry.CaptureException(err)
		return err
	}
	fmt.Println("[Queue] Analyze item task submitted, Item ID: ", item.ID, " Task ID: ", info.ID)
	return nil
}

func (controller *WardrobeController) CreateItem(c echo.Context) error {
	var req models.CreateWardrobeItemIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	if req.FileName == nil || *req.FileName == "" {
		sentry.CaptureException(fmt.Errorf("Image was not provided when creating wardrobe item %s, user %v", req.Name, user.ID))
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, it seems image was not provided, please try again"})
	}
	if user.Subscription == nil || *user.Subscription == string(models.Free) {
		var totalItemCount int64
		if err := db.Model(&models.ClothingItem{}).Where("owner_id = ? and status = ?", user.ID, "active").Count(&totalItemCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get wardrobe data"})
		}
		fmt.Printf("[User %v] Free plan, item count: %v", user.ID, totalItemCount)
		if totalItemCount >= freeWardrobeItemLimit {
			return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("You have reached the free limit of %v wardrobe items, please subscribe", freeWardrobeItemLimit)})
		}
	}

	if user.EnforcedDailyItemLimit != nil {
		var dailyItemCount int64
		today := time.Now().UTC().Format("2006-01-02")
		if err := db.Model(&models.ClothingItem{}).Where("owner_id = ? AND DATE(created_at) = ?", user.ID, today).Count(&dailyItemCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get wardrobe data"})
		}
		fmt.Printf("[User %v] Enforced daily limit, item count: %v", user.ID, dailyItemCount)
		if dailyItemCount >= int64(*user.EnforcedDailyItemLimit) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("You have reached the limit of %v daily uploads. Please wait for the next day.", *user.EnforcedDailyItemLimit)})
		}
	}
	item := models.ClothingItem{
		Name:         req.Name,
		Description:  req.Description,
		ClothingType: req.ClothingType,
		OwnerID:      user.ID,
		Status:       "active",
	}
	var bucketName = services.GetEnv("R2_BUCKET_NAME", "stylr-wardrobe")
	safeFileName := fmt.Sprintf("items/%v/%s", user.ID, *req.FileName)

	uploadUrl, presignErr := controller.AWSService.PresignLink(context.Background(), bucketName, safeFileName)
	item.ImageURL = &safeFileName
	if presignErr != nil {
		log.Printf("Unable to presign upload for %s!, %s", item.Name, presignErr)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "Error while creating wardrobe item with attachment",
		})
	}
	if err := db.Create(&item).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}
	if req.Analyze != nil && *req.Analyze {
		if err := enqueueItemAnalysis(c, db, &item); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process item, please try again"})
		}
	}

	response := WardrobeItemCreatedResponse{
		Item:          itemResponse(item, nil),
		FileUploadUrl: uploadUrl,
	}

	return c.JSON(http.StatusCreated, response)
}

// populatePresignedItemImages enriches raw items with presigned photo URLs
// concurrently, with a direct R2 failsafe for when the cache layer fails.
func (controller *WardrobeController) populatePresignedItemImages(ctx context.Context, items []models.ClothingItem) []WardrobeItemResponse {
	if len(items) == 0 {
		return []WardrobeItemResponse{}
	}

	var wg sync.WaitGroup
	processedResponses := make([]WardrobeItemResponse, len(items))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "stylr-wardrobe")

	for i, wardrobeItem := range items {
		wg.Add(1)
		go func(index int, item models.ClothingItem) {
			defer wg.Done()

			var imageUrl string
			if item.ImageURL != nil && *item.ImageURL != "" {
				objectKey := *item.ImageURL

				var url string
				var err error
				if controller.URLCache != nil {
					url, err = controller.URLCache.GetReadURL(ctx, objectKey)
				} else {
					url, err = controller.AWSService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
				}

				if err == nil {
					imageUrl = url
				} else {
					log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)

					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetTag("failure_type", "cache_system")
						scope.SetExtra("objectKey", objectKey)
						sentry.CaptureException(err)
					})

					fallbackUrl, fallbackErr := controller.AWSService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
					if fallbackErr != nil {
						log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, fallbackErr)
						sentry.CaptureException(fallbackErr)
						// imageUrl stays empty, the request itself still succeeds
					} else {
						imageUrl = fallbackUrl
					}
				}
			}
			processedResponses[index] = itemResponse(item, &imageUrl)
		}(i, wardrobeItem)
	}

	wg.Wait()
	return processedResponses
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var items []models.ClothingItem
	if err := db.Where("owner_id = ? AND status = ?", user.ID, "active").Order("created_at desc").Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe"})
	}
	processedResponses := controller.populatePresignedItemImages(c.Request().Context(), items)

	response := WardrobeListResponse{
		Tops:        []WardrobeItemResponse{},
		Bottoms:     []WardrobeItemResponse{},
		Shoes:       []WardrobeItemResponse{},
		Outerwear:   []WardrobeItemResponse{},
		Dresses:     []WardrobeItemResponse{},
		Accessories: []WardrobeItemResponse{},
		Other:       []WardrobeItemResponse{},
	}

	for _, resp := range processedResponses {
		switch resp.Category {
		case "top":
			response.Tops = append(response.Tops, resp)
		case "bottom":
			response.Bottoms = append(response.Bottoms, resp)
		case "shoes":
			response.Shoes = append(response.Shoes, resp)
		case "outerwear":
			response.Outerwear = append(response.Outerwear, resp)
		case "dress":
			response.Dresses = append(response.Dresses, resp)
		case "accessory":
			response.Accessories = append(response.Accessories, resp)
		default:
			response.Other = append(response.Other, resp)
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (controller *WardrobeController) loadOwnedItem(c echo.Context) (*models.ClothingItem, *gorm.DB, error) {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return nil, nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db := c.Get("__db").(*gorm.DB)

	var itemId uint
	if err := echo.PathParamsBinder(c).Uint("itemId", &itemId).BindError(); err != nil {
		return nil, nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid item id"})
	}

	var item models.ClothingItem
	result := db.Where("id = ? and owner_id = ? and status = ?", itemId, user.ID, "active").First(&item)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil, c.JSON(http.StatusNotFound, map[string]string{"error": "Item not found"})
	}
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return nil, nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch item"})
	}
	return &item, db, nil
}

func (controller *WardrobeController) GetItem(c echo.Context) error {
	item, _, err := controller.loadOwnedItem(c)
	if item == nil {
		return err
	}

	var uri *string
	if item.ImageURL != nil && *item.ImageURL != "" {
		bucketName := services.GetEnv("R2_BUCKET_NAME", "stylr-wardrobe")
		url, presignErr := controller.AWSService.GetPresignedR2FileReadURL(c.Request().Context(), bucketName, *item.ImageURL)
		if presignErr != nil {
			sentry.CaptureException(presignErr)
		} else {
			uri = &url
		}
	}
	return c.JSON(http.StatusOK, itemResponse(*item, uri))
}

func (controller *WardrobeController) UpdateItem(c echo.Context) error {
	item, db, err := controller.loadOwnedItem(c)
	if item == nil {
		return err
	}

	var req models.UpdateWardrobeItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.ClothingType != nil {
		item.ClothingType = *req.ClothingType
	}
	if req.Color != nil {
		item.Color = *req.Color
	}
	if req.StyleTags != nil {
		item.StyleTags = pq.StringArray(req.StyleTags)
	}
	if req.OccasionTags != nil {
		item.OccasionTags = pq.StringArray(req.OccasionTags)
	}
	if req.SeasonTags != nil {
		item.SeasonTags = pq.StringArray(req.SeasonTags)
	}

	if err := db.Save(item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update item"})
	}
	return c.JSON(http.StatusOK, itemResponse(*item, nil))
}

func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	item, db, err := controller.loadOwnedItem(c)
	if item == nil {
		return err
	}

	item.Status = "removed"
	if err := db.Save(item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete item"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "deleted",
	})
}

func (controller *WardrobeController) WearItem(c echo.Context) error {
	item, db, err := controller.loadOwnedItem(c)
	if item == nil {
		return err
	}

	now := time.Now().UnixMilli()
	item.WearCount = item.WearCount + 1
	item.LastWorn = &now
	if err := db.Save(item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record wear"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"wear_count": item.WearCount,
		"last_worn":  item.LastWorn,
	})
}

func (controller *WardrobeController) FavoriteItem(c echo.Context) error {
	item, db, err := controller.loadOwnedItem(c)
	if item == nil {
		return err
	}

	if item.FavoriteScore > 0 {
		item.FavoriteScore = 0
	} else {
		item.FavoriteScore = 1
	}
	if err := db.Save(item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update favorite"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"is_favorite": item.FavoriteScore > 0,
	})
}

func (controller *WardrobeController) ReanalyzeItem(c echo.Context) error {
	item, db, err := controller.loadOwnedItem(c)
	if item == nil {
		return err
	}
	if item.ProcessingStatus == "pending" || item.ProcessingStatus == "analyzing" {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Item analysis is already in progress"})
	}

	item.ProcessRetryTimes = 0
	item.ProcessErrorMessage = nil
	if err := enqueueItemAnalysis(c, db, item); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process item, please try again"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":           "queued",
		"processing_status": item.ProcessingStatus,
	})
}
