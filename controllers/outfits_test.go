package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"stylrapi/dbhelper"
	"stylrapi/generation"
	"stylrapi/models"
	"stylrapi/test"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGenerateOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{MockUrl: "https://read.example.com/item.jpg"}, nil, nil, nil)
	user := test.FakeUser(db)

	test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	test.FakeItem(db, user.ID, "Blue Jeans", "jeans", "bottom")
	test.FakeItem(db, user.ID, "White Sneakers", "sneakers", "shoes")

	data := models.GenerateOutfitIn{
		Occasion: "casual",
		Weather: models.WeatherIn{
			Temperature: "70",
			Condition:   "clear",
		},
	}
	req := test.NewJSONAuthRequest("POST", "/app/outfits/generate", fmt.Sprint(user.ID), data)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool           `json:"success"`
		Data    OutfitResponse `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Equal(t, true, resp.Success, rec.Body.String())
	assert.Equal(t, generation.MethodPrimary, resp.Data.GenerationMethod, rec.Body.String())
	assert.Equal(t, 3, len(resp.Data.Items), rec.Body.String())
	assert.Greater(t, resp.Data.Confidence, 0.5)
	assert.Equal(t, "casual look", resp.Data.Name)

	var outfit models.Outfit
	db.Preload("Items").First(&outfit, resp.Data.ID)
	assert.Equal(t, user.ID, outfit.UserAccountID)
	assert.Equal(t, 3, len(outfit.Items))
	assert.NotEmpty(t, outfit.GenerationTrace)
	assert.NotEmpty(t, outfit.WardrobeSnapshot)
}

func TestGenerateOutfitEmptyWardrobe(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	data := models.GenerateOutfitIn{
		Occasion: "casual",
		Weather:  models.WeatherIn{Temperature: "70"},
	}
	req := test.NewJSONAuthRequest("POST", "/app/outfits/generate", fmt.Sprint(user.ID), data)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var resp models.Envelope
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Equal(t, false, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestGenerateOutfitFreeDailyLimit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	test.FakeItem(db, user.ID, "Blue Jeans", "jeans", "bottom")
	test.FakeItem(db, user.ID, "White Sneakers", "sneakers", "shoes")

	for i := 0; i < freeDailyGenerateLimit; i++ {
		outfit := models.Outfit{
			UserAccountID:    user.ID,
			Name:             fmt.Sprintf("Look %v", i),
			Occasion:         "casual",
			GenerationMethod: generation.MethodPrimary,
		}
		db.Create(&outfit)
	}

	data := models.GenerateOutfitIn{
		Occasion: "casual",
		Weather:  models.WeatherIn{Temperature: "70"},
	}
	req := test.NewJSONAuthRequest("POST", "/app/outfits/generate", fmt.Sprint(user.ID), data)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// subscribers keep generating
	proPlan := string(models.Pro)
	user.Subscription = &proPlan
	db.Save(&user)

	req_2 := test.NewJSONAuthRequest("POST", "/app/outfits/generate", fmt.Sprint(user.ID), data)
	rec_2 := httptest.NewRecorder()

	e.ServeHTTP(rec_2, req_2)

	assert.Equal(t, http.StatusCreated, rec_2.Code, rec_2.Body.String())
}

func TestCreateManualOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	top := test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	bottom := test.FakeItem(db, user.ID, "Blue Jeans", "jeans", "bottom")
	shoes := test.FakeItem(db, user.ID, "White Sneakers", "sneakers", "shoes")

	data := models.CreateOutfitIn{
		Name:     "Weekend fit",
		Occasion: "casual",
		ItemIDs:  []uint{top.ID, bottom.ID, shoes.ID},
	}
	req := test.NewJSONAuthRequest("POST", "/app/outfits/create", fmt.Sprint(user.ID), data)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool           `json:"success"`
		Data    OutfitResponse `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Equal(t, generation.MethodManual, resp.Data.GenerationMethod)
	assert.Equal(t, "Weekend fit", resp.Data.Name)
	assert.Equal(t, 0.9, resp.Data.Confidence)
	assert.Equal(t, 3, len(resp.Data.Items))
}

func TestCreateManualOutfitForeignItem(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)
	otherUser := test.FakeUserV2(db, "other", "other@example.com")

	top := test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	foreign := test.FakeItem(db, otherUser.ID, "Not Mine", "jeans", "bottom")

	data := models.CreateOutfitIn{
		Occasion: "casual",
		ItemIDs:  []uint{top.ID, foreign.ID},
	}
	req := test.NewJSONAuthRequest("POST", "/app/outfits/create", fmt.Sprint(user.ID), data)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestListOutfits(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	favorite := models.Outfit{UserAccountID: user.ID, Name: "Favorite look", Occasion: "casual", IsFavorite: true}
	db.Create(&favorite)
	plain := models.Outfit{UserAccountID: user.ID, Name: "Plain look", Occasion: "work"}
	db.Create(&plain)

	req := test.NewJSONAuthRequest("GET", "/app/outfits/list", fmt.Sprint(user.ID), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool             `json:"success"`
		Data    []OutfitResponse `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Equal(t, 2, len(resp.Data), rec.Body.String())

	req_2 := test.NewJSONAuthRequest("GET", "/app/outfits/list?favorites=true", fmt.Sprint(user.ID), nil)
	rec_2 := httptest.NewRecorder()

	e.ServeHTTP(rec_2, req_2)

	var resp2 struct {
		Success bool             `json:"success"`
		Data    []OutfitResponse `json:"data"`
	}
	json.Unmarshal(rec_2.Body.Bytes(), &resp2)
	assert.Equal(t, 1, len(resp2.Data), rec_2.Body.String())
	assert.Equal(t, "Favorite look", resp2.Data[0].Name)
}

func TestWearOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	top := test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	outfit := models.Outfit{UserAccountID: user.ID, Name: "Look", Occasion: "casual"}
	outfit.Items = append(outfit.Items, models.OutfitItem{ClothingItemID: top.ID, Position: 0})
	db.Create(&outfit)

	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/outfits/%v/wear", outfit.ID), fmt.Sprint(user.ID), echo.Map{})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updatedOutfit models.Outfit
	db.First(&updatedOutfit, outfit.ID)
	assert.Equal(t, 1, updatedOutfit.WearCount)
	assert.NotNil(t, updatedOutfit.LastWorn)

	var updatedItem models.ClothingItem
	db.First(&updatedItem, top.ID)
	assert.Equal(t, 1, updatedItem.WearCount)
	assert.NotNil(t, updatedItem.LastWorn)
}

func TestFavoriteOutfitToggle(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	outfit := models.Outfit{UserAccountID: user.ID, Name: "Look", Occasion: "casual"}
	db.Create(&outfit)

	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/outfits/%v/favorite", outfit.ID), fmt.Sprint(user.ID), echo.Map{})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Outfit
	db.First(&updated, outfit.ID)
	assert.Equal(t, true, updated.IsFavorite)

	req_2 := test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/outfits/%v/favorite", outfit.ID), fmt.Sprint(user.ID), echo.Map{})
	rec_2 := httptest.NewRecorder()

	e.ServeHTTP(rec_2, req_2)

	db.First(&updated, outfit.ID)
	assert.Equal(t, false, updated.IsFavorite)
}

func TestOutfitFeedback(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	outfit := models.Outfit{UserAccountID: user.ID, Name: "Look", Occasion: "casual"}
	db.Create(&outfit)

	data := models.OutfitFeedbackIn{Feedback: "Loved this one"}
	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/outfits/%v/feedback", outfit.ID), fmt.Sprint(user.ID), data)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Outfit
	db.First(&updated, outfit.ID)
	assert.Equal(t, "Loved this one", *updated.UserFeedback)
}

func TestDeleteOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	top := test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	outfit := models.Outfit{UserAccountID: user.ID, Name: "Look", Occasion: "casual"}
	outfit.Items = append(outfit.Items, models.OutfitItem{ClothingItemID: top.ID, Position: 0})
	db.Create(&outfit)

	req := test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/app/outfits/%v", outfit.ID), fmt.Sprint(user.ID), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outfitCount int64
	db.Model(&models.Outfit{}).Where("id = ?", outfit.ID).Count(&outfitCount)
	assert.Equal(t, int64(0), outfitCount)

	var itemCount int64
	db.Model(&models.OutfitItem{}).Where("outfit_id = ?", outfit.ID).Count(&itemCount)
	assert.Equal(t, int64(0), itemCount)

	// the wardrobe item itself survives
	var item models.ClothingItem
	db.First(&item, top.ID)
	assert.Equal(t, "active", item.Status)
}

func TestUpdateOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	outfit := models.Outfit{UserAccountID: user.ID, Name: "Look", Occasion: "casual", Style: "classic"}
	db.Create(&outfit)

	data := echo.Map{
		"name": "Renamed look",
		"mood": "relaxed",
	}
	req := test.NewJSONAuthRequest("PUT", fmt.Sprintf("/app/outfits/%v", outfit.ID), fmt.Sprint(user.ID), data)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Outfit
	db.First(&updated, outfit.ID)
	assert.Equal(t, "Renamed look", updated.Name)
	assert.Equal(t, "relaxed", updated.Mood)
	// untouched fields survive the patch
	assert.Equal(t, "casual", updated.Occasion)
	assert.Equal(t, "classic", updated.Style)
}

func TestDiversityAnalytics(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, nil)
	user := test.FakeUser(db)

	worn := test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	worn.WearCount = 4
	db.Save(&worn)
	test.FakeItem(db, user.ID, "Blue Jeans", "jeans", "bottom")

	favorite := models.Outfit{UserAccountID: user.ID, Name: "Favorite look", Occasion: "casual", IsFavorite: true}
	db.Create(&favorite)

	req := test.NewJSONAuthRequest("GET", "/app/outfits/analytics", fmt.Sprint(user.ID), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Equal(t, true, resp.Success)
	assert.Equal(t, float64(2), resp.Data["wardrobe_items"], rec.Body.String())
	assert.Equal(t, float64(1), resp.Data["worn_items"])
	assert.Equal(t, 0.5, resp.Data["utilization"])
	assert.Equal(t, float64(1), resp.Data["favorite_outfits"])

	mostWorn := resp.Data["most_worn_item"].(map[string]interface{})
	assert.Equal(t, "White Tee", mostWorn["name"])
}

func TestSuggestItems(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{MockUrl: "https://read.example.com/item.jpg"}, nil, nil, nil)
	user := test.FakeUser(db)

	test.FakeItem(db, user.ID, "White Tee", "t-shirt", "top")
	test.FakeItem(db, user.ID, "Blue Jeans", "jeans", "bottom")
	test.FakeItem(db, user.ID, "White Sneakers", "sneakers", "shoes")

	req := test.NewJSONAuthRequest("GET", "/app/outfits/suggestions?limit=2", fmt.Sprint(user.ID), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool                   `json:"success"`
		Data    []WardrobeItemResponse `json:"data"`
		Message string                 `json:"message"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Equal(t, true, resp.Success)
	assert.Equal(t, 2, len(resp.Data), rec.Body.String())
	assert.NotEmpty(t, resp.Message)
}
