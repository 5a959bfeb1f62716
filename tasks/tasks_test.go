package tasks

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"stylrapi/dbhelper"
	"stylrapi/models"
	"stylrapi/test"

	"github.com/stretchr/testify/assert"
)

func stringPtr(s string) *string {
	return &s
}

func fakeItemPhoto(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test photo: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzeItemTask(t *testing.T) {
	fmt.Println("Starting TestAnalyzeItemTask")
	os.Setenv("GOOGLE_API_KEY", "fake")
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	item := models.ClothingItem{
		OwnerID:          user.ID,
		ImageURL:         stringPtr("items/1/photo.png"),
		Status:           "active",
		ProcessingStatus: "pending",
	}
	db.Create(&item)

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(fakeItemPhoto(t))
	}))
	defer mockServer.Close()

	fakeTask, err := NewAnalyzeItemTask(item.ID)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	awsServiceMock := &test.AWSProviderMock{MockUrl: mockServer.URL}

	err = HandleAnalyzeItemTask(context.Background(), fakeTask, db, test.MockVisionAnalyzer{}, awsServiceMock, nil, nil)
	assert.NoError(t, err)

	var updated models.ClothingItem
	err = db.First(&updated, item.ID).Error
	assert.NoError(t, err)
	assert.Equal(t, "completed", updated.ProcessingStatus)
	assert.Equal(t, "White Cotton T-Shirt", updated.Name)
	assert.Equal(t, "t-shirt", updated.ClothingType)
	assert.Equal(t, "top", updated.Category)
	assert.Equal(t, "white", updated.Color)
	assert.Equal(t, "cotton", updated.Metadata.Material)
	assert.Equal(t, 0.85, updated.QualityScore)
	assert.Equal(t, 0.9, updated.PairabilityScore)
	assert.Equal(t, []string{"Casual", "Minimal"}, []string(updated.StyleTags))
	assert.Equal(t, []string{"spring", "summer"}, []string(updated.SeasonTags))
	if assert.NotNil(t, updated.Metadata.Normalized) {
		assert.Equal(t, []string{"casual"}, updated.Metadata.Normalized.Occasions)
		assert.Equal(t, []string{"casual", "minimalist"}, updated.Metadata.Normalized.Styles)
	}
	assert.Nil(t, updated.ProcessErrorMessage)
}

func TestAnalyzeItemTaskKeepsUserFields(t *testing.T) {
	os.Setenv("GOOGLE_API_KEY", "fake")
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	item := models.ClothingItem{
		OwnerID:          user.ID,
		Name:             "My Favorite Tee",
		Color:            "off-white",
		ImageURL:         stringPtr("items/1/photo.png"),
		Status:           "active",
		ProcessingStatus: "pending",
	}
	db.Create(&item)

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(fakeItemPhoto(t))
	}))
	defer mockServer.Close()

	fakeTask, _ := NewAnalyzeItemTask(item.ID)
	err := HandleAnalyzeItemTask(context.Background(), fakeTask, db, test.MockVisionAnalyzer{}, &test.AWSProviderMock{MockUrl: mockServer.URL}, nil, nil)
	assert.NoError(t, err)

	var updated models.ClothingItem
	db.First(&updated, item.ID)
	assert.Equal(t, "My Favorite Tee", updated.Name)
	assert.Equal(t, "off-white", updated.Color)
	assert.Equal(t, "top", updated.Category)
}

func TestAnalyzeItemTaskNotClothing(t *testing.T) {
	os.Setenv("GOOGLE_API_KEY", "fake")
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	item := models.ClothingItem{
		OwnerID:          user.ID,
		ImageURL:         stringPtr("items/1/photo.png"),
		Status:           "active",
		ProcessingStatus: "pending",
	}
	db.Create(&item)

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(fakeItemPhoto(t))
	}))
	defer mockServer.Close()

	fakeTask, _ := NewAnalyzeItemTask(item.ID)
	err := HandleAnalyzeItemTask(context.Background(), fakeTask, db, test.MockVisionNotClothing{}, &test.AWSProviderMock{MockUrl: mockServer.URL}, nil, nil)
	assert.NoError(t, err)

	var updated models.ClothingItem
	db.First(&updated, item.ID)
	assert.Equal(t, "failed", updated.ProcessingStatus)
	if assert.NotNil(t, updated.ProcessErrorMessage) {
		assert.Contains(t, *updated.ProcessErrorMessage, "could not find a clothing item")
	}
}

func TestAnalyzeItemTaskDownloadFailureRetries(t *testing.T) {
	os.Setenv("GOOGLE_API_KEY", "fake")
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	item := models.ClothingItem{
		OwnerID:          user.ID,
		ImageURL:         stringPtr("items/1/photo.png"),
		Status:           "active",
		ProcessingStatus: "pending",
	}
	db.Create(&item)

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mockServer.Close()

	fakeTask, _ := NewAnalyzeItemTask(item.ID)
	err := HandleAnalyzeItemTask(context.Background(), fakeTask, db, test.MockVisionAnalyzer{}, &test.AWSProviderMock{MockUrl: mockServer.URL}, nil, nil)
	assert.Error(t, err)

	var updated models.ClothingItem
	db.First(&updated, item.ID)
	assert.Equal(t, 1, updated.ProcessRetryTimes)
	assert.NotEqual(t, "failed", updated.ProcessingStatus)
}

func TestAnalyzeItemTaskFailsAfterRetriesExhausted(t *testing.T) {
	os.Setenv("GOOGLE_API_KEY", "fake")
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	item := models.ClothingItem{
		OwnerID:           user.ID,
		ImageURL:          stringPtr("items/1/photo.png"),
		Status:            "active",
		ProcessingStatus:  "pending",
		ProcessRetryTimes: 2,
	}
	db.Create(&item)

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mockServer.Close()

	fakeTask, _ := NewAnalyzeItemTask(item.ID)
	err := HandleAnalyzeItemTask(context.Background(), fakeTask, db, test.MockVisionAnalyzer{}, &test.AWSProviderMock{MockUrl: mockServer.URL}, nil, nil)
	assert.Error(t, err)

	var updated models.ClothingItem
	db.First(&updated, item.ID)
	assert.Equal(t, 3, updated.ProcessRetryTimes)
	assert.Equal(t, "failed", updated.ProcessingStatus)
}

func TestAnalyzeItemTaskNoImage(t *testing.T) {
	os.Setenv("GOOGLE_API_KEY", "fake")
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	item := models.ClothingItem{
		OwnerID:          user.ID,
		Status:           "active",
		ProcessingStatus: "pending",
	}
	db.Create(&item)

	fakeTask, _ := NewAnalyzeItemTask(item.ID)
	err := HandleAnalyzeItemTask(context.Background(), fakeTask, db, test.MockVisionAnalyzer{}, &test.AWSProviderMock{}, nil, nil)
	assert.Error(t, err)

	var updated models.ClothingItem
	db.First(&updated, item.ID)
	assert.Equal(t, "failed", updated.ProcessingStatus)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"athletic", "casual"}, NormalizeTags([]string{"Sporty", "gym", "Everyday"}))
	assert.Equal(t, []string{"business casual"}, NormalizeTags([]string{"Smart Casual", "semi-formal"}))
	assert.Equal(t, []string{"fall", "winter"}, NormalizeTags([]string{"Autumn", "winter", "  Fall "}))
	assert.Empty(t, NormalizeTags([]string{"all season", ""}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "White Cotton T-Shirt", DisplayName("  white cotton t-shirt "))
	assert.Equal(t, "Navy Blazer", DisplayName("navy blazer"))
}
