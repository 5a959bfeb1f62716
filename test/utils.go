package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"stylrapi/models"
	"stylrapi/services"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	log.Println(JsonString(param))
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestCustomAuth(method string, target string, authorizationString string, param interface{}) *http.Request {
	log.Println(JsonString(param))
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", authorizationString)
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func Int64Pointer(i int64) *int64 {
	return &i
}

func FakeUser(db *gorm.DB) *models.UserAccount {
	user := &models.UserAccount{
		Name:      "OurName",
		Email:     "email@example.com",
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		Status:    "FINISHED_AUTH",
		AvatarURL: "pictureurl",

		ReceiveNotifications: true,
	}
	db.Create(&user)

	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.First(&user, user.ID)

	return user
}

func FakeUserV2(db *gorm.DB, userName string, email string) *models.UserAccount {

	if email == "" {
		email = "email@example.com"
	}
	user := &models.UserAccount{
		Name:      userName,
		Email:     email,
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		Status:    "FINISHED_AUTH",
		AvatarURL: "pictureurl",
	}
	db.Create(&user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.First(&user, user.ID)
	return user
}

// FakeItem seeds a fully analyzed wardrobe item, ready for generation.
func FakeItem(db *gorm.DB, ownerID uint, name string, clothingType string, category string) *models.ClothingItem {
	item := &models.ClothingItem{
		OwnerID:          ownerID,
		Name:             name,
		ClothingType:     clothingType,
		Category:         category,
		Color:            "white",
		StyleTags:        []string{"casual"},
		OccasionTags:     []string{"casual"},
		SeasonTags:       []string{"spring", "summer", "fall", "winter"},
		QualityScore:     0.8,
		PairabilityScore: 0.8,
		ImageURL:         NewRefString(fmt.Sprintf("items/%d/%s.jpg", ownerID, strings.ReplaceAll(strings.ToLower(name), " ", "-"))),
		Status:           "active",
		ProcessingStatus: "completed",
	}
	db.Create(&item)
	return item
}

func NewJSONRootRequest(method string, target string, param interface{}, password string) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", password)
	return req
}

func Contains(items []string, lookFor string) bool {

	for i := 0; i < len(items); i++ {

		if items[i] == lookFor {
			return true
		}
	}
	return false
}

func NewRefString(data string) *string {
	return &data
}

func InternalRequestMessage(e *echo.Echo, method string, url string, param interface{}, password string) string {
	var req *http.Request
	if password != "" {

		req = NewJSONRootRequest(method, url, param, os.Getenv("ROOT_PASSWORD"))
	} else {
		req = NewJSONRequest(method, url, param)
	}
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)
	var r map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &r)
	if rec.Code > 300 {

		log.Printf("%s", rec.Body.String())
	}
	if val, ok := r["message"]; ok {
		return val.(string)
	}

	return "internal error"

}

func InternalRequestJSON(e *echo.Echo, method string, url string, param interface{}, password string) []byte {
	var req *http.Request
	if password != "" {

		req = NewJSONRootRequest(method, url, param, os.Getenv("ROOT_PASSWORD"))
	} else {
		req = NewJSONRequest(method, url, param)
	}
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)
	if rec.Code > 300 {

		log.Println(rec.Body.String())
		log.Printf("%s", rec.Body.String())
	}
	return rec.Body.Bytes()

}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {

	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil

}

func (gsm GoogleServiceMock) GetUserSubscriptionStatus(ctx context.Context, appUserId string) ([]byte, error) {
	data := `
	{
		"request_date": "2024-05-11T06:50:56Z",
		"request_date_ms": 1715410256322,
		"subscriber": {
		  "entitlements": {
			"Pro": {
			  "expires_date": "2024-05-11T06:51:15Z",
			  "grace_period_expires_date": null,
			  "product_identifier": "prostandard",
			  "product_plan_identifier": "monthly-autorenew",
			  "purchase_date": "2024-05-11T06:49:05Z"
			},
			"Pro Plus": {
			  "expires_date": "2029-05-12T22:28:12Z",
			  "grace_period_expires_date": null,
			  "product_identifier": "stylr_pro_plus",
			  "product_plan_identifier": "pro-plus-monthly",
			  "purchase_date": "2024-05-10T22:23:12Z"
			}
		  },
		  "first_seen": "2024-05-07T12:41:57Z",
		  "last_seen": "2024-05-10T20:43:21Z",
		  "management_url": "https://play.google.com/store/account/subscriptions",
		  "non_subscriptions": {},
		  "original_app_user_id": "$RCAnonymousID:60ad7a0c84694890b4b272b5654efa1f",
		  "original_application_version": null,
		  "original_purchase_date": null,
		  "other_purchases": {},
		  "subscriptions": {
			"prostandard": {
			  "auto_resume_date": null,
			  "billing_issues_detected_at": null,
			  "expires_date": "2024-05-11T06:51:15Z",
			  "grace_period_expires_date": null,
			  "is_sandbox": true,
			  "original_purchase_date": "2024-05-11T06:49:05Z",
			  "period_type": "normal",
			  "product_plan_identifier": "monthly-autorenew",
			  "purchase_date": "2024-05-11T06:49:05Z",
			  "refunded_at": null,
			  "store": "play_store",
			  "store_transaction_id": "GPA.3308-7668-0800-70257",
			  "unsubscribe_detected_at": null
			},
			"stylr_pro_plus": {
			  "auto_resume_date": null,
			  "billing_issues_detected_at": null,
			  "expires_date": "2024-05-12T22:28:12Z",
			  "grace_period_expires_date": null,
			  "is_sandbox": true,
			  "original_purchase_date": "2024-05-10T21:56:21Z",
			  "period_type": "normal",
			  "product_plan_identifier": "pro-plus-monthly",
			  "purchase_date": "2024-05-10T22:23:12Z",
			  "refunded_at": null,
			  "store": "play_store",
			  "store_transaction_id": "GPA.3311-8032-8178-10570..5",
			  "unsubscribe_detected_at": "2024-05-10T22:28:15Z"
			}
		  }
		}
	  }
	  `

	return []byte(data), nil
}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {

	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return awsService.MockUrl, nil
}

func (awsService AWSProviderMock) UploadToPresignedURL(ctx context.Context, bucketName, url string, fileContent []byte) (string, int, error) {
	return url, 204, nil
}

type MockVisionAnalyzer struct{}

func (m MockVisionAnalyzer) AnalyzeClothing(filePath string, modelName services.LLMModelName) (*services.ClothingAnalysis, *services.LLMResponse, error) {
	return &services.ClothingAnalysis{
			Name:         "white cotton t-shirt",
			ClothingType: "t-shirt",
			SubType:      "crew neck",
			Category:     "top",
			Brand:        "Uniqlo",
			Color:        "white",
			Material:     "cotton",
			Fit:          "regular",
			Silhouette:   "straight",
			SleeveLength: "short",
			LayerLevel:   1,
			WarmthFactor: 0.2,
			Styles:       []string{"Casual", "Minimal"},
			Occasions:    []string{"Everyday", "Casual"},
			Seasons:      []string{"Spring", "Summer"},
			Quality:      0.85,
			Pairability:  0.9,
			IsClothing:   true,
		}, &services.LLMResponse{
			InputTokenCount:    10,
			TotalTokenCount:    11,
			ThoughtsTokenCount: 12,
			OutputTokenCount:   13,
		}, nil
}

// MockVisionNotClothing reports the photo contains no garment.
type MockVisionNotClothing struct{}

func (m MockVisionNotClothing) AnalyzeClothing(filePath string, modelName services.LLMModelName) (*services.ClothingAnalysis, *services.LLMResponse, error) {
	return &services.ClothingAnalysis{
		Name:       "houseplant",
		IsClothing: false,
	}, &services.LLMResponse{TotalTokenCount: 5}, nil
}
