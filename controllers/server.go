package controllers

import (
	"context"
	"log"
	"net/http"
	"os"

	"stylrapi/generation"
	"stylrapi/models"
	"stylrapi/services"
	"stylrapi/telegram"

	firebase "firebase.google.com/go/v4"
	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	googleService services.GoogleServiceProvider,
	awsService services.AWSServiceProvider,
	firebaseApp *firebase.App,
	asynqClient *asynq.Client,
	asynqInspector *asynq.Inspector,
) *echo.Echo {

	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3")
	}

	e := echo.New()
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	v.RegisterValidation("subscription", models.ValidateSubscription)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			c.Set("__asynqinspector", asynqInspector)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// presigned URL cache only runs against the real R2 client, mocks presign
	// per call
	var urlCache services.URLCacheServiceProvider
	if realAWS, ok := awsService.(*services.AWSService); ok {
		cacheService, cacheErr := services.NewURLCacheService(realAWS, services.GetEnv("R2_BUCKET_NAME", "stylr-wardrobe"))
		if cacheErr != nil {
			log.Println("Failed to initialize URL cache, falling back to direct presigning:", cacheErr)
		} else {
			urlCache = cacheService
		}
	}

	opsNotifier := telegram.NewOpsNotifier()
	pipeline := generation.NewPipeline(services.NewGormWardrobeStore(db))

	authGroup := e.Group("auth")
	authController := AuthController{Google: googleService, FirebaseApp: firebaseApp, AWSService: awsService}
	authController.AuthRoutes(authGroup)

	appGroup := e.Group("app", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))))
	appGroup.Use(UserMiddleware)

	profileController := ProfileController{}
	profileGroup := appGroup.Group("/profile")
	profileController.ProfileRoutes(profileGroup)

	wardrobeController := WardrobeController{AWSService: awsService, FirebaseApp: firebaseApp, URLCache: urlCache}
	wardrobeGroup := appGroup.Group("/wardrobe")
	wardrobeController.WardrobeRoutes(wardrobeGroup)

	outfitsController := OutfitsController{
		AWSService:  awsService,
		FirebaseApp: firebaseApp,
		URLCache:    urlCache,
		Ops:         opsNotifier,
		Pipeline:    pipeline,
	}
	outfitsGroup := appGroup.Group("/outfits")
	outfitsController.OutfitRoutes(outfitsGroup)

	webhooksController := WebhooksController{Google: googleService, FirebaseApp: firebaseApp}
	webhookGroup := e.Group("/webhooks")
	webhooksController.SetupRoutes(webhookGroup)

	return e
}
