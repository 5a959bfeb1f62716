package controllers

import (
	"net/http"
	"strings"
	"time"

	"stylrapi/models"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ProfileController struct {
}

// splitQuizList parses a comma separated quiz answer into trimmed lower-case
// values.
func splitQuizList(answer string) []string {
	if answer == "" {
		return nil
	}
	parts := strings.Split(answer, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)

		return c.JSON(http.StatusOK, models.UserMeInfoOut{
			Id:                   UIntToStr(user.ID),
			Name:                 user.Name,
			Email:                user.Email,
			Status:               user.Status,
			AvatarURL:            user.AvatarURL,
			Subscription:         user.Subscription,
			ReceiveNotifications: user.ReceiveNotifications,
			StyleProfile:         user.StyleProfile,
		})
	})

	g.POST("/style-quiz", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var quiz models.StyleQuizIn
		if err := c.Bind(&quiz); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}
		if err := c.Validate(quiz); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		profile := user.StyleProfile
		if styles := splitQuizList(quiz.Answers["preferred_styles"]); styles != nil {
			profile.PreferredStyles = styles
		}
		if colors := splitQuizList(quiz.Answers["favorite_colors"]); colors != nil {
			profile.FavoriteColors = colors
		}
		if colors := splitQuizList(quiz.Answers["avoid_colors"]); colors != nil {
			profile.AvoidColors = colors
		}
		if materials := splitQuizList(quiz.Answers["avoid_materials"]); materials != nil {
			profile.AvoidMaterials = materials
		}
		if bodyType, ok := quiz.Answers["body_type"]; ok {
			profile.BodyType = strings.ToLower(strings.TrimSpace(bodyType))
		}
		if skinTone, ok := quiz.Answers["skin_tone"]; ok {
			profile.SkinTone = strings.ToLower(strings.TrimSpace(skinTone))
		}
		profile.QuizCompletedAt = Int64Pointer(time.Now().UnixMilli())

		user.StyleProfile = profile
		if err := db.Save(&user).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save your style profile"})
		}

		return c.JSON(http.StatusOK, models.Envelope{
			Success: true,
			Data:    profile,
			Message: "Style profile updated",
		})
	})

	g.POST("/excluded-items", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		type excludedIn struct {
			ItemIDs []string `json:"item_ids" validate:"required,max=200"`
		}
		var req excludedIn
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}
		if err := c.Validate(req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		user.ExcludedItemIDs = pq.StringArray(req.ItemIDs)
		if err := db.Save(&user).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save exclusions"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"message":  "saved",
			"excluded": len(req.ItemIDs),
		})
	})
}
