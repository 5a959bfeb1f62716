package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// StyleProfile is the user preference profile consumed by strict filtering
// and the context builder. Filled by the style quiz and editable by the user.
type StyleProfile struct {
	PreferredStyles []string `json:"preferred_styles,omitempty"`
	FavoriteColors  []string `json:"favorite_colors,omitempty"`
	AvoidColors     []string `json:"avoid_colors,omitempty"`
	AvoidMaterials  []string `json:"avoid_materials,omitempty"`
	BodyType        string   `json:"body_type,omitempty"`
	SkinTone        string   `json:"skin_tone,omitempty"`
	QuizCompletedAt *int64   `json:"quiz_completed_at,omitempty"`
}

func (p StyleProfile) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *StyleProfile) Scan(value interface{}) error {
	if value == nil {
		*p = StyleProfile{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return fmt.Errorf("unsupported type for StyleProfile: %T", value)
}

type UserAccount struct {
	JsonModel
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Banned   bool   `gorm:"default:false" json:"-"`
	LastIp   string `json:"-"`
	//"STARTED_AUTH", "FINISHED_AUTH"
	Status    string   `json:"-"`
	GoogleID  string   `json:"-"`
	AppleID   string   `json:"-"`
	UTMSource string   `json:"utm_source"`
	Platform  Platform `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`

	Subscription        *string    `json:"subscription"`
	ExpirationDate      *time.Time `json:"-"`
	ConfirmedDeleteDate *time.Time `json:"-"`

	ReceiveNotifications bool `json:"receive_notifications"`
	IsSuperadmin         bool `json:"is_superadmin"`

	AvatarURL string `json:"avatar_url"`

	StyleProfile StyleProfile `gorm:"type:jsonb" json:"style_profile"`

	// items the user asked to never see in generated outfits
	ExcludedItemIDs pq.StringArray `gorm:"type:text[]" json:"-"`

	EnforcedDailyItemLimit     *int32 `json:"-"`
	EnforcedDailyGenerateLimit *int32 `json:"-"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type UserSettingsIn struct {
	ReceiveNotifications bool `json:"receive_notifications"`
}
