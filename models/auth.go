package models

import "time"

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GoogleAuthSignIn struct {
	IdToken  string `json:"idToken" validate:"required"`
	Platform string `json:"platform" validate:"required"`
}

type AppleAuthRequest struct {
	IdentityToken     string `json:"identity_token" validate:"required"`
	Platform          string `json:"platform" validate:"required"`
	AuthorizationCode string `json:"authorization_code" validate:"required"`
}

type SignUpIn struct {
	ProfileIn
	IdToken  string `json:"idToken" validate:"required"`
	Platform string `json:"platform" validate:"required"`
}

type ProfileIn struct {
	Name      string `json:"name" validate:"required"`
	UTMSource string `json:"utm_source"`
}

type SignInOut struct {
	Email string `json:"email"`

	// null until sign-up finishes
	Id string `json:"id"`

	New          bool   `json:"new"`
	Avatar       string `json:"avatar"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenIn struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UserMeInfoOut struct {
	Id                   string       `json:"id"`
	Name                 string       `json:"name"`
	Email                string       `json:"email"`
	Status               string       `json:"-"`
	AvatarURL            string       `json:"avatar_url"`
	Subscription         *string      `json:"subscription"`
	ReceiveNotifications bool         `json:"receive_notifications"`
	StyleProfile         StyleProfile `json:"style_profile"`
}
