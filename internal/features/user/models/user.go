package models

import (
	"time"

	vmodels "debate-platform-backend/internal/features/verification/models"
)

const (
	StatusActive = "active"
	StatusBanned = "banned"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет полную модель пользователя в системе
// @Description Полная модель пользователя
type User struct {
	ID        int64     `json:"id" example:"123456789" description:"ID пользователя в Telegram"`
	Username  string    `json:"username" example:"johndoe" description:"Имя пользователя в Telegram"`
	FirstName string    `json:"first_name" example:"John" description:"Имя пользователя"`
	LastName  string    `json:"last_name" example:"Doe" description:"Фамилия пользователя"`
	Bio       string    `json:"bio" example:"Debate coach" description:"О себе"`
	PhotoURL  string    `json:"photo_url" example:"/api/v1/users/123456789/photo" description:"Аватар"`
	Role      string    `json:"role" example:"user" enums:"user,admin" description:"Роль пользователя в системе"`
	Status    string    `json:"status" example:"active" enums:"active,banned" description:"Статус пользователя"`
	CreatedAt time.Time `json:"created_at" example:"2024-03-15T14:30:00Z" description:"Дата создания"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-03-15T14:30:00Z" description:"Дата последнего обновления"`
}

// UserResponse представляет публичную информацию о пользователе
// вместе с картой верификации и ссылками на соцсети
// @Description Публичная информация о пользователе
type UserResponse struct {
	ID                 int64                              `json:"id" example:"123456789"`
	Username           string                             `json:"username" example:"johndoe"`
	FirstName          string                             `json:"first_name" example:"John"`
	LastName           string                             `json:"last_name" example:"Doe"`
	Bio                string                             `json:"bio" example:"Debate coach"`
	PhotoURL           string                             `json:"photo_url" example:"/api/v1/users/123456789/photo"`
	Role               string                             `json:"role" example:"user" enums:"user,admin"`
	Status             string                             `json:"status" example:"active" enums:"active,banned"`
	VerificationStatus map[vmodels.Platform]vmodels.State `json:"verification_status"`
	SocialLinks        map[vmodels.Platform]string        `json:"social_links"`
	CreatedAt          time.Time                          `json:"created_at" example:"2024-03-15T14:30:00Z"`
	UpdatedAt          time.Time                          `json:"updated_at" example:"2024-03-15T14:30:00Z"`
}

// TelegramProfile is what login knows about the user.
type TelegramProfile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	PhotoURL  string
	Role      string
}

// ProfileUpdate is the body of PATCH /users/me. Nil fields are left as is.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty" example:"johndoe"`
	FirstName *string `json:"first_name,omitempty" example:"John"`
	LastName  *string `json:"last_name,omitempty" example:"Doe"`
	Bio       *string `json:"bio,omitempty" example:"Debate coach"`
}

const MaxPhotoSize = 2 << 20

var PhotoContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Photo is a stored avatar.
type Photo struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}
