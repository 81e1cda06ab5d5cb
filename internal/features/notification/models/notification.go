package models

import "time"

type Type string

const (
	TypeVerificationApproved Type = "verification_approved"
	TypeVerificationRejected Type = "verification_rejected"
)

// Notification адресовано одному пользователю
// @Description Уведомление пользователя
type Notification struct {
	ID        string    `json:"id" example:"0b7f2f5e-8a55-4d2e-9a8b-2f9d6c1e4a10"`
	UserID    int64     `json:"user_id" example:"123456789"`
	Type      Type      `json:"type" example:"verification_approved" enums:"verification_approved,verification_rejected"`
	Message   string    `json:"message" example:"Your linkedin account has been verified"`
	Platform  string    `json:"platform,omitempty" example:"linkedin"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// UnreadCount is the body of GET /notifications/unread-count.
type UnreadCount struct {
	Count int64 `json:"count" example:"3"`
}
