package models

// StatusUpdate represents a status update request
type StatusUpdate struct {
	Status string `json:"status" binding:"required" example:"active" enums:"active,banned"`
}
