package models

import "time"

// Topic is a debate subject.
// @Description Тема дебатов
type Topic struct {
	ID          string    `json:"id" example:"5f1c7c7e-4c55-4d0c-8d3e-6f8e2c1a9b10"`
	Name        string    `json:"name" example:"Universal basic income"`
	Description string    `json:"description" example:"Should every citizen receive a guaranteed income?"`
	CreatedBy   int64     `json:"created_by" example:"123456789"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TopicInput is the body of POST /topics.
type TopicInput struct {
	Name        string `json:"name" binding:"required" example:"Universal basic income"`
	Description string `json:"description" example:"Should every citizen receive a guaranteed income?"`
}

// TopicPatch is the body of PUT /topics/{id}. Absent fields keep their value.
type TopicPatch struct {
	Name        *string `json:"name,omitempty" example:"Universal basic income"`
	Description *string `json:"description,omitempty" example:"Should every citizen receive a guaranteed income?"`
}
