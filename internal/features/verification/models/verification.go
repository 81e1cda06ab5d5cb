package models

import (
	"fmt"
	"strconv"
	"time"
)

// Status is the per-platform state stored on the user.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// RequestStatus is the state of a verification request document.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch s := RequestStatus(raw); s {
	case RequestPending, RequestApproved, RequestRejected:
		return s, nil
	default:
		return "", fmt.Errorf("invalid request status %q", raw)
	}
}

const CodeLength = 4

// State is one entry of the user's verification map.
// @Description Статус верификации для одной платформы
type State struct {
	Status    Status     `json:"status" example:"pending" enums:"unverified,pending,verified,rejected"`
	Code      string     `json:"code,omitempty" example:"7QX2"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Request is a pending claim that a user controls a social profile.
// Its id is derived from (user, platform) so a resubmission overwrites.
// @Description Заявка на верификацию профиля
type Request struct {
	ID          string        `json:"id" example:"123456789_linkedin"`
	UserID      int64         `json:"user_id" example:"123456789"`
	Platform    Platform      `json:"platform" example:"linkedin"`
	ProfileURL  string        `json:"profile_url" example:"https://linkedin.com/in/jdoe"`
	Code        string        `json:"code" example:"7QX2"`
	Status      RequestStatus `json:"status" example:"pending" enums:"pending,approved,rejected"`
	SubmittedAt time.Time     `json:"submitted_at"`
	ReviewedAt  *time.Time    `json:"reviewed_at,omitempty"`
	ReviewedBy  int64         `json:"reviewed_by,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

func RequestID(userID int64, platform Platform) string {
	return fmt.Sprintf("%d_%s", userID, platform)
}

// Challenge is returned by start: the code and what to do with it.
type Challenge struct {
	Platform     Platform  `json:"platform" example:"linkedin"`
	Code         string    `json:"code" example:"7QX2"`
	Instructions string    `json:"instructions"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Overview is the verification map and the social links of one user.
type Overview struct {
	UserID             int64               `json:"user_id"`
	VerificationStatus map[Platform]State  `json:"verification_status"`
	SocialLinks        map[Platform]string `json:"social_links"`
}

// NewOverview fills every known platform with an unverified entry.
func NewOverview(userID int64) *Overview {
	o := &Overview{
		UserID:             userID,
		VerificationStatus: make(map[Platform]State),
		SocialLinks:        make(map[Platform]string),
	}
	for _, p := range Platforms() {
		o.VerificationStatus[p] = State{Status: StatusUnverified}
	}
	return o
}

type EventType string

const (
	EventSubmitted EventType = "submitted"
	EventApproved  EventType = "approved"
	EventRejected  EventType = "rejected"
)

// Event is one entry of the verification event stream.
type Event struct {
	StreamID  string        `json:"stream_id,omitempty"`
	Type      EventType     `json:"type"`
	RequestID string        `json:"request_id"`
	UserID    int64         `json:"user_id"`
	Platform  Platform      `json:"platform"`
	Status    RequestStatus `json:"status"`
	At        time.Time     `json:"at"`
}

// Values is the XADD field set of the event.
func (e Event) Values() map[string]interface{} {
	return map[string]interface{}{
		"type":       string(e.Type),
		"request_id": e.RequestID,
		"user_id":    e.UserID,
		"platform":   string(e.Platform),
		"status":     string(e.Status),
		"at":         e.At.UTC().Format(time.RFC3339Nano),
	}
}

// SubmitRequest is the body of POST /verifications/{platform}/submit.
type SubmitRequest struct {
	ProfileURL string `json:"profile_url" binding:"required" example:"https://linkedin.com/in/jdoe"`
}

// RejectRequest is the body of POST /admin/verification-requests/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason" example:"Code not found in profile"`
}

// EventFromValues decodes a stream entry written with Values.
func EventFromValues(id string, values map[string]interface{}) (Event, error) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}

	e := Event{
		StreamID:  id,
		Type:      EventType(str("type")),
		RequestID: str("request_id"),
		Platform:  Platform(str("platform")),
		Status:    RequestStatus(str("status")),
	}
	switch e.Type {
	case EventSubmitted, EventApproved, EventRejected:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}

	userID, err := strconv.ParseInt(str("user_id"), 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid user_id: %w", err)
	}
	e.UserID = userID

	if at := str("at"); at != "" {
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return Event{}, fmt.Errorf("invalid at: %w", err)
		}
	}
	return e, nil
}
