package repository

import (
	"context"
	"errors"
	"time"

	nmodels "debate-platform-backend/internal/features/notification/models"
	"debate-platform-backend/internal/features/verification/models"
)

var (
	ErrRequestNotFound = errors.New("verification request not found")
	ErrNotPending      = errors.New("verification request is not pending")
	ErrAlreadyVerified = errors.New("platform already verified")
	ErrCodeNotFound    = errors.New("verification code not found")
	// ErrTxConflict is returned when optimistic retries are exhausted.
	ErrTxConflict = errors.New("transaction conflict")
)

// Decision is what an admin decided about a request.
type Decision struct {
	RequestID    string
	ReviewerID   int64
	Reason       string
	At           time.Time
	Notification *nmodels.Notification
}

type VerificationRepository interface {
	SaveCode(ctx context.Context, userID int64, platform models.Platform, code string, ttl time.Duration) error
	GetCode(ctx context.Context, userID int64, platform models.Platform) (string, error)

	GetState(ctx context.Context, userID int64, platform models.Platform) (models.State, error)

	// Submit writes the request, flips the user's state to pending, emits the
	// event and consumes the code in one transaction.
	Submit(ctx context.Context, req *models.Request) error
	// Approve marks the platform verified, records the social link, creates
	// the notification and deletes the request atomically.
	Approve(ctx context.Context, d Decision) (*models.Request, error)
	// Reject creates the notification and marks the request and the user's
	// state rejected atomically. The request is kept.
	Reject(ctx context.Context, d Decision) (*models.Request, error)

	Get(ctx context.Context, id string) (*models.Request, error)
	// List returns requests oldest submission first.
	List(ctx context.Context, status models.RequestStatus) ([]*models.Request, error)
}
