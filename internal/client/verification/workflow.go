// Package verification drives the social profile verification flow from the
// client side: start, submit, status and the admin review queue.
package verification

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/verification/models"
)

// API is the part of api.Client the workflow needs.
type API interface {
	Get(ctx context.Context, path string, query map[string]string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Store is the local mirror, see localstore.Store.
type Store interface {
	Profile(ctx context.Context, fetch func(context.Context) (*models.Overview, error)) (*models.Overview, error)
	InvalidateProfile(ctx context.Context) error
	SaveCode(ctx context.Context, platform models.Platform, code string, expiresAt time.Time) error
	Code(ctx context.Context, platform models.Platform) (string, bool, error)
	DeleteCode(ctx context.Context, platform models.Platform) error
}

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Workflow struct {
	api   API
	store Store
}

func NewWorkflow(api API, store Store) *Workflow {
	return &Workflow{api: api, store: store}
}

// Start asks the server for a code and remembers it locally.
func (w *Workflow) Start(ctx context.Context, rawPlatform string) (*models.Challenge, error) {
	platform, err := parsePlatform(rawPlatform)
	if err != nil {
		return nil, err
	}

	var challenge models.Challenge
	if err := w.api.Post(ctx, "/verifications/"+string(platform)+"/start", nil, &challenge); err != nil {
		return nil, err
	}

	if err := w.store.SaveCode(ctx, platform, challenge.Code, challenge.ExpiresAt); err != nil {
		logger.Warn().Err(err).Str("platform", string(platform)).Msg("Failed to keep verification code")
	}
	w.invalidate(ctx)
	return &challenge, nil
}

// Submit checks the URL against the platform pattern locally, so a typo
// never reaches the server.
func (w *Workflow) Submit(ctx context.Context, rawPlatform, profileURL string) (*models.Request, error) {
	platform, err := parsePlatform(rawPlatform)
	if err != nil {
		return nil, err
	}
	profileURL = strings.TrimSpace(profileURL)
	if !platform.MatchProfileURL(profileURL) {
		return nil, &ValidationError{Field: "profile_url", Reason: fmt.Sprintf("not a %s profile URL", platform)}
	}

	var req models.Request
	body := models.SubmitRequest{ProfileURL: profileURL}
	if err := w.api.Post(ctx, "/verifications/"+string(platform)+"/submit", body, &req); err != nil {
		return nil, err
	}

	if err := w.store.DeleteCode(ctx, platform); err != nil {
		logger.Warn().Err(err).Msg("Failed to drop verification code")
	}
	w.invalidate(ctx)
	return &req, nil
}

// Status reads the mirrored overview, fetching it on a miss.
func (w *Workflow) Status(ctx context.Context) (*models.Overview, error) {
	return w.store.Profile(ctx, func(ctx context.Context) (*models.Overview, error) {
		var overview models.Overview
		if err := w.api.Get(ctx, "/verifications", nil, &overview); err != nil {
			return nil, err
		}
		return &overview, nil
	})
}

// PendingCode is the last unexpired code started from this machine.
func (w *Workflow) PendingCode(ctx context.Context, rawPlatform string) (string, bool, error) {
	platform, err := parsePlatform(rawPlatform)
	if err != nil {
		return "", false, err
	}
	return w.store.Code(ctx, platform)
}

// Requests lists the review queue (admin).
func (w *Workflow) Requests(ctx context.Context, status string, page, limit int) (*pagination.Page[models.Request], error) {
	if status != "" {
		if _, err := models.ParseRequestStatus(status); err != nil {
			return nil, &ValidationError{Field: "status", Reason: err.Error()}
		}
	}

	var out pagination.Page[models.Request]
	err := w.api.Get(ctx, "/admin/verification-requests", map[string]string{
		"status": status,
		"page":   positive(page),
		"limit":  positive(limit),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (w *Workflow) Approve(ctx context.Context, requestID string) (*models.Request, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, &ValidationError{Field: "id", Reason: "is required"}
	}
	var req models.Request
	if err := w.api.Post(ctx, "/admin/verification-requests/"+url.PathEscape(requestID)+"/approve", nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (w *Workflow) Reject(ctx context.Context, requestID, reason string) (*models.Request, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, &ValidationError{Field: "id", Reason: "is required"}
	}
	var req models.Request
	body := models.RejectRequest{Reason: strings.TrimSpace(reason)}
	if err := w.api.Post(ctx, "/admin/verification-requests/"+url.PathEscape(requestID)+"/reject", body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (w *Workflow) invalidate(ctx context.Context) {
	if err := w.store.InvalidateProfile(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate profile mirror")
	}
}

func parsePlatform(raw string) (models.Platform, error) {
	platform, err := models.ParsePlatform(raw)
	if err != nil {
		return "", &ValidationError{Field: "platform", Reason: err.Error()}
	}
	return platform, nil
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
