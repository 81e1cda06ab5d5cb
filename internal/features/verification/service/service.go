package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"debate-platform-backend/internal/common/cache"
	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/common/validation"
	nmodels "debate-platform-backend/internal/features/notification/models"
	"debate-platform-backend/internal/features/verification/models"
	"debate-platform-backend/internal/features/verification/repository"
	"debate-platform-backend/internal/utils/random"
)

type VerificationService interface {
	Start(ctx context.Context, userID int64, platform string) (*models.Challenge, error)
	Submit(ctx context.Context, userID int64, platform, profileURL string) (*models.Request, error)
	Approve(ctx context.Context, requestID string, adminID int64) (*models.Request, error)
	Reject(ctx context.Context, requestID string, adminID int64, reason string) (*models.Request, error)
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	ListRequests(ctx context.Context, status string, p pagination.Params) (pagination.Page[*models.Request], error)
	Status(ctx context.Context, userID int64) (*models.Overview, error)
}

// OverviewReader reads a user's verification map through the user view cache.
type OverviewReader interface {
	GetVerificationOverview(ctx context.Context, userID int64) (*models.Overview, error)
}

type verificationService struct {
	repo    repository.VerificationRepository
	users   OverviewReader
	cache   *cache.CacheService
	codeTTL time.Duration

	nowFn  func() time.Time
	codeFn func() (string, error)
	idFn   func() string
}

func NewVerificationService(repo repository.VerificationRepository, users OverviewReader, cache *cache.CacheService, codeTTL time.Duration) VerificationService {
	return &verificationService{
		repo:    repo,
		users:   users,
		cache:   cache,
		codeTTL: codeTTL,
		nowFn:   time.Now,
		codeFn: func() (string, error) {
			return random.String(models.CodeLength, random.Alphanumeric)
		},
		idFn: uuid.NewString,
	}
}

func parsePlatform(raw string) (models.Platform, error) {
	p, err := models.ParsePlatform(raw)
	if err != nil {
		return "", errors.NewValidationError("platform", err.Error()).
			WithDetail("supported", models.Platforms())
	}
	return p, nil
}

func (s *verificationService) Start(ctx context.Context, userID int64, rawPlatform string) (*models.Challenge, error) {
	platform, err := parsePlatform(rawPlatform)
	if err != nil {
		return nil, err
	}

	state, err := s.repo.GetState(ctx, userID, platform)
	if err != nil {
		return nil, errors.NewPersistenceError("get verification state", err)
	}
	if state.Status == models.StatusVerified {
		return nil, alreadyVerified(platform)
	}

	code, err := s.codeFn()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to generate verification code")
	}
	if err := s.repo.SaveCode(ctx, userID, platform, code, s.codeTTL); err != nil {
		return nil, errors.NewPersistenceError("save verification code", err)
	}

	logger.Debug().Int64("user_id", userID).Str("platform", string(platform)).Msg("Verification started")

	return &models.Challenge{
		Platform:     platform,
		Code:         code,
		Instructions: platform.Instructions(code),
		ExpiresAt:    s.nowFn().Add(s.codeTTL),
	}, nil
}

func (s *verificationService) Submit(ctx context.Context, userID int64, rawPlatform, profileURL string) (*models.Request, error) {
	platform, err := parsePlatform(rawPlatform)
	if err != nil {
		return nil, err
	}

	profileURL = strings.TrimSpace(profileURL)
	if profileURL == "" {
		return nil, errors.NewValidationError("profile_url", "cannot be empty")
	}
	if len(profileURL) > validation.MaxProfileURLLength || !platform.MatchProfileURL(profileURL) {
		return nil, errors.NewValidationError("profile_url", fmt.Sprintf("not a valid %s profile URL", platform))
	}

	code, err := s.repo.GetCode(ctx, userID, platform)
	if err == repository.ErrCodeNotFound {
		return nil, errors.New(errors.ErrCodeVerificationNotStarted, "Verification was not started or the code expired").
			WithDetail("platform", platform)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get verification code", err)
	}

	req := &models.Request{
		ID:          models.RequestID(userID, platform),
		UserID:      userID,
		Platform:    platform,
		ProfileURL:  profileURL,
		Code:        code,
		Status:      models.RequestPending,
		SubmittedAt: s.nowFn().UTC(),
	}

	if err := s.repo.Submit(ctx, req); err != nil {
		return nil, s.mapRepoError(err, "submit verification request", platform)
	}

	s.invalidate(ctx, userID)
	logger.Info().
		Str("request_id", req.ID).
		Int64("user_id", userID).
		Str("platform", string(platform)).
		Msg("Verification request submitted")
	return req, nil
}

func (s *verificationService) Approve(ctx context.Context, requestID string, adminID int64) (*models.Request, error) {
	// платформа и пользователь нужны для текста уведомления до транзакции
	current, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	req, err := s.repo.Approve(ctx, repository.Decision{
		RequestID:  requestID,
		ReviewerID: adminID,
		At:         now,
		Notification: &nmodels.Notification{
			ID:        s.idFn(),
			UserID:    current.UserID,
			Type:      nmodels.TypeVerificationApproved,
			Message:   fmt.Sprintf("Your %s account has been verified", current.Platform),
			Platform:  string(current.Platform),
			CreatedAt: now,
		},
	})
	if err != nil {
		return nil, s.mapRepoError(err, "approve verification request", current.Platform)
	}

	s.invalidate(ctx, req.UserID)
	logger.Info().
		Str("request_id", req.ID).
		Int64("admin_id", adminID).
		Msg("Verification request approved")
	return req, nil
}

func (s *verificationService) Reject(ctx context.Context, requestID string, adminID int64, reason string) (*models.Request, error) {
	reason = validation.SanitizeText(reason)
	if err := validation.ValidateReason(reason); err != nil {
		return nil, errors.NewValidationError("reason", err.Error())
	}

	current, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Your %s verification request was rejected", current.Platform)
	if reason != "" {
		message += ": " + reason
	}

	now := s.nowFn().UTC()
	req, err := s.repo.Reject(ctx, repository.Decision{
		RequestID:  requestID,
		ReviewerID: adminID,
		Reason:     reason,
		At:         now,
		Notification: &nmodels.Notification{
			ID:        s.idFn(),
			UserID:    current.UserID,
			Type:      nmodels.TypeVerificationRejected,
			Message:   message,
			Platform:  string(current.Platform),
			CreatedAt: now,
		},
	})
	if err != nil {
		return nil, s.mapRepoError(err, "reject verification request", current.Platform)
	}

	s.invalidate(ctx, req.UserID)
	logger.Info().
		Str("request_id", req.ID).
		Int64("admin_id", adminID).
		Msg("Verification request rejected")
	return req, nil
}

func (s *verificationService) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err == repository.ErrRequestNotFound {
		return nil, errors.NewNotFoundError("verification request", id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get verification request", err)
	}
	return req, nil
}

func (s *verificationService) ListRequests(ctx context.Context, rawStatus string, p pagination.Params) (pagination.Page[*models.Request], error) {
	p = p.Normalize()

	var status models.RequestStatus
	if rawStatus != "" {
		parsed, err := models.ParseRequestStatus(rawStatus)
		if err != nil {
			return pagination.Page[*models.Request]{}, errors.NewValidationError("status", err.Error())
		}
		status = parsed
	}

	all, err := s.repo.List(ctx, status)
	if err != nil {
		return pagination.Page[*models.Request]{}, errors.NewPersistenceError("list verification requests", err)
	}

	if search := strings.ToLower(p.Search); search != "" {
		filtered := all[:0]
		for _, req := range all {
			if strings.Contains(strings.ToLower(req.ProfileURL), search) || strings.Contains(req.ID, search) {
				filtered = append(filtered, req)
			}
		}
		all = filtered
	}
	return pagination.Slice(all, p), nil
}

func (s *verificationService) Status(ctx context.Context, userID int64) (*models.Overview, error) {
	return s.users.GetVerificationOverview(ctx, userID)
}

func (s *verificationService) mapRepoError(err error, op string, platform models.Platform) error {
	switch err {
	case repository.ErrAlreadyVerified:
		return alreadyVerified(platform)
	case repository.ErrNotPending:
		return errors.New(errors.ErrCodeRequestNotPending, "Verification request has already been reviewed")
	case repository.ErrRequestNotFound:
		return errors.New(errors.ErrCodeNotFound, "verification request not found")
	case repository.ErrTxConflict:
		return errors.Wrap(err, errors.ErrCodeTransactionFailed, "Concurrent update, please retry").
			WithDetail("operation", op)
	default:
		return errors.NewPersistenceError(op, err)
	}
}

func alreadyVerified(platform models.Platform) *errors.AppError {
	return errors.New(errors.ErrCodeAlreadyVerified, fmt.Sprintf("%s is already verified", platform)).
		WithDetail("platform", platform)
}

func (s *verificationService) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.InvalidateUserCache(ctx, userID); err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Msg("Failed to invalidate user cache")
	}
}
