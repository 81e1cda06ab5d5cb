package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"debate-platform-backend/internal/common/cache"
	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/common/validation"
	"debate-platform-backend/internal/features/user/mapper"
	"debate-platform-backend/internal/features/user/models"
	"debate-platform-backend/internal/features/user/repository"
	vmodels "debate-platform-backend/internal/features/verification/models"
)

type UserService interface {
	GetOrCreateUser(ctx context.Context, profile models.TelegramProfile) (*models.UserResponse, error)
	GetUser(ctx context.Context, id int64) (*models.UserResponse, error)
	GetVerificationOverview(ctx context.Context, id int64) (*vmodels.Overview, error)
	UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.UserResponse, error)
	UploadPhoto(ctx context.Context, id int64, data []byte) (*models.UserResponse, error)
	GetPhoto(ctx context.Context, id int64) (*models.Photo, error)
	ListUsers(ctx context.Context, p pagination.Params) (pagination.Page[*models.UserResponse], error)
	UpdateUserStatus(ctx context.Context, id int64, status string) error
	IsBanned(ctx context.Context, id int64) (bool, error)
}

type userService struct {
	repo     repository.UserRepository
	cache    *cache.CacheService
	cacheTTL time.Duration
	nowFn    func() time.Time
}

func NewUserService(repo repository.UserRepository, cache *cache.CacheService, cacheTTL time.Duration) UserService {
	return &userService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		nowFn:    time.Now,
	}
}

func PhotoPath(id int64) string {
	return fmt.Sprintf("/api/v1/users/%d/photo", id)
}

func (s *userService) GetOrCreateUser(ctx context.Context, profile models.TelegramProfile) (*models.UserResponse, error) {
	role := profile.Role
	if role == "" {
		role = models.RoleUser
	}

	user, err := s.repo.GetByID(ctx, profile.ID)
	if err == nil {
		if user.Username != profile.Username || user.FirstName != profile.FirstName ||
			user.LastName != profile.LastName || user.Role != role {
			user.Username = profile.Username
			user.FirstName = profile.FirstName
			user.LastName = profile.LastName
			user.Role = role
			if err := s.repo.Update(ctx, user); err != nil {
				return nil, errors.NewPersistenceError("update user", err)
			}
			s.invalidate(ctx, user.ID)
		}
		return s.GetUser(ctx, user.ID)
	}
	if err != repository.ErrUserNotFound {
		return nil, errors.NewPersistenceError("get user", err)
	}

	now := s.nowFn()
	newUser := &models.User{
		ID:        profile.ID,
		Username:  profile.Username,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		PhotoURL:  profile.PhotoURL,
		Role:      role,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		// параллельный логин успел создать пользователя
		if err == repository.ErrUserExists {
			return s.GetUser(ctx, profile.ID)
		}
		return nil, errors.NewPersistenceError("create user", err)
	}

	logger.Info().Int64("user_id", newUser.ID).Msg("User created")
	return mapper.ToUserResponse(newUser, nil), nil
}

// GetUser reads the assembled view through the cache.
func (s *userService) GetUser(ctx context.Context, id int64) (*models.UserResponse, error) {
	var resp models.UserResponse
	err := s.cache.GetOrSet(ctx, cache.UserViewKey(id), &resp, s.cacheTTL, func() (interface{}, error) {
		return s.loadView(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *userService) loadView(ctx context.Context, id int64) (*models.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err == repository.ErrUserNotFound {
		return nil, errors.NewUserNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get user", err)
	}

	overview, err := s.repo.GetVerification(ctx, id)
	if err != nil {
		return nil, errors.NewPersistenceError("get verification status", err)
	}
	return mapper.ToUserResponse(user, overview), nil
}

func (s *userService) GetVerificationOverview(ctx context.Context, id int64) (*vmodels.Overview, error) {
	resp, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.ToOverview(resp), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err == repository.ErrUserNotFound {
		return nil, errors.NewUserNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get user", err)
	}

	if upd.Username != nil {
		if err := validation.ValidateUsername(*upd.Username); err != nil {
			return nil, errors.NewValidationError("username", err.Error())
		}
		user.Username = strings.TrimPrefix(strings.TrimSpace(*upd.Username), "@")
	}
	if upd.FirstName != nil {
		if err := validation.ValidateName("first_name", *upd.FirstName); err != nil {
			return nil, errors.NewValidationError("first_name", err.Error())
		}
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		if err := validation.ValidateName("last_name", *upd.LastName); err != nil {
			return nil, errors.NewValidationError("last_name", err.Error())
		}
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Bio != nil {
		bio := validation.SanitizeText(*upd.Bio)
		if err := validation.ValidateBio(bio); err != nil {
			return nil, errors.NewValidationError("bio", err.Error())
		}
		user.Bio = bio
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, errors.NewPersistenceError("update user", err)
	}
	s.invalidate(ctx, id)
	return s.GetUser(ctx, id)
}

// UploadPhoto sniffs the content type instead of trusting the client.
func (s *userService) UploadPhoto(ctx context.Context, id int64, data []byte) (*models.UserResponse, error) {
	if len(data) == 0 {
		return nil, errors.NewValidationError("photo", "file is empty")
	}
	if len(data) > models.MaxPhotoSize {
		return nil, errors.New(errors.ErrCodeTooLarge, "Photo exceeds 2 MiB").
			WithDetail("max_bytes", models.MaxPhotoSize)
	}

	contentType := http.DetectContentType(data)
	if !models.PhotoContentTypes[contentType] {
		return nil, errors.NewValidationError("photo", "unsupported image type "+contentType)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err == repository.ErrUserNotFound {
		return nil, errors.NewUserNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get user", err)
	}

	if err := s.repo.SetPhoto(ctx, id, &models.Photo{ContentType: contentType, Data: bytes.Clone(data)}); err != nil {
		return nil, errors.NewPersistenceError("store photo", err)
	}

	user.PhotoURL = PhotoPath(id)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, errors.NewPersistenceError("update user", err)
	}
	s.invalidate(ctx, id)
	return s.GetUser(ctx, id)
}

func (s *userService) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	photo, err := s.repo.GetPhoto(ctx, id)
	if err == repository.ErrPhotoNotFound {
		return nil, errors.NewNotFoundError("photo", id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get photo", err)
	}
	return photo, nil
}

// ListUsers filters by username or name, case-insensitively.
func (s *userService) ListUsers(ctx context.Context, p pagination.Params) (pagination.Page[*models.UserResponse], error) {
	p = p.Normalize()
	users, err := s.repo.List(ctx)
	if err != nil {
		return pagination.Page[*models.UserResponse]{}, errors.NewPersistenceError("list users", err)
	}

	search := strings.ToLower(p.Search)
	matched := make([]*models.User, 0, len(users))
	for _, u := range users {
		if search == "" ||
			strings.Contains(strings.ToLower(u.Username), search) ||
			strings.Contains(strings.ToLower(u.FirstName+" "+u.LastName), search) {
			matched = append(matched, u)
		}
	}

	window := pagination.Slice(matched, p)
	items := make([]*models.UserResponse, 0, len(window.Items))
	for _, u := range window.Items {
		overview, err := s.repo.GetVerification(ctx, u.ID)
		if err != nil {
			return pagination.Page[*models.UserResponse]{}, errors.NewPersistenceError("get verification status", err)
		}
		items = append(items, mapper.ToUserResponse(u, overview))
	}
	return pagination.NewPage(items, window.Total, p), nil
}

func (s *userService) UpdateUserStatus(ctx context.Context, id int64, status string) error {
	if err := validation.ValidateUserStatus(status); err != nil {
		return errors.NewValidationError("status", err.Error())
	}

	err := s.repo.UpdateStatus(ctx, id, strings.TrimSpace(status))
	if err == repository.ErrUserNotFound {
		return errors.NewUserNotFoundError(id)
	}
	if err != nil {
		return errors.NewPersistenceError("update user status", err)
	}

	s.invalidate(ctx, id)
	logger.Info().Int64("user_id", id).Str("status", status).Msg("User status updated")
	return nil
}

func (s *userService) IsBanned(ctx context.Context, id int64) (bool, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Status == models.StatusBanned, nil
}

func (s *userService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.InvalidateUserCache(ctx, id); err != nil {
		logger.Warn().Err(err).Int64("user_id", id).Msg("Failed to invalidate user cache")
	}
}
