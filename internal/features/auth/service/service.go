package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/features/auth/models"
	"debate-platform-backend/internal/features/auth/repository"
	usermodels "debate-platform-backend/internal/features/user/models"
)

const issuer = "debate-platform"

// UserProvisioner creates or refreshes the user record on login.
type UserProvisioner interface {
	GetOrCreateUser(ctx context.Context, profile usermodels.TelegramProfile) (*usermodels.UserResponse, error)
	IsBanned(ctx context.Context, id int64) (bool, error)
}

type AuthService interface {
	LoginTelegram(ctx context.Context, tgUser initdata.User) (*models.TokenPair, *usermodels.UserResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	IssueTokens(ctx context.Context, userID int64) (*models.TokenPair, error)
	VerifyAccessToken(token string) (int64, string, error)
}

type Options struct {
	Secret          []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminIDs        []int64
}

type authService struct {
	repo   repository.TokenRepository
	users  UserProvisioner
	opts   Options
	admins map[int64]struct{}
	nowFn  func() time.Time
}

func NewAuthService(repo repository.TokenRepository, users UserProvisioner, opts Options) AuthService {
	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}
	return &authService{
		repo:   repo,
		users:  users,
		opts:   opts,
		admins: admins,
		nowFn:  time.Now,
	}
}

func (s *authService) roleOf(userID int64) string {
	if _, ok := s.admins[userID]; ok {
		return usermodels.RoleAdmin
	}
	return usermodels.RoleUser
}

func (s *authService) LoginTelegram(ctx context.Context, tgUser initdata.User) (*models.TokenPair, *usermodels.UserResponse, error) {
	if tgUser.ID == 0 {
		return nil, nil, errors.NewUnauthorizedError("init data carries no user")
	}

	user, err := s.users.GetOrCreateUser(ctx, usermodels.TelegramProfile{
		ID:        tgUser.ID,
		Username:  tgUser.Username,
		FirstName: tgUser.FirstName,
		LastName:  tgUser.LastName,
		PhotoURL:  tgUser.PhotoURL,
		Role:      s.roleOf(tgUser.ID),
	})
	if err != nil {
		return nil, nil, err
	}
	if user.Status == usermodels.StatusBanned {
		return nil, nil, errors.New(errors.ErrCodeUserBanned, "Your account has been banned")
	}

	pair, err := s.IssueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("User logged in")
	return pair, user, nil
}

// Refresh rotates the refresh token: the presented one is consumed even
// when issuing the new pair fails afterwards.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	userID, err := s.repo.ConsumeRefreshToken(ctx, refreshToken)
	if err == repository.ErrRefreshTokenNotFound {
		return nil, errors.NewUnauthorizedError("refresh token is invalid or expired")
	}
	if err != nil {
		return nil, errors.NewPersistenceError("consume refresh token", err)
	}

	banned, err := s.users.IsBanned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, errors.New(errors.ErrCodeUserBanned, "Your account has been banned")
	}

	return s.IssueTokens(ctx, userID)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return errors.NewPersistenceError("delete refresh token", err)
	}
	return nil
}

func (s *authService) IssueTokens(ctx context.Context, userID int64) (*models.TokenPair, error) {
	now := s.nowFn()
	claims := models.Claims{
		Role: s.roleOf(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.AccessTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to sign access token")
	}

	refresh := uuid.NewString()
	if err := s.repo.SaveRefreshToken(ctx, refresh, userID, s.opts.RefreshTokenTTL); err != nil {
		return nil, errors.NewPersistenceError("save refresh token", err)
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.opts.AccessTokenTTL / time.Second),
	}, nil
}

// VerifyAccessToken implements middleware.TokenVerifier.
func (s *authService) VerifyAccessToken(token string) (int64, string, error) {
	var claims models.Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.opts.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFn),
	)
	if err != nil {
		return 0, "", err
	}
	if !parsed.Valid {
		return 0, "", fmt.Errorf("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid subject: %w", err)
	}
	return userID, claims.Role, nil
}
