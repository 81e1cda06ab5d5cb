package repository

import (
	"context"
	"errors"

	"debate-platform-backend/internal/features/user/models"
	vmodels "debate-platform-backend/internal/features/verification/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrPhotoNotFound = errors.New("photo not found")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// List returns users ordered by registration time, newest first.
	List(ctx context.Context) ([]*models.User, error)
	UpdateStatus(ctx context.Context, id int64, status string) error

	GetVerification(ctx context.Context, id int64) (*vmodels.Overview, error)

	SetPhoto(ctx context.Context, id int64, photo *models.Photo) error
	GetPhoto(ctx context.Context, id int64) (*models.Photo, error)
}
