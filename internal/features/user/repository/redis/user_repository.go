package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"debate-platform-backend/internal/features/user/models"
	"debate-platform-backend/internal/features/user/repository"
	vmodels "debate-platform-backend/internal/features/verification/models"
	"debate-platform-backend/internal/platform/redis/keys"
)

type userRepository struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) repository.UserRepository {
	return &userRepository{
		client: client,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}

	key := keys.User(user.ID)
	created, err := r.client.SetNX(ctx, key, userJSON, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return repository.ErrUserExists
	}

	return r.client.ZAdd(ctx, keys.UsersIndex, redis.Z{
		Score:  float64(user.CreatedAt.Unix()),
		Member: user.ID,
	}).Err()
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	userJSON, err := r.client.Get(ctx, keys.User(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(userJSON, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}

	updated, err := r.client.SetXX(ctx, keys.User(user.ID), userJSON, 0).Result()
	if err != nil {
		return err
	}
	if !updated {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	ids, err := r.client.ZRevRange(ctx, keys.UsersIndex, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	userKeys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		userKeys = append(userKeys, keys.User(id))
	}

	values, err := r.client.MGet(ctx, userKeys...).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var user models.User
		if err := json.Unmarshal([]byte(s), &user); err != nil {
			continue
		}
		users = append(users, &user)
	}
	return users, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	user.Status = status
	return r.Update(ctx, user)
}

// GetVerification reads the verification hash and the social links hash.
// Platforms without an entry are reported as unverified.
func (r *userRepository) GetVerification(ctx context.Context, id int64) (*vmodels.Overview, error) {
	pipe := r.client.Pipeline()
	statesCmd := pipe.HGetAll(ctx, keys.UserVerification(id))
	linksCmd := pipe.HGetAll(ctx, keys.UserSocialLinks(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	overview := vmodels.NewOverview(id)
	for platform, raw := range statesCmd.Val() {
		var state vmodels.State
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			continue
		}
		overview.VerificationStatus[vmodels.Platform(platform)] = state
	}
	for platform, url := range linksCmd.Val() {
		overview.SocialLinks[vmodels.Platform(platform)] = url
	}
	return overview, nil
}

func (r *userRepository) SetPhoto(ctx context.Context, id int64, photo *models.Photo) error {
	return r.client.HSet(ctx, keys.UserPhoto(id),
		"content_type", photo.ContentType,
		"data", photo.Data,
	).Err()
}

func (r *userRepository) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	fields, err := r.client.HGetAll(ctx, keys.UserPhoto(id)).Result()
	if err != nil {
		return nil, err
	}
	data, ok := fields["data"]
	if !ok {
		return nil, repository.ErrPhotoNotFound
	}
	return &models.Photo{ContentType: fields["content_type"], Data: []byte(data)}, nil
}
