package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recipe-studio/catalogue/internal/models"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name *string, passwordHash *string) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db, "user"), db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	if err := conn(ctx, r.db).Where("email = ?", email).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound("user")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get user by email failed")
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, passwordHash *string) error {
	updates := map[string]any{}
	if name != nil {
		updates["name"] = *name
	}
	if passwordHash != nil {
		updates["password_hash"] = *passwordHash
	}
	if len(updates) == 0 {
		return nil
	}
	res := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update user failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound("user")
	}
	return nil
}
