package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/recipe-studio/catalogue/internal/models"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
)

// RecipeFilter narrows a recipe listing. Each non-empty id set requires the
// recipe to carry at least one of those labels; sets combine with AND.
type RecipeFilter struct {
	TagIDs        []uint64
	IngredientIDs []uint64
}

type RecipeRepository interface {
	BaseRepository[models.Recipe]
	GetDetail(ctx context.Context, id uint64, owner uuid.UUID, dest *models.Recipe) error
	List(ctx context.Context, owner uuid.UUID, filter RecipeFilter, page Page) ([]models.Recipe, int64, error)
	UpdateColumns(ctx context.Context, recipe *models.Recipe, columns ...string) error
	DeleteOwned(ctx context.Context, id uint64, owner uuid.UUID) error
	SetImage(ctx context.Context, id uint64, key string) error
	SetBlurHash(ctx context.Context, id uint64, key, hash string) error
}

type recipeRepository struct {
	BaseRepository[models.Recipe]
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{BaseRepository: NewBaseRepository[models.Recipe](db, "recipe"), db: db}
}

func preloadLabels(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	return db.Preload("Tags", byID).Preload("Ingredients", byID)
}

func (r *recipeRepository) GetDetail(ctx context.Context, id uint64, owner uuid.UUID, dest *models.Recipe) error {
	err := conn(ctx, r.db).Scopes(preloadLabels).Where("id = ? AND user_id = ?", id, owner).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound("recipe")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get recipe failed")
	}
	return nil
}

func (r *recipeRepository) List(ctx context.Context, owner uuid.UUID, filter RecipeFilter, page Page) ([]models.Recipe, int64, error) {
	db := conn(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("recipes.user_id = ?", owner)
		// IN (subquery) keeps each recipe once however many labels match
		if len(filter.TagIDs) > 0 {
			q = q.Where("recipes.id IN (?)", db.Table("recipe_tags").Select("recipe_id").Where("tag_id IN ?", filter.TagIDs))
		}
		if len(filter.IngredientIDs) > 0 {
			q = q.Where("recipes.id IN (?)", db.Table("recipe_ingredients").Select("recipe_id").Where("ingredient_id IN ?", filter.IngredientIDs))
		}
		return q
	}

	var total int64
	if err := db.Model(&models.Recipe{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "count recipes failed")
	}

	var out []models.Recipe
	if err := db.Scopes(scope, page.scope, preloadLabels).Order("recipes.id DESC").Find(&out).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "list recipes failed")
	}
	return out, total, nil
}

// UpdateColumns writes only the named columns of recipe. Callers decide which
// columns are writable; user_id is never among them.
func (r *recipeRepository) UpdateColumns(ctx context.Context, recipe *models.Recipe, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	res := conn(ctx, r.db).Model(recipe).Omit(clause.Associations).Select(columns).Updates(recipe)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update recipe failed")
	}
	return nil
}

// DeleteOwned removes the recipe and its join rows. Tags and ingredients stay.
func (r *recipeRepository) DeleteOwned(ctx context.Context, id uint64, owner uuid.UUID) error {
	var recipe models.Recipe
	if err := r.GetOwned(ctx, id, owner, &recipe); err != nil {
		return err
	}
	if err := conn(ctx, r.db).Select("Tags", "Ingredients").Delete(&recipe).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete recipe failed")
	}
	return nil
}

func (r *recipeRepository) SetImage(ctx context.Context, id uint64, key string) error {
	res := conn(ctx, r.db).Model(&models.Recipe{}).Where("id = ?", id).
		Updates(map[string]any{"image": key, "image_blur_hash": ""})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "set recipe image failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound("recipe")
	}
	return nil
}

// SetBlurHash records the placeholder for key. It is a no-op when the recipe
// image has been replaced since the hash was computed.
func (r *recipeRepository) SetBlurHash(ctx context.Context, id uint64, key, hash string) error {
	res := conn(ctx, r.db).Model(&models.Recipe{}).Where("id = ? AND image = ?", id, key).
		Update("image_blur_hash", hash)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "set recipe blurhash failed")
	}
	return nil
}
