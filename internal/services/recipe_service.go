package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/repository"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

type RecipeService interface {
	CreateRecipe(ctx context.Context, userID uuid.UUID, input *CreateRecipeInput) (*models.Recipe, error)
	GetRecipe(ctx context.Context, recipeID uint64, userID uuid.UUID) (*models.Recipe, error)
	ListRecipes(ctx context.Context, userID uuid.UUID, filters *RecipeFilters) ([]models.Recipe, int64, error)
	UpdateRecipe(ctx context.Context, recipeID uint64, userID uuid.UUID, updates *UpdateRecipeInput) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, recipeID uint64, userID uuid.UUID) error
}

type CreateRecipeInput struct {
	Title       string
	TimeMinutes int
	Price       decimal.Decimal
	Link        string
	Description string
	Tags        []LabelInput
	Ingredients []LabelInput
}

// UpdateRecipeInput lists the writable recipe fields. Nil fields are left
// unchanged; a non-nil Tags or Ingredients replaces that association.
type UpdateRecipeInput struct {
	Title       *string
	TimeMinutes *int
	Price       *decimal.Decimal
	Link        *string
	Description *string
	Tags        *[]LabelInput
	Ingredients *[]LabelInput
}

type RecipeFilters struct {
	TagIDs        []uint64
	IngredientIDs []uint64
	Page          int
	PageSize      int
}

type recipeService struct {
	tx         repository.Transactor
	recipeRepo repository.RecipeRepository
	reconciler Reconciler
}

func NewRecipeService(tx repository.Transactor, recipeRepo repository.RecipeRepository, reconciler Reconciler) RecipeService {
	return &recipeService{tx: tx, recipeRepo: recipeRepo, reconciler: reconciler}
}

var _ RecipeService = (*recipeService)(nil)

// CreateRecipe stores the recipe and its labels in one transaction.
func (s *recipeService) CreateRecipe(ctx context.Context, userID uuid.UUID, input *CreateRecipeInput) (*models.Recipe, error) {
	logger.L().Info("create recipe called", zap.String("user_id", userID.String()), zap.String("title", input.Title))

	r := &models.Recipe{
		UserID:      userID,
		Title:       input.Title,
		TimeMinutes: input.TimeMinutes,
		Price:       input.Price,
		Link:        input.Link,
		Description: input.Description,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var out models.Recipe
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.recipeRepo.Create(ctx, r); err != nil {
			return err
		}
		if err := s.reconciler.Reconcile(ctx, userID, r, input.Tags, models.KindTag); err != nil {
			return err
		}
		if err := s.reconciler.Reconcile(ctx, userID, r, input.Ingredients, models.KindIngredient); err != nil {
			return err
		}
		return s.recipeRepo.GetDetail(ctx, r.ID, userID, &out)
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("recipe created", zap.Uint64("recipe_id", out.ID), zap.String("user_id", userID.String()))
	return &out, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, recipeID uint64, userID uuid.UUID) (*models.Recipe, error) {
	logger.L().Debug("get recipe", zap.Uint64("recipe_id", recipeID), zap.String("user_id", userID.String()))
	var r models.Recipe
	if err := s.recipeRepo.GetDetail(ctx, recipeID, userID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *recipeService) ListRecipes(ctx context.Context, userID uuid.UUID, filters *RecipeFilters) ([]models.Recipe, int64, error) {
	logger.L().Debug("list recipes", zap.String("user_id", userID.String()))
	if filters == nil {
		filters = &RecipeFilters{}
	}
	return s.recipeRepo.List(ctx, userID,
		repository.RecipeFilter{TagIDs: filters.TagIDs, IngredientIDs: filters.IngredientIDs},
		repository.Page{Number: filters.Page, Size: filters.PageSize},
	)
}

// UpdateRecipe applies a full or partial update. The owner is never
// reassigned and association replacement shares the row update's transaction.
func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID uint64, userID uuid.UUID, updates *UpdateRecipeInput) (*models.Recipe, error) {
	logger.L().Info("update recipe", zap.Uint64("recipe_id", recipeID), zap.String("user_id", userID.String()))

	var out models.Recipe
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var r models.Recipe
		if err := s.recipeRepo.GetOwned(ctx, recipeID, userID, &r); err != nil {
			return err
		}
		columns := updates.apply(&r)
		if len(columns) > 0 {
			if err := r.Validate(); err != nil {
				return err
			}
			if err := s.recipeRepo.UpdateColumns(ctx, &r, columns...); err != nil {
				return err
			}
		}
		if err := s.reconciler.ReplaceAssociations(ctx, userID, &r, updates.Tags, models.KindTag); err != nil {
			return err
		}
		if err := s.reconciler.ReplaceAssociations(ctx, userID, &r, updates.Ingredients, models.KindIngredient); err != nil {
			return err
		}
		return s.recipeRepo.GetDetail(ctx, r.ID, userID, &out)
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("recipe updated", zap.Uint64("recipe_id", recipeID), zap.String("user_id", userID.String()))
	return &out, nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID uint64, userID uuid.UUID) error {
	logger.L().Info("delete recipe", zap.Uint64("recipe_id", recipeID), zap.String("user_id", userID.String()))
	if err := s.recipeRepo.DeleteOwned(ctx, recipeID, userID); err != nil {
		return err
	}
	logger.L().Info("recipe deleted", zap.Uint64("recipe_id", recipeID), zap.String("user_id", userID.String()))
	return nil
}

// apply copies the set fields onto r and returns the columns to persist.
func (u *UpdateRecipeInput) apply(r *models.Recipe) []string {
	var columns []string
	if u.Title != nil {
		r.Title = *u.Title
		columns = append(columns, "title")
	}
	if u.TimeMinutes != nil {
		r.TimeMinutes = *u.TimeMinutes
		columns = append(columns, "time_minutes")
	}
	if u.Price != nil {
		r.Price = *u.Price
		columns = append(columns, "price")
	}
	if u.Link != nil {
		r.Link = *u.Link
		columns = append(columns, "link")
	}
	if u.Description != nil {
		r.Description = *u.Description
		columns = append(columns, "description")
	}
	return columns
}
