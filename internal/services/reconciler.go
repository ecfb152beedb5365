package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/repository"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

// LabelInput describes a tag or ingredient by name inside a recipe write.
type LabelInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Reconciler maps label descriptors onto persisted tags or ingredients and
// links them to a recipe.
type Reconciler interface {
	// Reconcile gets or creates every described label for owner and attaches
	// it to recipe. It never detaches anything.
	Reconcile(ctx context.Context, owner uuid.UUID, recipe *models.Recipe, descriptors []LabelInput, kind models.LabelKind) error
	// ReplaceAssociations makes recipe's labels of kind exactly the described
	// set. A nil descriptors pointer leaves the association untouched.
	ReplaceAssociations(ctx context.Context, owner uuid.UUID, recipe *models.Recipe, descriptors *[]LabelInput, kind models.LabelKind) error
}

type reconciler struct {
	tags        repository.LabelRepository[models.Tag]
	ingredients repository.LabelRepository[models.Ingredient]
}

func NewReconciler(tags repository.LabelRepository[models.Tag], ingredients repository.LabelRepository[models.Ingredient]) Reconciler {
	return &reconciler{tags: tags, ingredients: ingredients}
}

var _ Reconciler = (*reconciler)(nil)

func (r *reconciler) Reconcile(ctx context.Context, owner uuid.UUID, recipe *models.Recipe, descriptors []LabelInput, kind models.LabelKind) error {
	if recipe.UserID != owner {
		return appErr.New(appErr.CodeForbidden, "recipe belongs to another user")
	}
	switch kind {
	case models.KindTag:
		return reconcile(ctx, r.tags, owner, recipe, descriptors)
	case models.KindIngredient:
		return reconcile(ctx, r.ingredients, owner, recipe, descriptors)
	default:
		return appErr.New(appErr.CodeInternal, "unknown label kind "+string(kind))
	}
}

func (r *reconciler) ReplaceAssociations(ctx context.Context, owner uuid.UUID, recipe *models.Recipe, descriptors *[]LabelInput, kind models.LabelKind) error {
	if descriptors == nil {
		return nil
	}
	if recipe.UserID != owner {
		return appErr.New(appErr.CodeForbidden, "recipe belongs to another user")
	}
	var err error
	switch kind {
	case models.KindTag:
		err = r.tags.Clear(ctx, recipe)
	case models.KindIngredient:
		err = r.ingredients.Clear(ctx, recipe)
	default:
		return appErr.New(appErr.CodeInternal, "unknown label kind "+string(kind))
	}
	if err != nil {
		return err
	}
	return r.Reconcile(ctx, owner, recipe, *descriptors, kind)
}

func reconcile[T any](ctx context.Context, repo repository.LabelRepository[T], owner uuid.UUID, recipe *models.Recipe, descriptors []LabelInput) error {
	if len(descriptors) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(descriptors))
	resolved := make([]T, 0, len(descriptors))
	for _, d := range descriptors {
		name := d.Name
		if strings.TrimSpace(name) == "" {
			return appErr.Validation("invalid "+string(repo.Kind()), map[string]string{"name": "is required"})
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		label, err := repo.GetOrCreate(ctx, owner, name)
		if err != nil {
			return err
		}
		resolved = append(resolved, *label)
	}

	if err := repo.Attach(ctx, recipe, resolved); err != nil {
		return err
	}
	logger.L().Debug("labels reconciled",
		zap.String("user_id", owner.String()),
		zap.Uint64("recipe_id", recipe.ID),
		zap.String("kind", string(repo.Kind())),
		zap.Int("count", len(resolved)),
	)
	return nil
}
