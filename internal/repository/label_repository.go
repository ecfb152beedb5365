package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recipe-studio/catalogue/internal/models"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

// Label is implemented by *models.Tag and *models.Ingredient.
type Label[T any] interface {
	*T
	Assign(owner uuid.UUID, name string)
	Rename(name string)
}

// LabelFilter narrows a tag or ingredient listing.
type LabelFilter struct {
	// AssignedOnly keeps labels attached to at least one of the owner's recipes.
	AssignedOnly bool
}

// LabelRepository stores one kind of recipe label and its recipe associations.
type LabelRepository[T any] interface {
	BaseRepository[T]
	Kind() models.LabelKind
	FindByName(ctx context.Context, owner uuid.UUID, name string, dest *T) error
	GetOrCreate(ctx context.Context, owner uuid.UUID, name string) (*T, error)
	List(ctx context.Context, owner uuid.UUID, filter LabelFilter, page Page) ([]T, int64, error)
	Rename(ctx context.Context, label *T, name string) error
	DeleteOwned(ctx context.Context, id uint64, owner uuid.UUID) error
	Attach(ctx context.Context, recipe *models.Recipe, labels []T) error
	Clear(ctx context.Context, recipe *models.Recipe) error
}

type labelRepository[T any, PT Label[T]] struct {
	BaseRepository[T]
	db   *gorm.DB
	kind models.LabelKind
}

func NewTagRepository(db *gorm.DB) LabelRepository[models.Tag] {
	return &labelRepository[models.Tag, *models.Tag]{
		BaseRepository: NewBaseRepository[models.Tag](db, "tag"),
		db:             db,
		kind:           models.KindTag,
	}
}

func NewIngredientRepository(db *gorm.DB) LabelRepository[models.Ingredient] {
	return &labelRepository[models.Ingredient, *models.Ingredient]{
		BaseRepository: NewBaseRepository[models.Ingredient](db, "ingredient"),
		db:             db,
		kind:           models.KindIngredient,
	}
}

func (r *labelRepository[T, PT]) Kind() models.LabelKind { return r.kind }

func (r *labelRepository[T, PT]) FindByName(ctx context.Context, owner uuid.UUID, name string, dest *T) error {
	if err := conn(ctx, r.db).Where("user_id = ? AND name = ?", owner, name).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound(string(r.kind))
		}
		return appErr.Wrap(err, appErr.CodeInternal, "find "+string(r.kind)+" failed")
	}
	return nil
}

// GetOrCreate returns the owner's label with this name, creating it when
// absent. The insert runs in a savepoint: if a concurrent writer created the
// same (owner, name) first, the unique index rejects ours and the winner's
// row is returned instead.
func (r *labelRepository[T, PT]) GetOrCreate(ctx context.Context, owner uuid.UUID, name string) (*T, error) {
	var existing T
	err := r.FindByName(ctx, owner, name, &existing)
	if err == nil {
		return &existing, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	var created T
	PT(&created).Assign(owner, name)
	createErr := conn(ctx, r.db).Transaction(func(sp *gorm.DB) error {
		return sp.Create(&created).Error
	})
	if createErr == nil {
		return &created, nil
	}

	if err := r.FindByName(ctx, owner, name, &existing); err == nil {
		logger.L().Debug("label created concurrently, reusing",
			zap.String("kind", string(r.kind)),
			zap.String("user_id", owner.String()),
			zap.Bool("duplicate_key", errors.Is(createErr, gorm.ErrDuplicatedKey)),
		)
		return &existing, nil
	}
	return nil, appErr.Wrap(createErr, appErr.CodeInternal, "create "+string(r.kind)+" failed")
}

func (r *labelRepository[T, PT]) List(ctx context.Context, owner uuid.UUID, filter LabelFilter, page Page) ([]T, int64, error) {
	db := conn(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("user_id = ?", owner)
		if filter.AssignedOnly {
			// IN (subquery) yields each label once even when it is on many recipes
			assigned := db.Table(r.kind.JoinTable()).
				Select(r.kind.JoinTable()+"."+r.kind.JoinColumn()).
				Joins("JOIN recipes ON recipes.id = "+r.kind.JoinTable()+".recipe_id").
				Where("recipes.user_id = ?", owner)
			q = q.Where("id IN (?)", assigned)
		}
		return q
	}

	var zero T
	var total int64
	if err := db.Model(&zero).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "count "+string(r.kind)+"s failed")
	}

	var out []T
	if err := db.Scopes(scope, page.scope).Order("name DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "list "+string(r.kind)+"s failed")
	}
	return out, total, nil
}

func (r *labelRepository[T, PT]) Rename(ctx context.Context, label *T, name string) error {
	PT(label).Rename(name)
	err := conn(ctx, r.db).Model(label).Update("name", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return appErr.Wrap(err, appErr.CodeConflict, string(r.kind)+" with this name already exists").
				WithField("name", "already in use")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "rename "+string(r.kind)+" failed")
	}
	return nil
}

// DeleteOwned removes the label and detaches it from every recipe.
func (r *labelRepository[T, PT]) DeleteOwned(ctx context.Context, id uint64, owner uuid.UUID) error {
	var label T
	if err := r.GetOwned(ctx, id, owner, &label); err != nil {
		return err
	}
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+r.kind.JoinTable()+" WHERE "+r.kind.JoinColumn()+" = ?", id).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "detach "+string(r.kind)+" failed")
		}
		if err := tx.Delete(&label).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "delete "+string(r.kind)+" failed")
		}
		return nil
	})
}

// Attach links labels to recipe. Already linked labels are skipped.
func (r *labelRepository[T, PT]) Attach(ctx context.Context, recipe *models.Recipe, labels []T) error {
	if len(labels) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Model(recipe).Association(r.kind.Association()).Append(labels); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "attach "+string(r.kind)+"s failed")
	}
	return nil
}

// Clear unlinks every label of this kind from recipe without deleting any.
func (r *labelRepository[T, PT]) Clear(ctx context.Context, recipe *models.Recipe) error {
	if err := conn(ctx, r.db).Model(recipe).Association(r.kind.Association()).Clear(); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "clear "+string(r.kind)+"s failed")
	}
	return nil
}
