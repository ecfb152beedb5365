package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	appErr "github.com/recipe-studio/catalogue/pkg/errors"
)

// BaseRepository defines common CRUD operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T) error
	GetOwned(ctx context.Context, id any, owner uuid.UUID, dest *T) error
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db     *gorm.DB
	entity string
}

func NewBaseRepository[T any](db *gorm.DB, entity string) BaseRepository[T] {
	return &baseRepository[T]{db: db, entity: entity}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := conn(ctx, r.db).Create(obj).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return appErr.Wrap(err, appErr.CodeConflict, r.entity+" already exists")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "create "+r.entity+" failed")
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	return r.first(conn(ctx, r.db).Where("id = ?", id), dest)
}

// GetOwned loads an entity only if it belongs to owner. A foreign entity is
// reported exactly like a missing one.
func (r *baseRepository[T]) GetOwned(ctx context.Context, id any, owner uuid.UUID, dest *T) error {
	return r.first(conn(ctx, r.db).Where("id = ? AND user_id = ?", id, owner), dest)
}

func (r *baseRepository[T]) first(q *gorm.DB, dest *T) error {
	if err := q.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound(r.entity)
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get "+r.entity+" failed")
	}
	return nil
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := conn(ctx, r.db).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete "+r.entity+" failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound(r.entity)
	}
	return nil
}

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Size   int
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	if p.Size <= 0 {
		return db
	}
	n := p.Number
	if n <= 0 {
		n = 1
	}
	return db.Limit(p.Size).Offset((n - 1) * p.Size)
}
