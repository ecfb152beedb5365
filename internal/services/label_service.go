package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/repository"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

// LabelService manages one kind of recipe label (tags or ingredients).
type LabelService[T any] interface {
	ListLabels(ctx context.Context, userID uuid.UUID, filters *LabelFilters) ([]T, int64, error)
	GetLabel(ctx context.Context, labelID uint64, userID uuid.UUID) (*T, error)
	// CreateLabel returns the existing label with this name, or a new one.
	// created reports which happened.
	CreateLabel(ctx context.Context, userID uuid.UUID, name string) (label *T, created bool, err error)
	RenameLabel(ctx context.Context, labelID uint64, userID uuid.UUID, name string) (*T, error)
	DeleteLabel(ctx context.Context, labelID uint64, userID uuid.UUID) error
}

type LabelFilters struct {
	AssignedOnly bool
	Page         int
	PageSize     int
}

type labelService[T any] struct {
	repo repository.LabelRepository[T]
}

func NewLabelService[T any](repo repository.LabelRepository[T]) LabelService[T] {
	return &labelService[T]{repo: repo}
}

func (s *labelService[T]) kind() string { return string(s.repo.Kind()) }

func (s *labelService[T]) ListLabels(ctx context.Context, userID uuid.UUID, filters *LabelFilters) ([]T, int64, error) {
	logger.L().Debug("list labels", zap.String("kind", s.kind()), zap.String("user_id", userID.String()))
	if filters == nil {
		filters = &LabelFilters{}
	}
	return s.repo.List(ctx, userID,
		repository.LabelFilter{AssignedOnly: filters.AssignedOnly},
		repository.Page{Number: filters.Page, Size: filters.PageSize},
	)
}

func (s *labelService[T]) GetLabel(ctx context.Context, labelID uint64, userID uuid.UUID) (*T, error) {
	var out T
	if err := s.repo.GetOwned(ctx, labelID, userID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *labelService[T]) CreateLabel(ctx context.Context, userID uuid.UUID, name string) (*T, bool, error) {
	if err := validateLabelName(name); err != nil {
		return nil, false, err
	}
	var existing T
	err := s.repo.FindByName(ctx, userID, name, &existing)
	if err == nil {
		return &existing, false, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, false, err
	}
	label, err := s.repo.GetOrCreate(ctx, userID, name)
	if err != nil {
		return nil, false, err
	}
	logger.L().Info("label created", zap.String("kind", s.kind()), zap.String("user_id", userID.String()), zap.String("name", name))
	return label, true, nil
}

func (s *labelService[T]) RenameLabel(ctx context.Context, labelID uint64, userID uuid.UUID, name string) (*T, error) {
	logger.L().Info("rename label", zap.String("kind", s.kind()), zap.Uint64("label_id", labelID), zap.String("user_id", userID.String()))
	if err := validateLabelName(name); err != nil {
		return nil, err
	}
	var label T
	if err := s.repo.GetOwned(ctx, labelID, userID, &label); err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, &label, name); err != nil {
		return nil, err
	}
	return &label, nil
}

func (s *labelService[T]) DeleteLabel(ctx context.Context, labelID uint64, userID uuid.UUID) error {
	logger.L().Info("delete label", zap.String("kind", s.kind()), zap.Uint64("label_id", labelID), zap.String("user_id", userID.String()))
	return s.repo.DeleteOwned(ctx, labelID, userID)
}

func validateLabelName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return appErr.Validation("invalid name", map[string]string{"name": "is required"})
	case len([]rune(name)) > 255:
		return appErr.Validation("invalid name", map[string]string{"name": "must not exceed 255 characters"})
	}
	return nil
}
