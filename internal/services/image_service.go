package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/media"
	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/queue/tasks"
	"github.com/recipe-studio/catalogue/internal/repository"
	"github.com/recipe-studio/catalogue/internal/storage"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/logger"
	"github.com/recipe-studio/catalogue/pkg/utils"
)

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ImageService interface {
	// UploadImage stores data as the recipe's image, replacing any previous one.
	UploadImage(ctx context.Context, recipeID uint64, userID uuid.UUID, data []byte) (*models.Recipe, error)
	// ImageURL resolves a stored image key; an empty key yields "".
	ImageURL(ctx context.Context, key string) (string, error)
}

type imageService struct {
	recipeRepo repository.RecipeRepository
	store      storage.Store
	queue      TaskEnqueuer
}

// NewImageService wires image uploads. queue may be nil, in which case no
// post-processing is scheduled.
func NewImageService(recipeRepo repository.RecipeRepository, store storage.Store, queue TaskEnqueuer) ImageService {
	return &imageService{recipeRepo: recipeRepo, store: store, queue: queue}
}

var _ ImageService = (*imageService)(nil)

// imageKey is content addressed so re-uploads never overwrite a file a
// client may still be fetching.
func imageKey(recipeID uint64, data []byte, info media.Info) string {
	return fmt.Sprintf("uploads/recipe/%d-%s.%s", recipeID, utils.ShortDigest(data, 12), info.Ext())
}

func (s *imageService) UploadImage(ctx context.Context, recipeID uint64, userID uuid.UUID, data []byte) (*models.Recipe, error) {
	logger.L().Info("upload recipe image", zap.Uint64("recipe_id", recipeID), zap.String("user_id", userID.String()), zap.Int("size", len(data)))

	var r models.Recipe
	if err := s.recipeRepo.GetOwned(ctx, recipeID, userID, &r); err != nil {
		return nil, err
	}

	info, err := media.Sniff(data)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "upload a valid image").
			WithField("image", "upload a valid image; the file was either not an image or corrupted")
	}

	key := imageKey(r.ID, data, info)
	if err := s.store.Put(ctx, key, data, info.ContentType()); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "store image failed")
	}
	if err := s.recipeRepo.SetImage(ctx, r.ID, key); err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, err
	}

	previous := r.Image
	r.Image, r.ImageBlurHash = key, ""
	if previous != "" && previous != key {
		if err := s.store.Delete(ctx, previous); err != nil {
			logger.L().Warn("delete previous image failed", zap.Uint64("recipe_id", r.ID), zap.String("key", previous), zap.Error(err))
		}
	}

	s.enqueueBlurHash(ctx, r.ID, key)

	logger.L().Info("recipe image stored", zap.Uint64("recipe_id", r.ID), zap.String("key", key), zap.String("format", info.Format))
	return &r, nil
}

const enqueueTimeout = 2 * time.Second

func (s *imageService) enqueueBlurHash(ctx context.Context, recipeID uint64, key string) {
	if s.queue == nil {
		logger.L().Warn("asynq client not configured, skipping blurhash enqueue", zap.Uint64("recipe_id", recipeID))
		return
	}
	task, err := tasks.NewImageBlurHashTask(recipeID, key)
	if err != nil {
		logger.L().Error("build blurhash task failed", zap.Uint64("recipe_id", recipeID), zap.Error(err))
		return
	}
	// the upload has already succeeded; an unreachable broker must not stall the response
	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		logger.L().Error("enqueue blurhash task failed", zap.Uint64("recipe_id", recipeID), zap.Error(err))
	}
}

func (s *imageService) ImageURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", appErr.Wrap(err, appErr.CodeInternal, "resolve image url failed")
	}
	return url, nil
}
