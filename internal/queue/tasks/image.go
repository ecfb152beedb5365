package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/media"
	"github.com/recipe-studio/catalogue/internal/storage"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

// TypeImageBlurHash computes the placeholder hash of a freshly uploaded recipe image.
const TypeImageBlurHash = "recipe:image:blurhash"

// ImagePayload is the task payload for image tasks.
type ImagePayload struct {
	RecipeID uint64 `json:"recipe_id"`
	Key      string `json:"key"`
}

func NewImageBlurHashTask(recipeID uint64, key string) (*asynq.Task, error) {
	pb, err := json.Marshal(ImagePayload{RecipeID: recipeID, Key: key})
	if err != nil {
		return nil, fmt.Errorf("marshal image payload: %w", err)
	}
	return asynq.NewTask(TypeImageBlurHash, pb, asynq.MaxRetry(5)), nil
}

// BlurHashRecorder persists a computed hash for the recipe image stored under key.
type BlurHashRecorder interface {
	SetBlurHash(ctx context.Context, recipeID uint64, key, hash string) error
}

// ImageTaskHandler handles image post-processing tasks.
type ImageTaskHandler struct {
	store   storage.Store
	recipes BlurHashRecorder
}

func NewImageTaskHandler(store storage.Store, recipes BlurHashRecorder) *ImageTaskHandler {
	return &ImageTaskHandler{store: store, recipes: recipes}
}

// Register mounts the handler's task types on mux.
func (h *ImageTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeImageBlurHash, h.HandleBlurHash)
}

func (h *ImageTaskHandler) HandleBlurHash(ctx context.Context, t *asynq.Task) error {
	var p ImagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid image task payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if p.RecipeID == 0 || p.Key == "" {
		logger.L().Error("incomplete image task payload", zap.Uint64("recipe_id", p.RecipeID))
		return fmt.Errorf("%w: missing recipe id or key", asynq.SkipRetry)
	}

	logger.L().Info("handling blurhash task", zap.Uint64("recipe_id", p.RecipeID), zap.String("key", p.Key))

	data, err := h.store.Get(ctx, p.Key)
	if errors.Is(err, storage.ErrNotFound) {
		// replaced by a newer upload before we ran
		logger.L().Info("image gone, skipping blurhash", zap.Uint64("recipe_id", p.RecipeID), zap.String("key", p.Key))
		return nil
	}
	if err != nil {
		logger.L().Error("load image failed", zap.Uint64("recipe_id", p.RecipeID), zap.Error(err))
		return err
	}

	hash, err := media.BlurHash(data)
	if err != nil {
		logger.L().Error("compute blurhash failed", zap.Uint64("recipe_id", p.RecipeID), zap.Error(err))
		if errors.Is(err, media.ErrNotImage) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}

	if err := h.recipes.SetBlurHash(ctx, p.RecipeID, p.Key, hash); err != nil {
		logger.L().Error("save blurhash failed", zap.Uint64("recipe_id", p.RecipeID), zap.Error(err))
		return err
	}

	logger.L().Info("blurhash stored", zap.Uint64("recipe_id", p.RecipeID), zap.String("hash", hash))
	return nil
}
