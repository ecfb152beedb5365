package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/recipe-studio/catalogue/internal/models"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

func NewTokenResponse(token string, ttl time.Duration, u *models.User) TokenResponse {
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl / time.Second),
		User:        NewUserResponse(u),
	}
}

type LabelResponse struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func NewTagResponse(t models.Tag) LabelResponse { return LabelResponse{ID: t.ID, Name: t.Name} }

func NewIngredientResponse(i models.Ingredient) LabelResponse {
	return LabelResponse{ID: i.ID, Name: i.Name}
}

type RecipeResponse struct {
	ID          uint64          `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       string          `json:"price"`
	Link        string          `json:"link"`
	Tags        []LabelResponse `json:"tags"`
	Ingredients []LabelResponse `json:"ingredients"`
}

// RecipeDetailResponse adds the fields only shown on a single recipe.
type RecipeDetailResponse struct {
	RecipeResponse
	Description string `json:"description"`
	Image       string `json:"image"`
}

func NewRecipeResponse(r *models.Recipe) RecipeResponse {
	out := RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price.StringFixed(2),
		Link:        r.Link,
		Tags:        make([]LabelResponse, 0, len(r.Tags)),
		Ingredients: make([]LabelResponse, 0, len(r.Ingredients)),
	}
	for _, t := range r.Tags {
		out.Tags = append(out.Tags, NewTagResponse(t))
	}
	for _, i := range r.Ingredients {
		out.Ingredients = append(out.Ingredients, NewIngredientResponse(i))
	}
	return out
}

// NewRecipeDetailResponse takes the already resolved image URL.
func NewRecipeDetailResponse(r *models.Recipe, imageURL string) RecipeDetailResponse {
	return RecipeDetailResponse{
		RecipeResponse: NewRecipeResponse(r),
		Description:    r.Description,
		Image:          imageURL,
	}
}

type ImageResponse struct {
	ID    uint64 `json:"id"`
	Image string `json:"image"`
}
