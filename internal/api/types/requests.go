package types

import (
	"github.com/shopspring/decimal"

	"github.com/recipe-studio/catalogue/internal/services"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5"`
	Name     string `json:"name" validate:"required,max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateMeRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Password *string `json:"password" validate:"omitempty,min=5"`
}

// RecipeRequest is the body of POST and PUT /recipes. Unknown keys such as
// "user" are ignored.
type RecipeRequest struct {
	Title       string                 `json:"title" validate:"required,max=255"`
	TimeMinutes *int                   `json:"time_minutes" validate:"required,gte=0"`
	Price       *decimal.Decimal       `json:"price" validate:"required,money" swaggertype:"string"`
	Link        *string                `json:"link" validate:"omitempty,url,max=255"`
	Description *string                `json:"description"`
	Tags        *[]services.LabelInput `json:"tags" validate:"omitempty,dive"`
	Ingredients *[]services.LabelInput `json:"ingredients" validate:"omitempty,dive"`
}

// RecipePatchRequest is the body of PATCH /recipes/{id}; every field is optional.
type RecipePatchRequest struct {
	Title       *string                `json:"title" validate:"omitempty,max=255"`
	TimeMinutes *int                   `json:"time_minutes" validate:"omitempty,gte=0"`
	Price       *decimal.Decimal       `json:"price" validate:"omitempty,money" swaggertype:"string"`
	Link        *string                `json:"link" validate:"omitempty,url,max=255"`
	Description *string                `json:"description"`
	Tags        *[]services.LabelInput `json:"tags" validate:"omitempty,dive"`
	Ingredients *[]services.LabelInput `json:"ingredients" validate:"omitempty,dive"`
}

type LabelRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (r *RecipeRequest) CreateInput() *services.CreateRecipeInput {
	in := &services.CreateRecipeInput{
		Title:       r.Title,
		TimeMinutes: *r.TimeMinutes,
		Price:       *r.Price,
	}
	if r.Link != nil {
		in.Link = *r.Link
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.Tags != nil {
		in.Tags = *r.Tags
	}
	if r.Ingredients != nil {
		in.Ingredients = *r.Ingredients
	}
	return in
}

// UpdateInput maps a full update. Optional fields left out keep their
// stored values.
func (r *RecipeRequest) UpdateInput() *services.UpdateRecipeInput {
	return &services.UpdateRecipeInput{
		Title:       &r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Description: r.Description,
		Tags:        r.Tags,
		Ingredients: r.Ingredients,
	}
}

func (r *RecipePatchRequest) UpdateInput() *services.UpdateRecipeInput {
	return &services.UpdateRecipeInput{
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Description: r.Description,
		Tags:        r.Tags,
		Ingredients: r.Ingredients,
	}
}
