package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appErr "github.com/recipe-studio/catalogue/pkg/errors"
)

// Recipe is a user-owned recipe. UserID is set once at creation.
type Recipe struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"-"`
	Title         string          `gorm:"size:255;not null" json:"title"`
	TimeMinutes   int             `gorm:"not null" json:"time_minutes"`
	Price         decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"price" swaggertype:"string"`
	Link          string          `gorm:"size:255" json:"link"`
	Description   string          `gorm:"type:text" json:"description"`
	Image         string          `gorm:"size:512" json:"-"`
	ImageBlurHash string          `gorm:"size:64" json:"-"`
	Tags          []Tag           `gorm:"many2many:recipe_tags;" json:"tags"`
	Ingredients   []Ingredient    `gorm:"many2many:recipe_ingredients;" json:"ingredients"`
	CreatedAt     time.Time       `json:"-"`
	UpdatedAt     time.Time       `json:"-"`
}

func (r Recipe) String() string { return r.Title }

var maxPrice = decimal.NewFromInt(1000)

// Validate checks the column-level invariants of a recipe: numeric(5,2)
// price range, non-negative duration and field lengths.
func (r *Recipe) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.Title) == "" {
		fields["title"] = "is required"
	} else if utf8.RuneCountInString(r.Title) > 255 {
		fields["title"] = "must not exceed 255 characters"
	}
	if r.TimeMinutes < 0 {
		fields["time_minutes"] = "must be greater than or equal to 0"
	}
	switch {
	case r.Price.IsNegative():
		fields["price"] = "must be greater than or equal to 0"
	case r.Price.GreaterThanOrEqual(maxPrice):
		fields["price"] = "must have at most 5 digits"
	case !r.Price.Equal(r.Price.Round(2)):
		fields["price"] = "must have at most 2 decimal places"
	}
	if utf8.RuneCountInString(r.Link) > 255 {
		fields["link"] = "must not exceed 255 characters"
	}
	if len(fields) > 0 {
		return appErr.Validation("invalid recipe", fields)
	}
	return nil
}
