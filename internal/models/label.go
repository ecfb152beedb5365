package models

import "github.com/google/uuid"

// Tag is a user-owned label attached to recipes. (user_id, name) is the
// natural key used when recipes are written with tags by name.
type Tag struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tags_user_name" json:"-"`
	Name   string    `gorm:"size:255;not null;uniqueIndex:idx_tags_user_name" json:"name"`
}

func (t Tag) String() string { return t.Name }

// Ingredient has the same shape and rules as Tag.
type Ingredient struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ingredients_user_name" json:"-"`
	Name   string    `gorm:"size:255;not null;uniqueIndex:idx_ingredients_user_name" json:"name"`
}

func (i Ingredient) String() string { return i.Name }

// LabelKind selects which label table and recipe association an operation targets.
type LabelKind string

const (
	KindTag        LabelKind = "tag"
	KindIngredient LabelKind = "ingredient"
)

// Association is the gorm association name on Recipe.
func (k LabelKind) Association() string {
	if k == KindIngredient {
		return "Ingredients"
	}
	return "Tags"
}

// JoinTable and JoinColumn describe the many2many join table for the kind.
func (k LabelKind) JoinTable() string {
	if k == KindIngredient {
		return "recipe_ingredients"
	}
	return "recipe_tags"
}

func (k LabelKind) JoinColumn() string {
	if k == KindIngredient {
		return "ingredient_id"
	}
	return "tag_id"
}

// All returns every model that needs migration, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
	}
}

func (t *Tag) Assign(owner uuid.UUID, name string) { t.UserID, t.Name = owner, name }

func (t *Tag) Rename(name string) { t.Name = name }

func (i *Ingredient) Assign(owner uuid.UUID, name string) { i.UserID, i.Name = owner, name }

func (i *Ingredient) Rename(name string) { i.Name = name }
