// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/pkg/database"
)

// NewDB returns a migrated, isolated in-memory SQLite database.
// The global logger must be initialized (see logger.Replace).
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.OpenSQLite(dsn, database.Options{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active user with the given email.
func CreateUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", Name: "Test User", IsActive: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateRecipe inserts a recipe with sample defaults overridden by mutate.
func CreateRecipe(t testing.TB, db *gorm.DB, owner *models.User, mutate ...func(*models.Recipe)) *models.Recipe {
	t.Helper()
	r := &models.Recipe{
		UserID:      owner.ID,
		Title:       "Sample recipe title",
		TimeMinutes: 17,
		Price:       decimal.RequireFromString("5.25"),
		Description: "Sample recipe description",
		Link:        "http://example.com/recipe.pdf",
	}
	for _, m := range mutate {
		m(r)
	}
	if err := db.Omit("Tags", "Ingredients").Create(r).Error; err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	return r
}

// CreateTag inserts a tag owned by owner.
func CreateTag(t testing.TB, db *gorm.DB, owner *models.User, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{UserID: owner.ID, Name: name}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	return tag
}

// CreateIngredient inserts an ingredient owned by owner.
func CreateIngredient(t testing.TB, db *gorm.DB, owner *models.User, name string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{UserID: owner.ID, Name: name}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("create ingredient: %v", err)
	}
	return ing
}

// Link attaches existing labels to a recipe.
func Link(t testing.TB, db *gorm.DB, recipe *models.Recipe, labels ...any) {
	t.Helper()
	for _, l := range labels {
		assoc := "Tags"
		if _, ok := l.(*models.Ingredient); ok {
			assoc = "Ingredients"
		}
		if err := db.Model(recipe).Association(assoc).Append(l); err != nil {
			t.Fatalf("link %s: %v", assoc, err)
		}
	}
}
