package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/testutil"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
)

func TestLabelServiceLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "user@example.com")
	other := testutil.CreateUser(t, f.db, "other@example.com")
	svc := NewLabelService(f.tags)

	tag, created, err := svc.CreateLabel(ctx, user.ID, "Dessert")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.CreateLabel(ctx, user.ID, "Dessert")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, tag.ID, again.ID)

	renamed, err := svc.RenameLabel(ctx, tag.ID, user.ID, "Pudding")
	require.NoError(t, err)
	assert.Equal(t, "Pudding", renamed.Name)

	_, err = svc.RenameLabel(ctx, tag.ID, other.ID, "Hijacked")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, err = svc.RenameLabel(ctx, tag.ID, user.ID, "")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	got, err := svc.GetLabel(ctx, tag.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pudding", got.Name)

	require.NoError(t, svc.DeleteLabel(ctx, tag.ID, user.ID))
	_, err = svc.GetLabel(ctx, tag.ID, user.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestLabelServiceListAssignedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "user@example.com")
	svc := NewLabelService(f.ingredients)

	apples := testutil.CreateIngredient(t, f.db, user, "Apples")
	testutil.CreateIngredient(t, f.db, user, "Turkey")
	recipe := testutil.CreateRecipe(t, f.db, user)
	testutil.Link(t, f.db, recipe, apples)

	all, total, err := svc.ListLabels(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Turkey", all[0].Name)

	assigned, _, err := svc.ListLabels(ctx, user.ID, &LabelFilters{AssignedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []models.Ingredient{*apples}, assigned)
}
