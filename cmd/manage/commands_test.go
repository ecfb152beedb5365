package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/testutil"
	"github.com/recipe-studio/catalogue/pkg/database"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	os.Exit(m.Run())
}

func TestCreateSuperuser(t *testing.T) {
	db := testutil.NewDB(t)

	u, err := createSuperuser(context.Background(), db, "admin@EXAMPLE.com", "secret123", "Admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.True(t, u.IsStaff)
	assert.True(t, u.IsSuperuser)

	_, err = createSuperuser(context.Background(), db, "admin@example.com", "secret123", "Admin")
	assert.Error(t, err)
}

func TestMigrateAndCreateSuperuserCommands(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "manage.db")
	var out bytes.Buffer

	root := rootCmd()
	root.Writer = &out
	require.NoError(t, root.Run(context.Background(), []string{"manage", "--database-url", dsn, "migrate"}))
	assert.Contains(t, out.String(), "migrations completed")

	root = rootCmd()
	root.Writer = &out
	require.NoError(t, root.Run(context.Background(), []string{
		"manage", "--database-url", dsn, "createsuperuser", "--email", "root@example.com", "--password", "secret123",
	}))
	assert.Contains(t, out.String(), "superuser root@example.com created")

	logger.Replace(zap.NewNop())
	db, err := database.Open(context.Background(), dsn, database.Options{})
	require.NoError(t, err)
	var u models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&u).Error)
	assert.True(t, u.IsSuperuser)
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
