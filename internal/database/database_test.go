package database_test

import (
	"testing"

	"academy/internal/database"
	"academy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTestMigratesAllModels(t *testing.T) {
	db := database.OpenTest(t)
	require.NoError(t, database.Ping(db))

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m), "%T table missing", m)
	}
	assert.True(t, db.Migrator().HasTable("user_progress"))
}
