package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfork/modelfork/pkg/database"
	"github.com/modelfork/modelfork/test/util"
)

func TestMigrationsCreateSchema(t *testing.T) {
	db := util.SetupTestDatabase(t)
	ctx := context.Background()

	for _, table := range []string{"chats", "messages"} {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1 AND table_schema = current_schema()
			)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "expected table %s to exist", table)
	}

	// migrations are idempotent
	require.NoError(t, database.RunMigrations(db, "test"))
}

func TestHealth(t *testing.T) {
	db := util.SetupTestDatabase(t)

	status, err := database.Health(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.GreaterOrEqual(t, status.OpenConnections, 1)
}
