package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"postgres://u:p@db:5432/estate":   "pgx5://u:p@db:5432/estate",
		"postgresql://u:p@db:5432/estate": "pgx5://u:p@db:5432/estate",
		"pgx5://u:p@db:5432/estate":       "pgx5://u:p@db:5432/estate",
	}
	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in), in)
	}
}

func TestMigrationsArePaired(t *testing.T) {
	t.Parallel()

	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestMigrateRejectsBadInput(t *testing.T) {
	t.Parallel()

	require.Error(t, Migrate("", DirectionUp))
	require.Error(t, Migrate("postgres://localhost/estate", "sideways"))
}
