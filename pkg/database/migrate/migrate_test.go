package migrate

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"000001_init.down.sql",
		"000001_init.up.sql",
		"000002_teams.down.sql",
		"000002_teams.up.sql",
	}, names)
}

func TestMigrationPairsMatch(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %q", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestInitMigrationDefinesSchema(t *testing.T) {
	data, err := fs.ReadFile(migrations, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	schema := string(data)

	assert.Contains(t, schema, `"Courts"`)
	assert.Contains(t, schema, `"Profiles"`)
	assert.Contains(t, schema, `"Sessions"`)
	// One active session per user is enforced at the schema level too.
	assert.Contains(t, schema, "sessions_one_active_per_user")
	assert.Contains(t, schema, "WHERE check_out_at IS NULL")
}
