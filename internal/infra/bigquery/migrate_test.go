package bigquery

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_consolidation_runs.sql", true, 1, "consolidation_runs"},
		{"0012_add_index.sql", true, 12, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := ParseMigrationFilename(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (x INT64);")},
		"0001_a.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")},
		"README.md":  {Data: []byte("ignored")},
	}

	migrations, err := ReadMigrations(fsys, Tables{Project: "p", Dataset: "d"})
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "a", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE `p.d.a` (x INT64);", migrations[0].SQL)
	assert.Len(t, migrations[0].Checksum, 64)

	other, err := ReadMigrations(fsys, Tables{Project: "q", Dataset: "e"})
	require.NoError(t, err)
	assert.Equal(t, migrations[0].Checksum, other[0].Checksum, "checksum ignores placeholders")
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("x")},
		"0001_b.sql": {Data: []byte("y")},
	}
	_, err := ReadMigrations(fsys, Tables{})
	assert.ErrorContains(t, err, "version 0001")
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := ReadMigrations(Migrations(), Tables{Project: "p", Dataset: "finance"})
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	for i, table := range []string{runsTable, recordsTable, allocationsTable} {
		assert.Equal(t, i+1, migrations[i].Version)
		assert.Contains(t, migrations[i].SQL, "`p.finance."+table+"`")
		assert.NotContains(t, migrations[i].SQL, "{{")
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Filename: "0001_a.sql", Checksum: "aaa"},
		{Version: 2, Filename: "0002_b.sql", Checksum: "bbb"},
	}

	pending, err := PendingMigrations(all, []AppliedMigration{{Version: 1, Checksum: "aaa"}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	_, err = PendingMigrations(all, []AppliedMigration{{Version: 1, Checksum: "changed"}})
	assert.ErrorContains(t, err, "0001_a.sql changed")
}
