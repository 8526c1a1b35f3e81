package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"plain path", "pos.db", "file:pos.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"existing query", "file:pos.db?cache=shared", "file:pos.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"caller pragma kept", "file:pos.db?_pragma=busy_timeout(100)", "file:pos.db?_pragma=busy_timeout(100)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithPragmas(tt.dsn))
		})
	}
}

func TestConnect_EnforcesForeignKeys(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "fk.db"))
	require.NoError(t, err)
	defer db.Close()

	var on int
	require.NoError(t, db.Get(&on, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, on)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}
