package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectToDBCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	conn, err := ConnectToDB(path)
	require.NoError(t, err)
	defer conn.Close()

	// Directory and file are created for embedded mode.
	_, err = os.Stat(path)
	require.NoError(t, err)

	// JSON1 is a hard requirement, emotions persist as JSON.
	var got string
	err = conn.QueryRow("SELECT json_extract('{\"primary\":\"NEGATIVE\"}', '$.primary')").Scan(&got)
	require.NoError(t, err)
	assert.Equal(t, "NEGATIVE", got)
}

func TestConnectToDBReopensExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	conn, err := ConnectToDB(path)
	require.NoError(t, err)
	_, err = conn.Exec("CREATE TABLE marker (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	conn, err = ConnectToDB(path)
	require.NoError(t, err)
	defer conn.Close()

	var name string
	err = conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='marker'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "marker", name)
}
