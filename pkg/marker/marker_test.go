package marker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarker_Lifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "dungeons")

	_, err := Read(root)
	assert.ErrorIs(t, err, ErrNotInstalled)
	assert.False(t, Exists(root))

	require.NoError(t, Write(root, "1.17.0.0"))
	assert.True(t, Exists(root))

	version, err := Read(root)
	require.NoError(t, err)
	assert.Equal(t, "1.17.0.0", version)

	// Trailing newlines written by hand are tolerated
	require.NoError(t, os.WriteFile(Path(root), []byte("2.0\n"), 0o644))
	version, err = Read(root)
	require.NoError(t, err)
	assert.Equal(t, "2.0", version)

	require.NoError(t, os.Remove(Path(root)))
	assert.False(t, Exists(root))
	_, err = Read(root)
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestJournal_RecordAndCountRuns(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "settings"))

	last, err := j.Last()
	require.NoError(t, err)
	assert.Nil(t, last)

	entry := Entry{Operation: "verify", Root: "/games/d", Problems: 1, Started: time.Now()}
	require.NoError(t, j.Record(entry))
	require.NoError(t, j.Record(entry))

	last, err = j.Last()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Runs)
	assert.Equal(t, 1, last.Problems)

	require.NoError(t, j.Record(Entry{Operation: "install", Root: "/games/d", Version: "1.0"}))
	last, err = j.Last()
	require.NoError(t, err)
	assert.Equal(t, 1, last.Runs)
	assert.Equal(t, "1.0", last.Version)
}
