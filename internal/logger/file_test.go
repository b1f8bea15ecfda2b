package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyFile_RotatesOnDayChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	now := time.Date(2026, 3, 1, 23, 59, 0, 0, time.Local)
	f, err := openDailyFile(path, 7, func() time.Time { return now })
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("first day\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	now = now.Add(2 * time.Minute)
	_, err = f.Write([]byte("second day\n"))
	require.NoError(t, err)

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second day\n", string(data))
}

func TestDailyFile_SameDayAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	f, err := openDailyFile(path, 7, func() time.Time { return now })
	require.NoError(t, err)

	_, err = f.Write([]byte("a\n"))
	require.NoError(t, err)
	now = now.Add(time.Hour)
	_, err = f.Write([]byte("b\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestOpenDailyFile_RotatesStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
	yesterday := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, yesterday, yesterday))

	f, err := OpenDailyFile(path, 7)
	require.NoError(t, err)
	_, err = f.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenDailyFile_RequiresPath(t *testing.T) {
	_, err := OpenDailyFile("", 7)
	require.Error(t, err)
}
