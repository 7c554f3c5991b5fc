package store

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themed/internal/model"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	v, ok := s.Get("theme")
	assert.False(t, ok)
	assert.Empty(t, v)

	state, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, state.SchemaVersion)
	assert.Nil(t, state.LastTransition)
}

func TestFileStore_SetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewFileStore(path)

	require.NoError(t, s.Set("theme", "dark"))

	v, ok := s.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	// A second store over the same file sees the value
	other := NewFileStore(path)
	v, ok = other.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	// No temp file left behind
	tmps, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps)
}

func TestFileStore_ConcurrentStoresOnOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	// Separate handles, as the CLI and the daemon hold.
	cli := NewFileStore(path)
	daemon := NewFileStore(path)

	const n = 200
	errs := make(chan error, 2*n)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range n {
			errs <- cli.Set("cli", strconv.Itoa(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := range n {
			errs <- daemon.Set("daemon", strconv.Itoa(i))
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Neither writer's read-modify-write lost the other's value.
	state, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(n-1), state.Values["cli"])
	assert.Equal(t, strconv.Itoa(n-1), state.Values["daemon"])

	tmps, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps)
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewFileStore(path)
	require.NoError(t, s.Set("theme", "light"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_CorruptedFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s := NewFileStore(path)
	_, ok := s.Get("theme")
	assert.False(t, ok)

	// Writing repairs the file
	require.NoError(t, s.Set("theme", "system"))
	v, ok := s.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "system", v)
}

func TestFileStore_SetTransitionKeepsValues(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, s.Set("theme", "dark"))

	tr, err := model.NewTransition(model.PreferenceSystem, model.PreferenceDark,
		model.AppearanceDark, model.TriggerUser, "cli")
	require.NoError(t, err)
	require.NoError(t, s.SetTransition(tr))

	state, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "dark", state.Values["theme"])
	require.NotNil(t, state.LastTransition)
	assert.Equal(t, tr.ID, state.LastTransition.ID)
	assert.Equal(t, model.TriggerUser, state.LastTransition.Trigger)
}

func TestFileStore_MissingValuesMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":1}`), 0600))

	s := NewFileStore(path)
	require.NoError(t, s.Set("theme", "light"))

	v, ok := s.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "light", v)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()

	_, ok := m.Get("theme")
	assert.False(t, ok)

	require.NoError(t, m.Set("theme", "dark"))
	v, ok := m.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestStateDir_UsesXDGStateHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got, err := StateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "themed"), got)

	path, err := StateFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "themed", "state.json"), path)
	assert.Equal(t, filepath.Join(dir, "themed", "history.jsonl"), HistoryPathFor(path))
}
