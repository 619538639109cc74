package backup

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/assetkeeper/internal/fsys"
)

type captureLogger struct {
	warnings []string
}

func (c *captureLogger) LogWarn(message string) {
	c.warnings = append(c.warnings, message)
}

func newMemStore(t *testing.T, files map[string]string) (*Store, *fsys.FS) {
	t.Helper()
	fs := fsys.NewMemory()
	for p, data := range files {
		require.NoError(t, fsys.WriteFile(fs, p, []byte(data)))
	}
	return NewStore(fs, "/backups", nil), fs
}

func read(t *testing.T, fs *fsys.FS, p string) string {
	t.Helper()
	data, err := fsys.ReadFile(fs, p)
	require.NoError(t, err)
	return string(data)
}

func TestSnapshotAndRestoreRun(t *testing.T) {
	store, fs := newMemStore(t, map[string]string{
		"/proj/textures/wood.jpg": "wood bytes",
		"/proj/lamp.ies":          "ies bytes",
	})

	runID, ok := store.BeginRun("/proj")
	require.True(t, ok)

	wood, ok := store.Snapshot(runID, "/proj/textures/wood.jpg")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/backups", ProjectKey("/proj"), runID, "textures", "wood.jpg"), wood)
	_, ok = store.Snapshot(runID, "/proj/lamp.ies")
	require.True(t, ok)

	require.NoError(t, fs.Remove("/proj/textures/wood.jpg"))
	require.NoError(t, fsys.WriteFile(fs, "/proj/lamp.ies", []byte("changed")))

	assert.True(t, store.RestoreRun(runID))
	assert.Equal(t, "wood bytes", read(t, fs, "/proj/textures/wood.jpg"))
	assert.Equal(t, "ies bytes", read(t, fs, "/proj/lamp.ies"))
}

func TestMetadataFormat(t *testing.T) {
	store, fs := newMemStore(t, map[string]string{"/proj/a/tex.png": "png"})
	runID, ok := store.BeginRun("/proj")
	require.True(t, ok)
	_, ok = store.Snapshot(runID, "/proj/a/tex.png")
	require.True(t, ok)

	raw := read(t, fs, filepath.Join("/backups", ProjectKey("/proj"), MetadataFile))
	var meta map[string]struct {
		Timestamp string `json:"timestamp"`
		Files     []struct {
			Original string `json:"original"`
			Backup   string `json:"backup"`
			Relative string `json:"relative"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &meta))
	require.Contains(t, meta, runID)

	_, err := time.Parse(time.RFC3339, meta[runID].Timestamp)
	assert.NoError(t, err)
	require.Len(t, meta[runID].Files, 1)
	assert.Equal(t, "/proj/a/tex.png", meta[runID].Files[0].Original)
	assert.Equal(t, "a/tex.png", meta[runID].Files[0].Relative)
}

func TestRestoreFileOnlyTouchesOnePath(t *testing.T) {
	store, fs := newMemStore(t, map[string]string{
		"/proj/a.png": "a",
		"/proj/b.png": "b",
	})
	runID, _ := store.BeginRun("/proj")
	store.Snapshot(runID, "/proj/a.png")
	store.Snapshot(runID, "/proj/b.png")
	require.NoError(t, fs.Remove("/proj/a.png"))
	require.NoError(t, fs.Remove("/proj/b.png"))

	assert.True(t, store.RestoreFile(runID, "/proj/b.png"))
	assert.Equal(t, "b", read(t, fs, "/proj/b.png"))
	ok, err := fsys.Exists(fs, "/proj/a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, store.RestoreFile(runID, "/proj/never.png"))
	assert.False(t, store.RestoreFile("no-such-run", "/proj/a.png"))
}

func TestSnapshotSamePathTwice(t *testing.T) {
	store, fs := newMemStore(t, map[string]string{"/proj/x.tga": "v1"})
	runID, _ := store.BeginRun("/proj")

	first, ok := store.Snapshot(runID, "/proj/x.tga")
	require.True(t, ok)
	require.NoError(t, fsys.WriteFile(fs, "/proj/x.tga", []byte("v2")))
	second, ok := store.Snapshot(runID, "/proj/x.tga")
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	require.NoError(t, fsys.WriteFile(fs, "/proj/x.tga", []byte("v3")))
	assert.True(t, store.RestoreFile(runID, "/proj/x.tga"))
	assert.Equal(t, "v2", read(t, fs, "/proj/x.tga"))
}

func TestSnapshotOutsideRootUsesBaseName(t *testing.T) {
	store, _ := newMemStore(t, map[string]string{"/library/shared.hdr": "hdr"})
	runID, _ := store.BeginRun("/proj")

	backup, ok := store.Snapshot(runID, "/library/shared.hdr")
	require.True(t, ok)
	assert.Equal(t, "shared.hdr", filepath.Base(backup))
	assert.Equal(t, runID, filepath.Base(filepath.Dir(backup)))
}

func TestSnapshotFailuresAreSwallowed(t *testing.T) {
	fs := fsys.NewMemory()
	log := &captureLogger{}
	store := NewStore(fs, "/backups", log)

	_, ok := store.Snapshot("unknown", "/proj/a.png")
	assert.False(t, ok)

	runID, _ := store.BeginRun("/proj")
	_, ok = store.Snapshot(runID, "/proj/missing.png")
	assert.False(t, ok)
	assert.Len(t, log.warnings, 2)

	assert.False(t, store.RestoreRun(runID), "nothing to restore")
}

func TestRunsAndInfo(t *testing.T) {
	store, _ := newMemStore(t, map[string]string{"/proj/a.png": "12345", "/proj/b.png": "123"})
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	older, _ := store.BeginRun("/proj")
	store.Snapshot(older, "/proj/a.png")

	store.now = func() time.Time { return base.Add(time.Hour) }
	newer, _ := store.BeginRun("/proj")
	store.Snapshot(newer, "/proj/a.png")
	store.Snapshot(newer, "/proj/b.png")

	other, _ := store.BeginRun("/elsewhere")

	runs := store.Runs("/proj")
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].ID)
	assert.Equal(t, older, runs[1].ID)
	assert.Len(t, runs[0].Files, 2)
	assert.Equal(t, "/proj", runs[0].Root)

	info, ok := store.Run(other)
	require.True(t, ok)
	assert.Equal(t, "/elsewhere", info.Root)
	assert.Empty(t, info.Files)

	assert.Equal(t, int64(8), store.Size(newer))
	assert.Equal(t, int64(0), store.Size("missing"))
}

func TestDeleteRun(t *testing.T) {
	store, fs := newMemStore(t, map[string]string{"/proj/a.png": "a"})
	runID, _ := store.BeginRun("/proj")
	backup, _ := store.Snapshot(runID, "/proj/a.png")

	assert.True(t, store.DeleteRun(runID))
	ok, err := fsys.Exists(fs, backup)
	require.NoError(t, err)
	assert.False(t, ok)
	_, found := store.Run(runID)
	assert.False(t, found)
	assert.False(t, store.DeleteRun(runID))
}

func TestPurgeOlderThan(t *testing.T) {
	store, fs := newMemStore(t, nil)
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return now.Add(-10 * 24 * time.Hour) }
	stale, _ := store.BeginRun("/proj")
	store.now = func() time.Time { return now.Add(-time.Hour) }
	fresh, _ := store.BeginRun("/proj")

	metaPath := filepath.Join("/backups", ProjectKey("/proj"), MetadataFile)
	var meta map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(read(t, fs, metaPath)), &meta))
	meta["garbled"] = json.RawMessage(`{"timestamp":"not a time","files":[]}`)
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, fsys.WriteFile(fs, metaPath, data))

	store.now = func() time.Time { return now }
	assert.Equal(t, 2, store.PurgeOlderThan(7))

	runs := store.Runs("/proj")
	require.Len(t, runs, 1)
	assert.Equal(t, fresh, runs[0].ID)
	_, ok := store.Run(stale)
	assert.False(t, ok)
}

func TestRunsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	fs := fsys.NewOS()
	project := filepath.Join(dir, "proj")
	require.NoError(t, fsys.WriteFile(fs, filepath.Join(project, "maps", "wood.jpg"), []byte("wood")))

	first := NewStore(fs, filepath.Join(dir, "backups"), nil)
	runID, ok := first.BeginRun(project)
	require.True(t, ok)
	_, ok = first.Snapshot(runID, filepath.Join(project, "maps", "wood.jpg"))
	require.True(t, ok)
	require.NoError(t, fs.Remove(filepath.Join(project, "maps", "wood.jpg")))

	second := NewStore(fs, filepath.Join(dir, "backups"), nil)
	assert.True(t, second.RestoreRun(runID))
	assert.Equal(t, "wood", read(t, fs, filepath.Join(project, "maps", "wood.jpg")))
}
