package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	m, err := NewManager(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, m.ImagesDir())
	assert.Equal(t, 0, m.CachedCount())
}

func TestNewManagerScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k10001_photo.jpg"), []byte("img"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k10002_photo.png"), []byte("img"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	m, err := NewManager(dir)
	require.NoError(t, err)

	assert.True(t, m.IsCached("k10001_photo.jpg"))
	assert.True(t, m.IsCached("k10002_photo.png"))
	assert.False(t, m.IsCached("subdir"))
	assert.False(t, m.IsCached("k10003_photo.jpg"))
	assert.Equal(t, 2, m.CachedCount())
}

func TestSaveImage(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	name := ImageName("k10001", "photo.jpg")
	require.NoError(t, m.SaveImage(strings.NewReader("image bytes"), name))

	assert.True(t, m.IsCached(name))

	data, err := os.ReadFile(filepath.Join(m.ImagesDir(), name))
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))

	// no temp file left behind
	_, err = os.Stat(filepath.Join(m.ImagesDir(), name+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestIsCachedDetectsFilesCreatedAfterScan(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	name := "k10009_late.jpg"
	assert.False(t, m.IsCached(name))

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("img"), 0644))
	assert.True(t, m.IsCached(name))
}

func TestImageName(t *testing.T) {
	assert.Equal(t, "k10001_photo.jpg", ImageName("k10001", "photo.jpg"))
}
