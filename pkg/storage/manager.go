package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Manager handles the on-disk image cache and duplicate detection. Cached
// images are named {articleID}_{filename} so repeated runs never re-fetch
// media that already landed on disk.
type Manager struct {
	imagesDir string
	cached    map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a storage manager rooted at imagesDir
func NewManager(imagesDir string) (*Manager, error) {
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	manager := &Manager{
		imagesDir: imagesDir,
		cached:    make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan images directory: %w", err)
	}

	return manager, nil
}

// ImageName builds the cache filename for an article's image
func ImageName(articleID, filename string) string {
	return fmt.Sprintf("%s_%s", articleID, filename)
}

func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.imagesDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			m.cached[entry.Name()] = true
		}
	}

	return nil
}

// IsCached checks if an image file is already present in the cache
func (m *Manager) IsCached(name string) bool {
	m.mu.RLock()
	if m.cached[name] {
		m.mu.RUnlock()
		return true
	}
	m.mu.RUnlock()

	// the file may have appeared since the initial scan; directories
	// sharing a name with an image never count
	if info, err := os.Stat(filepath.Join(m.imagesDir, name)); err == nil && info.Mode().IsRegular() {
		m.mu.Lock()
		m.cached[name] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// SaveImage writes image data to the cache under the given name. The data
// lands in a temporary file first and is renamed into place, so a crashed
// run never leaves a truncated image behind.
func (m *Manager) SaveImage(r io.Reader, name string) error {
	filename := filepath.Join(m.imagesDir, name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save image data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.cached[name] = true
	m.mu.Unlock()

	return nil
}

// ImagesDir returns the cache directory path
func (m *Manager) ImagesDir() string {
	return m.imagesDir
}

// CachedCount returns the number of images in the cache
func (m *Manager) CachedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cached)
}
