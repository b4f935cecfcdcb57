package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryFolder is a folder held by MemoryProvider.
type MemoryFolder struct {
	ID       string
	Name     string
	ParentID string
}

// MemoryFile is a file held by MemoryProvider.
type MemoryFile struct {
	ID       string
	Name     string
	MimeType string
	ParentID string
	Content  []byte
}

// MemoryProvider keeps the folder tree in process memory. Used for local runs and tests.
type MemoryProvider struct {
	mu      sync.RWMutex
	seq     atomic.Int64
	folders []MemoryFolder
	files   []MemoryFile
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (m *MemoryProvider) nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, m.seq.Add(1))
}

func (m *MemoryProvider) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.folders {
		if f.Name != name {
			continue
		}
		if parentID == "" || f.ParentID == parentID {
			return f.ID, true, nil
		}
	}
	return "", false, nil
}

func (m *MemoryProvider) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := m.nextID("folder")
	m.mu.Lock()
	m.folders = append(m.folders, MemoryFolder{ID: id, Name: name, ParentID: parentID})
	m.mu.Unlock()
	return id, nil
}

func (m *MemoryProvider) UploadFile(ctx context.Context, body io.Reader, name, mimeType, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}
	id := m.nextID("file")
	m.mu.Lock()
	m.files = append(m.files, MemoryFile{ID: id, Name: name, MimeType: mimeType, ParentID: parentID, Content: content})
	m.mu.Unlock()
	return id, nil
}

// Folders returns a snapshot of all folders ordered by creation.
func (m *MemoryProvider) Folders() []MemoryFolder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MemoryFolder(nil), m.folders...)
}

// Files returns a snapshot of all files ordered by upload.
func (m *MemoryProvider) Files() []MemoryFile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MemoryFile(nil), m.files...)
}

// FilesIn returns the names of files stored directly under parentID, sorted.
func (m *MemoryProvider) FilesIn(parentID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, f := range m.files {
		if f.ParentID == parentID {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}
