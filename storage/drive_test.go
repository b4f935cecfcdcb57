package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// fakeDrive serves just enough of the Drive v3 files API for the provider.
type fakeDrive struct {
	mu      sync.Mutex
	queries []string
	bodies  []string
	listed  []map[string]string
	status  int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient permissions"}}`))
		return
	}
	if !strings.HasSuffix(r.URL.Path, "/files") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode(map[string]any{"files": f.listed})
	case http.MethodPost:
		b, _ := io.ReadAll(r.Body)
		f.bodies = append(f.bodies, string(b))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "created-id"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeDriveProvider(t *testing.T, fake *fakeDrive) *DriveProvider {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return NewDriveProviderWithService(svc, nil)
}

func TestFolderQuery(t *testing.T) {
	assert.Equal(t,
		"name='registration' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		folderQuery("registration", ""))
	assert.Equal(t,
		`name='D1_O\'Brien \\ Sons' and mimeType='application/vnd.google-apps.folder' and trashed=false and 'root-1' in parents`,
		folderQuery(`D1_O'Brien \ Sons`, "root-1"))
}

func TestDriveProvider_FindFolder(t *testing.T) {
	fake := &fakeDrive{listed: []map[string]string{{"id": "folder-9", "name": "D100_Acme Motors"}}}
	p := newFakeDriveProvider(t, fake)

	id, found, err := p.FindFolder(context.Background(), "D100_Acme Motors", "root-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "folder-9", id)
	require.Len(t, fake.queries, 1)
	assert.Contains(t, fake.queries[0], "'root-1' in parents")
}

func TestDriveProvider_FindFolder_NotFound(t *testing.T) {
	p := newFakeDriveProvider(t, &fakeDrive{})

	id, found, err := p.FindFolder(context.Background(), "registration", "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, id)
}

func TestDriveProvider_CreateAndUpload(t *testing.T) {
	fake := &fakeDrive{}
	p := newFakeDriveProvider(t, fake)

	id, err := p.CreateFolder(context.Background(), "D100_Acme Motors", "root-1")
	require.NoError(t, err)
	assert.Equal(t, "created-id", id)

	id, err = p.UploadFile(context.Background(), strings.NewReader("%PDF-1.4"), "Self_Acme Motors_Passport.pdf", "application/pdf", "folder-9")
	require.NoError(t, err)
	assert.Equal(t, "created-id", id)

	require.Len(t, fake.bodies, 2)
	assert.Contains(t, fake.bodies[0], FolderMimeType)
	assert.Contains(t, fake.bodies[0], "root-1")
	assert.Contains(t, fake.bodies[1], "Self_Acme Motors_Passport.pdf")
	assert.Contains(t, fake.bodies[1], "%PDF-1.4")
}

func TestDriveProvider_ErrorsSurface(t *testing.T) {
	p := newFakeDriveProvider(t, &fakeDrive{status: http.StatusForbidden})

	_, _, err := p.FindFolder(context.Background(), "registration", "")
	assert.Error(t, err)
	_, err = p.CreateFolder(context.Background(), "registration", "")
	assert.Error(t, err)
}
