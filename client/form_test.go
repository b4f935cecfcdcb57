package client

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/dealerintake/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newTestForm(t *testing.T, opts ...Option) *Form {
	t.Helper()
	f, err := NewForm(Session{Verified: true, MobileNumber: "+15550100"}, opts...)
	require.NoError(t, err)
	return f
}

func TestNewFormRequiresVerifiedSession(t *testing.T) {
	f, err := NewForm(Session{MobileNumber: "+15550100"})
	assert.Nil(t, f)
	require.ErrorIs(t, err, ErrNotVerified)

	var redirect *RedirectError
	require.True(t, errors.As(err, &redirect))
	assert.Equal(t, HomeDestination, redirect.Destination)
}

func TestHandleFileChangeRejectsUnsupportedType(t *testing.T) {
	f := newTestForm(t)
	f.HandleFileChange(FileFromBytes("a.png", "image/png", pngHeader), models.DocumentSelf)
	f.WaitPreviews()
	require.NotEmpty(t, f.Preview(models.DocumentSelf))

	f.HandleFileChange(FileFromBytes("notes.txt", "text/plain", []byte("hi")), models.DocumentSelf)

	assert.Equal(t, "Please upload an image or PDF file", f.Error("self"))
	assert.Nil(t, f.File(models.DocumentSelf))
	assert.Empty(t, f.Preview(models.DocumentSelf))
}

func TestHandleFileChangeRejectsLargeFile(t *testing.T) {
	f := newTestForm(t)
	big := &File{Name: "scan.pdf", MimeType: models.PDFMimeType, Size: models.ClientMaxFileBytes + 1}

	f.HandleFileChange(big, models.DocumentSpouse)

	assert.Equal(t, "File size should be less than 5MB", f.Error("spouse"))
	assert.Nil(t, f.File(models.DocumentSpouse))
}

func TestHandleFileChangeAcceptsExactLimit(t *testing.T) {
	f := newTestForm(t)
	edge := &File{Name: "scan.pdf", MimeType: models.PDFMimeType, Size: models.ClientMaxFileBytes}

	f.HandleFileChange(edge, models.DocumentSelf)
	f.WaitPreviews()

	assert.Empty(t, f.Error("self"))
	assert.Equal(t, PreviewPDF, f.Preview(models.DocumentSelf))
}

func TestImagePreviewIsDataURL(t *testing.T) {
	f := newTestForm(t)
	f.HandleFileChange(FileFromBytes("me.png", "image/png", pngHeader), models.DocumentSelf)
	f.WaitPreviews()

	preview := f.Preview(models.DocumentSelf)
	assert.True(t, strings.HasPrefix(preview, "data:image/png;base64,"), preview)
}

func TestStalePreviewDoesNotOverwriteNewer(t *testing.T) {
	f := newTestForm(t)
	release := make(chan struct{})
	slow := &File{
		Name:     "slow.jpg",
		MimeType: "image/jpeg",
		Size:     3,
		Open: func() (io.ReadCloser, error) {
			<-release
			return io.NopCloser(strings.NewReader("jpg")), nil
		},
	}

	f.HandleFileChange(slow, models.DocumentSelf)
	f.HandleFileChange(FileFromBytes("final.pdf", models.PDFMimeType, []byte("%PDF")), models.DocumentSelf)
	close(release)
	f.WaitPreviews()

	assert.Equal(t, PreviewPDF, f.Preview(models.DocumentSelf))
	assert.Equal(t, "final.pdf", f.File(models.DocumentSelf).Name)
}

func TestSettersClearFieldErrors(t *testing.T) {
	f := newTestForm(t)
	f.SetDealersCode("   ")
	require.Error(t, f.HandleSubmit(context.Background()))
	require.NotEmpty(t, f.Error(FieldDealersCode))

	f.SetDealersCode("  ")
	assert.NotEmpty(t, f.Error(FieldDealersCode))
	f.SetDealersCode("D001")
	assert.Empty(t, f.Error(FieldDealersCode))
	assert.NotEmpty(t, f.Error(FieldDealershipName))

	f.SetDealershipName("Acme")
	assert.Empty(t, f.Error(FieldDealershipName))
}

func TestFileFromPathDetectsType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passport.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	file, err := FileFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "passport.png", file.Name)
	assert.Equal(t, "image/png", file.MimeType)
	assert.Equal(t, int64(len(pngHeader)), file.Size)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("plain words"), 0o600))
	file, err = FileFromPath(text)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", file.MimeType)

	_, err = FileFromPath(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
