package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/dealerintake/models"
	"github.com/cppla/dealerintake/services"
	"github.com/cppla/dealerintake/storage"
	"github.com/cppla/dealerintake/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type part struct {
	field, filename, mimeType string
	content                   []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.mimeType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newUploadEngine(intake Intake, maxBytes int64, tempDir string) *gin.Engine {
	r := gin.New()
	r.POST("/api/upload", NewUploadController(intake, maxBytes, tempDir).Upload)
	return r
}

func doUpload(r http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type failingIntake struct{ err error }

func (f failingIntake) Submit(context.Context, services.Submission) (*services.Receipt, error) {
	return nil, f.err
}

func TestUploadStoresDocuments(t *testing.T) {
	mem := storage.NewMemoryProvider()
	tmp := t.TempDir()
	r := newUploadEngine(services.NewIntakeService(mem), models.ServerMaxFileBytes, tmp)

	body, ct := multipartBody(t,
		map[string]string{"dealersCode": "D001", "dealershipName": "Acme Motors"},
		part{"selfPassport", "me.JPG", "image/jpeg", []byte("jpeg-bytes")},
		part{"spousePassport", "wife.pdf", models.PDFMimeType, []byte("%PDF-1.4")},
	)
	w := doUpload(r, body, ct)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Documents uploaded successfully", resp["message"])

	folders := mem.Folders()
	require.Len(t, folders, 2)
	assert.Equal(t, "D001_Acme Motors", folders[1].Name)
	assert.Equal(t, []string{"Self_Acme Motors_Passport.JPG", "Spouse_Acme Motors_Passport.pdf"}, mem.FilesIn(folders[1].ID))

	files := mem.Files()
	assert.Equal(t, "jpeg-bytes", string(files[0].Content))
	assert.Equal(t, models.PDFMimeType, files[1].MimeType)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files must be removed")
}

func TestUploadMissingFieldsIsBadRequest(t *testing.T) {
	mem := storage.NewMemoryProvider()
	r := newUploadEngine(services.NewIntakeService(mem), models.ServerMaxFileBytes, t.TempDir())

	body, ct := multipartBody(t, map[string]string{"dealersCode": "D001", "dealershipName": "   "})
	w := doUpload(r, body, ct)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "dealershipName is required; selfPassport file is required", resp["error"])
	assert.NotContains(t, resp, "message")
	assert.Empty(t, mem.Folders())
}

func TestUploadNonMultipartIsBadRequest(t *testing.T) {
	mem := storage.NewMemoryProvider()
	r := newUploadEngine(services.NewIntakeService(mem), models.ServerMaxFileBytes, t.TempDir())

	w := doUpload(r, bytes.NewBufferString(`{"dealersCode":"D1"}`), "application/json")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "dealersCode is required")
	assert.Empty(t, mem.Folders())
}

func TestUploadFileOverCeilingIsRejected(t *testing.T) {
	mem := storage.NewMemoryProvider()
	tmp := t.TempDir()
	r := newUploadEngine(services.NewIntakeService(mem), 1024, tmp)

	body, ct := multipartBody(t,
		map[string]string{"dealersCode": "D001", "dealershipName": "Acme"},
		part{"selfPassport", "big.png", "image/png", bytes.Repeat([]byte("x"), 2048)},
	)
	w := doUpload(r, body, ct)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])
	assert.Empty(t, mem.Folders())
	entries, _ := os.ReadDir(tmp)
	assert.Empty(t, entries)
}

func TestUploadOversizedBodyIsRejected(t *testing.T) {
	mem := storage.NewMemoryProvider()
	r := newUploadEngine(services.NewIntakeService(mem), 1024, t.TempDir())

	// body cap is 2*max + 1 MiB
	body, ct := multipartBody(t,
		map[string]string{"dealersCode": "D001", "dealershipName": "Acme"},
		part{"selfPassport", "a.png", "image/png", bytes.Repeat([]byte("x"), 2<<20)},
	)
	w := doUpload(r, body, ct)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, mem.Folders())
}

func TestUploadStorageFailureIsServerError(t *testing.T) {
	intake := failingIntake{err: utils.NewStorageError("create dealer folder D001_Acme", errors.New("googleapi: Error 403: forbidden"))}
	r := newUploadEngine(intake, models.ServerMaxFileBytes, t.TempDir())

	body, ct := multipartBody(t,
		map[string]string{"dealersCode": "D001", "dealershipName": "Acme"},
		part{"selfPassport", "me.png", "image/png", []byte("png")},
	)
	w := doUpload(r, body, ct)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Server error", resp["error"])
	assert.Contains(t, resp["message"], "forbidden")
}

func TestUploadRules(t *testing.T) {
	r := gin.New()
	r.GET("/api/config/upload", NewConfigController(0).UploadRules)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config/upload", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(models.ClientMaxFileBytes), data["client_max_bytes"])
	assert.Equal(t, float64(models.ServerMaxFileBytes), data["server_max_bytes"])
	assert.Equal(t, []any{"image/*", models.PDFMimeType}, data["accepted_types"])
}
