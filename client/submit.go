package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/dealerintake/models"
	"github.com/cppla/dealerintake/utils"
)

const (
	msgUploadFailed = "Failed to upload documents"
	msgUploadRetry  = "Failed to upload documents. Please try again."
)

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type snapshot struct {
	dealersCode    string
	dealershipName string
	self, spouse   *File
}

// HandleSubmit validates the form and posts it once. Validation failures set the
// field errors and make no request. A rejected or failed request sets the
// "submit" error and keeps the entered data. There is no automatic retry.
func (f *Form) HandleSubmit(ctx context.Context) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInProgress
	}
	if err := f.validateLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.submitting = true
	delete(f.errors, FieldSubmit)
	snap := snapshot{
		dealersCode:    f.dealersCode,
		dealershipName: f.dealershipName,
		self:           f.files[models.DocumentSelf],
		spouse:         f.files[models.DocumentSpouse],
	}
	f.mu.Unlock()

	err := f.post(ctx, snap)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		msg := msgUploadRetry
		var appErr *utils.AppError
		if errors.As(err, &appErr) && appErr.Detail != "" {
			msg = appErr.Detail
		}
		f.errors[FieldSubmit] = msg
		f.logger.Error("upload documents failed", zap.Error(err))
		return err
	}
	f.succeeded = true
	return nil
}

func (f *Form) post(ctx context.Context, snap snapshot) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, snap))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return utils.NewNetworkError(msgUploadRetry, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return utils.NewNetworkError(msgUploadRetry, err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := msgUploadFailed
		switch {
		case decodeErr != nil:
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
		return utils.NewNetworkError(msg, fmt.Errorf("upload rejected with status %d", resp.StatusCode))
	}
	if decodeErr != nil {
		f.logger.Warn("unreadable upload response", zap.Int("status", resp.StatusCode), zap.Error(decodeErr))
	}
	f.logger.Info("documents uploaded", zap.String("dealers_code", snap.dealersCode), zap.String("message", body.Message))
	return nil
}

func writeForm(mw *multipart.Writer, snap snapshot) error {
	if err := mw.WriteField("dealersCode", snap.dealersCode); err != nil {
		return err
	}
	if err := mw.WriteField("dealershipName", snap.dealershipName); err != nil {
		return err
	}
	if err := writeFile(mw, models.DocumentSelf.FormField(), snap.self); err != nil {
		return err
	}
	if snap.spouse != nil {
		if err := writeFile(mw, models.DocumentSpouse.FormField(), snap.spouse); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, field string, file *File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(file.Name)))
	h.Set("Content-Type", file.MimeType)
	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
