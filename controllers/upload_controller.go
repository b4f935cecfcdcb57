package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/dealerintake/metrics"
	"github.com/cppla/dealerintake/models"
	"github.com/cppla/dealerintake/services"
	"github.com/cppla/dealerintake/utils"
)

const (
	uploadSuccessMessage = "Documents uploaded successfully"
	// multipart parts beyond this are spilled to disk by net/http
	multipartMemory = 8 << 20
)

// Intake is the orchestration the upload handler delegates to.
type Intake interface {
	Submit(ctx context.Context, sub services.Submission) (*services.Receipt, error)
}

// UploadController accepts dealer identity documents.
type UploadController struct {
	intake   Intake
	maxBytes int64
	tempDir  string
}

func NewUploadController(intake Intake, maxBytes int64, tempDir string) *UploadController {
	if maxBytes <= 0 {
		maxBytes = models.ServerMaxFileBytes
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &UploadController{intake: intake, maxBytes: maxBytes, tempDir: tempDir}
}

// Upload handles POST /api/upload.
func (u *UploadController) Upload(ctx *gin.Context) {
	log := requestLogger(ctx)

	// two documents plus text fields and multipart framing
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, 2*u.maxBytes+1<<20)
	if err := ctx.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if isBodyTooLarge(err) {
			metrics.IntakeRequests.WithLabelValues(metrics.OutcomeTooLarge).Inc()
			utils.Rejected(ctx, http.StatusRequestEntityTooLarge, "Upload exceeds the maximum allowed size")
			return
		}
		metrics.IntakeRequests.WithLabelValues(metrics.OutcomeValidationError).Inc()
		utils.Rejected(ctx, http.StatusBadRequest, "Malformed multipart body")
		return
	}
	if form := ctx.Request.MultipartForm; form != nil {
		defer func() {
			if err := form.RemoveAll(); err != nil {
				log.Warn("release multipart form failed", zap.Error(err))
			}
		}()
	}

	selfHdr := formFile(ctx.Request, models.DocumentSelf.FormField())
	spouseHdr := formFile(ctx.Request, models.DocumentSpouse.FormField())
	req := services.IntakeRequest{
		DealersCode:    ctx.Request.PostFormValue("dealersCode"),
		DealershipName: ctx.Request.PostFormValue("dealershipName"),
		SelfPassport:   attachmentOf(selfHdr),
		SpousePassport: attachmentOf(spouseHdr),
	}.Normalize()
	if err := req.Validate(); err != nil {
		metrics.IntakeRequests.WithLabelValues(metrics.OutcomeValidationError).Inc()
		log.Info("upload rejected", zap.Error(err))
		utils.Rejected(ctx, http.StatusBadRequest, err.Error())
		return
	}

	for _, hdr := range []*multipart.FileHeader{selfHdr, spouseHdr} {
		if hdr != nil && hdr.Size > u.maxBytes {
			u.rejectTooLarge(ctx, hdr.Filename)
			return
		}
	}

	var staged []*os.File
	defer func() {
		for _, f := range staged {
			_ = f.Close()
			if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
				log.Warn("remove staged upload failed", zap.String("path", f.Name()), zap.Error(err))
			}
		}
	}()
	stage := func(hdr *multipart.FileHeader) (*services.Document, error) {
		if hdr == nil {
			return nil, nil
		}
		f, err := u.stageFile(hdr)
		if f != nil {
			staged = append(staged, f)
		}
		if err != nil {
			return nil, err
		}
		return &services.Document{Attachment: *attachmentOf(hdr), Body: f}, nil
	}

	self, err := stage(selfHdr)
	var spouse *services.Document
	if err == nil {
		spouse, err = stage(spouseHdr)
	}
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			u.rejectTooLarge(ctx, err.Error())
			return
		}
		log.Error("stage upload failed", zap.Error(err))
		metrics.IntakeRequests.WithLabelValues(metrics.OutcomeStorageError).Inc()
		utils.ServerError(ctx, "Failed to stage uploaded file")
		return
	}

	u.submit(ctx, log, services.Submission{
		DealersCode:    req.DealersCode,
		DealershipName: req.DealershipName,
		Self:           self,
		Spouse:         spouse,
	})
}

func (u *UploadController) submit(ctx *gin.Context, log *zap.Logger, sub services.Submission) {
	receipt, err := u.intake.Submit(ctx.Request.Context(), sub)
	if err != nil {
		switch utils.KindOf(err) {
		case utils.KindValidation:
			metrics.IntakeRequests.WithLabelValues(metrics.OutcomeValidationError).Inc()
			utils.Rejected(ctx, http.StatusBadRequest, err.Error())
		default:
			metrics.IntakeRequests.WithLabelValues(metrics.OutcomeStorageError).Inc()
			log.Error("upload failed", zap.String("kind", utils.KindOf(err).String()), zap.Error(err))
			utils.ServerError(ctx, err.Error())
		}
		return
	}
	metrics.IntakeRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info("upload stored",
		zap.String("folder", receipt.Folder.Name),
		zap.Bool("folder_created", receipt.Folder.Created),
		zap.Int("documents", len(receipt.Documents)),
	)
	utils.Accepted(ctx, uploadSuccessMessage)
}

var errFileTooLarge = errors.New("file too large")

// stageFile copies the part into a temp file and rewinds it. The returned file
// is non-nil whenever it was created, even on error, so the caller can remove it.
func (u *UploadController) stageFile(hdr *multipart.FileHeader) (*os.File, error) {
	src, err := hdr.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", hdr.Filename, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(u.tempDir, utils.StagedFilePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	lr := &io.LimitedReader{R: src, N: u.maxBytes + 1}
	written, err := io.Copy(dst, lr)
	if err != nil {
		return dst, fmt.Errorf("write temp file: %w", err)
	}
	if written > u.maxBytes {
		return dst, fmt.Errorf("%s: %w", hdr.Filename, errFileTooLarge)
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return dst, fmt.Errorf("rewind temp file: %w", err)
	}
	return dst, nil
}

func (u *UploadController) rejectTooLarge(ctx *gin.Context, what string) {
	metrics.IntakeRequests.WithLabelValues(metrics.OutcomeTooLarge).Inc()
	requestLogger(ctx).Info("upload rejected", zap.String("file", what), zap.Int64("max_bytes", u.maxBytes))
	utils.Rejected(ctx, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Each file must be at most %d MB", u.maxBytes/(1024*1024)))
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	if hdrs := r.MultipartForm.File[field]; len(hdrs) > 0 {
		return hdrs[0]
	}
	return nil
}

func attachmentOf(hdr *multipart.FileHeader) *services.Attachment {
	if hdr == nil {
		return nil
	}
	mimeType := hdr.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &services.Attachment{Filename: hdr.Filename, MimeType: mimeType, Size: hdr.Size}
}

func requestLogger(ctx *gin.Context) *zap.Logger {
	return utils.Logger.With(zap.String("request_id", ctx.GetString(utils.ContextRequestIDKey)))
}
