package client

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/cppla/dealerintake/models"
)

// PreviewPDF stands in for an image preview of a PDF document.
const PreviewPDF = "pdf"

func buildPreview(file *File) (string, error) {
	if file.MimeType == models.PDFMimeType {
		return PreviewPDF, nil
	}
	if !strings.HasPrefix(file.MimeType, "image/") {
		return "", fmt.Errorf("no preview for %s", file.MimeType)
	}
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rc, models.ClientMaxFileBytes+1)); err != nil {
		return "", fmt.Errorf("read %s: %w", file.Name, err)
	}
	return "data:" + file.MimeType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
