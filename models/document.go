package models

import (
	"path/filepath"
	"strings"
)

// DocumentKind identifies which identity document a file is.
type DocumentKind string

const (
	DocumentSelf   DocumentKind = "self"
	DocumentSpouse DocumentKind = "spouse"
)

const (
	// PDFMimeType is the only non-image type accepted for identity documents.
	PDFMimeType = "application/pdf"
	// ClientMaxFileBytes is the advisory per-file limit enforced by the upload form.
	ClientMaxFileBytes int64 = 5 * 1024 * 1024
	// ServerMaxFileBytes is the default per-file ceiling enforced by the intake service.
	ServerMaxFileBytes int64 = 10 * 1024 * 1024
)

// Label returns the prefix used in stored document names.
func (k DocumentKind) Label() string {
	switch k {
	case DocumentSelf:
		return "Self"
	case DocumentSpouse:
		return "Spouse"
	default:
		return string(k)
	}
}

// FormField returns the multipart field carrying this document.
func (k DocumentKind) FormField() string {
	return string(k) + "Passport"
}

// StoredDocument is a file placed under a dealer folder by the storage provider.
type StoredDocument struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kind     DocumentKind `json:"kind"`
	MimeType string       `json:"mime_type"`
	FolderID string       `json:"folder_id"`
}

// DocumentName builds "{Self|Spouse}_{dealershipName}_Passport{ext}".
func DocumentName(kind DocumentKind, dealershipName, originalFilename string) string {
	return kind.Label() + "_" + dealershipName + "_Passport" + Extname(originalFilename)
}

// Extname returns the extension of the base name including the dot.
// Dotfiles such as ".env" have no extension.
func Extname(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}

// IsAcceptedMimeType reports whether the type is an image or exactly PDF.
func IsAcceptedMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == PDFMimeType
}
