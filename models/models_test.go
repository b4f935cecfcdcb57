package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDealerFolderName(t *testing.T) {
	assert.Equal(t, "D100_Acme Motors", DealerFolderName("D100", "Acme Motors"))
}

func TestDocumentName(t *testing.T) {
	tests := []struct {
		name     string
		kind     DocumentKind
		filename string
		want     string
	}{
		{"self jpeg", DocumentSelf, "scan.jpeg", "Self_Acme Motors_Passport.jpeg"},
		{"spouse pdf", DocumentSpouse, "passport.PDF", "Spouse_Acme Motors_Passport.PDF"},
		{"double extension keeps last", DocumentSelf, "archive.tar.gz", "Self_Acme Motors_Passport.gz"},
		{"no extension", DocumentSelf, "passport", "Self_Acme Motors_Passport"},
		{"dotfile", DocumentSelf, ".hidden", "Self_Acme Motors_Passport"},
		{"path is ignored", DocumentSpouse, "dir.v2/photo.png", "Spouse_Acme Motors_Passport.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentName(tt.kind, "Acme Motors", tt.filename))
		})
	}
}

func TestDocumentKind(t *testing.T) {
	assert.Equal(t, "selfPassport", DocumentSelf.FormField())
	assert.Equal(t, "spousePassport", DocumentSpouse.FormField())
	assert.Equal(t, "Spouse", DocumentSpouse.Label())
}

func TestIsAcceptedMimeType(t *testing.T) {
	assert.True(t, IsAcceptedMimeType("image/png"))
	assert.True(t, IsAcceptedMimeType("image/heic"))
	assert.True(t, IsAcceptedMimeType("application/pdf"))
	assert.False(t, IsAcceptedMimeType("application/pdfx"))
	assert.False(t, IsAcceptedMimeType("text/plain"))
	assert.False(t, IsAcceptedMimeType(""))
}
