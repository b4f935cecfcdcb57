package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/dealerintake/models"
	"github.com/cppla/dealerintake/utils"
)

// ConfigController serves the upload rules form clients render.
type ConfigController struct {
	maxBytes int64
}

func NewConfigController(maxBytes int64) *ConfigController {
	if maxBytes <= 0 {
		maxBytes = models.ServerMaxFileBytes
	}
	return &ConfigController{maxBytes: maxBytes}
}

// UploadRules returns accepted types and size limits for identity documents.
func (c *ConfigController) UploadRules(ctx *gin.Context) {
	fields := gin.H{
		"text":     []string{"dealersCode", "dealershipName"},
		"required": []string{models.DocumentSelf.FormField()},
		"optional": []string{models.DocumentSpouse.FormField()},
	}
	utils.Success(ctx, gin.H{
		"accepted_types":   []string{"image/*", models.PDFMimeType},
		"client_max_bytes": models.ClientMaxFileBytes,
		"server_max_bytes": c.maxBytes,
		"fields":           fields,
	})
}
