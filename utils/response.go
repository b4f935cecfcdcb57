package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the envelope used by the auxiliary endpoints.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// IntakeSuccess is the body of a successful upload.
type IntakeSuccess struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// IntakeError is the body of a rejected or failed upload. Message is only
// set for downstream failures.
type IntakeError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Accepted acknowledges a completed upload.
func Accepted(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusOK, IntakeSuccess{Success: true, Message: message})
}

// Rejected reports a request problem that had no side effects.
func Rejected(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, IntakeError{Error: message})
}

// ServerError reports a downstream failure with its detail.
func ServerError(ctx *gin.Context, detail string) {
	ctx.JSON(http.StatusInternalServerError, IntakeError{Error: "Server error", Message: detail})
}
