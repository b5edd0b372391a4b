package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request: {"error": "..."}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Respond writes v as JSON with the given status code.
func Respond(ctx *gin.Context, status int, v interface{}) {
	ctx.JSON(status, v)
}

// Success writes v with status 200.
func Success(ctx *gin.Context, v interface{}) {
	Respond(ctx, http.StatusOK, v)
}

// OK writes {"ok": true}.
func OK(ctx *gin.Context) {
	Respond(ctx, http.StatusOK, gin.H{"ok": true})
}

// Error writes {"error": message} and stops the handler chain.
func Error(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
