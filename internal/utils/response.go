// Package utils holds the shared JSON response envelope used by every
// handler that does not return a raw resource body.
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes a 200 envelope wrapping the given payload.
func Success(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error writes an error envelope with the given status code. Handlers
// use this for request-level failures; per-file outcomes inside a
// batch response are reported as plain result entries instead.
func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
	})
}
