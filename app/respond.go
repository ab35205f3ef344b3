package app

import "github.com/gin-gonic/gin"

const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeTooManyAttempts  = "TOO_MANY_ATTEMPTS"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// AbortJSON stops the chain with the shared error envelope.
func AbortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, H{"error": msg, "code": code})
}
