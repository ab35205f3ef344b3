package controllers

import (
	"errors"
	"net/http"

	"tool_custody/app"
	"tool_custody/config"
	"tool_custody/custody"

	"github.com/gin-gonic/gin"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeItemUnavailable    = "ITEM_UNAVAILABLE"
	CodeTransactionClosed  = "TRANSACTION_CLOSED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL"
)

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, custody.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, custody.ErrItemUnavailable):
		return http.StatusConflict, CodeItemUnavailable
	case errors.Is(err, custody.ErrTransactionClosed):
		return http.StatusConflict, CodeTransactionClosed
	case errors.Is(err, custody.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, custody.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials
	case errors.Is(err, custody.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, app.CodeStoreUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// respondError maps domain errors onto the JSON error envelope.
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		config.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal error"
	}
	app.AbortJSON(c, status, code, msg)
}

func badRequest(c *gin.Context, msg string) {
	app.AbortJSON(c, http.StatusBadRequest, CodeValidation, msg)
}
