package custody

import (
	"errors"

	"tool_custody/db"
)

var (
	ErrNotFound           = db.ErrNotFound
	ErrStoreUnavailable   = db.ErrStoreUnavailable
	ErrItemUnavailable    = errors.New("item unavailable")
	ErrTransactionClosed  = errors.New("transaction closed")
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
