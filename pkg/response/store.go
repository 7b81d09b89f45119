package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/deskly/backend/pkg/database"
)

// StoreError maps a repository error onto the HTTP taxonomy: missing row to
// 404 (with the given message), constraint conflict to 409, anything else to
// 500 with the store's message passed through.
func StoreError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		NotFound(c, notFoundMsg)
	case errors.Is(err, database.ErrConflict):
		Conflict(c, err.Error())
	default:
		Internal(c, err.Error())
	}
}
