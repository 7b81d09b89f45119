package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON envelope for all failure responses. Successful
// responses return the operation's result object or array directly.
type ErrorBody struct {
	Error string `json:"error"`
}

// OK sends a 200 JSON response with the result.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response with the result.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// BadRequest sends 400 with error message (validation failure or unknown operation).
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: err})
}

// Unauthorized sends 401 (missing, invalid or expired session).
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: err})
}

// Forbidden sends 403 (authenticated but not authorized).
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, ErrorBody{Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, ErrorBody{Error: err})
}

// Conflict sends 409 (overlapping booking interval).
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, ErrorBody{Error: err})
}

// Internal sends 500 with the store's message passed through.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: err})
}
