package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/deskly/backend/internal/auth"
	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/response"
)

// ContextUser is the key for the resolved user in gin context.
const ContextUser = "user"

// UserResolver resolves an opaque session token to its active user.
type UserResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// Session returns a middleware that resolves the x-session-token header and
// stores the resulting user in the request context. Resolution happens fresh
// on every request.
func Session(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(auth.HeaderSessionToken)
		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionInvalid):
				response.Unauthorized(c, err.Error())
			case errors.Is(err, auth.ErrUserInactive):
				response.Forbidden(c, err.Error())
			default:
				response.Internal(c, err.Error())
			}
			c.Abort()
			return
		}
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the user resolved by the Session middleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
