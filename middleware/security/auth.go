package security

import (
	"net/http"
	"strings"

	"QChat/service/storage"
	"QChat/tools/errs"
	sec "QChat/tools/security"

	"github.com/gin-gonic/gin"
)

// Context key the downstream modules read the caller identity from.
const CtxUserIDKey = "user_id"

type Options struct {
	JWT sec.Options

	HeaderToken               string // default "token"
	EnableAuthorizationBearer bool   // default true
}

func DefaultOptions(jwt sec.Options) *Options {
	return &Options{
		JWT:                       jwt,
		HeaderToken:               "token",
		EnableAuthorizationBearer: true,
	}
}

// Middleware authenticates the request: JWT signature first, then the session
// record, so a superseded or logged-out token is rejected before expiry.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))

		if token == "" && opts.EnableAuthorizationBearer {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					token = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
			return
		}

		userID, err := sec.Verify(opts.JWT, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}

		if err := storage.CheckSession(c.Request.Context(), userID, sec.HashToken(token)); err != nil {
			if errs.Is(err, errs.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "session expired"})
				return
			}
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated caller set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
