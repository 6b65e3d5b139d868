package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/http/response"
	"github.com/yungbote/csvshare-backend/internal/platform/apierr"
	"github.com/yungbote/csvshare-backend/internal/platform/ctxutil"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/services"
)

const ctxKeyUser = "auth_user"

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "unauthorized", errors.New("Not authenticated"))
			return
		}
		user, err := am.authService.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			status, code := apierr.Classify(err)
			if status >= http.StatusInternalServerError {
				am.log.Error("Authenticate failed", "error", err)
				response.AbortWithError(c, status, code, errors.New("internal server error"))
				return
			}
			response.AbortWithError(c, status, code, apierr.Cause(err))
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			TokenString: tokenString,
			UserID:      user.ID,
			Username:    user.Username,
			Role:        string(user.Role),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			response.AbortWithError(c, http.StatusUnauthorized, "unauthorized", errors.New("Not authenticated"))
			return
		}
		if domain.Role(rd.Role) != domain.RoleAdmin {
			am.log.Warn("Admin route denied", "user_id", rd.UserID, "path", c.FullPath())
			response.AbortWithError(c, http.StatusForbidden, "forbidden", errors.New("Not enough permissions"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireAuth.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(ctxKeyUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

func extractTokenFromAll(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	return ""
}
