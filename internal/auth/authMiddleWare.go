package auth

import (
	"crypto/subtle"
	"investtrack/internal/utils"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func MiddleWare(jwtKey []byte, DB *gorm.DB, logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearer(ctx)
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, "Authorization token is missing")
			return
		}

		claims, err := parseToken(tokenString, jwtKey)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, "Invalid Authorization Token")
			return
		}

		user := utils.User{
			ID:    claims.Subject,
			Email: strings.ToLower(claims.Email),
			Name:  claims.Name,
			Image: claims.Picture,
		}
		if err := UpsertUser(DB.WithContext(ctx), &user); err != nil {
			logger.Error("Failed to upsert user", "userId", user.ID, "error", err)
			utils.Abort(ctx, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx.Set("current_user", user.ID)
		ctx.Next()
	}
}

// SharedSecret guards machine endpoints (cron, automation). The expected
// value is compared against header, or the bearer token when header is
// "Authorization". An empty secret locks the endpoint.
func SharedSecret(header, secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if secret == "" {
			utils.Abort(ctx, http.StatusServiceUnavailable, "Endpoint not configured")
			return
		}
		got := ctx.GetHeader(header)
		if header == "Authorization" {
			got = bearer(ctx)
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			utils.Abort(ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx.Next()
	}
}

func bearer(ctx *gin.Context) string {
	h := ctx.GetHeader("Authorization")
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}
