package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// APIResponse is the envelope returned by every JSON endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(ctx *gin.Context, status int, data any) {
	ctx.JSON(status, APIResponse{Success: true, Data: data})
}

func Fail(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, APIResponse{Success: false, Message: message})
}

// Abort writes a failure and stops the middleware chain.
func Abort(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, APIResponse{Success: false, Message: message})
}

// CurrentUser returns the id set by the auth middleware.
func CurrentUser(ctx *gin.Context) (string, bool) {
	id := ctx.GetString("current_user")
	return id, id != ""
}

func RandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// NewRedisClient returns nil, nil when addr is empty: redis is optional.
func NewRedisClient(addr, password, db string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	n := 0
	if db != "" {
		var err error
		n, err = strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB is invalid: %w", err)
		}
	}
	return redis.NewClient(
		&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       n,
		}), nil
}
