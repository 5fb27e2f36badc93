package auth

import (
	"errors"
	"investtrack/internal/utils"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Claims is the session token minted by the identity front end after an
// OAuth sign in. Subject is the stable user id.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

type Handler struct {
	db     *gorm.DB
	jwtKey []byte
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, jwtKey []byte, logger *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		jwtKey: jwtKey,
		logger: logger,
	}
}

// Me returns the profile of the authenticated user.
func (h *Handler) Me(ctx *gin.Context) {
	id, ok := utils.CurrentUser(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var user utils.User
	err := h.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "User not found")
		} else {
			h.logger.Error("Failed to load user", "userId", id, "error", err)
			utils.Fail(ctx, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.OK(ctx, http.StatusOK, user)
}

// UpsertUser inserts the identity on first access and refreshes its
// profile fields afterwards.
func UpsertUser(db *gorm.DB, user *utils.User) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "image", "updated_at"}),
	}).Create(user).Error
}

// CreateToken signs a session token; used by the CLI and tests.
func CreateToken(user utils.User, secretKey []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func parseToken(tokenString string, jwtKey []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return jwtKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
