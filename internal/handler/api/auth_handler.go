package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storepay/internal/config"
	"storepay/internal/middleware"
)

// AuthHandler issues and validates storefront session tokens. Login is
// email-only against the seeded demo accounts.
type AuthHandler struct {
	repos  *Repos
	jwtCfg config.JWTConfig
	logger *zap.Logger
}

func NewAuthHandler(repos *Repos, jwtCfg config.JWTConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{repos: repos, jwtCfg: jwtCfg, logger: logger}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return errorResponse(c, "email is required")
	}

	user, err := h.repos.User.FindByEmail(req.Email)
	if err != nil {
		return errorResponse(c, "user not found")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   float64(user.ID),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(h.jwtCfg.Expiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtCfg.Secret))
	if err != nil {
		h.logger.Error("token signing failed", zap.Error(err))
		return errorResponse(c, "failed to issue token")
	}

	return successResponse(c, "login ok", map[string]interface{}{
		"token":       token,
		"userId":      user.ID,
		"email":       user.Email,
		"name":        user.Name,
		"phoneNumber": user.PhoneNumber,
		"points":      user.Points,
	})
}

// Me handles GET /api/auth/me and returns a fresh user snapshot, which
// the checkout page uses to refresh the point balance.
func (h *AuthHandler) Me(c echo.Context) error {
	userID := middleware.UserID(c)
	user, err := h.repos.User.FindByID(userID)
	if err != nil {
		return errorResponse(c, "user not found")
	}
	return successResponse(c, "ok", user)
}
