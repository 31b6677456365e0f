package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextUserID is the echo context key the JWT middleware stores the
// authenticated user id under.
const ContextUserID = "auth_user_id"

// JWTAuth validates the Authorization bearer token and puts the user id
// on the request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"status": false,
					"msg":    "Authorization header is required",
					"obj":    nil,
				})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"status": false,
					"msg":    "Invalid token",
					"obj":    nil,
				})
			}

			sub, _ := claims["sub"].(float64)
			if sub <= 0 {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"status": false,
					"msg":    "Invalid token subject",
					"obj":    nil,
				})
			}

			c.Set(ContextUserID, uint(sub))
			return next(c)
		}
	}
}

// UserID reads the authenticated user id set by JWTAuth.
func UserID(c echo.Context) uint {
	id, _ := c.Get(ContextUserID).(uint)
	return id
}

// CORS allows the storefront origin to call the API. Payment windows post
// cross-origin to the return endpoint, so that stays open.
func CORS(appOrigin string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := appOrigin
			if origin == "" {
				origin = "*"
			}
			c.Response().Header().Set("Access-Control-Allow-Origin", origin)
			c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if c.Request().Method == "OPTIONS" {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}
