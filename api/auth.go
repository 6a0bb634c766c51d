package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenExpiry = 12 * time.Hour

// login checks the operator credential and issues a bearer token
// @Summary Operator login
// @Tags auth
// @Accept json
// @Produce json
// @Router /auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request format",
			Error:   err.Error(),
		})
		return
	}

	if req.Username != s.config.API.OperatorUser ||
		bcrypt.CompareHashAndPassword([]byte(s.config.API.OperatorBcrypt), []byte(req.Password)) != nil {
		s.logger.Warn("Rejected login attempt", map[string]interface{}{"username": req.Username})
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    http.StatusUnauthorized,
			Message: "Invalid credentials",
		})
		return
	}

	expiry := s.config.API.TokenExpiry
	if expiry <= 0 {
		expiry = defaultTokenExpiry
	}
	expiresAt := time.Now().Add(expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(s.config.API.JWTSecret))
	if err != nil {
		s.handleError(c, "Failed to issue token", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[LoginResponse]{
		Code:    http.StatusOK,
		Message: "Login successful",
		Data:    &LoginResponse{Token: signed, ExpiresAt: expiresAt.Unix()},
	})
}

// authMiddleware validates the bearer token on every protected route
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/auth/login" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Missing bearer token",
			})
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.config.API.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Invalid or expired token",
			})
			return
		}

		if subject, err := token.Claims.GetSubject(); err == nil {
			c.Set("operator", subject)
		}
		c.Next()
	}
}
