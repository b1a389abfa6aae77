package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"anoa.com/scholarhub/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ProfileFinder loads the current role and cohort of a token subject.
type ProfileFinder interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
}

type AuthMiddleware struct {
	profiles ProfileFinder
	secret   string
}

func NewAuthMiddleware(profiles ProfileFinder, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		profiles: profiles,
		secret:   secret,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (browsers cannot set headers on websockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		// Role and cohort are read per request; promotion takes effect without a new token.
		profile, err := m.profiles.FindProfile(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set("user_id", userID.String())
		c.Set("role", profile.Role)
		if profile.ClassName != nil {
			c.Set("class_name", *profile.ClassName)
		}
		c.Next()
	}
}

func (m *AuthMiddleware) RequireDirector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("user_id"); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		if c.GetString("role") != entity.RoleDirector {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "director access required"})
			return
		}

		c.Next()
	}
}
