package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sacoche_back_end/internal/utils"
)

const (
	KeyEmail  = "email"
	KeyRole   = "role"
	KeyClaims = "claims"
)

type TokenParser interface {
	Parse(raw string) (*utils.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) bool
}

// AuthRequired valide le JWT (header Bearer, ou ?token= pour les websockets)
// et place email, rôle et claims dans le contexte gin.
func AuthRequired(tokens TokenParser, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token manquant"})
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			log.Printf("❌ Erreur parsing JWT: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
			return
		}
		if revoked != nil && revoked.IsRevoked(c.Request.Context(), claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token révoqué"})
			return
		}

		c.Set(KeyEmail, claims.Email)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyClaims, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		// les navigateurs ne posent pas de header sur un upgrade websocket
		if c.IsWebsocket() {
			return c.Query("token")
		}
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
