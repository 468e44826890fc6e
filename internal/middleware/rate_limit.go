package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit limite à max requêtes par fenêtre, par utilisateur connecté (sinon par IP).
// Si Redis ne répond pas, la requête passe.
func RateLimit(counter Counter, name string, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := c.GetString(KeyEmail)
		if who == "" {
			who = c.ClientIP()
		}

		n, err := counter.Hit(c.Request.Context(), name+":"+who, window)
		if err != nil {
			log.Printf("⚠️ Rate limit %s indisponible: %v", name, err)
			c.Next()
			return
		}

		remaining := max - n
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if n > max {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de requêtes. Réessayez dans %d secondes", int(window.Seconds())),
				"retry_after": int(window.Seconds()),
			})
			return
		}
		c.Next()
	}
}
