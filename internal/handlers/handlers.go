package handlers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"sacoche_back_end/internal/middleware"
	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
	"sacoche_back_end/internal/utils"
)

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (models.Identity, error)
}

type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type ImageUploader interface {
	Upload(ctx context.Context, prefix string, file *multipart.FileHeader) (string, error)
}

type InvoiceRenderer interface {
	RenderPDF(ctx context.Context, o models.Order) ([]byte, error)
}

type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, o models.Order) error
}

type Subscriber interface {
	SubscribeCart(ctx context.Context, email string) *redis.PubSub
	SubscribeOrders(ctx context.Context) *redis.PubSub
}

// Handlers porte les services du shop et les adaptateurs externes utilisés par les routes
type Handlers struct {
	Catalog  *shop.Catalog
	Carts    *shop.Carts
	Accounts *shop.Accounts
	Checkout *shop.Checkout
	Admin    *shop.Admin

	Identity      IdentityVerifier
	Tokens        *utils.TokenIssuer
	Revoker       Revoker
	Images        ImageUploader
	Invoices      InvoiceRenderer
	StatusMail    StatusNotifier
	Events        Subscriber
	WebhookSecret string
}

func session(c *gin.Context) shop.Session {
	return shop.Session{
		Email: c.GetString(middleware.KeyEmail),
		Role:  c.GetString(middleware.KeyRole),
	}
}

// respondError traduit les erreurs du shop en codes HTTP.
// Tout ce qui n'est pas identifié devient une 500 au message générique.
func respondError(c *gin.Context, err error) {
	var verr *shop.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, shop.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Introuvable"})
	case errors.Is(err, shop.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
	case errors.Is(err, shop.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflit, réessayez"})
	default:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Une erreur est survenue, réessayez plus tard"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
