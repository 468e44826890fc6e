package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sacoche_back_end/internal/auth"
	"sacoche_back_end/internal/config"
	"sacoche_back_end/internal/database"
	"sacoche_back_end/internal/handlers"
	"sacoche_back_end/internal/repository"
	"sacoche_back_end/internal/routes"
	"sacoche_back_end/internal/services"
	"sacoche_back_end/internal/shop"
	"sacoche_back_end/internal/utils"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET manquant")
	}
	if cfg.StripeSecretKey == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	payments := services.NewStripeGateway(cfg.StripeSecretKey)
	log.Println("✅ Stripe initialisé")

	conns, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Connexion aux bases impossible: %v", err)
	}
	defer conns.Close()

	orders := repository.NewMongoOrders(conns.MongoDB)
	if err := orders.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️ Index MongoDB non créés: %v", err)
	}

	identity, err := firebaseIdentity(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if _, err := auth.Setup(auth.OAuthConfig{
		BaseURL:              cfg.BaseURL,
		SessionSecret:        cfg.SessionSecret,
		SecureCookie:         strings.HasPrefix(cfg.BaseURL, "https://"),
		GoogleClientID:       cfg.GoogleClientID,
		GoogleClientSecret:   cfg.GoogleClientSecret,
		FacebookClientID:     cfg.FacebookClientID,
		FacebookClientSecret: cfg.FacebookClientSecret,
	}); err != nil {
		log.Fatalf("❌ OAuth: %v", err)
	}

	products := repository.NewCachedProducts(repository.NewScyllaProducts(conns.Products), conns.Redis)
	users := repository.NewScyllaUsers(conns.Users)
	carts := repository.NewRedisCarts(conns.Redis)
	events := repository.NewRedisEvents(conns.Redis)
	guard := repository.NewRedisGuard(conns.Redis)
	index := services.NewProductIndex(conns.Elastic)
	images := services.NewImageStore(conns.MinIO, cfg.MinIOBucket, cfg.MinIOPublicURL)
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	h := &handlers.Handlers{
		Catalog: shop.NewCatalog(products, index),
		Carts:   shop.NewCarts(products, carts, events),
		Accounts: &shop.Accounts{
			Users:    users,
			Carts:    carts,
			Payments: payments,
			Identity: identity,
			Objects:  images,
			Now:      time.Now,
		},
		Checkout: &shop.Checkout{
			Users:    users,
			Carts:    carts,
			Orders:   orders,
			Payments: payments,
			Notifier: mailer,
			Events:   events,
			Now:      time.Now,
		},
		Admin: &shop.Admin{
			Products: products,
			Carts:    carts,
			Orders:   orders,
			Users:    users,
			Index:    index,
			Events:   events,
			Now:      time.Now,
		},
		Identity:      identity,
		Tokens:        tokens,
		Revoker:       guard,
		Images:        images,
		Invoices:      utils.NewInvoiceRenderer(utils.CompanyInfo{Name: cfg.CompanyName, IBAN: cfg.CompanyIBAN, BIC: cfg.CompanyBIC}),
		StatusMail:    mailer,
		Events:        events,
		WebhookSecret: cfg.StripeWebhookSecret,
	}

	r := gin.Default()
	routes.RegisterRoutes(r, h, routes.Options{
		CORSOrigins:       cfg.CORSOrigins,
		Tokens:            tokens,
		Revocations:       guard,
		Limiter:           guard,
		CheckoutPerMinute: cfg.CheckoutPerMinute,
	})

	log.Println("🚀 Serveur Sacoche lancé sur le port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Serveur arrêté: %v", err)
	}
}

func firebaseIdentity(ctx context.Context, cfg *config.Config) (*services.FirebaseIdentity, error) {
	var creds []byte
	if cfg.FirebaseCredentialsFile != "" {
		data, err := os.ReadFile(cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, err
		}
		creds = data
	}
	return services.NewFirebaseIdentity(ctx, cfg.FirebaseProjectID, creds)
}
