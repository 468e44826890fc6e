package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sacoche_back_end/internal/handlers"
	"sacoche_back_end/internal/middleware"
)

type Options struct {
	CORSOrigins       []string
	Tokens            middleware.TokenParser
	Revocations       middleware.RevocationChecker
	Limiter           middleware.Counter
	CheckoutPerMinute int64
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, opts Options) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := middleware.AuthRequired(opts.Tokens, opts.Revocations)
	checkoutLimit := middleware.RateLimit(opts.Limiter, "checkout", opts.CheckoutPerMinute, time.Minute)
	deleteLimit := middleware.RateLimit(opts.Limiter, "delete-user", 3, time.Hour)

	api := r.Group("/api")

	// Catalogue (public)
	api.GET("/products", h.ListProducts)
	api.GET("/products/search", h.SearchProducts)
	api.GET("/products/:id", h.GetProduct)

	api.POST("/webhooks/stripe", h.StripeWebhook)

	// Authentification
	authGroup := api.Group("/auth")
	authGroup.POST("/firebase", h.FirebaseLogin)
	authGroup.POST("/logout", auth, h.Logout)
	authGroup.GET("/:provider", h.BeginOAuth)
	authGroup.GET("/:provider/callback", h.OAuthCallback)

	// Panier
	cart := api.Group("/cart", auth)
	cart.GET("", h.GetCart)
	cart.DELETE("", h.ClearCart)
	cart.POST("/items", h.AddCartItem)
	cart.PATCH("/items/:productId", h.ChangeCartQuantity)
	cart.DELETE("/items/:productId", h.RemoveCartItem)
	cart.POST("/total", h.CartTotal)
	cart.GET("/ws", h.CartWebSocket)

	// Compte
	account := api.Group("/account", auth)
	account.GET("", h.GetAccount)
	account.PUT("", h.UpdateAccount)
	account.POST("/avatar", h.UploadAvatar)
	account.PUT("/address", h.SetAddress)
	account.POST("/cards", h.AddCard)
	account.DELETE("/cards/:id", h.RemoveCard)

	// Commandes
	api.POST("/checkout", auth, checkoutLimit, h.PlaceOrder)
	orders := api.Group("/orders", auth)
	orders.GET("", h.MyOrders)
	orders.GET("/:id", h.GetOrder)
	orders.GET("/:id/invoice", h.OrderInvoice)

	// Admin
	admin := api.Group("/admin", auth, middleware.RequireAdmin)
	admin.POST("/products", h.CreateProduct)
	admin.POST("/products/image", h.UploadProductImage)
	admin.GET("/products/export", h.ExportProducts)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.GET("/orders", h.ListAllOrders)
	admin.GET("/orders/export", h.ExportOrders)
	admin.GET("/orders/live", h.LiveOrders)
	admin.PATCH("/orders/:id", h.UpdateOrderStatus)
	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:email/role", h.SetUserRole)
	admin.GET("/stats", h.Stats)

	r.POST("/delete-user", auth, deleteLimit, h.DeleteUser)
}
