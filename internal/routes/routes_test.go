package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"sacoche_back_end/internal/handlers"
	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/repository"
	"sacoche_back_end/internal/shop/shoptest"
	"sacoche_back_end/internal/utils"
)

const webhookSecret = "whsec_test"

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	identities map[string]models.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, idToken string) (models.Identity, error) {
	id, ok := f.identities[idToken]
	if !ok {
		return models.Identity{}, errors.New("token inconnu")
	}
	return id, nil
}

type fakeImages struct{}

func (fakeImages) Upload(_ context.Context, prefix string, file *multipart.FileHeader) (string, error) {
	return "http://img.local/" + prefix + "/" + file.Filename, nil
}

type fakeInvoices struct{}

func (fakeInvoices) RenderPDF(_ context.Context, o models.Order) ([]byte, error) {
	return []byte("%PDF-1.4 " + o.ID), nil
}

type fakeStatusMail struct {
	sent []models.Order
}

func (f *fakeStatusMail) OrderStatusChanged(_ context.Context, o models.Order) error {
	f.sent = append(f.sent, o)
	return nil
}

type stack struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	env      *shoptest.Env
	router   *gin.Engine
	tokens   *utils.TokenIssuer
	verifier *fakeVerifier
	mail     *fakeStatusMail
}

func newStack(t *testing.T) *stack {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := shoptest.NewEnv(t0)
	guard := repository.NewRedisGuard(rdb)
	s := &stack{
		mr:       mr,
		rdb:      rdb,
		env:      env,
		tokens:   utils.NewTokenIssuer("test-secret", time.Hour),
		verifier: &fakeVerifier{identities: map[string]models.Identity{}},
		mail:     &fakeStatusMail{},
	}
	h := &handlers.Handlers{
		Catalog:       env.Catalog,
		Carts:         env.Cart,
		Accounts:      env.Accounts,
		Checkout:      env.Checkout,
		Admin:         env.Admin,
		Identity:      s.verifier,
		Tokens:        s.tokens,
		Revoker:       guard,
		Images:        fakeImages{},
		Invoices:      fakeInvoices{},
		StatusMail:    s.mail,
		Events:        repository.NewRedisEvents(rdb),
		WebhookSecret: webhookSecret,
	}
	s.router = gin.New()
	RegisterRoutes(s.router, h, Options{
		CORSOrigins:       []string{"http://localhost:3000"},
		Tokens:            s.tokens,
		Revocations:       guard,
		Limiter:           guard,
		CheckoutPerMinute: 10,
	})
	return s
}

// login crée l'utilisateur s'il n'existe pas et renvoie un JWT
func (s *stack) login(t *testing.T, email, role, address string) string {
	t.Helper()
	err := s.env.Users.CreateUser(context.Background(), models.User{
		Email: email, Username: "client", Role: role, Address: address,
		Cards: map[string]models.Card{}, CreatedAt: t0,
	})
	require.NoError(t, err)
	token, err := s.tokens.Issue(email, role)
	require.NoError(t, err)
	return token
}

func (s *stack) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *stack) seedBag(t *testing.T, id string, price float64) {
	t.Helper()
	require.NoError(t, s.env.Products.SaveProduct(context.Background(), models.Product{
		ID: id, Title: "Sac " + id, OriginalPrice: price * 2, DiscountedPrice: price,
		Image: "http://img.local/" + id + ".jpg", Details: map[string]string{"matière": "cuir"},
		CreatedAt: t0,
	}))
}

func TestCatalogIsPublic(t *testing.T) {
	s := newStack(t)
	s.seedBag(t, "product_1", 100)
	s.seedBag(t, "product_2", 50)

	w := s.do(http.MethodGet, "/api/products?page=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items      []models.Product `json:"items"`
		TotalItems int              `json:"totalItems"`
	}
	decode(t, w, &page)
	assert.Equal(t, 2, page.TotalItems)
	assert.Equal(t, "product_2", page.Items[0].ID)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/products/product_1", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/products/nope", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/products/search?q=sac", "", nil).Code)
}

func TestFirebaseLoginAndLogout(t *testing.T) {
	s := newStack(t)
	s.verifier.identities["good"] = models.Identity{Email: "Alice@Example.com", Name: "Alice"}

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/auth/firebase", "", gin.H{}).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/firebase", "", gin.H{"idToken": "bad"}).Code)

	w := s.do(http.MethodPost, "/api/auth/firebase", "", gin.H{"idToken": "good"})
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, w, &out)
	assert.Equal(t, "alice@example.com", out.User.Email)
	assert.Equal(t, models.RoleUser, out.User.Role)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/account", out.Token, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/auth/logout", out.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/account", out.Token, nil).Code)
}

func TestCartRequiresAuth(t *testing.T) {
	s := newStack(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/cart", "", nil).Code)
}

func TestCartAndCheckout(t *testing.T) {
	s := newStack(t)
	s.seedBag(t, "p1", 100)
	alice := s.login(t, "alice@example.com", models.RoleUser, "")

	for range 2 {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", alice, gin.H{"productId": "p1"}).Code)
	}
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/cart/items", alice, gin.H{"productId": "ghost"}).Code)

	w := s.do(http.MethodPatch, "/api/cart/items/p1", alice, gin.H{"delta": -5})
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Items []models.CartItem `json:"items"`
	}
	decode(t, w, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	s.do(http.MethodPatch, "/api/cart/items/p1", alice, gin.H{"delta": 1})
	w = s.do(http.MethodPost, "/api/cart/total", alice, gin.H{"selectedIds": []string{"p1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":200}`, w.Body.String())

	// pas d'adresse : rien n'est écrit
	w = s.do(http.MethodPost, "/api/checkout", alice, gin.H{"selectedIds": []string{"p1"}, "paymentMethod": "cod"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, s.env.Orders.Len())

	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/account/address", alice, gin.H{"address": "1 rue de la Paix, Paris"}).Code)

	w = s.do(http.MethodPost, "/api/checkout", alice, gin.H{"selectedIds": []string{"p1"}, "paymentMethod": "cod"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order     models.Order `json:"order"`
		EmailSent bool         `json:"emailSent"`
	}
	decode(t, w, &placed)
	assert.Equal(t, 200.0, placed.Order.Subtotal)
	assert.Equal(t, 200.0, placed.Order.Total)
	assert.Equal(t, models.PaymentPending, placed.Order.PaymentStatus)
	assert.Equal(t, models.DeliveryPending, placed.Order.DeliveryStatus)
	assert.True(t, placed.EmailSent)

	w = s.do(http.MethodGet, "/api/orders", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Order
	decode(t, w, &mine)
	require.Len(t, mine, 1)

	path := "/api/orders/" + placed.Order.ID
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, alice, nil).Code)
	bob := s.login(t, "bob@example.com", models.RoleUser, "")
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, bob, nil).Code)

	w = s.do(http.MethodGet, path+"/invoice", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "FACT-")
}

func TestStripeWebhookConfirmsCardOrder(t *testing.T) {
	s := newStack(t)
	s.seedBag(t, "p1", 80)
	alice := s.login(t, "alice@example.com", models.RoleUser, "1 rue de la Paix")

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/account/cards", alice, gin.H{"paymentMethodId": "pm_1"}).Code)
	s.do(http.MethodPost, "/api/cart/items", alice, gin.H{"productId": "p1"})
	w := s.do(http.MethodPost, "/api/checkout", alice, gin.H{"selectedIds": []string{"p1"}, "paymentMethod": "card", "cardId": "pm_1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order        models.Order `json:"order"`
		ClientSecret string       `json:"clientSecret"`
	}
	decode(t, w, &placed)
	require.NotEmpty(t, placed.Order.PaymentIntentID)
	assert.NotEmpty(t, placed.ClientSecret)

	payload, _ := json.Marshal(gin.H{
		"id":          "evt_1",
		"object":      "event",
		"type":        "payment_intent.succeeded",
		"api_version": stripe.APIVersion,
		"data": gin.H{"object": gin.H{
			"id":     placed.Order.PaymentIntentID,
			"object": "payment_intent",
		}},
	})

	bad := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	bad.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	order, err := s.env.Orders.GetOrder(context.Background(), placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)
}

func TestAdminRoutes(t *testing.T) {
	s := newStack(t)
	s.seedBag(t, "p1", 100)
	alice := s.login(t, "alice@example.com", models.RoleUser, "1 rue de la Paix")
	root := s.login(t, "root@example.com", models.RoleAdmin, "")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/stats", alice, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/stats", root, nil).Code)

	product := gin.H{
		"title": "Cabas", "originalPrice": 120, "discountedPrice": 90,
		"image": "http://img.local/cabas.jpg", "details": gin.H{"couleur": "noir"},
	}
	w := s.do(http.MethodPost, "/api/admin/products", root, product)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Product
	decode(t, w, &created)
	assert.Equal(t, "cabas", created.Slug)

	product["details"] = gin.H{"couleur": " "}
	w = s.do(http.MethodPost, "/api/admin/products", root, product)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "details")

	// suppression : le panier est nettoyé, la commande reste intacte
	s.do(http.MethodPost, "/api/cart/items", alice, gin.H{"productId": "p1"})
	w = s.do(http.MethodPost, "/api/checkout", alice, gin.H{"selectedIds": []string{"p1"}, "paymentMethod": "cod"})
	require.Equal(t, http.StatusCreated, w.Code)
	var placed struct {
		Order models.Order `json:"order"`
	}
	decode(t, w, &placed)

	w = s.do(http.MethodDelete, "/api/admin/products/p1", root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"productId":"p1","cartsUpdated":1,"cartsFailed":0}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/cart", alice, nil)
	assert.JSONEq(t, `{"items":[],"count":0}`, w.Body.String())
	w = s.do(http.MethodGet, "/api/orders/"+placed.Order.ID, alice, nil)
	assert.Contains(t, w.Body.String(), `"productId":"p1"`)

	w = s.do(http.MethodPatch, "/api/admin/orders/"+placed.Order.ID, root, gin.H{"deliveryStatus": "Teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPatch, "/api/admin/orders/"+placed.Order.ID, root, gin.H{"deliveryStatus": "Shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.mail.sent, 1)
	assert.Equal(t, models.DeliveryShipped, s.mail.sent[0].DeliveryStatus)

	// statut de livraison inchangé : pas de second e-mail
	w = s.do(http.MethodPatch, "/api/admin/orders/"+placed.Order.ID, root, gin.H{"deliveryStatus": "Shipped", "paymentStatus": "Completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.mail.sent, 1)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/api/admin/users/root@example.com/role", root, gin.H{"role": "user"}).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/admin/users/alice@example.com/role", root, gin.H{"role": "admin"}).Code)

	w = s.do(http.MethodGet, "/api/admin/orders/export", root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, utils.XLSXContentType, w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestUploadAvatar(t *testing.T) {
	s := newStack(t)
	alice := s.login(t, "alice@example.com", models.RoleUser, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "moi.png")
	require.NoError(t, err)
	part.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/account/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user models.User
	decode(t, w, &user)
	assert.Equal(t, "http://img.local/users/alice@example.com/moi.png", user.ProfilePic)
	assert.Equal(t, "client", user.Username)
}

func TestDeleteUserEndpoint(t *testing.T) {
	s := newStack(t)
	alice := s.login(t, "alice@example.com", models.RoleUser, "")
	s.login(t, "bob@example.com", models.RoleUser, "")
	s.env.Carts.Put("alice@example.com", models.CartItem{ProductID: "p1", Quantity: 1})

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/delete-user", alice, gin.H{}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/delete-user", alice, gin.H{"email": "bob@example.com"}).Code)

	w := s.do(http.MethodPost, "/delete-user", alice, gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err := s.env.Users.GetUser(context.Background(), "alice@example.com")
	assert.Error(t, err)
	items, _ := s.env.Carts.GetCart(context.Background(), "alice@example.com")
	assert.Empty(t, items)
	assert.Equal(t, []string{"alice@example.com"}, s.env.Identity.Deleted)
}

func TestDeleteUserMalformedBody(t *testing.T) {
	s := newStack(t)
	alice := s.login(t, "alice@example.com", models.RoleUser, "")

	req := httptest.NewRequest(http.MethodPost, "/delete-user", bytes.NewReader([]byte(`{"email":`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+alice)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Données invalides")
	_, err := s.env.Users.GetUser(context.Background(), "alice@example.com")
	assert.NoError(t, err)
	assert.Empty(t, s.env.Identity.Deleted)
}

func TestDeleteUserIdentityFailureIsGeneric500(t *testing.T) {
	s := newStack(t)
	alice := s.login(t, "alice@example.com", models.RoleUser, "")
	s.env.Identity.Err = errors.New("firebase: quota exceeded")

	w := s.do(http.MethodPost, "/delete-user", alice, gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "quota")
}

func TestCORSPreflight(t *testing.T) {
	s := newStack(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
