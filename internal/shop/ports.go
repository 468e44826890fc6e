package shop

import (
	"context"

	"sacoche_back_end/internal/models"
)

type ProductStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SaveProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// CartStore conserve un document panier par email.
// UpdateCart applique fn sur la version courante et n'écrit que si personne
// n'a modifié le panier entre-temps ; si fn renvoie ErrCartUnchanged rien n'est écrit.
type CartStore interface {
	GetCart(ctx context.Context, email string) ([]models.CartItem, error)
	UpdateCart(ctx context.Context, email string, fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, error)
	DeleteCart(ctx context.Context, email string) error
	CartOwners(ctx context.Context) ([]string, error)
}

type UserStore interface {
	GetUser(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u models.User) error
	UpdateProfile(ctx context.Context, email, username, profilePic string) error
	SetAddress(ctx context.Context, email, address string) error
	SetCard(ctx context.Context, email string, card models.Card) error
	RemoveCard(ctx context.Context, email, cardID string) error
	SetStripeCustomer(ctx context.Context, email, customerID string) error
	SetRole(ctx context.Context, email, role string) error
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, email string) error
}

// StatusUpdate ne touche que les champs non nil
type StatusUpdate struct {
	PaymentStatus  *string `json:"paymentStatus"`
	DeliveryStatus *string `json:"deliveryStatus"`
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, email string) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, update StatusUpdate) (*models.Order, error)
	MarkPaidByIntent(ctx context.Context, intentID string) (*models.Order, error)
}

// SearchIndex renvoie des ids produits classés par pertinence
type SearchIndex interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]string, error)
}

type ChargeRequest struct {
	OrderID         string
	Email           string
	CustomerID      string
	PaymentMethodID string
	Amount          float64
}

type Charge struct {
	IntentID     string
	ClientSecret string
	Status       string
}

type PaymentGateway interface {
	EnsureCustomer(ctx context.Context, u models.User) (string, error)
	AttachCard(ctx context.Context, customerID, paymentMethodID string) (*models.Card, error)
	DetachCard(ctx context.Context, paymentMethodID string) error
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	// CancelCharge annule le paiement, ou le rembourse s'il a déjà abouti
	CancelCharge(ctx context.Context, ch Charge) error
}

type Notifier interface {
	OrderPlaced(ctx context.Context, o models.Order) error
}

// Events diffuse les changements ; la diffusion est au mieux, sans retour d'erreur.
type Events interface {
	CartUpdated(ctx context.Context, email string)
	OrderPlaced(ctx context.Context, o models.Order)
}

type IdentityProvider interface {
	DeleteAccount(ctx context.Context, email string) error
}

type ObjectRemover interface {
	RemovePrefix(ctx context.Context, prefix string) (int, error)
}

type noEvents struct{}

func (noEvents) CartUpdated(context.Context, string)        {}
func (noEvents) OrderPlaced(context.Context, models.Order) {}

func eventsOrNoop(e Events) Events {
	if e == nil {
		return noEvents{}
	}
	return e
}
