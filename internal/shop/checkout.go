package shop

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"sacoche_back_end/internal/models"
)

type CheckoutRequest struct {
	SelectedIDs   []string `json:"selectedIds"`
	PaymentMethod string   `json:"paymentMethod"`
	CardID        string   `json:"cardId"`
}

type Receipt struct {
	Order        models.Order `json:"order"`
	EmailSent    bool         `json:"emailSent"`
	ClientSecret string       `json:"clientSecret,omitempty"`
}

// Checkout fige les lignes sélectionnées du panier en une commande.
type Checkout struct {
	Users    UserStore
	Carts    CartStore
	Orders   OrderStore
	Payments PaymentGateway
	Notifier Notifier
	Events   Events
	Now      func() time.Time
}

// PlaceOrder valide tout avant la moindre écriture. Le panier n'est pas vidé.
// Si la commande ne peut pas être écrite, le paiement carte est annulé ou remboursé.
// L'e-mail part après l'écriture de la commande : son échec ne l'annule pas.
func (c *Checkout) PlaceOrder(ctx context.Context, s Session, req CheckoutRequest) (*Receipt, error) {
	if len(req.SelectedIDs) == 0 {
		return nil, invalid("selectedIds", "aucun article sélectionné")
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = models.PaymentMethodCOD
	}
	if method != models.PaymentMethodCOD && method != models.PaymentMethodCard {
		return nil, invalid("paymentMethod", "moyen de paiement inconnu")
	}

	user, err := c.Users.GetUser(ctx, s.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.Address) == "" {
		return nil, invalid("address", "adresse de livraison manquante")
	}

	var card models.Card
	if method == models.PaymentMethodCard {
		var ok bool
		card, ok = user.Cards[req.CardID]
		if !ok || user.StripeCustomerID == "" {
			return nil, invalid("cardId", "carte inconnue")
		}
	}

	cart, err := c.Carts.GetCart(ctx, s.Email)
	if err != nil {
		return nil, err
	}
	lines, err := SelectLines(cart, req.SelectedIDs)
	if err != nil {
		return nil, err
	}

	order := BuildOrder(*user, lines, method, c.now())
	receipt := &Receipt{}

	var charge *Charge
	if method == models.PaymentMethodCard {
		charge, err = c.Payments.Charge(ctx, ChargeRequest{
			OrderID:         order.ID,
			Email:           user.Email,
			CustomerID:      user.StripeCustomerID,
			PaymentMethodID: card.ID,
			Amount:          order.Total,
		})
		if err != nil {
			return nil, fmt.Errorf("paiement: %w", err)
		}
		order.PaymentIntentID = charge.IntentID
		receipt.ClientSecret = charge.ClientSecret
	}

	if err := c.Orders.CreateOrder(ctx, order); err != nil {
		if charge != nil {
			c.cancelCharge(ctx, *charge)
		}
		return nil, fmt.Errorf("écriture commande: %w", err)
	}
	log.Printf("✅ Commande %s enregistrée (%.2f€)", order.ID, order.Total)
	receipt.Order = order

	eventsOrNoop(c.Events).OrderPlaced(ctx, order)

	if c.Notifier != nil {
		if err := c.Notifier.OrderPlaced(ctx, order); err != nil {
			log.Printf("❌ E-mail de confirmation non envoyé pour %s: %v", order.ID, err)
		} else {
			receipt.EmailSent = true
		}
	}
	return receipt, nil
}

// cancelCharge rend l'argent d'une commande qui n'a pas pu être écrite
func (c *Checkout) cancelCharge(ctx context.Context, ch Charge) {
	if err := c.Payments.CancelCharge(ctx, ch); err != nil {
		log.Printf("❌ Paiement %s non annulé après échec de la commande: %v", ch.IntentID, err)
		return
	}
	log.Printf("↩️ Paiement %s annulé : commande non enregistrée", ch.IntentID)
}

// ConfirmPayment est appelé par le webhook Stripe quand le paiement aboutit
func (c *Checkout) ConfirmPayment(ctx context.Context, intentID string) (*models.Order, error) {
	if intentID == "" {
		return nil, invalid("payment_intent", "absent")
	}
	return c.Orders.MarkPaidByIntent(ctx, intentID)
}

func (c *Checkout) MyOrders(ctx context.Context, s Session) ([]models.Order, error) {
	return c.Orders.ListOrdersByUser(ctx, s.Email)
}

// Order renvoie la commande si elle appartient à l'appelant (ou si c'est un admin)
func (c *Checkout) Order(ctx context.Context, s Session, id string) (*models.Order, error) {
	order, err := c.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserEmail != s.Email && !s.IsAdmin() {
		return nil, ErrNotFound
	}
	return order, nil
}

// SelectLines garde l'ordre du panier ; un id sélectionné absent du panier est refusé.
func SelectLines(cart []models.CartItem, selected []string) ([]models.CartItem, error) {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	lines := make([]models.CartItem, 0, len(want))
	for _, item := range cart {
		if want[item.ProductID] {
			lines = append(lines, item)
			delete(want, item.ProductID)
		}
	}
	for _, id := range selected {
		if want[id] {
			return nil, invalid("selectedIds", fmt.Sprintf("%s n'est pas dans le panier", id))
		}
	}
	return lines, nil
}

func OrderID(email string, at time.Time) string {
	return fmt.Sprintf("%s_%d", email, at.UnixMilli())
}

// BuildOrder copie les lignes : la commande ne dépend plus des produits ensuite.
func BuildOrder(user models.User, lines []models.CartItem, method string, at time.Time) models.Order {
	items := make([]models.OrderItem, 0, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Title,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Image:     l.Image,
		})
		ids = append(ids, l.ProductID)
	}
	subtotal := ComputeTotal(lines, ids)

	return models.Order{
		ID:        OrderID(user.Email, at),
		UserEmail: user.Email,
		User: models.OrderUser{
			Email:    user.Email,
			Username: user.Username,
			Address:  user.Address,
		},
		Items:          items,
		Subtotal:       subtotal,
		Total:          subtotal,
		PaymentMethod:  method,
		PaymentStatus:  models.PaymentPending,
		DeliveryStatus: models.DeliveryPending,
		CreatedAt:      at,
	}
}

func (c *Checkout) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
