package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/customer"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/paymentmethod"
	"github.com/stripe/stripe-go/v83/refund"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

const Currency = "eur"

// StripeGateway passe par l'API globale stripe (stripe.Key posé au démarrage)
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (StripeGateway) EnsureCustomer(_ context.Context, u models.User) (string, error) {
	c, err := customer.New(&stripe.CustomerParams{
		Email:    stripe.String(u.Email),
		Name:     stripe.String(u.Username),
		Metadata: map[string]string{"email": u.Email},
	})
	if err != nil {
		return "", err
	}
	log.Printf("💳 Client Stripe %s créé pour %s", c.ID, u.Email)
	return c.ID, nil
}

func (StripeGateway) AttachCard(_ context.Context, customerID, paymentMethodID string) (*models.Card, error) {
	pm, err := paymentmethod.Attach(paymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return nil, err
	}
	if pm.Card == nil {
		return nil, fmt.Errorf("%s n'est pas une carte", paymentMethodID)
	}
	return &models.Card{
		ID:       pm.ID,
		Brand:    string(pm.Card.Brand),
		Last4:    pm.Card.Last4,
		ExpMonth: pm.Card.ExpMonth,
		ExpYear:  pm.Card.ExpYear,
	}, nil
}

func (StripeGateway) DetachCard(_ context.Context, paymentMethodID string) error {
	_, err := paymentmethod.Detach(paymentMethodID, &stripe.PaymentMethodDetachParams{})
	return err
}

// Charge confirme le paiement avec la carte enregistrée, client présent :
// si la banque exige une authentification, l'intent reste en requires_action
// et le client finit l'étape 3-D Secure avec le client secret.
func (StripeGateway) Charge(_ context.Context, req shop.ChargeRequest) (*shop.Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(AmountInCents(req.Amount)),
		Currency:           stripe.String(Currency),
		Customer:           stripe.String(req.CustomerID),
		PaymentMethod:      stripe.String(req.PaymentMethodID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Metadata: map[string]string{
			"order_id": req.OrderID,
			"email":    req.Email,
		},
	}
	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	log.Printf("💳 PaymentIntent créé : %s (%.2f€) pour %s", intent.ID, req.Amount, req.Email)
	return &shop.Charge{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

// CancelCharge : un intent abouti se rembourse, les autres s'annulent
func (StripeGateway) CancelCharge(_ context.Context, ch shop.Charge) error {
	if ch.Status == string(stripe.PaymentIntentStatusSucceeded) {
		r, err := refund.New(&stripe.RefundParams{PaymentIntent: stripe.String(ch.IntentID)})
		if err != nil {
			return err
		}
		log.Printf("💸 Remboursement %s pour %s", r.ID, ch.IntentID)
		return nil
	}
	_, err := paymentintent.Cancel(ch.IntentID, &stripe.PaymentIntentCancelParams{})
	return err
}

func AmountInCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}
