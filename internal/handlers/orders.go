package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"sacoche_back_end/internal/shop"
	"sacoche_back_end/internal/utils"
)

const maxWebhookBytes = int64(65536)

// PlaceOrder : POST /api/checkout {selectedIds, paymentMethod, cardId}
func (h *Handlers) PlaceOrder(c *gin.Context) {
	var req shop.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	receipt, err := h.Checkout.PlaceOrder(c.Request.Context(), session(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":      "Commande passée avec succès",
		"order":        receipt.Order,
		"emailSent":    receipt.EmailSent,
		"clientSecret": receipt.ClientSecret,
	})
}

func (h *Handlers) MyOrders(c *gin.Context) {
	orders, err := h.Checkout.MyOrders(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.Checkout.Order(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// OrderInvoice renvoie la facture PDF de la commande
func (h *Handlers) OrderInvoice(c *gin.Context) {
	order, err := h.Checkout.Order(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	pdf, err := h.Invoices.RenderPDF(c.Request.Context(), *order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+utils.InvoiceRef(*order)+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// StripeWebhook confirme le paiement des commandes par carte
func (h *Handlers) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Lecture corps échouée")
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		badRequest(c, "Signature invalide")
		return
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			badRequest(c, "Événement illisible")
			return
		}
		order, err := h.Checkout.ConfirmPayment(c.Request.Context(), pi.ID)
		if errors.Is(err, shop.ErrNotFound) {
			log.Printf("⚠️ Paiement %s sans commande associée", pi.ID)
			break
		}
		if err != nil {
			respondError(c, err)
			return
		}
		log.Printf("✅ Paiement confirmé : %s (commande %s)", pi.ID, order.ID)

	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
			log.Printf("⚠️ Paiement échoué : %s", pi.ID)
		}
	}

	c.Status(http.StatusOK)
}
