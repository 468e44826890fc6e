package utils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/wneessen/go-mail"

	"sacoche_back_end/internal/models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer envoie les e-mails transactionnels en texte brut
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// OrderPlaced envoie la confirmation de commande au client
func (m *Mailer) OrderPlaced(ctx context.Context, o models.Order) error {
	return m.send(ctx, o.User.Email, "Confirmation de votre commande "+o.ID, RenderOrderText(o))
}

// OrderStatusChanged prévient le client d'un changement de livraison ou de paiement
func (m *Mailer) OrderStatusChanged(ctx context.Context, o models.Order) error {
	subject := fmt.Sprintf("%s Votre commande %s", statusIcon(o.DeliveryStatus), o.ID)
	return m.send(ctx, o.User.Email, subject, RenderStatusText(o))
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSendWithContext(ctx, msg)
}

// RenderOrderText liste les lignes de la commande, une par ligne
func RenderOrderText(o models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", o.User.Username)
	fmt.Fprintf(&b, "Merci pour votre commande %s.\n\n", o.ID)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "- %s x%d : %.2f€\n", item.Name, item.Quantity, item.Price*float64(item.Quantity))
	}
	fmt.Fprintf(&b, "\nTotal : %.2f€\n", o.Total)
	fmt.Fprintf(&b, "Paiement : %s\n", paymentLabel(o.PaymentMethod))
	fmt.Fprintf(&b, "Livraison : %s\n\n", o.User.Address)
	b.WriteString("L'équipe Sacoche\n")
	return b.String()
}

func RenderStatusText(o models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", o.User.Username)
	b.WriteString(statusMessage(o.DeliveryStatus))
	fmt.Fprintf(&b, "\n\nCommande : %s\nPaiement : %s\nLivraison : %s\n\nL'équipe Sacoche\n",
		o.ID, o.PaymentStatus, o.DeliveryStatus)
	return b.String()
}

func paymentLabel(method string) string {
	if method == models.PaymentMethodCard {
		return "carte bancaire"
	}
	return "paiement à la livraison"
}

func statusMessage(delivery string) string {
	switch delivery {
	case models.DeliveryShipped:
		return "Bonne nouvelle ! Votre commande a été expédiée et est en route vers vous."
	case models.DeliveryDelivered:
		return "Votre commande a été livrée. Nous espérons que votre sac vous plaît !"
	default:
		return "Le statut de votre commande a été mis à jour."
	}
}

func statusIcon(delivery string) string {
	switch delivery {
	case models.DeliveryShipped:
		return "📦"
	case models.DeliveryDelivered:
		return "🎉"
	default:
		return "📋"
	}
}
