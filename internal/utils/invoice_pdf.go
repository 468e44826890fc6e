package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skip2/go-qrcode"

	"sacoche_back_end/internal/models"
)

type CompanyInfo struct {
	Name string
	IBAN string
	BIC  string
}

// InvoiceRenderer produit la facture PDF d'une commande via Chrome headless
type InvoiceRenderer struct {
	company CompanyInfo
	timeout time.Duration
}

func NewInvoiceRenderer(company CompanyInfo) *InvoiceRenderer {
	return &InvoiceRenderer{company: company, timeout: 30 * time.Second}
}

// GenerateSepaQR génère un QR SEPA (EPC) en base64 prêt à mettre dans <img src="...">
func GenerateSepaQR(iban, bic, name, ref string, amount float64) (string, error) {
	sepa := fmt.Sprintf("BCD\n001\n1\nSCT\n%s\n%s\n%s\nEUR%.2f\n%s", bic, name, iban, amount, ref)

	png, err := qrcode.Encode(sepa, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f€", v) },
	"line":  func(i models.OrderItem) float64 { return i.Price * float64(i.Quantity) },
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Facture {{.Order.ID}}</title>
<style>
body { font-family: Arial, sans-serif; color: #222; margin: 40px; }
table { width: 100%; border-collapse: collapse; margin: 24px 0; }
th, td { padding: 8px; border-bottom: 1px solid #ddd; text-align: left; }
.total { text-align: right; font-weight: bold; }
</style></head>
<body>
<h1>{{.Company.Name}}</h1>
<p>Facture <strong>{{.Ref}}</strong> du {{.Order.CreatedAt.Format "02/01/2006"}}</p>
<p>{{.Order.User.Username}}<br>{{.Order.User.Email}}<br>{{.Order.User.Address}}</p>
<table>
<thead><tr><th>Produit</th><th>Quantité</th><th>Prix unitaire</th><th>Total</th></tr></thead>
<tbody>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{money .Price}}</td><td>{{money (line .)}}</td></tr>
{{end}}</tbody>
</table>
<p class="total">Total : {{money .Order.Total}}</p>
<p>Paiement : {{.Order.PaymentStatus}}</p>
{{if .QR}}<p>Virement SEPA :<br><img src="{{.QR}}" width="160" height="160" alt="QR SEPA"></p>{{end}}
</body>
</html>`))

type invoiceData struct {
	Order   models.Order
	Company CompanyInfo
	Ref     string
	QR      template.URL
}

func InvoiceRef(o models.Order) string {
	return "FACT-" + o.ID
}

// RenderHTML remplit le modèle de facture ; le QR SEPA n'apparaît que si rien n'est encore payé
func (r *InvoiceRenderer) RenderHTML(o models.Order) (string, error) {
	data := invoiceData{Order: o, Company: r.company, Ref: InvoiceRef(o)}
	if o.PaymentStatus != models.PaymentCompleted && r.company.IBAN != "" {
		qr, err := GenerateSepaQR(r.company.IBAN, r.company.BIC, r.company.Name, data.Ref, o.Total)
		if err != nil {
			return "", fmt.Errorf("erreur génération QR: %w", err)
		}
		data.QR = template.URL(qr)
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *InvoiceRenderer) RenderPDF(ctx context.Context, o models.Order) ([]byte, error) {
	html, err := r.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("génération PDF: %w", err)
	}
	return pdf, nil
}
