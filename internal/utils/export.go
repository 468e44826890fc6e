package utils

import (
	"slices"
	"strings"

	"github.com/tealeg/xlsx"

	"sacoche_back_end/internal/models"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func addRow(sheet *xlsx.Sheet, values ...interface{}) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetValue(v)
	}
}

// ProductsWorkbook exporte le catalogue, une ligne par produit
func ProductsWorkbook(products []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Produits")
	if err != nil {
		return nil, err
	}
	addRow(sheet, "ID", "Titre", "Prix d'origine", "Prix remisé", "Image", "Détails", "Créé le")
	for _, p := range products {
		details := make([]string, 0, len(p.Details))
		for k, v := range p.Details {
			details = append(details, k+": "+v)
		}
		slices.Sort(details)
		addRow(sheet, p.ID, p.Title, p.OriginalPrice, p.DiscountedPrice, p.Image,
			strings.Join(details, "; "), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return file, nil
}

// OrdersWorkbook exporte les commandes, une ligne par commande
func OrdersWorkbook(orders []models.Order) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Commandes")
	if err != nil {
		return nil, err
	}
	addRow(sheet, "ID", "Client", "Adresse", "Articles", "Total", "Moyen de paiement", "Paiement", "Livraison", "Date")
	for _, o := range orders {
		items := 0
		for _, i := range o.Items {
			items += i.Quantity
		}
		addRow(sheet, o.ID, o.UserEmail, o.User.Address, items, o.Total, o.PaymentMethod,
			o.PaymentStatus, o.DeliveryStatus, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return file, nil
}
