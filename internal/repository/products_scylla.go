package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

// ScyllaProducts lit et écrit la table products du keyspace produits.
//
//	CREATE TABLE products (
//	    product_id text PRIMARY KEY,
//	    title text, slug text,
//	    original_price double, discounted_price double,
//	    image text, details map<text, text>,
//	    created_at timestamp, updated_at timestamp
//	);
type ScyllaProducts struct {
	session *gocql.Session
}

func NewScyllaProducts(session *gocql.Session) *ScyllaProducts {
	return &ScyllaProducts{session: session}
}

const productColumns = `product_id, title, slug, original_price, discounted_price, image, details, created_at, updated_at`

type productRow struct {
	models.Product
	createdAt, updatedAt time.Time
}

func (row *productRow) dest() []interface{} {
	return []interface{}{
		&row.ID, &row.Title, &row.Slug, &row.OriginalPrice, &row.DiscountedPrice,
		&row.Image, &row.Details, &row.createdAt, &row.updatedAt,
	}
}

func (row *productRow) product() models.Product {
	p := row.Product
	p.CreatedAt = row.createdAt.UTC()
	p.UpdatedAt = row.updatedAt.UTC()
	if p.Details == nil {
		p.Details = map[string]string{}
	}
	return p
}

func (r *ScyllaProducts) ListProducts(ctx context.Context) ([]models.Product, error) {
	iter := r.session.Query(`SELECT ` + productColumns + ` FROM products`).WithContext(ctx).Iter()

	products := []models.Product{}
	for {
		var row productRow
		if !iter.Scan(row.dest()...) {
			break
		}
		products = append(products, row.product())
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture produits: %w", err)
	}
	return products, nil
}

func (r *ScyllaProducts) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var row productRow
	err := r.session.Query(`SELECT `+productColumns+` FROM products WHERE product_id = ?`, id).
		WithContext(ctx).Scan(row.dest()...)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, shop.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit %s: %w", id, err)
	}
	p := row.product()
	return &p, nil
}

func (r *ScyllaProducts) SaveProduct(ctx context.Context, p models.Product) error {
	return r.session.Query(`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.OriginalPrice, p.DiscountedPrice, p.Image, p.Details, p.CreatedAt, p.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (r *ScyllaProducts) DeleteProduct(ctx context.Context, id string) error {
	return r.session.Query(`DELETE FROM products WHERE product_id = ?`, id).WithContext(ctx).Exec()
}
