package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"sacoche_back_end/internal/models"
)

const ProductsIndex = "products"

// ProductIndex indexe les produits dans Elasticsearch pour la recherche plein texte
type ProductIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewProductIndex(es *elasticsearch.Client) *ProductIndex {
	return &ProductIndex{es: es, index: ProductsIndex}
}

type productDocument struct {
	Title           string            `json:"title"`
	Slug            string            `json:"slug"`
	OriginalPrice   float64           `json:"originalPrice"`
	DiscountedPrice float64           `json:"discountedPrice"`
	Details         map[string]string `json:"details"`
}

func (x *ProductIndex) IndexProduct(ctx context.Context, p models.Product) error {
	data, err := json.Marshal(productDocument{
		Title:           p.Title,
		Slug:            p.Slug,
		OriginalPrice:   p.OriginalPrice,
		DiscountedPrice: p.DiscountedPrice,
		Details:         p.Details,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("Elastic a refusé %s: %s", p.ID, res.String())
	}
	log.Printf("✅ Produit indexé dans Elasticsearch: %s", p.Title)
	return nil
}

func (x *ProductIndex) DeleteProduct(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id, Refresh: "true"}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	// déjà absent de l'index : rien à faire
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("Elastic a refusé la suppression de %s: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search renvoie les ids classés par pertinence (titre prioritaire sur les détails)
func (x *ProductIndex) Search(ctx context.Context, query string) ([]string, error) {
	var buf bytes.Buffer
	q := map[string]interface{}{
		"size":    100,
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     strings.TrimSpace(query),
				"fields":    []string{"title^3", "details.*"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.New("index non trouvé ou indisponible: " + res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}
	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
