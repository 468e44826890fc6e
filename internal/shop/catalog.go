package shop

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"

	"sacoche_back_end/internal/models"
)

const PageSize = 10

type Page struct {
	Items      []models.Product `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	TotalItems int              `json:"totalItems"`
}

// Catalog lit la collection produits en entier puis trie, filtre et pagine en mémoire.
type Catalog struct {
	Products ProductStore
	Index    SearchIndex
}

func NewCatalog(products ProductStore, index SearchIndex) *Catalog {
	return &Catalog{Products: products, Index: index}
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Product, error) {
	return c.Products.GetProduct(ctx, id)
}

// All renvoie tout le catalogue, du plus récent au plus ancien
func (c *Catalog) All(ctx context.Context) ([]models.Product, error) {
	products, err := c.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(products)
	return products, nil
}

func (c *Catalog) Page(ctx context.Context, query string, page int) (*Page, error) {
	products, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	return Paginate(FilterByTitle(products, query), page), nil
}

// Search passe par l'index plein texte, puis retombe sur le filtre par titre.
func (c *Catalog) Search(ctx context.Context, query string) ([]models.Product, error) {
	products, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	if c.Index == nil || strings.TrimSpace(query) == "" {
		return FilterByTitle(products, query), nil
	}

	ids, err := c.Index.Search(ctx, query)
	if err != nil {
		log.Printf("⚠️ Recherche Elasticsearch indisponible, fallback mémoire: %v", err)
		return FilterByTitle(products, query), nil
	}
	if len(ids) == 0 {
		return FilterByTitle(products, query), nil
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	results := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		// l'index peut contenir un produit déjà supprimé
		if p, ok := byID[id]; ok {
			results = append(results, p)
		}
	}
	return results, nil
}

// SortNewestFirst trie par suffixe numérique de l'id, décroissant.
// Les ids sans suffixe numérique passent en dernier.
func SortNewestFirst(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, aok := idSuffix(products[i].ID)
		b, bok := idSuffix(products[j].ID)
		switch {
		case aok && bok && a != b:
			return a > b
		case aok != bok:
			return aok
		default:
			return products[i].ID < products[j].ID
		}
	})
}

func idSuffix(id string) (int64, bool) {
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.ParseInt(id[start:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func FilterByTitle(products []models.Product, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func Paginate(products []models.Product, page int) *Page {
	if page < 1 {
		page = 1
	}
	total := len(products)
	result := &Page{
		Items:      []models.Product{},
		Page:       page,
		TotalPages: (total + PageSize - 1) / PageSize,
		TotalItems: total,
	}
	start := (page - 1) * PageSize
	if start >= total {
		return result
	}
	end := start + PageSize
	if end > total {
		end = total
	}
	result.Items = products[start:end]
	return result
}
