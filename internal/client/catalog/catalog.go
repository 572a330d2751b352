// Package catalog maps store product ids to the number of credits they
// grant.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
)

var defaultProducts = []models.Product{
	{ID: "credits_10", Title: "10 Credits", Credits: 10, Price: "4.99", Currency: "USD"},
	{ID: "credits_50", Title: "50 Credits", Credits: 50, Price: "19.99", Currency: "USD"},
	{ID: "credits_100", Title: "100 Credits", Credits: 100, Price: "34.99", Currency: "USD"},
}

type Catalog struct {
	products map[string]models.Product
}

// New builds a catalog from products. Entries with an empty id or a
// non-positive credit count are rejected.
func New(products []models.Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]models.Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: product without id")
		}
		if p.Credits <= 0 {
			return nil, fmt.Errorf("catalog: product %s grants %d credits: %w", p.ID, p.Credits, common.ErrInvalidAmount)
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %s", p.ID)
		}
		c.products[p.ID] = p
	}
	return c, nil
}

// Default returns the built-in credit packs.
func Default() *Catalog {
	c, err := New(defaultProducts)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a JSON array of products from path. An empty path yields the
// default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read product catalog: %w", err)
	}
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse product catalog: %w", err)
	}
	return New(products)
}

// Lookup returns the product or an *common.UnknownProductError.
func (c *Catalog) Lookup(productID string) (models.Product, error) {
	p, ok := c.products[productID]
	if !ok {
		return models.Product{}, &common.UnknownProductError{ProductID: productID}
	}
	return p, nil
}

// CreditsFor returns the credits granted by productID.
func (c *Catalog) CreditsFor(productID string) (int64, error) {
	p, err := c.Lookup(productID)
	if err != nil {
		return 0, err
	}
	return p.Credits, nil
}

// Products lists the catalog ordered by credits.
func (c *Catalog) Products() []models.Product {
	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credits != out[j].Credits {
			return out[i].Credits < out[j].Credits
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// IDs lists the product ids in catalog order.
func (c *Catalog) IDs() []string {
	ps := c.Products()
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}
