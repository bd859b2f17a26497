// Package billing holds the plan catalog and the Stripe gateway used for
// checkout, plan changes, cancellation and webhook verification.
package billing

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var plansYAML []byte

type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	BicycleLimit int             `json:"bicycle_limit"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Interval     string          `json:"interval"`
	Features     []string        `json:"features"`
	PriceID      string          `json:"-"`
}

type catalogFile struct {
	Currency string `yaml:"currency"`
	Interval string `yaml:"interval"`
	Plans    []struct {
		ID           string   `yaml:"id"`
		Name         string   `yaml:"name"`
		Description  string   `yaml:"description"`
		BicycleLimit int      `yaml:"bicycle_limit"`
		Price        string   `yaml:"price"`
		Features     []string `yaml:"features"`
	} `yaml:"plans"`
}

// Catalog is the ordered list of plans with their Stripe prices bound.
type Catalog struct {
	plans   []Plan
	byID    map[string]int
	byPrice map[string]int
}

// LoadCatalog parses the embedded plan list and binds priceIDs (plan id ->
// Stripe price id) to it.
func LoadCatalog(priceIDs map[string]string) (*Catalog, error) {
	return ParseCatalog(plansYAML, priceIDs)
}

func ParseCatalog(data []byte, priceIDs map[string]string) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog is empty")
	}

	c := &Catalog{
		byID:    make(map[string]int, len(file.Plans)),
		byPrice: make(map[string]int, len(file.Plans)),
	}
	for _, p := range file.Plans {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("plan %q is defined twice", p.ID)
		}
		if p.BicycleLimit < 1 {
			return nil, fmt.Errorf("plan %q must allow at least one bicycle", p.ID)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("plan %q has an invalid price %q: %w", p.ID, p.Price, err)
		}
		priceID := priceIDs[p.ID]
		if priceID == "" {
			return nil, fmt.Errorf("plan %q has no Stripe price configured", p.ID)
		}
		if _, dup := c.byPrice[priceID]; dup {
			return nil, fmt.Errorf("price %q is bound to more than one plan", priceID)
		}

		c.byID[p.ID] = len(c.plans)
		c.byPrice[priceID] = len(c.plans)
		c.plans = append(c.plans, Plan{
			ID:           p.ID,
			Name:         p.Name,
			Description:  p.Description,
			BicycleLimit: p.BicycleLimit,
			Price:        price,
			Currency:     file.Currency,
			Interval:     file.Interval,
			Features:     p.Features,
			PriceID:      priceID,
		})
	}
	return c, nil
}

// Plans returns the catalog in display order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

func (c *Catalog) Get(id string) (Plan, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Plan{}, false
	}
	return c.plans[i], true
}

func (c *Catalog) ByPriceID(priceID string) (Plan, bool) {
	i, ok := c.byPrice[priceID]
	if !ok {
		return Plan{}, false
	}
	return c.plans[i], true
}
