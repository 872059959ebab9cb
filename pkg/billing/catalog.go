package billing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

// Plan is a purchasable price point within a product.
type Plan struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	StripePriceID string                `json:"stripe_price_id"`
	Interval      enums.BillingInterval `json:"interval"`
	Type          enums.LineItemType    `json:"type"`
	PriceAmount   decimal.Decimal       `json:"price_amount"`
	CurrencyCode  string                `json:"currency_code"`
	TrialDays     int                   `json:"trial_days"`
	Features      []string              `json:"features,omitempty"`
}

// Product groups the plans sold under one offering.
type Product struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	StripeProductID string `json:"stripe_product_id"`
	Plans           []Plan `json:"plans"`
}

// Catalog is the static product catalog loaded at boot. Plan IDs are the
// only identifiers clients may send; Stripe price IDs never leave the server.
type Catalog struct {
	Products []Product `json:"products"`

	planIndex  map[string]ProductPlanPair
	priceIndex map[string]ProductPlanPair
}

// ProductPlanPair is a resolved plan with its owning product.
type ProductPlanPair struct {
	Product Product
	Plan    Plan
}

// LoadCatalog reads and validates the catalog JSON at path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading billing catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates catalog JSON.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var catalog Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decoding billing catalog: %w", err)
	}
	if err := catalog.buildIndex(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Catalog) buildIndex() error {
	if len(c.Products) == 0 {
		return fmt.Errorf("billing catalog has no products")
	}
	c.planIndex = make(map[string]ProductPlanPair)
	c.priceIndex = make(map[string]ProductPlanPair)
	for _, product := range c.Products {
		if strings.TrimSpace(product.ID) == "" {
			return fmt.Errorf("product with empty id")
		}
		if len(product.Plans) == 0 {
			return fmt.Errorf("product %q has no plans", product.ID)
		}
		for _, plan := range product.Plans {
			if strings.TrimSpace(plan.ID) == "" {
				return fmt.Errorf("product %q has a plan with empty id", product.ID)
			}
			if strings.TrimSpace(plan.StripePriceID) == "" {
				return fmt.Errorf("plan %q is missing a stripe price id", plan.ID)
			}
			if !plan.Interval.IsValid() {
				return fmt.Errorf("plan %q has invalid interval %q", plan.ID, plan.Interval)
			}
			if plan.Type != "" && !plan.Type.IsValid() {
				return fmt.Errorf("plan %q has invalid type %q", plan.ID, plan.Type)
			}
			if plan.PriceAmount.IsNegative() {
				return fmt.Errorf("plan %q has negative price", plan.ID)
			}
			if _, dup := c.planIndex[plan.ID]; dup {
				return fmt.Errorf("duplicate plan id %q", plan.ID)
			}
			c.planIndex[plan.ID] = ProductPlanPair{Product: product, Plan: plan}
			c.priceIndex[plan.StripePriceID] = ProductPlanPair{Product: product, Plan: plan}
		}
	}
	return nil
}

// FindPlan resolves a client-facing plan ID to its product and plan.
func (c *Catalog) FindPlan(planID string) (ProductPlanPair, bool) {
	if c == nil || c.planIndex == nil {
		return ProductPlanPair{}, false
	}
	pair, ok := c.planIndex[strings.TrimSpace(planID)]
	return pair, ok
}

// FindPlanByPriceID resolves a Stripe price ID back to the owning plan,
// used when mirroring gateway payloads.
func (c *Catalog) FindPlanByPriceID(priceID string) (ProductPlanPair, bool) {
	if c == nil || c.priceIndex == nil {
		return ProductPlanPair{}, false
	}
	pair, ok := c.priceIndex[strings.TrimSpace(priceID)]
	return pair, ok
}

// PlanIDs returns the catalog's plan identifiers, useful for validation messages.
func (c *Catalog) PlanIDs() []string {
	ids := make([]string, 0, len(c.planIndex))
	for _, product := range c.Products {
		for _, plan := range product.Plans {
			ids = append(ids, plan.ID)
		}
	}
	return ids
}
