package checkout

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dmarceau/storefront-backend/internal/cart"
	"github.com/dmarceau/storefront-backend/internal/catalog"
	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
)

// ValidationResult reports cart health ahead of checkout. Issues is empty
// when IsValid is true.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Issues  []string `json:"issues"`
}

// Validator checks every cart line against the live catalog without touching
// any state.
type Validator struct {
	catalog catalog.Service
}

// NewValidator builds a cart validator.
func NewValidator(catalogSvc catalog.Service) (*Validator, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &Validator{catalog: catalogSvc}, nil
}

// Validate inspects each line: the product must exist and be active, the
// variant must have an inventory line with enough stock, and the cached
// price must still match the catalog. Lookup failures that are not
// classification outcomes are aggregated and returned as an error.
func (v *Validator) Validate(ctx context.Context, c *cart.Cart) (*ValidationResult, error) {
	result := &ValidationResult{IsValid: true, Issues: []string{}}
	var lookupErr error

	for _, item := range c.Items {
		variant, err := v.catalog.GetVariant(ctx, item.ProductID, item.Size, item.Color)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				result.Issues = append(result.Issues,
					fmt.Sprintf("%s (%s/%s): no longer available", item.Name, item.Size, item.Color))
				continue
			}
			lookupErr = multierr.Append(lookupErr, fmt.Errorf("lookup %s: %w", item.ProductID, err))
			continue
		}

		if !variant.IsActive {
			result.Issues = append(result.Issues,
				fmt.Sprintf("%s (%s/%s): product is inactive", item.Name, item.Size, item.Color))
			continue
		}
		if variant.AvailableQty < item.Quantity {
			result.Issues = append(result.Issues,
				fmt.Sprintf("%s (%s/%s): only %d in stock, cart has %d",
					item.Name, item.Size, item.Color, variant.AvailableQty, item.Quantity))
		}
		if variant.PriceCents != item.UnitPriceCents {
			result.Issues = append(result.Issues,
				fmt.Sprintf("%s (%s/%s): price changed from %d to %d cents",
					item.Name, item.Size, item.Color, item.UnitPriceCents, variant.PriceCents))
		}
	}

	if lookupErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "validate cart")
	}

	result.IsValid = len(result.Issues) == 0
	return result, nil
}
