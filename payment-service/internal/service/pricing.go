package service

import (
	"fmt"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// lineTax splits a line total into base and tax using a percentage rate.
// Inclusive prices already contain the tax; exclusive prices get it added on top.
func lineTax(lineTotal int64, ratePercent string, inclusive bool) (base, tax int64, err error) {
	rate := decimal.Zero
	if ratePercent != "" {
		rate, err = decimal.NewFromString(ratePercent)
		if err != nil {
			return 0, 0, fmt.Errorf("parse tax rate %q: %w", ratePercent, err)
		}
	}
	if rate.IsZero() {
		return lineTotal, 0, nil
	}

	total := decimal.NewFromInt(lineTotal)
	ratio := rate.Div(hundred)
	if inclusive {
		base = total.Div(decimal.NewFromInt(1).Add(ratio)).Round(0).IntPart()
		return base, lineTotal - base, nil
	}
	return lineTotal, total.Mul(ratio).Round(0).IntPart(), nil
}

// priceCart computes the authoritative amount from current menu prices.
// Client-submitted prices are never consulted.
func priceCart(req *d.CreateIntentRequest, menu []d.MenuItem) (d.CartSnapshot, error) {
	byID := make(map[string]d.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}

	snapshot := d.CartSnapshot{
		Items:           make([]d.CartSnapshotItem, 0, len(req.Items)),
		Currency:        d.DefaultCurrency,
		FulfillmentType: req.FulfillmentType,
		Location:        req.Location,
	}
	for _, it := range req.Items {
		m, ok := byID[it.ItemID]
		if !ok || m.MerchantID != req.MerchantID {
			return d.CartSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownItem, it.ItemID)
		}
		if !m.Available {
			return d.CartSnapshot{}, fmt.Errorf("%w: %s", ErrItemUnavailable, it.ItemID)
		}

		line := m.PriceMinorUnits * int64(it.Quantity)
		base, tax, err := lineTax(line, m.TaxRate, m.TaxInclusive)
		if err != nil {
			return d.CartSnapshot{}, err
		}
		snapshot.SubtotalMinorUnits += base
		snapshot.TaxMinorUnits += tax
		snapshot.TotalMinorUnits += base + tax

		snapshot.Items = append(snapshot.Items, d.CartSnapshotItem{
			ItemID:              m.ID,
			Name:                m.Name,
			Quantity:            it.Quantity,
			UnitPriceMinorUnits: m.PriceMinorUnits,
			TaxRate:             m.TaxRate,
			TaxInclusive:        m.TaxInclusive,
			LineTotalMinorUnits: base + tax,
		})
	}

	if snapshot.TotalMinorUnits < 1 {
		return d.CartSnapshot{}, fmt.Errorf("%w: order total must be positive", d.ErrValidation)
	}
	return snapshot, nil
}
