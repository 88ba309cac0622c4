package ecomdash

import (
	"fmt"
	"log/slog"

	"github.com/ecomstack/ecomdash-sync/internal/normalize"
)

// ExtractOrder reads one order detail page into an Order record. Header
// fields degrade to empty values when absent; only structural failures
// (product table never rendering, page gone) surface as errors, and the
// caller treats those as a per-order failure, not a batch failure.
func ExtractOrder(r PageReader, orderID string) (*Order, error) {
	header, err := r.OrderHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to read order header: %w", err)
	}

	rows, err := r.ProductRows()
	if err != nil {
		return nil, fmt.Errorf("failed to read product rows: %w", err)
	}

	products := make([]ProductLine, 0, len(rows))
	for i, row := range rows {
		line := ProductLine{
			Name:  row.Name,
			SKU:   row.SKU,
			Qty:   row.Qty,
			Price: row.Price,
		}

		if row.HasKit {
			kit, err := r.ExpandKit(i)
			if err != nil {
				// A failed expansion degrades to the single-line fallback
				// downstream; the order itself is still usable.
				slog.Default().Warn("kit expansion failed",
					"order_id", orderID, "row", i+1, "error", err)
			} else {
				line.Kit = kit
			}
		}

		products = append(products, line)
	}

	return &Order{
		ID:         orderID,
		Number:     normalize.NormalizeOrderNumber(header.RawOrderNumber),
		Date:       normalize.FormatDate(header.RawOrderDate),
		Status:     normalize.NormalizeStatus(header.RawStatus),
		Storefront: normalize.CollapseSpaces(header.RawStorefront),
		Financials: header.Financials,
		Products:   products,
	}, nil
}

// Itemized flattens a product line into its kit components, synthesizing a
// single component mirroring the parent when no breakdown exists, so the
// itemized table always has at least one row per line.
func Itemized(line ProductLine) []KitComponent {
	if len(line.Kit) > 0 {
		return line.Kit
	}
	return []KitComponent{{
		Name:     line.Name,
		SKU:      line.SKU,
		Qty:      line.Qty,
		Location: "",
	}}
}
