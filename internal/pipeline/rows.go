package pipeline

import (
	"github.com/ecomstack/ecomdash-sync/internal/ecomdash"
	"github.com/ecomstack/ecomdash-sync/internal/normalize"
)

// Destination tab headers. Column order is the write contract: the sheets
// have no schema, so a reordering here silently misaligns every row.
var (
	ordersHeader = []any{
		"orderId", "orderNumber", "orderDate", "status", "storefront",
		"merchandiseTotal", "tax1", "tax2", "tax3",
		"shipping", "discount", "otherFees", "orderTotal",
	}
	productsHeader = []any{
		"orderId", "lineIndex", "name", "sku", "qty", "price",
		"orderDate", "storefront",
	}
	itemizedHeader = []any{
		"orderId", "productLineIndex", "componentIndex",
		"componentName", "componentSku", "componentQty", "componentLocation",
	}
)

// orderRow materializes the order-header tab row.
func orderRow(o *ecomdash.Order, mode normalize.DateMode) []any {
	return []any{
		o.ID,
		o.Number,
		dateCell(o.Date, mode),
		o.Status,
		o.Storefront,
		o.Financials.MerchandiseTotal,
		o.Financials.Tax1,
		o.Financials.Tax2,
		o.Financials.Tax3,
		o.Financials.Shipping,
		o.Financials.Discount,
		o.Financials.OtherFees,
		o.Financials.OrderTotal,
	}
}

// productRows materializes the product-line tab rows, 1-based line indices
// in order of appearance.
func productRows(o *ecomdash.Order, mode normalize.DateMode) [][]any {
	rows := make([][]any, 0, len(o.Products))
	for i, p := range o.Products {
		rows = append(rows, []any{
			o.ID, i + 1, p.Name, p.SKU, p.Qty, p.Price,
			dateCell(o.Date, mode), o.Storefront,
		})
	}
	return rows
}

// itemizedRows materializes the component tab rows. Lines without a kit
// breakdown contribute their synthesized single component, so every product
// line appears here at least once.
func itemizedRows(o *ecomdash.Order) [][]any {
	var rows [][]any
	for i, p := range o.Products {
		for j, c := range ecomdash.Itemized(p) {
			rows = append(rows, []any{
				o.ID, i + 1, j + 1, c.Name, c.SKU, c.Qty, c.Location,
			})
		}
	}
	return rows
}

// dateCell renders a canonical date either as its string form or as a
// spreadsheet serial, per the configured output mode. One mode per column,
// never mixed.
func dateCell(canonical string, mode normalize.DateMode) any {
	if mode == normalize.DateSerial {
		if d, ok := normalize.ParseDate(canonical); ok {
			return normalize.DateToExcelSerial(d)
		}
	}
	return canonical
}
