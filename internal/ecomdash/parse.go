package ecomdash

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	productTableSelector = "#SalesOrderProductList tbody > tr"
	childTableSelector   = ".child-table"
	expanderSelector     = "a.expand-row"
)

var skuRe = regexp.MustCompile(`SKU:\s*([A-Za-z0-9\-_]+)`)

// ParseProductRows reads the top-level product rows out of an order detail
// page snapshot. Rows carrying a nested child table are kit detail rows and
// are skipped here; their content is reached through the parent row's
// expander instead.
func ParseProductRows(html string) ([]ProductRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var rows []ProductRow
	doc.Find(productTableSelector).Each(func(_ int, tr *goquery.Selection) {
		if tr.Find(childTableSelector).Length() > 0 {
			return
		}

		cell := tr.Find("td:nth-child(2)")
		name := strings.TrimSpace(cell.Find("b font").First().Text())

		sku := ""
		if m := skuRe.FindStringSubmatch(cell.Text()); m != nil {
			sku = strings.TrimSpace(m[1])
		}

		qty := inputValueAttr(tr, `td:nth-child(5) input[type="hidden"]`)

		// Orders awaiting shipment render the price as a visible editable
		// input instead of the hidden one.
		price := inputValueAttr(tr, `td:nth-child(6) input[type="hidden"]`)
		if price == "" {
			price = inputValueAttr(tr, "td:nth-child(6) input.order-price")
		}

		rows = append(rows, ProductRow{
			Name:   name,
			SKU:    sku,
			Qty:    qty,
			Price:  price,
			HasKit: tr.Find(expanderSelector).Length() > 0,
		})
	})

	return rows, nil
}

// ParseKitComponents reads the expanded component rows belonging to the
// given top-level product row (0-based, counting non-child rows only) from
// a page snapshot taken after the row's expander was clicked. Cells are
// positional: name, sku, qty, location.
func ParseKitComponents(html string, rowIndex int) ([]KitComponent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var components []KitComponent
	topLevel := -1
	capture := false

	doc.Find(productTableSelector).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if tr.Find(childTableSelector).Length() == 0 {
			if capture {
				// Next top-level row reached; the target's children are done.
				return false
			}
			topLevel++
			capture = topLevel == rowIndex
			return true
		}

		if !capture {
			return true
		}

		tr.Find(childTableSelector + " tbody tr").Each(func(_ int, sub *goquery.Selection) {
			cells := sub.Find("td")
			if cells.Length() == 0 {
				return
			}
			components = append(components, KitComponent{
				Name:     cellText(cells, 0),
				SKU:      cellText(cells, 1),
				Qty:      cellText(cells, 2),
				Location: cellText(cells, 3),
			})
		})
		return true
	})

	return components, nil
}

func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(i).Text())
}

func inputValueAttr(tr *goquery.Selection, selector string) string {
	v, _ := tr.Find(selector).First().Attr("value")
	return strings.TrimSpace(v)
}
