package ecomdash

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// kitExpandRetries bounds how often ExpandKit re-checks for the component
// table after clicking the expander.
const kitExpandRetries = 2

// pageReader is the live PageReader over a playwright page that has
// navigated to an order detail URL.
type pageReader struct {
	page   playwright.Page
	logger *slog.Logger
}

// NewPageReader wraps an already-navigated order detail page.
func NewPageReader(page playwright.Page) PageReader {
	return &pageReader{
		page:   page,
		logger: slog.Default().With("component", "page_reader"),
	}
}

func (r *pageReader) OrderHeader() (OrderHeader, error) {
	return OrderHeader{
		RawOrderNumber: r.textContent(".orderdetail-header__text"),
		RawStatus:      r.textContent(".orderdetail-header__status"),
		EcomdashID:     r.inputValue("input#ID"),
		RawOrderDate:   r.inputValue("input#SalesOrderCreateDate"),
		RawStorefront:  r.storefront(),
		Financials: Financials{
			MerchandiseTotal: r.inputValue("#ProductTotal"),
			Tax1:             r.inputValue("#Tax1"),
			Tax2:             r.inputValue("#Tax2"),
			Tax3:             r.inputValue("#Tax3"),
			Shipping:         r.inputValue("#ShippingandHandling"),
			Discount:         r.inputValue("#Discount"),
			OtherFees:        r.inputValue("#OtherAmount"),
			OrderTotal:       r.inputValue("#SalesOrderTotal"),
		},
	}, nil
}

func (r *pageReader) ProductRows() ([]ProductRow, error) {
	if _, err := r.page.WaitForSelector(productTableSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		return nil, fmt.Errorf("product table did not appear: %w", err)
	}

	html, err := r.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}

	return ParseProductRows(html)
}

func (r *pageReader) ExpandKit(rowIndex int) ([]KitComponent, error) {
	// Top-level rows only; child rows never carry an expander.
	row := r.page.Locator(productTableSelector + ":not(:has(.child-table))").Nth(rowIndex)
	expander := row.Locator(expanderSelector).First()

	count, err := expander.Count()
	if err != nil || count == 0 {
		return nil, nil
	}

	if err := expander.Click(); err != nil {
		return nil, fmt.Errorf("failed to click kit expander: %w", err)
	}

	for attempt := 0; attempt < kitExpandRetries; attempt++ {
		time.Sleep(time.Second)

		html, err := r.page.Content()
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot page: %w", err)
		}

		components, err := ParseKitComponents(html, rowIndex)
		if err != nil {
			return nil, err
		}
		if len(components) > 0 {
			return components, nil
		}

		r.logger.Debug("kit table not populated yet", "row", rowIndex, "attempt", attempt+1)
	}

	// Expansion yielded nothing; the caller synthesizes the single-line
	// fallback.
	return nil, nil
}

// textContent reads an element's text, treating absence as empty.
func (r *pageReader) textContent(selector string) string {
	loc := r.page.Locator(selector).First()
	if count, err := loc.Count(); err != nil || count == 0 {
		return ""
	}
	text, err := loc.TextContent()
	if err != nil {
		return ""
	}
	return text
}

// inputValue reads a form input's current value, treating absence as empty.
func (r *pageReader) inputValue(selector string) string {
	loc := r.page.Locator(selector).First()
	if count, err := loc.Count(); err != nil || count == 0 {
		return ""
	}
	value, err := loc.InputValue()
	if err != nil {
		return ""
	}
	return value
}

// storefront sits in a text node after the header's second label, which no
// CSS selector can address directly.
func (r *pageReader) storefront() string {
	v, err := r.page.Evaluate(`() => {
		const labels = document.querySelectorAll('.orderdetail-header label');
		if (labels.length < 2) return '';
		const sibling = labels[1].nextSibling;
		return sibling && sibling.textContent ? sibling.textContent : '';
	}`)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
