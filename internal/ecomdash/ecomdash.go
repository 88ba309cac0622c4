// Package ecomdash holds everything coupled to the ecomdash back-office UI:
// URLs, the login sequence, and the selector-driven extraction of order
// detail pages. The rest of the codebase sees only the PageReader and
// Session interfaces plus plain order records.
package ecomdash

import (
	"fmt"
	"net/url"
)

// Order is one scraped sales order. Immutable after extraction.
type Order struct {
	ID         string
	Number     string
	Date       string // canonical YYYY/MM/DD, or raw text if unparseable
	Status     string
	Storefront string
	Financials Financials
	Products   []ProductLine
}

// Financials carries the order totals as decimal strings, exactly as the
// form inputs hold them. No arithmetic happens on this side.
type Financials struct {
	MerchandiseTotal string
	Tax1             string
	Tax2             string
	Tax3             string
	Shipping         string
	Discount         string
	OtherFees        string
	OrderTotal       string
}

// ProductLine is one top-level row of the order's product table, in
// document order. Kit holds the expanded component rows when the line is a
// composite kit; an empty Kit means no breakdown was available.
type ProductLine struct {
	Name  string
	SKU   string
	Qty   string
	Price string
	Kit   []KitComponent
}

// KitComponent is one physical component of a kit line.
type KitComponent struct {
	Name     string
	SKU      string
	Qty      string
	Location string
}

// OrderHeader is the raw header-field read of an order detail page, before
// normalization. Every field defaults to empty when its DOM location is
// absent.
type OrderHeader struct {
	RawOrderNumber string
	RawStatus      string
	EcomdashID     string
	RawOrderDate   string
	RawStorefront  string
	Financials     Financials
}

// ProductRow is one top-level product table row as read from the page.
type ProductRow struct {
	Name   string
	SKU    string
	Qty    string
	Price  string
	HasKit bool
}

// PageReader is the capability surface over a rendered order detail page,
// kept small so orchestration can run against a fake in tests.
type PageReader interface {
	// OrderHeader reads the fixed header locations. Missing fields are
	// empty values, never errors.
	OrderHeader() (OrderHeader, error)
	// ProductRows reads the top-level product rows in document order,
	// child rows excluded.
	ProductRows() ([]ProductRow, error)
	// ExpandKit expands the kit breakdown of the given top-level row
	// (0-based). An empty result with nil error means the expansion
	// yielded nothing.
	ExpandKit(rowIndex int) ([]KitComponent, error)
}

// ReturnAllSalesOrders is the post-login landing page for the scrape
// pipeline.
const ReturnAllSalesOrders = "/SalesOrderModule/AllSalesOrders"

// ReturnReporting is the post-login landing page for report generation.
const ReturnReporting = "/Reporting"

// LoginURL builds the app login URL with the post-login return path.
func LoginURL(appURL, returnPath string) string {
	return fmt.Sprintf("%s/?returnUrl=%s", appURL, url.QueryEscape(returnPath))
}

// OrderDetailURL builds the dashboard URL of one order's detail page.
func OrderDetailURL(dashboardURL, orderID string) string {
	return fmt.Sprintf("%s/SalesOrderModule/SalesOrderDetails?ID=%s&ReturnItem=AllSO", dashboardURL, url.QueryEscape(orderID))
}

// ReportingHistoryURL is where generated report downloads appear.
func ReportingHistoryURL(dashboardURL string) string {
	return dashboardURL + "/Support/ReportingHistory"
}
