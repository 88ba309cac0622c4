package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/ecomstack/ecomdash-sync/internal/browser"
	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/ecomdash"
)

// Reporting UI selectors.
const (
	ordersReportTile = "div#mostPopular-SalesOrdersReport"
	salesReportTile  = "div#mostPopular-SalesWithinDateRange_Category"
	reportTileButton = "div.buttonDiv a.albany-btn.albany-btn--primary"
	generateForm     = "form#GenerateReport"
	startDateInput   = "#ReportStartDate"
	endDateInput     = "#ReportEndDate"
	generateLink     = "a#GenerateDateRestrictionReport"
	historyTable     = "table"
	historyRow       = "table tbody tr"
)

const (
	historyPollAttempts = 30
	historyPollInterval = 3 * time.Second
)

type liveGenerator struct {
	cfg    config.EcomdashConfig
	bopts  *browser.Options
	logger *slog.Logger
}

// NewGenerator builds the playwright-backed report generator.
func NewGenerator(cfg config.EcomdashConfig, bopts *browser.Options) Generator {
	return &liveGenerator{
		cfg:    cfg,
		bopts:  bopts,
		logger: slog.Default().With("component", "report_generator"),
	}
}

func (g *liveGenerator) Generate(ctx context.Context, mode Mode, from, to string) (*GeneratedReport, error) {
	b, err := browser.New(g.bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := ecomdash.Login(page, g.cfg, ecomdash.ReturnReporting); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	timestamp, err := g.requestReport(page, mode, from, to)
	if err != nil {
		return nil, err
	}
	g.logger.Info("report requested", "mode", mode, "timestamp", timestamp)

	url, err := g.pollHistory(ctx, page, timestamp)
	if err != nil {
		return nil, err
	}

	return &GeneratedReport{DownloadURL: url, Timestamp: timestamp}, nil
}

// requestReport opens the report tile, fills the date range and submits.
// Returns the history timestamp of the freshly queued generation.
func (g *liveGenerator) requestReport(page playwright.Page, mode Mode, from, to string) (string, error) {
	tile := ordersReportTile
	if mode == ModeSales {
		tile = salesReportTile
	}

	if _, err := page.WaitForSelector(tile, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(30000),
	}); err != nil {
		return "", fmt.Errorf("report tile did not appear: %w", err)
	}
	if err := page.Locator(tile + " " + reportTileButton).Click(); err != nil {
		return "", fmt.Errorf("failed to open report form: %w", err)
	}

	if err := page.Locator(generateForm).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return "", fmt.Errorf("report form did not appear: %w", err)
	}

	if err := fillDate(page, startDateInput, from); err != nil {
		return "", fmt.Errorf("failed to set start date: %w", err)
	}
	if err := fillDate(page, endDateInput, to); err != nil {
		return "", fmt.Errorf("failed to set end date: %w", err)
	}

	if err := page.Locator(generateLink).Click(); err != nil {
		return "", fmt.Errorf("failed to submit report form: %w", err)
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return "", fmt.Errorf("post-submit navigation did not settle: %w", err)
	}

	// The submit lands on the history page with the new generation on top.
	if _, err := page.WaitForSelector(historyTable, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(30000),
	}); err != nil {
		return "", fmt.Errorf("history table did not appear: %w", err)
	}

	timestamp, err := page.Locator(historyRow + " td:nth-child(1)").First().TextContent()
	if err != nil {
		return "", fmt.Errorf("failed to read history timestamp: %w", err)
	}
	return strings.TrimSpace(timestamp), nil
}

// fillDate clears a datepicker input, types the value and blurs so the
// form picks the change up.
func fillDate(page playwright.Page, selector, value string) error {
	loc := page.Locator(selector)
	if err := loc.Fill(value); err != nil {
		return err
	}
	return loc.Blur()
}

// pollHistory reloads the history page until the row matching the
// timestamp reports Complete and carries an .xlsx link. Bounded wait per
// attempt, never an unbounded one.
func (g *liveGenerator) pollHistory(ctx context.Context, page playwright.Page, timestamp string) (string, error) {
	historyURL := ecomdash.ReportingHistoryURL(g.cfg.DashboardURL)

	for attempt := 1; attempt <= historyPollAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if _, err := page.Goto(historyURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
		}); err != nil {
			return "", fmt.Errorf("failed to open history page: %w", err)
		}
		if _, err := page.WaitForSelector(historyTable, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(15000),
		}); err != nil {
			return "", fmt.Errorf("history table did not appear: %w", err)
		}

		html, err := page.Content()
		if err != nil {
			return "", fmt.Errorf("failed to snapshot history page: %w", err)
		}

		url, err := findDownloadLink(html, timestamp)
		if err != nil {
			return "", err
		}
		if url != "" {
			g.logger.Info("report ready", "attempt", attempt, "url", url)
			return g.absoluteURL(url), nil
		}

		g.logger.Debug("report not ready yet", "attempt", attempt)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(historyPollInterval):
		}
	}

	return "", fmt.Errorf("report %q did not complete after %d checks", timestamp, historyPollAttempts)
}

func (g *liveGenerator) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return g.cfg.DashboardURL + href
}

// findDownloadLink scans a history page snapshot for the row whose
// timestamp matches and whose status reads Complete, returning its .xlsx
// link href. Empty result means not ready yet.
func findDownloadLink(html, timestamp string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse history page: %w", err)
	}

	var href string
	doc.Find(historyRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		rowTimestamp := strings.TrimSpace(row.Find("td:nth-child(1)").First().Text())
		status := strings.TrimSpace(row.Find("td:nth-child(4)").First().Text())
		if rowTimestamp != timestamp || status != "Complete" {
			return true
		}

		link := row.Find(`td:nth-child(5) a[href$=".xlsx"]`).First()
		if v, ok := link.Attr("href"); ok {
			href = v
			return false
		}
		return true
	})

	return href, nil
}
