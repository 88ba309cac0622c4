package ecomdash

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"github.com/ecomstack/ecomdash-sync/internal/browser"
	"github.com/ecomstack/ecomdash-sync/internal/config"
)

// orderNavRetries bounds navigation attempts for a single order detail page.
const orderNavRetries = 3

// Session is one authenticated browser session against the back office.
// The orchestrator opens one per batch and tears it down afterwards so
// browser memory stays bounded over a long id list.
type Session interface {
	OrderReader(ctx context.Context, orderID string) (PageReader, error)
	Close() error
}

// SessionFactory opens authenticated sessions. The live implementation
// launches a browser and logs in; tests substitute fakes.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

type liveSessionFactory struct {
	cfg    config.EcomdashConfig
	bopts  *browser.Options
	logger *slog.Logger
}

// NewSessionFactory builds the live playwright-backed factory.
func NewSessionFactory(cfg config.EcomdashConfig, bopts *browser.Options) SessionFactory {
	return &liveSessionFactory{
		cfg:    cfg,
		bopts:  bopts,
		logger: slog.Default().With("component", "ecomdash_session"),
	}
}

func (f *liveSessionFactory) Open(ctx context.Context) (Session, error) {
	b, err := browser.New(f.bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := Login(page, f.cfg, ReturnAllSalesOrders); err != nil {
		b.Close()
		return nil, fmt.Errorf("login failed: %w", err)
	}

	f.logger.Info("session opened")
	return &liveSession{browser: b, page: page, cfg: f.cfg}, nil
}

type liveSession struct {
	browser *browser.Browser
	page    playwright.Page
	cfg     config.EcomdashConfig
}

func (s *liveSession) OrderReader(ctx context.Context, orderID string) (PageReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	url := OrderDetailURL(s.cfg.DashboardURL, orderID)
	if err := s.browser.NavigateWithRetry(s.page, url, orderNavRetries); err != nil {
		return nil, fmt.Errorf("failed to open order %s: %w", orderID, err)
	}

	return NewPageReader(s.page), nil
}

func (s *liveSession) Close() error {
	return s.browser.Close()
}

// Login performs the two-step email/password sign-in, landing on
// returnPath afterwards.
func Login(page playwright.Page, cfg config.EcomdashConfig, returnPath string) error {
	if _, err := page.Goto(LoginURL(cfg.AppURL, returnPath)); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	if err := page.Locator("input#UserName").Fill(cfg.LoginEmail); err != nil {
		return fmt.Errorf("failed to enter email: %w", err)
	}
	if err := page.Locator("input#submit").Click(); err != nil {
		return fmt.Errorf("failed to submit email: %w", err)
	}

	if err := page.Locator("input#Password").WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("password field did not appear: %w", err)
	}

	if err := page.Locator("input#Password").Fill(cfg.LoginPass); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}
	if err := page.Locator("input#submit").Click(); err != nil {
		return fmt.Errorf("failed to submit password: %w", err)
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("post-login navigation did not settle: %w", err)
	}

	return nil
}
