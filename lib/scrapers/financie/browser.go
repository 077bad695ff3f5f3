package financie

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/codes"
)

// BrowserExtractor drives a headless chromium through both pages. It
// is the primary strategy because the market page fills in its numbers
// with javascript after load.
type BrowserExtractor struct {
	cfg Config
}

func NewBrowserExtractor(cfg Config) *BrowserExtractor {
	return &BrowserExtractor{cfg: cfg.withDefaults()}
}

func (e *BrowserExtractor) Name() string {
	return "browser"
}

func (e *BrowserExtractor) Attempt(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "BrowserExtractor.Attempt")
	defer span.End()

	snap, err := e.attempt(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}
	return snap, nil
}

func (e *BrowserExtractor) attempt(ctx context.Context) (Snapshot, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	// the deferred cancel tears the browser down on every exit path
	defer cancelBrowser()

	var memberText string
	{
		navCtx, cancel := context.WithTimeout(browserCtx, navigationTimeout)
		defer cancel()
		slog.DebugContext(ctx, "navigating to community page", "url", e.cfg.CommunityUrl)
		err := chromedp.Run(navCtx,
			chromedp.Navigate(e.cfg.CommunityUrl),
			chromedp.Text(selMembers, &memberText, chromedp.ByQuery, chromedp.AtLeast(0)),
		)
		if err != nil {
			return Snapshot{}, fmt.Errorf("community page: %w", err)
		}
	}

	var stockText, priceIntText, priceFracText string
	{
		navCtx, cancel := context.WithTimeout(browserCtx, navigationTimeout)
		defer cancel()
		slog.DebugContext(ctx, "navigating to market page", "url", e.cfg.MarketUrl)
		err := chromedp.Run(navCtx, chromedp.Navigate(e.cfg.MarketUrl))
		if err != nil {
			return Snapshot{}, fmt.Errorf("market page: %w", err)
		}

		// the price widget is rendered asynchronously, wait for it
		// before reading anything off the page
		waitCtx, cancelWait := context.WithTimeout(browserCtx, elementTimeout)
		defer cancelWait()
		err = chromedp.Run(waitCtx, chromedp.WaitVisible(selPriceNode, chromedp.ByQuery))
		if err != nil {
			return Snapshot{}, fmt.Errorf("waiting for price element %q: %w", selPriceNode, err)
		}

		err = chromedp.Run(waitCtx,
			chromedp.Text(selStock, &stockText, chromedp.ByQuery, chromedp.AtLeast(0)),
			chromedp.Text(selPriceIntPart, &priceIntText, chromedp.ByQuery, chromedp.AtLeast(0)),
			chromedp.Text(selPriceFracPart, &priceFracText, chromedp.ByQuery, chromedp.AtLeast(0)),
		)
		if err != nil {
			return Snapshot{}, fmt.Errorf("reading market page: %w", err)
		}
	}

	var snap Snapshot
	var missing []string

	members, err := parseCount(memberText)
	if err != nil {
		missing = append(missing, "members")
	} else {
		snap.Members = members
	}

	price, err := parsePrice(priceIntText, priceFracText)
	if err != nil {
		missing = append(missing, "price")
	} else {
		snap.Price = price
	}

	stock, err := parseCount(stockText)
	if err != nil {
		missing = append(missing, "stock")
	} else {
		snap.Stock = stock
	}

	if len(missing) > 0 {
		return Snapshot{}, fmt.Errorf(
			"incomplete extraction, missing: %s (selectors may be stale)",
			strings.Join(missing, ", "),
		)
	}
	return snap, nil
}
