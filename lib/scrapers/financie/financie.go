// Package financie scrapes a FiNANCiE community for its daily metrics:
// member count, token price and remaining token stock.
//
// Two independent strategies implement the same contract. The browser
// strategy drives a headless chromium since the market page renders its
// numbers client-side; the static strategy falls back to plain HTTP plus
// the bancor price API. Either strategy returns a complete snapshot or
// an error, never a partial result.
package financie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/financie")

// Snapshot is one complete scrape result.
type Snapshot struct {
	Members int64
	Price   float64
	Stock   int64
}

// Extractor is a single extraction strategy.
type Extractor interface {
	Name() string
	Attempt(ctx context.Context) (Snapshot, error)
}

const (
	DefaultCommunityUrl = "https://financie.jp/communities/orochi_cnp/"
	DefaultMarketUrl    = "https://financie.jp/communities/orochi_cnp/market"
	DefaultBancorApiUrl = "https://api.financie.jp/bancor"

	navigationTimeout = time.Second * 60
	elementTimeout    = time.Second * 30
)

// markup selectors for the pages being scraped. these drift whenever
// the site changes its frontend, they are expected to need updating.
const (
	selMembers       = ".profile_databox .profile_num"
	selPriceNode     = ".js-bancor-latest-price .connector-price"
	selPriceIntPart  = ".js-bancor-latest-price .connector-price .currency.int-part"
	selPriceFracPart = ".js-bancor-latest-price .connector-price .currency.float-part"
	selStock         = ".selling_stock .connector-instock .currency.int-part"
)

type Config struct {
	CommunityUrl string `json:"community_url"`
	MarketUrl    string `json:"market_url"`
	BancorApiUrl string `json:"bancor_api_url"`
}

func (c Config) withDefaults() Config {
	if c.CommunityUrl == "" {
		c.CommunityUrl = DefaultCommunityUrl
	}
	if c.MarketUrl == "" {
		c.MarketUrl = DefaultMarketUrl
	}
	if c.BancorApiUrl == "" {
		c.BancorApiUrl = DefaultBancorApiUrl
	}
	return c
}

// ErrNoData reports that every extraction strategy failed.
var ErrNoData = errors.New("no extraction strategy produced data")

// Chain tries each extractor in order and returns the first complete
// snapshot. The returned error wraps ErrNoData together with every
// strategy's failure reason when all of them fail.
func Chain(ctx context.Context, extractors ...Extractor) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Chain")
	defer span.End()

	var errlist []error
	for _, ex := range extractors {
		snap, err := ex.Attempt(ctx)
		if err == nil {
			slog.InfoContext(
				ctx, "scrape succeeded",
				"strategy", ex.Name(),
				"members", snap.Members,
				"price", snap.Price,
				"stock", snap.Stock,
			)
			return snap, nil
		}
		slog.WarnContext(ctx, "extraction strategy failed", "strategy", ex.Name(), "err", err)
		errlist = append(errlist, fmt.Errorf("%s: %w", ex.Name(), err))
	}

	err := fmt.Errorf("%w: %w", ErrNoData, errors.Join(errlist...))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return Snapshot{}, err
}
