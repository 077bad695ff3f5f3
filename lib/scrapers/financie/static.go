package financie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"time"
	"tokenwatch-backend/lib/htmlutil"
	"tokenwatch-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// StaticExtractor is the fallback strategy: plain HTTP fetches of both
// pages plus the bancor price API for the numbers the market page only
// renders client-side.
type StaticExtractor struct {
	cfg  Config
	http *resty.Client
}

func NewStaticExtractor(cfg Config) (*StaticExtractor, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/financie/http")

	return &StaticExtractor{cfg: cfg.withDefaults(), http: client}, nil
}

func (e *StaticExtractor) Name() string {
	return "static"
}

func (e *StaticExtractor) Attempt(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "StaticExtractor.Attempt")
	defer span.End()

	snap, err := e.attempt(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}
	return snap, nil
}

func (e *StaticExtractor) attempt(ctx context.Context) (Snapshot, error) {
	community, err := e.fetchDocument(ctx, e.cfg.CommunityUrl)
	if err != nil {
		return Snapshot{}, fmt.Errorf("community page: %w", err)
	}

	members, err := parseCount(community.Find(selMembers).First().Text())
	if err != nil {
		return Snapshot{}, fmt.Errorf("member count: %w", err)
	}

	address := findConnectorAddress(community)
	if address == "" {
		market, err := e.fetchDocument(ctx, e.cfg.MarketUrl)
		if err != nil {
			return Snapshot{}, fmt.Errorf("market page: %w", err)
		}
		address = findConnectorAddress(market)
	}
	if address == "" {
		return Snapshot{}, fmt.Errorf("connector address not found in page markup")
	}

	price, stock, err := e.fetchBancor(ctx, address)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Members: members, Price: price, Stock: stock}, nil
}

func (e *StaticExtractor) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := e.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET %s: %s", url, res.Status())
	}
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

var connectorAddressRegex = regexp.MustCompile(`(?i)connector[_-]?address['":\s=]+['"]?(0x[0-9a-fA-F]{40})`)

// findConnectorAddress digs the token's connector address out of page
// markup, preferring an explicit data attribute over the inline script
// blob the site sometimes ships it in.
func findConnectorAddress(doc *goquery.Document) string {
	if addr := doc.Find("[data-connector-address]").First().AttrOr("data-connector-address", ""); addr != "" {
		return addr
	}
	for _, script := range doc.Find("script").Nodes {
		groups := connectorAddressRegex.FindStringSubmatch(htmlutil.GetText(script))
		if len(groups) >= 2 {
			return groups[1]
		}
	}
	return ""
}

type bancorResponse struct {
	Bancor struct {
		LatestPrice string `json:"latest_price"`
	} `json:"bancor"`
	Market struct {
		Stock string `json:"stock"`
	} `json:"market"`
}

func (e *StaticExtractor) fetchBancor(ctx context.Context, address string) (price float64, stock int64, err error) {
	url := fmt.Sprintf("%s/%s", e.cfg.BancorApiUrl, address)
	res, err := e.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, 0, fmt.Errorf("bancor api: %w", err)
	}
	if res.IsError() {
		return 0, 0, fmt.Errorf("bancor api: %s", res.Status())
	}

	var body bancorResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		return 0, 0, fmt.Errorf("bancor api payload: %w", err)
	}
	if body.Bancor.LatestPrice == "" {
		return 0, 0, fmt.Errorf("bancor api payload: missing bancor.latest_price")
	}
	if body.Market.Stock == "" {
		return 0, 0, fmt.Errorf("bancor api payload: missing market.stock")
	}

	price, err = decodeFixedPrice(body.Bancor.LatestPrice)
	if err != nil {
		return 0, 0, err
	}
	stock, err = decodeFixedStock(body.Market.Stock)
	if err != nil {
		return 0, 0, err
	}
	return price, stock, nil
}
