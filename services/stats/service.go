package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"tokenwatch-backend/lib/scrapers/financie"
	"tokenwatch-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/stats")

type Config struct {
	CsvPath    string          `json:"csv_path"`
	WebhookUrl string          `json:"webhook_url"`
	Scraper    financie.Config `json:"scraper"`
	Override   OverrideConfig  `json:"override"`
	// cron spec for the daemon, defaults to daily at 06:00 JST
	Schedule string `json:"schedule"`
}

func (c Config) WithDefaults() Config {
	if c.CsvPath == "" {
		c.CsvPath = "stats.csv"
	}
	if c.Schedule == "" {
		c.Schedule = "0 6 * * *"
	}
	return c
}

// Service runs the whole daily pipeline: scrape, reconcile with the
// stored time series, persist, notify.
type Service struct {
	cfg        Config
	extractors []financie.Extractor
	notifier   *Notifier

	now func() time.Time
}

func NewService(cfg Config, extractors []financie.Extractor, notifier *Notifier) *Service {
	return &Service{
		cfg:        cfg.WithDefaults(),
		extractors: extractors,
		notifier:   notifier,
		now:        timezone.Now,
	}
}

// Run executes one full pipeline pass. When every extraction strategy
// fails it returns an error wrapping financie.ErrNoData without having
// touched the table or sent anything.
func (s *Service) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayStr := today.Format(canonicalDateLayout)
	span.SetAttributes(attribute.String("date", todayStr))

	snap, err := financie.Chain(ctx, s.extractors...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	table, err := ReadTable(s.cfg.CsvPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("read stats table: %w", err)
	}

	ApplyOverride(table, s.cfg.Override, today)

	diff := ComputeDiff(table, today, snap)

	table.Upsert(Observation{
		Date:    todayStr,
		Members: snap.Members,
		Price:   snap.Price,
		Stock:   snap.Stock,
	})
	err = table.Write(s.cfg.CsvPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write stats table: %w", err)
	}
	slog.InfoContext(ctx, "stats table updated", "path", s.cfg.CsvPath, "rows", len(table.Rows))

	postTime := time.Date(today.Year(), today.Month(), today.Day(), 6, 0, 0, 0, today.Location())
	err = s.notifier.Send(ctx, FormatMessage(postTime, snap, diff))
	if err != nil {
		// the table is already updated, a failed webhook does not
		// fail the run
		slog.ErrorContext(ctx, "failed to send notification", "err", err)
		span.RecordError(err)
	}
	return nil
}
