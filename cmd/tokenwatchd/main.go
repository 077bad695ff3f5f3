package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"tokenwatch-backend/lib/configutil"
	"tokenwatch-backend/lib/scrapers/financie"
	"tokenwatch-backend/lib/serviceutil"
	"tokenwatch-backend/lib/telemetry"
	"tokenwatch-backend/lib/timezone"
	"tokenwatch-backend/services/stats"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	godotenv.Load()
	telemetry.InitSlog(false)

	ctx := serviceutil.SignalContext()
	err := telemetry.SetupFromEnv(ctx, "tokenwatchd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	cfg, err := configutil.ReadConfig[stats.Config]("config.json5")
	if os.IsNotExist(err) {
		slog.Info("no config file found, using defaults")
	} else if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if url := os.Getenv("DISCORD_WEBHOOK_URL"); url != "" {
		cfg.WebhookUrl = url
	}
	cfg = cfg.WithDefaults()

	static, err := financie.NewStaticExtractor(cfg.Scraper)
	if err != nil {
		serviceutil.Fatal("failed to initialize static extractor", err)
	}
	service := stats.NewService(
		cfg,
		[]financie.Extractor{financie.NewBrowserExtractor(cfg.Scraper), static},
		stats.NewNotifier(cfg.WebhookUrl),
	)

	scheduler := cron.New(cron.WithLocation(timezone.Location))
	_, err = scheduler.AddFunc(cfg.Schedule, func() {
		err := service.Run(ctx)
		if errors.Is(err, financie.ErrNoData) {
			slog.Error("no data could be scraped this run", "err", err)
			return
		}
		if err != nil {
			slog.Error("run failed", "err", err)
		}
	})
	if err != nil {
		serviceutil.Fatal("invalid cron schedule", err)
	}

	slog.Info("scheduler started", "schedule", cfg.Schedule, "tz", timezone.Location.String())
	scheduler.Start()

	<-ctx.Done()
	slog.Info("shutting down")
	<-scheduler.Stop().Done()
}
