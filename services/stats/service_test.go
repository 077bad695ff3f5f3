package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
	"tokenwatch-backend/lib/scrapers/financie"
	"tokenwatch-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	snap financie.Snapshot
	err  error
}

func (s stubExtractor) Name() string { return "stub" }

func (s stubExtractor) Attempt(ctx context.Context) (financie.Snapshot, error) {
	return s.snap, s.err
}

func fixedClock(date string) func() time.Time {
	return func() time.Time {
		parsed, _ := parseDate(date)
		return parsed.Add(time.Hour * 9)
	}
}

func newTestService(t *testing.T, csvPath, today string, extractor financie.Extractor) (*Service, *[]string) {
	messages := &[]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Content string `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		*messages = append(*messages, payload.Content)
	}))
	t.Cleanup(server.Close)

	service := NewService(
		Config{CsvPath: csvPath},
		[]financie.Extractor{extractor},
		NewNotifier(server.URL),
	)
	service.now = fixedClock(today)
	return service, messages
}

func TestServiceFirstRun(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "stats.csv")
	service, messages := newTestService(t, csvPath, "2025-01-17", stubExtractor{
		snap: financie.Snapshot{Members: 1000, Price: 0.1234, Stock: 50000},
	})

	require.NoError(t, service.Run(context.Background()))

	table, err := ReadTable(csvPath)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	require.Equal(t, "2025-01-17", table.Rows[0].Date)
	require.Equal(t, int64(1000), table.Rows[0].Members)

	require.Len(t, *messages, 1)
	require.Contains(t, (*messages)[0], "前日比 +0人")
}

func TestServiceDailyRun(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "stats.csv")
	seed := &Table{}
	seed.Upsert(Observation{Date: "2025-01-17", Members: 1000, Price: 0.1, Stock: 50000})
	require.NoError(t, seed.Write(csvPath))

	service, messages := newTestService(t, csvPath, "2025-01-18", stubExtractor{
		snap: financie.Snapshot{Members: 1050, Price: 0.115, Stock: 49000},
	})
	require.NoError(t, service.Run(context.Background()))

	table, err := ReadTable(csvPath)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	require.Len(t, *messages, 1)
	require.Contains(t, (*messages)[0], "前日比 +50人")
	require.Contains(t, (*messages)[0], "前日比 +0.0150円")
	require.Contains(t, (*messages)[0], "前日比 -1,000枚")
}

func TestServiceRerunSameDay(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "stats.csv")
	service, _ := newTestService(t, csvPath, "2025-01-17", stubExtractor{
		snap: financie.Snapshot{Members: 1000, Price: 0.1234, Stock: 50000},
	})
	require.NoError(t, service.Run(context.Background()))
	require.NoError(t, service.Run(context.Background()))

	table, err := ReadTable(csvPath)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
}

func TestServiceExtractionFailure(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "stats.csv")
	service, messages := newTestService(t, csvPath, "2025-01-17", stubExtractor{
		err: errors.New("navigation timeout"),
	})

	err := service.Run(context.Background())
	require.ErrorIs(t, err, financie.ErrNoData)

	// no table mutation, no notification
	_, statErr := os.Stat(csvPath)
	require.True(t, os.IsNotExist(statErr))
	require.Empty(t, *messages)
}

func TestServiceAppliesOverride(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "stats.csv")
	seed := &Table{}
	seed.Upsert(Observation{Date: "2025-01-17", Members: 1000, Price: 0.1, Stock: 50000})
	require.NoError(t, seed.Write(csvPath))

	service, messages := newTestService(t, csvPath, "2025-01-18", stubExtractor{
		snap: financie.Snapshot{Members: 1050, Price: 0.115, Stock: 49000},
	})
	service.cfg.Override = OverrideConfig{
		Date:    "2025-01-16",
		Members: ptr(int64(950)),
		Price:   ptr(0.095),
		Stock:   ptr(int64(50500)),
	}
	require.NoError(t, service.Run(context.Background()))

	table, err := ReadTable(csvPath)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	require.Equal(t, "2025-01-16", table.Rows[0].Date)

	// the diff ran against 2025-01-17, not the override row
	require.Len(t, *messages, 1)
	require.Contains(t, (*messages)[0], "前日比 +50人")
}

func TestServiceNotificationFailureIsNotFatal(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "stats.csv")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	service := NewService(
		Config{CsvPath: csvPath},
		[]financie.Extractor{stubExtractor{
			snap: financie.Snapshot{Members: 1000, Price: 0.1234, Stock: 50000},
		}},
		NewNotifier(server.URL),
	)
	service.now = fixedClock("2025-01-17")

	require.NoError(t, service.Run(context.Background()))

	table, err := ReadTable(csvPath)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
}

func TestServiceTimezone(t *testing.T) {
	// 2025-01-17 23:30 UTC is already 2025-01-18 in JST
	csvPath := filepath.Join(t.TempDir(), "stats.csv")
	service, _ := newTestService(t, csvPath, "2025-01-17", stubExtractor{
		snap: financie.Snapshot{Members: 1000, Price: 0.1234, Stock: 50000},
	})
	service.now = func() time.Time {
		return time.Date(2025, 1, 17, 23, 30, 0, 0, time.UTC).In(timezone.Location)
	}
	require.NoError(t, service.Run(context.Background()))

	table, err := ReadTable(csvPath)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	require.Equal(t, "2025-01-18", table.Rows[0].Date)
}
