package stats

import (
	"log/slog"
	"time"
	"tokenwatch-backend/lib/scrapers/financie"
)

// Diff is the day-over-day change of every tracked metric.
type Diff struct {
	Members int64
	Price   float64
	Stock   int64

	// HasPrior is false on the first ever run, when there is nothing
	// to diff against and the deltas above are all zero.
	HasPrior  bool
	PriorDate string
	// GapDays is the number of calendar days between today and the
	// prior observation. Anything above 1 means scrapes were missed.
	GapDays int
}

// ComputeDiff diffs today's snapshot against the most recent prior row
// in the table. The prior row does not have to be exactly yesterday, a
// multi-day gap is tolerated and reported via GapDays.
func ComputeDiff(table *Table, today time.Time, current financie.Snapshot) Diff {
	prior, ok := table.Prior(today)
	if !ok {
		slog.Info("no prior observation, diffs default to zero")
		return Diff{}
	}

	gapDays := int(today.Sub(prior.parsed).Hours() / 24)
	if gapDays > 1 {
		slog.Info(
			"diffing against an observation older than yesterday",
			"prior", prior.Date,
			"gap_days", gapDays,
		)
	}

	return Diff{
		Members:   current.Members - prior.Members,
		Price:     current.Price - prior.Price,
		Stock:     current.Stock - prior.Stock,
		HasPrior:  true,
		PriorDate: prior.Date,
		GapDays:   gapDays,
	}
}
