package badge

import (
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
)

// UserStatistics is the aggregate the evaluator reads badge metrics
// from. It is built once per evaluation from the user's event log and
// day buckets, so checking the whole catalog costs one pass over the
// data.
type UserStatistics struct {
	TotalCompleted int
	BestStreak     int
	ByPrayer       map[prayer.Type]int
	EarlyTotal     int
	EarlyByPrayer  map[prayer.Type]int
	Reflections    int
	BestPerfectRun int
}

// BuildStatistics aggregates the event log. The days slice is expected
// to be the calculator's per-day buckets in chronological order with
// gap days filled in, so the perfect-day run count can rely on
// adjacency.
func BuildStatistics(events []*prayer.CompletionEvent, days []prayer.DaySummary, bestStreak int) *UserStatistics {
	stats := &UserStatistics{
		BestStreak:    bestStreak,
		ByPrayer:      make(map[prayer.Type]int),
		EarlyByPrayer: make(map[prayer.Type]int),
	}

	for _, e := range events {
		if e.IsMalformed() || !e.Completed {
			continue
		}
		stats.TotalCompleted++
		stats.ByPrayer[e.Prayer]++
		if e.IsEarly() {
			stats.EarlyTotal++
			stats.EarlyByPrayer[e.Prayer]++
		}
		if e.HasReflection {
			stats.Reflections++
		}
	}

	run := 0
	for _, d := range days {
		if d.IsPerfect() {
			run++
			if run > stats.BestPerfectRun {
				stats.BestPerfectRun = run
			}
		} else {
			run = 0
		}
	}

	return stats
}

// MetricFor extracts the aggregated value a requirement is measured
// against.
func (s *UserStatistics) MetricFor(r Requirement) int {
	switch r.Kind {
	case KindTotalCompleted:
		return s.TotalCompleted
	case KindStreakLength:
		return s.BestStreak
	case KindSpecificPrayer:
		return s.ByPrayer[r.Prayer]
	case KindConsecutivePerfectDays:
		return s.BestPerfectRun
	case KindEarlyCompletion:
		if r.Prayer != "" {
			return s.EarlyByPrayer[r.Prayer]
		}
		return s.EarlyTotal
	case KindReflection:
		return s.Reflections
	}
	return 0
}

// ProgressFor reports the user's position toward one badge, capped at
// the requirement's target.
func (s *UserStatistics) ProgressFor(d Definition) Progress {
	metric := s.MetricFor(d.Requirement)
	if metric > d.Requirement.Value {
		metric = d.Requirement.Value
	}
	return Progress{
		BadgeID: d.ID,
		Current: metric,
		Target:  d.Requirement.Value,
	}
}

// Satisfies reports whether the aggregate meets a badge's threshold.
func (s *UserStatistics) Satisfies(d Definition) bool {
	return s.MetricFor(d.Requirement) >= d.Requirement.Value
}
