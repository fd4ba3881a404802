package prayer

import (
	"sort"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// CONSISTENCY CONSTANTS
// ═══════════════════════════════════════════════════════════════════════════

// CompleteDayRatio is the completion ratio at or above which a day counts
// toward the streak. Distinct from a perfect day: 4/5 keeps a streak alive,
// only 5/5 counts as perfect.
const CompleteDayRatio = 0.8

// PerfectDayCount is the number of completed prayers that make a perfect day.
const PerfectDayCount = DailyPrayerCount

// DayStatus classifies one calendar day of the log.
type DayStatus int

const (
	// DayIncomplete breaks a streak: ratio below threshold and not exempt.
	DayIncomplete DayStatus = iota
	// DayComplete extends a streak: ratio at or above threshold.
	DayComplete
	// DayExempt extends a streak regardless of completions.
	DayExempt
)

// CountsTowardStreak reports whether the day extends a streak.
func (s DayStatus) CountsTowardStreak() bool {
	return s == DayComplete || s == DayExempt
}

// String returns the string representation.
func (s DayStatus) String() string {
	switch s {
	case DayComplete:
		return "COMPLETE"
	case DayExempt:
		return "EXEMPT"
	default:
		return "INCOMPLETE"
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// DERIVED STATE
// ═══════════════════════════════════════════════════════════════════════════

// StreakResult is the output of a streak computation.
type StreakResult struct {
	// CurrentStreak counts consecutive counting days ending at the most
	// recent day of the log.
	CurrentStreak int

	// BestStreak is the longest run of counting days anywhere in the log.
	// Invariant: CurrentStreak <= BestStreak.
	BestStreak int

	// CurrentRunStart is the first day of the current run (zero when the
	// current streak is 0). Used to key streak milestone awards.
	CurrentRunStart time.Time
}

// ConsistencyStats is the cacheable aggregate derived from the event log.
// It is always recomputable from CompletionEvent + ExemptionWindow and is
// never the source of truth.
type ConsistencyStats struct {
	CurrentStreak  int       `json:"current_streak"`
	BestStreak     int       `json:"best_streak"`
	TotalCompleted int       `json:"total_completed"`
	TotalMissed    int       `json:"total_missed"`
	CompletionRate float64   `json:"completion_rate"`
	ComputedAt     time.Time `json:"computed_at"`
}

// DaySummary is the per-day bucket used by the calculator and by badge
// progress computation.
type DaySummary struct {
	Day       time.Time
	Scheduled int
	Completed int
	Status    DayStatus
}

// Ratio returns completed over scheduled for the day (0 when nothing was
// scheduled).
func (d DaySummary) Ratio() float64 {
	if d.Scheduled == 0 {
		return 0
	}
	return float64(d.Completed) / float64(d.Scheduled)
}

// IsPerfect reports whether all five prayers were completed on this day.
func (d DaySummary) IsPerfect() bool {
	return d.Completed >= PerfectDayCount
}

// ═══════════════════════════════════════════════════════════════════════════
// STREAK CALCULATOR
// ═══════════════════════════════════════════════════════════════════════════

// StreakCalculator derives consistency streaks from the event log and
// exemption windows. It is a pure function of its inputs: the same snapshot
// always produces the same result, so concurrent recomputation is safe.
type StreakCalculator struct {
	log *logger.Logger
}

// NewStreakCalculator creates a streak calculator.
func NewStreakCalculator(log *logger.Logger) *StreakCalculator {
	if log == nil {
		log = logger.Default()
	}
	return &StreakCalculator{log: log.With(logger.Component("streak_calculator"))}
}

// Calculate derives current and best streaks. The day boundary is defined by
// the caller-supplied location; the calculator never consults ambient local
// time. An empty event set yields {0, 0}.
func (c *StreakCalculator) Calculate(events []*CompletionEvent, exemptions []*ExemptionWindow, loc *time.Location) StreakResult {
	days := c.BucketByDay(events, exemptions, loc)
	if len(days) == 0 {
		return StreakResult{}
	}

	var result StreakResult

	// Best streak: chronological scan, reset on any non-counting day.
	run := 0
	for _, d := range days {
		if d.Status.CountsTowardStreak() {
			run++
			if run > result.BestStreak {
				result.BestStreak = run
			}
		} else {
			run = 0
		}
	}

	// Current streak: scan backward from the most recent day, stop at the
	// first non-counting day.
	for i := len(days) - 1; i >= 0; i-- {
		if !days[i].Status.CountsTowardStreak() {
			break
		}
		result.CurrentStreak++
		result.CurrentRunStart = days[i].Day
	}

	return result
}

// Stats derives the full consistency aggregate from the same snapshot.
func (c *StreakCalculator) Stats(events []*CompletionEvent, exemptions []*ExemptionWindow, loc *time.Location, now time.Time) ConsistencyStats {
	streaks := c.Calculate(events, exemptions, loc)

	completed, missed := 0, 0
	for _, e := range events {
		if e.IsMalformed() {
			continue
		}
		if e.Completed {
			completed++
		} else {
			missed++
		}
	}

	rate := 0.0
	if completed+missed > 0 {
		rate = float64(completed) / float64(completed+missed)
	}

	return ConsistencyStats{
		CurrentStreak:  streaks.CurrentStreak,
		BestStreak:     streaks.BestStreak,
		TotalCompleted: completed,
		TotalMissed:    missed,
		CompletionRate: rate,
		ComputedAt:     now.UTC(),
	}
}

// BucketByDay groups events into per-day summaries covering every calendar
// day from the earliest to the latest event, classified per the streak
// rules. Days with no scheduled events inside the range are INCOMPLETE
// unless exempt. Malformed events are skipped with a warning.
func (c *StreakCalculator) BucketByDay(events []*CompletionEvent, exemptions []*ExemptionWindow, loc *time.Location) []DaySummary {
	type bucket struct {
		scheduled int
		completed int
	}
	buckets := make(map[string]*bucket)

	var first, last time.Time
	for _, e := range events {
		if e.IsMalformed() {
			c.log.Warn("skipping malformed completion event",
				logger.String("event_id", e.ID),
				logger.UserID(e.UserID),
			)
			continue
		}

		day := dayStart(e.ScheduledAt, loc)
		key := day.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.scheduled++
		if e.Completed {
			b.completed++
		}

		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}

	if first.IsZero() {
		return nil
	}

	var days []DaySummary
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		summary := DaySummary{Day: day}
		if b, ok := buckets[day.Format("2006-01-02")]; ok {
			summary.Scheduled = b.scheduled
			summary.Completed = b.completed
		}
		summary.Status = classifyDay(summary, exemptions, loc)
		days = append(days, summary)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })
	return days
}

// classifyDay applies the completion rules to one day.
func classifyDay(d DaySummary, exemptions []*ExemptionWindow, loc *time.Location) DayStatus {
	for _, w := range exemptions {
		if w.Covers(d.Day, loc) {
			return DayExempt
		}
	}
	if d.Scheduled > 0 && d.Ratio() >= CompleteDayRatio {
		return DayComplete
	}
	return DayIncomplete
}
