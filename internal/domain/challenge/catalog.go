package challenge

import (
	"fmt"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// Generation counts per period instance.
const (
	DailyGenerationCount  = 3
	WeeklyGenerationCount = 2
)

// Catalog is the static template configuration, loaded once at process
// start and validated before use.
type Catalog struct {
	byPeriod map[Period][]Template
	byID     map[string]Template
}

// NewCatalog validates the templates and checks that each period has
// enough of them to satisfy its generation count.
func NewCatalog(templates []Template) (*Catalog, error) {
	const op = "NewCatalog"

	c := &Catalog{
		byPeriod: make(map[Period][]Template),
		byID:     make(map[string]Template, len(templates)),
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, shared.NewDomainError("challenge", op, shared.ErrComputation,
				fmt.Sprintf("duplicate template ID %q in catalog", t.ID))
		}
		c.byID[t.ID] = t
		c.byPeriod[t.Period] = append(c.byPeriod[t.Period], t)
	}

	if n := len(c.byPeriod[PeriodDaily]); n < DailyGenerationCount {
		return nil, shared.NewDomainError("challenge", op, shared.ErrComputation,
			fmt.Sprintf("catalog has %d daily templates, need at least %d", n, DailyGenerationCount))
	}
	if n := len(c.byPeriod[PeriodWeekly]); n < WeeklyGenerationCount {
		return nil, shared.NewDomainError("challenge", op, shared.ErrComputation,
			fmt.Sprintf("catalog has %d weekly templates, need at least %d", n, WeeklyGenerationCount))
	}
	return c, nil
}

// ForPeriod returns the templates of one cadence in catalog order.
func (c *Catalog) ForPeriod(p Period) []Template {
	return c.byPeriod[p]
}

// Get looks a template up by ID.
func (c *Catalog) Get(id string) (Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return Template{}, shared.NewDomainError("challenge", "Catalog.Get",
			shared.ErrNotFound, "unknown template ID: "+id)
	}
	return t, nil
}

// GenerationCount returns how many instances one period generates.
func GenerationCount(p Period) int {
	if p == PeriodWeekly {
		return WeeklyGenerationCount
	}
	return DailyGenerationCount
}

// DefaultTemplates is the shipped catalog.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID: "daily_all_five", Name: "Full Day", Period: PeriodDaily, Target: 5, XPReward: 50,
			Description: "Complete all five prayers today",
			Requirement: Requirement{Kind: KindCompleteCount},
		},
		{
			ID: "daily_fajr", Name: "Rise With Dawn", Period: PeriodDaily, Target: 1, XPReward: 20,
			Description: "Complete fajr today",
			Requirement: Requirement{Kind: KindSpecificPrayer, Prayer: prayer.Fajr},
		},
		{
			ID: "daily_on_time", Name: "Ahead of Time", Period: PeriodDaily, Target: 2, XPReward: 30,
			Description: "Complete two prayers before their scheduled time",
			Requirement: Requirement{Kind: KindEarlyCount},
		},
		{
			ID: "daily_reflect", Name: "Pause and Reflect", Period: PeriodDaily, Target: 1, XPReward: 15,
			Description: "Record a reflection with a prayer today",
			Requirement: Requirement{Kind: KindReflectionCount},
		},
		{
			ID: "weekly_fajr_six", Name: "Week of Dawns", Period: PeriodWeekly, Target: 6, XPReward: 150,
			Description: "Complete fajr six times this week",
			Requirement: Requirement{Kind: KindSpecificPrayer, Prayer: prayer.Fajr},
		},
		{
			ID: "weekly_perfect_three", Name: "Three Perfect Days", Period: PeriodWeekly, Target: 3, XPReward: 200,
			Description: "Complete all five prayers on three days this week",
			Requirement: Requirement{Kind: KindPerfectDays},
		},
		{
			ID: "weekly_thirty", Name: "Thirty Strong", Period: PeriodWeekly, Target: 30, XPReward: 250,
			Description: "Complete thirty prayers this week",
			Requirement: Requirement{Kind: KindCompleteCount},
		},
	}
}
