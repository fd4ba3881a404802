package badge

import (
	"fmt"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// Catalog is the static badge configuration, loaded once at process
// start and validated before use.
type Catalog struct {
	defs []Definition
	byID map[string]Definition
}

// NewCatalog validates the definitions and builds the lookup index.
// A defective catalog is a ComputationError.
func NewCatalog(defs []Definition) (*Catalog, error) {
	const op = "NewCatalog"

	byID := make(map[string]Definition, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[d.ID]; dup {
			return nil, shared.NewDomainError("badge", op, shared.ErrComputation,
				fmt.Sprintf("duplicate badge ID %q in catalog", d.ID))
		}
		byID[d.ID] = d
	}
	return &Catalog{defs: defs, byID: byID}, nil
}

// All returns every definition in catalog order.
func (c *Catalog) All() []Definition {
	return c.defs
}

// Get looks a definition up by ID.
func (c *Catalog) Get(id string) (Definition, error) {
	d, ok := c.byID[id]
	if !ok {
		return Definition{}, shared.NewDomainError("badge", "Catalog.Get",
			shared.ErrNotFound, "unknown badge ID: "+id)
	}
	return d, nil
}

func (c *Catalog) Len() int {
	return len(c.defs)
}

// DefaultDefinitions is the shipped catalog.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID: "first_steps", Name: "First Steps", Rarity: RarityCommon, XPReward: 25,
			Description: "Complete your first prayer",
			Requirement: Requirement{Kind: KindTotalCompleted, Value: 1},
		},
		{
			ID: "faithful_fifty", Name: "Faithful Fifty", Rarity: RarityCommon, XPReward: 75,
			Description: "Complete 50 prayers",
			Requirement: Requirement{Kind: KindTotalCompleted, Value: 50},
		},
		{
			ID: "devoted_500", Name: "Devoted", Rarity: RarityRare, XPReward: 400,
			Description: "Complete 500 prayers",
			Requirement: Requirement{Kind: KindTotalCompleted, Value: 500},
		},
		{
			ID: "week_of_light", Name: "Week of Light", Rarity: RarityCommon, XPReward: 100,
			Description: "Hold a 7-day streak",
			Requirement: Requirement{Kind: KindStreakLength, Value: 7},
		},
		{
			ID: "steadfast_month", Name: "Steadfast Month", Rarity: RarityUncommon, XPReward: 300,
			Description: "Hold a 30-day streak",
			Requirement: Requirement{Kind: KindStreakLength, Value: 30},
		},
		{
			ID: "centurion", Name: "Centurion", Rarity: RarityLegendary, XPReward: 1500,
			Description: "Hold a 100-day streak",
			Requirement: Requirement{Kind: KindStreakLength, Value: 100},
		},
		{
			ID: "dawn_seeker", Name: "Dawn Seeker", Rarity: RarityUncommon, XPReward: 150,
			Description: "Complete fajr 30 times",
			Requirement: Requirement{Kind: KindSpecificPrayer, Prayer: prayer.Fajr, Value: 30},
		},
		{
			ID: "night_anchor", Name: "Night Anchor", Rarity: RarityUncommon, XPReward: 150,
			Description: "Complete isha 30 times",
			Requirement: Requirement{Kind: KindSpecificPrayer, Prayer: prayer.Isha, Value: 30},
		},
		{
			ID: "perfect_week", Name: "Perfect Week", Rarity: RarityRare, XPReward: 350,
			Description: "Seven consecutive days with all five prayers completed",
			Requirement: Requirement{Kind: KindConsecutivePerfectDays, Value: 7},
		},
		{
			ID: "early_bird", Name: "Early Bird", Rarity: RarityUncommon, XPReward: 200,
			Description: "Complete 25 prayers before their scheduled time",
			Requirement: Requirement{Kind: KindEarlyCompletion, Value: 25},
		},
		{
			ID: "before_first_light", Name: "Before First Light", Rarity: RarityRare, XPReward: 300,
			Description: "Complete fajr before its scheduled time 10 times",
			Requirement: Requirement{Kind: KindEarlyCompletion, Prayer: prayer.Fajr, Value: 10},
		},
		{
			ID: "reflective_soul", Name: "Reflective Soul", Rarity: RarityUncommon, XPReward: 175,
			Description: "Record 20 reflections",
			Requirement: Requirement{Kind: KindReflection, Value: 20},
		},
	}
}
