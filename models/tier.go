package models

// Tier is the rarity class of a cube. Values match the keys the web client reads.
type Tier string

const (
	TierCommon    Tier = "common"
	TierRare      Tier = "rare"
	TierSuperRare Tier = "superRare"
	TierLegendary Tier = "legendary"
)

// Tiers lists every tier from most to least common.
var Tiers = []Tier{TierCommon, TierRare, TierSuperRare, TierLegendary}

func (t Tier) Valid() bool {
	switch t {
	case TierCommon, TierRare, TierSuperRare, TierLegendary:
		return true
	}
	return false
}

// CubeCounts holds owned cubes per tier. Stored as four columns so a single
// conditional UPDATE can move the balance and a count together.
type CubeCounts struct {
	Common    int64 `json:"common" gorm:"column:cubes_common;not null;default:0"`
	Rare      int64 `json:"rare" gorm:"column:cubes_rare;not null;default:0"`
	SuperRare int64 `json:"superRare" gorm:"column:cubes_super_rare;not null;default:0"`
	Legendary int64 `json:"legendary" gorm:"column:cubes_legendary;not null;default:0"`
}

// Get returns the count for t, 0 for an unknown tier.
func (c CubeCounts) Get(t Tier) int64 {
	switch t {
	case TierCommon:
		return c.Common
	case TierRare:
		return c.Rare
	case TierSuperRare:
		return c.SuperRare
	case TierLegendary:
		return c.Legendary
	}
	return 0
}

// Add adds n to the count for t. Unknown tiers are ignored.
func (c *CubeCounts) Add(t Tier, n int64) {
	switch t {
	case TierCommon:
		c.Common += n
	case TierRare:
		c.Rare += n
	case TierSuperRare:
		c.SuperRare += n
	case TierLegendary:
		c.Legendary += n
	}
}

func (c CubeCounts) Total() int64 {
	return c.Common + c.Rare + c.SuperRare + c.Legendary
}

// Map returns the counts keyed by tier.
func (c CubeCounts) Map() map[Tier]int64 {
	return map[Tier]int64{
		TierCommon:    c.Common,
		TierRare:      c.Rare,
		TierSuperRare: c.SuperRare,
		TierLegendary: c.Legendary,
	}
}
