package services

import (
	"fmt"
	"math"
	"math/rand/v2"

	"qube-quest/models"
)

// RollMax is the exclusive upper bound of a draw.
const RollMax = 100.0

// dropRate is one tier's share of RollMax, in hundredths of a percent.
type dropRate struct {
	Tier       models.Tier
	BasisPoint int64
}

// DropTable is checked in order; each band is [previous upper, upper).
// Shares are kept in basis points so the total is exactly 10000.
var DropTable = []dropRate{
	{Tier: models.TierLegendary, BasisPoint: 50},  // 0.5%
	{Tier: models.TierSuperRare, BasisPoint: 450}, // 4.5%
	{Tier: models.TierRare, BasisPoint: 2000},     // 20%
	{Tier: models.TierCommon, BasisPoint: 7500},   // 75%
}

// Band is a half-open interval [Lower, Upper) of the roll mapped to Tier.
type Band struct {
	Tier  models.Tier
	Lower float64
	Upper float64
}

// Bands returns the cumulative bands of DropTable in check order.
func Bands() []Band {
	bands := make([]Band, 0, len(DropTable))
	var cum int64
	for _, r := range DropTable {
		lower := float64(cum) / 100
		cum += r.BasisPoint
		bands = append(bands, Band{Tier: r.Tier, Lower: lower, Upper: float64(cum) / 100})
	}
	return bands
}

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Selector maps a uniform draw to a tier. It holds no state besides its source.
type Selector struct {
	src   RandomSource
	bands []Band
}

// NewSelector returns a Selector drawing from src, or from math/rand/v2's
// goroutine-safe global generator when src is nil.
func NewSelector(src RandomSource) *Selector {
	if src == nil {
		src = globalSource{}
	}
	return &Selector{src: src, bands: Bands()}
}

// Draw consumes one random value and returns the tier and the roll in [0, 100).
func (s *Selector) Draw() (models.Tier, float64) {
	r := s.src.Float64() * RollMax
	if r >= RollMax {
		r = math.Nextafter(RollMax, 0)
	}
	tier, err := s.TierFor(r)
	if err != nil {
		// the source broke its [0, 1) contract
		panic(fmt.Sprintf("selector: %v", err))
	}
	return tier, r
}

// TierFor maps a roll in [0, 100) to its tier.
func (s *Selector) TierFor(r float64) (models.Tier, error) {
	if math.IsNaN(r) || r < 0 || r >= RollMax {
		return "", fmt.Errorf("%w: roll %v outside [0, %v)", ErrInvalidArgument, r, RollMax)
	}
	for _, b := range s.bands {
		if r < b.Upper {
			return b.Tier, nil
		}
	}
	return "", fmt.Errorf("%w: roll %v not covered by drop table", ErrInvalidArgument, r)
}
