// wb/compute.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wb

import (
	"slices"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/math"
)

// Compute derives the full weight and balance picture for a load state.
// Pure: identical inputs give bit-identical results, and nothing is
// mutated. Negative weights are a caller contract violation and are
// rejected where data enters the system, not here.
func Compute(positions []LoadedPosition, stations []StationLoad, fuel FuelState, cfg *aviation.Config) PhysicsResult {
	var cargoKg, cargoMoment float64
	var leftKg, rightKg float64
	for _, lp := range positions {
		if lp.Item == nil {
			continue
		}
		w := lp.Item.WeightKg
		cargoKg += w
		cargoMoment += w * lp.Position.ArmIn

		// Only explicitly left/right MAIN deck positions count toward
		// lateral asymmetry; centerline and lower deck loads are neutral.
		if lp.Position.Deck == aviation.DeckMain {
			switch lp.Position.Type {
			case aviation.PositionLeft:
				leftKg += w
			case aviation.PositionRight:
				rightKg += w
			}
		}
	}

	var stationKg, stationMoment float64
	for _, sl := range stations {
		stationKg += sl.WeightKg
		stationMoment += sl.WeightKg * sl.Station.ArmIn
	}

	zfwKg := cfg.Limits.OperatingEmptyKg + cargoKg + stationKg
	zfwMoment := cfg.OEWMomentKgIn + cargoMoment + stationMoment

	towKg := zfwKg + fuel.TotalKg
	towMoment := zfwMoment + fuel.TotalKg*cfg.FuelArmIn

	// The fuel arm is held constant across the burn; real tanks shift
	// their centroid as they drain. Modeling simplification.
	lwKg := towKg - fuel.TripBurnKg
	lwMoment := towMoment - fuel.TripBurnKg*cfg.FuelArmIn

	phase := func(weightKg, momentKgIn float64) PhaseResult {
		r := PhaseResult{WeightKg: weightKg, MomentKgIn: momentKgIn}
		if weightKg != 0 {
			r.CGStationIn = momentKgIn / weightKg
			r.CGPercentMAC = cfg.MAC.PercentMAC(r.CGStationIn)
		}
		return r
	}

	res := PhysicsResult{
		ZeroFuel:               phase(zfwKg, zfwMoment),
		Takeoff:                phase(towKg, towMoment),
		Landing:                phase(lwKg, lwMoment),
		ForwardLimitPercentMAC: cfg.StaticCG.ForwardPercentMAC,
		AftLimitPercentMAC:     cfg.StaticCG.AftPercentMAC,
		LateralImbalanceKg:     math.Abs(leftKg - rightKg),
		TotalMomentKgIn:        towMoment,
	}
	res.Overweight = zfwKg > cfg.Limits.MaxZeroFuelKg ||
		towKg > cfg.Limits.MaxTakeoffKg ||
		lwKg > cfg.Limits.MaxLandingKg
	res.Unbalanced = res.Takeoff.CGPercentMAC < cfg.StaticCG.ForwardPercentMAC ||
		res.Takeoff.CGPercentMAC > cfg.StaticCG.AftPercentMAC

	return res
}

// ComputeWithPlacement evaluates the hypothetical state with item added
// at the named position, without touching the caller's slices. It
// reports false if the position doesn't exist or is occupied.
func ComputeWithPlacement(positions []LoadedPosition, stations []StationLoad, fuel FuelState,
	cfg *aviation.Config, item *aviation.CargoItem, positionID string) (PhysicsResult, bool) {
	idx := PositionIndex(positions, positionID)
	if idx == -1 || positions[idx].Item != nil {
		return PhysicsResult{}, false
	}

	hypothetical := slices.Clone(positions)
	hypothetical[idx].Item = item
	return Compute(hypothetical, stations, fuel, cfg), true
}
