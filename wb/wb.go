// wb/wb.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package wb is the weight and balance core: the computation engine, the
// envelope validator, the placement compatibility checker, and the
// constrained load optimizer. Everything here is a pure function over
// caller-owned snapshots; the load plan itself is owned by the plan
// package, which invokes this one.
package wb

import (
	"slices"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
)

// LoadedPosition pairs a cargo position with its occupant; Item is nil
// for an empty position.
type LoadedPosition struct {
	Position aviation.PositionDefinition `json:"position"`
	Item     *aviation.CargoItem         `json:"item,omitempty"`
}

// StationLoad is weight at a non-cargo station (riders, crew baggage,
// ballast). A zero weight station contributes nothing.
type StationLoad struct {
	Station  aviation.StationDefinition `json:"station"`
	WeightKg float64                    `json:"weight_kg"`
}

// FuelState carries the block fuel aboard at takeoff and the planned
// trip burn; landing weight is derived from the two.
type FuelState struct {
	TotalKg    float64 `json:"total_kg"`
	TripBurnKg float64 `json:"trip_burn_kg"`
}

// PhaseResult is the weight and CG of one flight phase.
type PhaseResult struct {
	WeightKg     float64 `json:"weight_kg"`
	MomentKgIn   float64 `json:"moment_kg_in"`
	CGStationIn  float64 `json:"cg_station_in"`
	CGPercentMAC float64 `json:"cg_percent_mac"`
}

// PhysicsResult is the full output of the computation engine. It is
// derived data, recomputed after every load change and never stored
// apart from the state that produced it.
type PhysicsResult struct {
	ZeroFuel PhaseResult `json:"zero_fuel"`
	Takeoff  PhaseResult `json:"takeoff"`
	Landing  PhaseResult `json:"landing"`

	// Static certificate limits in effect, for display alongside the CG.
	ForwardLimitPercentMAC float64 `json:"forward_limit_percent_mac"`
	AftLimitPercentMAC     float64 `json:"aft_limit_percent_mac"`

	// Overweight is true if any phase exceeds its structural limit.
	Overweight bool `json:"overweight"`
	// Unbalanced is true if the takeoff CG is outside the static limits.
	// This is a coarse check; the envelope validator is the
	// weight-dependent one and the two may disagree near the boundaries.
	Unbalanced bool `json:"unbalanced"`

	// Absolute left/right asymmetry over MAIN deck left/right positions.
	LateralImbalanceKg float64 `json:"lateral_imbalance_kg"`

	// Takeoff total moment, the quantity loadmasters cross-check against
	// the trim sheet.
	TotalMomentKgIn float64 `json:"total_moment_kg_in"`
}

// PositionIndex returns the index of the position with the given id, or
// -1 if there is none.
func PositionIndex(positions []LoadedPosition, id string) int {
	return slices.IndexFunc(positions, func(lp LoadedPosition) bool { return lp.Position.ID == id })
}

// MakeLoadedPositions gives the empty position list for an aircraft, in
// the configuration's order. That order is load-bearing: the optimizer
// breaks score ties by it.
func MakeLoadedPositions(cfg *aviation.Config) []LoadedPosition {
	lps := make([]LoadedPosition, len(cfg.Positions))
	for i, p := range cfg.Positions {
		lps[i] = LoadedPosition{Position: p}
	}
	return lps
}

// MakeStationLoads gives the station list for an aircraft with each
// station at its configured default weight.
func MakeStationLoads(cfg *aviation.Config) []StationLoad {
	sls := make([]StationLoad, len(cfg.Stations))
	for i, s := range cfg.Stations {
		sls[i] = StationLoad{Station: s, WeightKg: s.DefaultWeightKg}
	}
	return sls
}
