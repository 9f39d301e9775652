// aviation/aircraft.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"math"

	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
)

// WeightLimits carries the structural weight limits of an aircraft type.
// All values are kilograms.
type WeightLimits struct {
	OperatingEmptyKg float64 `json:"operating_empty_kg"`
	MaxZeroFuelKg    float64 `json:"max_zero_fuel_kg"`
	MaxTakeoffKg     float64 `json:"max_takeoff_kg"`
	MaxLandingKg     float64 `json:"max_landing_kg"`
}

// MACReference locates the mean aerodynamic chord so that CG stations can
// be expressed as %MAC.
type MACReference struct {
	ChordIn       float64 `json:"chord_in"`
	LeadingEdgeIn float64 `json:"leading_edge_in"`
}

// PercentMAC converts a fuselage station in inches to %MAC.
func (m MACReference) PercentMAC(stationIn float64) float64 {
	return (stationIn - m.LeadingEdgeIn) / m.ChordIn * 100
}

// Station converts %MAC back to a fuselage station in inches.
func (m MACReference) Station(percentMAC float64) float64 {
	return m.LeadingEdgeIn + percentMAC/100*m.ChordIn
}

// CGLimits are the static certificate limits in %MAC; the per-phase
// envelope curves refine these by weight.
type CGLimits struct {
	ForwardPercentMAC float64 `json:"forward_percent_mac"`
	AftPercentMAC     float64 `json:"aft_percent_mac"`
}

// PositionDefinition describes a single cargo position. Immutable once
// loaded from configuration.
type PositionDefinition struct {
	ID          string                       `json:"id"`
	Deck        Deck                         `json:"deck"`
	Type        PositionType                 `json:"type"`
	MaxWeightKg float64                      `json:"max_weight_kg"`
	ArmIn       float64                      `json:"arm_in"`
	Hold        HoldGroup                    `json:"hold,omitempty"`
	Doors       util.SingleOrArray[DoorKind] `json:"doors"`
	MaxHeightIn *float64                     `json:"max_height_in,omitempty"`
}

// StationDefinition is a non-cargo load slot (supernumerary riders, crew
// baggage, ballast); active stations contribute weight and moment but are
// not available to the optimizer.
type StationDefinition struct {
	Name            string  `json:"name"`
	ArmIn           float64 `json:"arm_in"`
	DefaultWeightKg float64 `json:"default_weight_kg,omitempty"`
}

// EnvelopePoint is one vertex of a CG limit curve.
type EnvelopePoint struct {
	WeightKg     float64 `json:"weight_kg"`
	CGPercentMAC float64 `json:"cg_percent_mac"`
}

// Envelope holds the forward and aft CG limit curves for one flight
// phase; both curves are ordered by strictly ascending weight.
type Envelope struct {
	Forward []EnvelopePoint `json:"forward"`
	Aft     []EnvelopePoint `json:"aft"`
}

// Envelopes collects the per-phase envelopes; any phase may be omitted,
// in which case only the static CG limits apply for it.
type Envelopes struct {
	ZeroFuel *Envelope `json:"zero_fuel,omitempty"`
	Takeoff  *Envelope `json:"takeoff,omitempty"`
	Landing  *Envelope `json:"landing,omitempty"`
}

// Phase returns the envelope for the given phase, or nil if the
// configuration doesn't define one.
func (e *Envelopes) Phase(p FlightPhase) *Envelope {
	if e == nil {
		return nil
	}
	switch p {
	case PhaseZeroFuel:
		return e.ZeroFuel
	case PhaseTakeoff:
		return e.Takeoff
	case PhaseLanding:
		return e.Landing
	default:
		return nil
	}
}

// Config is one aircraft type template: limits, geometry, cargo positions
// and stations, and optional envelope curves. Configs are validated via
// PostDeserialize when loaded and treated as read-only from then on.
type Config struct {
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`

	Limits   WeightLimits `json:"limits"`
	StaticCG CGLimits     `json:"static_cg"`
	MAC      MACReference `json:"mac"`

	// Fuel is modeled at a single reference arm; see the computation
	// engine for the implications.
	FuelArmIn float64 `json:"fuel_arm_in"`

	// Moment of the empty aircraft at its certified CG, kg*in. Carrying
	// the moment rather than an OEW arm avoids recomputing it from a
	// quantity that's only published rounded.
	OEWMomentKgIn float64 `json:"oew_moment_kg_in"`

	Positions []PositionDefinition `json:"positions"`
	Stations  []StationDefinition  `json:"stations,omitempty"`

	Envelopes *Envelopes `json:"envelopes,omitempty"`

	// HoldGroups optionally names loadsheet sections in display order;
	// keys are section titles and values are lists of position IDs.
	HoldGroups util.OrderedMap `json:"hold_groups,omitempty"`
}

// Position returns the definition of the position with the given id.
func (c *Config) Position(id string) (PositionDefinition, bool) {
	for _, p := range c.Positions {
		if p.ID == id {
			return p, true
		}
	}
	return PositionDefinition{}, false
}

// PositionIndex returns the index of the given position id in the
// config's position order, or -1; the order is used for deterministic
// tie-breaking.
func (c *Config) PositionIndex(id string) int {
	for i, p := range c.Positions {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func checkEnvelopeCurve(name string, curve []EnvelopePoint, e *util.ErrorLogger) {
	e.Push(name)
	defer e.Pop()

	if len(curve) < 2 {
		e.ErrorString("curve must have at least two points")
	}
	for i, pt := range curve {
		if math.IsNaN(pt.WeightKg) || math.IsInf(pt.WeightKg, 0) ||
			math.IsNaN(pt.CGPercentMAC) || math.IsInf(pt.CGPercentMAC, 0) {
			e.ErrorString("point %d is not finite", i)
		}
		if i > 0 && pt.WeightKg <= curve[i-1].WeightKg {
			e.ErrorString("curve weights must be strictly ascending: point %d (%v kg) vs point %d (%v kg)",
				i, pt.WeightKg, i-1, curve[i-1].WeightKg)
		}
	}
}

func (env *Envelope) PostDeserialize(e *util.ErrorLogger) {
	checkEnvelopeCurve("forward", env.Forward, e)
	checkEnvelopeCurve("aft", env.Aft, e)
}

// PostDeserialize validates a freshly-unmarshaled Config, accumulating
// all problems found rather than stopping at the first. A Config that
// comes through with no errors is safe for the computation engine.
func (c *Config) PostDeserialize(e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	if c.Name == "" {
		e.ErrorString("aircraft template is missing \"name\"")
	}

	e.Push("Aircraft " + c.Name)
	defer e.Pop()

	lim := c.Limits
	for _, w := range []struct {
		name string
		kg   float64
	}{
		{"operating_empty_kg", lim.OperatingEmptyKg},
		{"max_zero_fuel_kg", lim.MaxZeroFuelKg},
		{"max_takeoff_kg", lim.MaxTakeoffKg},
		{"max_landing_kg", lim.MaxLandingKg},
	} {
		if w.kg <= 0 || math.IsNaN(w.kg) || math.IsInf(w.kg, 0) {
			e.ErrorString("%q must be a positive weight; got %v", w.name, w.kg)
		}
	}
	if lim.OperatingEmptyKg >= lim.MaxZeroFuelKg {
		e.ErrorString("operating empty weight %v must be below max zero fuel weight %v",
			lim.OperatingEmptyKg, lim.MaxZeroFuelKg)
	}
	if lim.MaxZeroFuelKg > lim.MaxTakeoffKg {
		e.ErrorString("max zero fuel weight %v must not exceed max takeoff weight %v",
			lim.MaxZeroFuelKg, lim.MaxTakeoffKg)
	}
	if lim.MaxLandingKg > lim.MaxTakeoffKg {
		e.ErrorString("max landing weight %v must not exceed max takeoff weight %v",
			lim.MaxLandingKg, lim.MaxTakeoffKg)
	}

	if c.MAC.ChordIn <= 0 {
		e.ErrorString("\"mac\" chord must be positive; got %v", c.MAC.ChordIn)
	}
	if math.IsNaN(c.MAC.LeadingEdgeIn) || math.IsInf(c.MAC.LeadingEdgeIn, 0) {
		e.ErrorString("\"mac\" leading edge station is not finite")
	}
	if c.StaticCG.ForwardPercentMAC >= c.StaticCG.AftPercentMAC {
		e.ErrorString("forward CG limit %v%% MAC must be ahead of aft limit %v%% MAC",
			c.StaticCG.ForwardPercentMAC, c.StaticCG.AftPercentMAC)
	}
	if math.IsNaN(c.FuelArmIn) || math.IsInf(c.FuelArmIn, 0) {
		e.ErrorString("\"fuel_arm_in\" is not finite")
	}
	if c.OEWMomentKgIn <= 0 || math.IsNaN(c.OEWMomentKgIn) || math.IsInf(c.OEWMomentKgIn, 0) {
		e.ErrorString("\"oew_moment_kg_in\" must be positive and finite; got %v", c.OEWMomentKgIn)
	}

	if len(c.Positions) == 0 {
		e.ErrorString("aircraft template defines no cargo positions")
	}

	seen := make(map[string]interface{})
	for _, p := range c.Positions {
		e.Push("Position " + p.ID)

		if p.ID == "" {
			e.ErrorString("position is missing \"id\"")
		}
		if _, ok := seen[p.ID]; ok {
			e.ErrorString("position id appears multiple times")
		}
		seen[p.ID] = nil

		if p.Deck != DeckMain && p.Deck != DeckLower {
			e.ErrorString("\"deck\" must be MAIN or LOWER")
		}
		if p.Type == PositionUnknown {
			e.ErrorString("position is missing \"type\"")
		}
		if p.Deck == DeckMain &&
			(p.Type == PositionLowerForward || p.Type == PositionLowerAft || p.Type == PositionBulk) {
			e.ErrorString("type %q is not valid on the MAIN deck", p.Type)
		}
		if p.Deck == DeckLower &&
			(p.Type == PositionNose || p.Type == PositionLeft || p.Type == PositionRight ||
				p.Type == PositionTail || p.Type == PositionCenterline) {
			e.ErrorString("type %q is not valid on the LOWER deck", p.Type)
		}
		if p.Hold != HoldNone && p.Deck != DeckLower {
			e.ErrorString("\"hold\" may only be given for LOWER deck positions")
		}
		if p.MaxWeightKg <= 0 {
			e.ErrorString("\"max_weight_kg\" must be positive; got %v", p.MaxWeightKg)
		}
		if math.IsNaN(p.ArmIn) || math.IsInf(p.ArmIn, 0) {
			e.ErrorString("\"arm_in\" is not finite")
		}
		if len(p.Doors) == 0 {
			e.ErrorString("position declares no cargo doors")
		}
		if p.MaxHeightIn != nil && *p.MaxHeightIn <= 0 {
			e.ErrorString("\"max_height_in\" must be positive; got %v", *p.MaxHeightIn)
		}

		e.Pop()
	}

	for _, s := range c.Stations {
		e.Push("Station " + s.Name)
		if s.Name == "" {
			e.ErrorString("station is missing \"name\"")
		}
		if math.IsNaN(s.ArmIn) || math.IsInf(s.ArmIn, 0) {
			e.ErrorString("\"arm_in\" is not finite")
		}
		if s.DefaultWeightKg < 0 {
			e.ErrorString("\"default_weight_kg\" must not be negative; got %v", s.DefaultWeightKg)
		}
		e.Pop()
	}

	if c.Envelopes != nil {
		for _, pe := range []struct {
			phase FlightPhase
			env   *Envelope
		}{
			{PhaseZeroFuel, c.Envelopes.ZeroFuel},
			{PhaseTakeoff, c.Envelopes.Takeoff},
			{PhaseLanding, c.Envelopes.Landing},
		} {
			if pe.env == nil {
				continue
			}
			e.Push("Envelope " + pe.phase.String())
			pe.env.PostDeserialize(e)
			e.Pop()
		}
	}

	for _, section := range c.HoldGroups.Keys() {
		e.Push("Hold group " + section)
		ids, ok := c.HoldGroups.GetStrings(section)
		if !ok {
			e.ErrorString("value must be an array of position ids")
		} else {
			for _, id := range ids {
				if _, ok := c.Position(id); !ok {
					e.ErrorString("position %q is not defined for this aircraft", id)
				}
			}
		}
		e.Pop()
	}
}
