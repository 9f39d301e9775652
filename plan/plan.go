// plan/plan.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package plan owns the mutable load plan for one flight: the canonical
// position assignments, the unplaced cargo pool, fuel, and station loads.
// All mutation goes through Plan methods under its mutex; physics are
// recomputed from scratch on demand by the wb package rather than stored.
package plan

import (
	"context"
	"fmt"
	gomath "math"
	"slices"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"

	"github.com/brunoga/deep"
	"github.com/goforj/godump"
)

type Plan struct {
	mu util.LoggingMutex

	id     string
	flight string
	route  []string
	cfg    *aviation.Config
	tuning wb.Tuning

	positions []wb.LoadedPosition
	pool      []*aviation.CargoItem
	stations  []wb.StationLoad
	fuel      wb.FuelState

	events *EventStream
	lg     *log.Logger

	// Optimizer run state; see run.go.
	runCancel context.CancelFunc
	runGen    int
	runMode   wb.OptimizeMode
}

// Snapshot is a deep-copied, serializable view of a plan. Mutating a
// snapshot never affects the plan it came from.
type Snapshot struct {
	ID           string                `json:"id"`
	Flight       string                `json:"flight,omitempty"`
	AircraftType string                `json:"aircraft_type"`
	Route        []string              `json:"route,omitempty"`
	Positions    []wb.LoadedPosition   `json:"positions"`
	Pool         []*aviation.CargoItem `json:"pool,omitempty"`
	Stations     []wb.StationLoad      `json:"stations,omitempty"`
	Fuel         wb.FuelState          `json:"fuel"`
	Physics      wb.PhysicsResult      `json:"physics"`
	Validations  []wb.PhaseValidation  `json:"validations"`

	OptimizeActive bool            `json:"optimize_active,omitempty"`
	OptimizeMode   wb.OptimizeMode `json:"optimize_mode"`
}

func New(id string, cfg *aviation.Config, tuning wb.Tuning, lg *log.Logger) *Plan {
	return &Plan{
		id:        id,
		cfg:       cfg,
		tuning:    tuning,
		positions: wb.MakeLoadedPositions(cfg),
		stations:  wb.MakeStationLoads(cfg),
		events:    NewEventStream(lg),
		lg:        lg,
	}
}

func (p *Plan) ID() string { return p.id }

func (p *Plan) AircraftType() string { return p.cfg.Name }

func (p *Plan) Config() *aviation.Config { return p.cfg }

// Subscribe returns a subscription to the plan's event stream; the
// presentation layer polls it to learn about placements, removals, and
// optimizer progress.
func (p *Plan) Subscribe() *EventsSubscription {
	return p.events.Subscribe()
}

// Destroy stops any optimizer run and shuts down the event stream. The
// plan must not be used afterwards.
func (p *Plan) Destroy() {
	p.mu.Lock(p.lg)
	p.stopOptimizeLocked()
	p.mu.Unlock(p.lg)
	p.events.Destroy()
}

// ImportManifest replaces the plan's cargo wholesale: new pool, empty
// positions, the manifest's flight and route. The manifest must be for
// the plan's aircraft type.
func (p *Plan) ImportManifest(m *aviation.Manifest) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	if m.Aircraft != p.cfg.Name {
		return ErrAircraftMismatch
	}

	p.stopOptimizeLocked()
	p.flight = m.Flight
	p.route = slices.Clone(m.Route)
	p.positions = wb.MakeLoadedPositions(p.cfg)
	// Copy the items so later edits to the manifest can't reach into the
	// plan behind its mutex.
	p.pool = util.MapSlice(deep.MustCopy(m.Items),
		func(it aviation.CargoItem) *aviation.CargoItem { return &it })

	p.events.Post(Event{Type: ManifestImportedEvent, PlanID: p.id,
		Message: fmt.Sprintf("%s: %d items", m.Flight, len(m.Items))})
	p.checkInvariantsLocked()
	return nil
}

// AddItem adds a single item to the unplaced pool. Unlike manifest
// import this is for ad-hoc pieces (ballast, late freight), so the item
// is validated here rather than by the manifest loader.
func (p *Plan) AddItem(item *aviation.CargoItem) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	if item == nil || item.ID == "" {
		return ErrUnknownItem
	}
	if badWeight(item.WeightKg) {
		return ErrInvalidWeight
	}
	if item.HeightIn != nil && badHeight(*item.HeightIn) {
		return ErrInvalidHeight
	}
	if p.findItemLocked(item.ID) != nil {
		return ErrDuplicateItem
	}
	if len(p.route) > 0 && !slices.Contains(p.route[1:], item.Destination) {
		return ErrDestinationNotOnRoute
	}

	if item.ULD != "" {
		spec, ok := aviation.LookupULD(item.ULD)
		if !ok {
			return fmt.Errorf("%s: unknown ULD code", item.ULD)
		}
		if item.WeightKg > spec.MaxGrossKg {
			return ErrInvalidWeight
		}
		// Backfill door and height constraints from the catalog when the
		// item doesn't carry its own, the same as the manifest loader.
		if len(item.Doors) == 0 {
			item.Doors = spec.Doors
		}
		if item.HeightIn == nil && spec.Class == aviation.ULDContainer && spec.MaxHeightIn != nil {
			h := *spec.MaxHeightIn
			item.HeightIn = &h
		}
	}

	p.pool = append(p.pool, item)
	p.events.Post(Event{Type: ItemAddedEvent, PlanID: p.id, ItemID: item.ID})
	p.checkInvariantsLocked()
	return nil
}

// DeleteItem removes an item from the plan entirely, vacating its
// position if it is loaded.
func (p *Plan) DeleteItem(id string) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	if idx := slices.IndexFunc(p.pool, func(it *aviation.CargoItem) bool { return it.ID == id }); idx != -1 {
		p.pool = util.DeleteSliceElement(p.pool, idx)
		p.events.Post(Event{Type: ItemRemovedEvent, PlanID: p.id, ItemID: id, Message: "deleted"})
		return nil
	}
	for i := range p.positions {
		if it := p.positions[i].Item; it != nil && it.ID == id {
			p.positions[i].Item = nil
			p.events.Post(Event{Type: ItemRemovedEvent, PlanID: p.id, ItemID: id,
				PositionID: p.positions[i].Position.ID, Message: "deleted"})
			return nil
		}
	}
	return ErrUnknownItem
}

// UpdateItemWeight records a revised weight (scale weight replacing a
// booked estimate). For a loaded item the new weight must still fit its
// position; otherwise the update is refused and the caller has to
// remove the item first.
func (p *Plan) UpdateItemWeight(id string, weightKg float64) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	item := p.findItemLocked(id)
	if item == nil {
		return ErrUnknownItem
	}
	if badWeight(weightKg) {
		return ErrInvalidWeight
	}
	if spec, ok := item.ULDSpec(); ok && weightKg > spec.MaxGrossKg {
		return ErrInvalidWeight
	}

	old := item.WeightKg
	item.WeightKg = weightKg
	if pos := p.positionOfLocked(id); pos != nil {
		// Door compatibility was settled when the item was placed; only
		// the weight is being rechecked here.
		check := wb.CheckPlacement(item, wb.LoadedPosition{Position: *pos},
			wb.CheckOptions{OverrideDoorCheck: true})
		if !check.OK {
			item.WeightKg = old
			return fmt.Errorf("%w: %s", ErrIncompatiblePlacement, check.Reason)
		}
	}

	p.events.Post(Event{Type: ItemUpdatedEvent, PlanID: p.id, ItemID: id,
		Message: fmt.Sprintf("weight %.0f kg -> %.0f kg", old, weightKg)})
	return nil
}

// SetItemHeight records a revised height; nil clears it (height
// unknown). As with weight, a loaded item must still fit.
func (p *Plan) SetItemHeight(id string, heightIn *float64) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	item := p.findItemLocked(id)
	if item == nil {
		return ErrUnknownItem
	}
	if heightIn != nil && badHeight(*heightIn) {
		return ErrInvalidHeight
	}

	old := item.HeightIn
	item.HeightIn = heightIn
	if pos := p.positionOfLocked(id); pos != nil {
		check := wb.CheckPlacement(item, wb.LoadedPosition{Position: *pos},
			wb.CheckOptions{OverrideDoorCheck: true})
		if !check.OK {
			item.HeightIn = old
			return fmt.Errorf("%w: %s", ErrIncompatiblePlacement, check.Reason)
		}
	}

	p.events.Post(Event{Type: ItemUpdatedEvent, PlanID: p.id, ItemID: id, Message: "height updated"})
	return nil
}

func (p *Plan) SetMustFly(id string, mustFly bool) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	item := p.findItemLocked(id)
	if item == nil {
		return ErrUnknownItem
	}
	item.MustFly = mustFly
	p.events.Post(Event{Type: ItemUpdatedEvent, PlanID: p.id, ItemID: id,
		Message: util.Select(mustFly, "must fly", "may offload")})
	return nil
}

func (p *Plan) SetFuel(fuel wb.FuelState) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	if fuel.TotalKg < 0 || fuel.TripBurnKg < 0 || fuel.TripBurnKg > fuel.TotalKg ||
		gomath.IsNaN(fuel.TotalKg) || gomath.IsInf(fuel.TotalKg, 0) ||
		gomath.IsNaN(fuel.TripBurnKg) || gomath.IsInf(fuel.TripBurnKg, 0) {
		return ErrInvalidFuelState
	}
	p.fuel = fuel
	p.events.Post(Event{Type: FuelChangedEvent, PlanID: p.id,
		Message: fmt.Sprintf("total %.0f kg, trip burn %.0f kg", fuel.TotalKg, fuel.TripBurnKg)})
	return nil
}

// SetStationWeight sets the weight at a non-cargo station; zero empties
// the station.
func (p *Plan) SetStationWeight(name string, weightKg float64) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	idx := slices.IndexFunc(p.stations, func(sl wb.StationLoad) bool { return sl.Station.Name == name })
	if idx == -1 {
		return ErrUnknownStation
	}
	if weightKg < 0 || gomath.IsNaN(weightKg) || gomath.IsInf(weightKg, 0) {
		return ErrInvalidWeight
	}
	p.stations[idx].WeightKg = weightKg
	p.events.Post(Event{Type: StationChangedEvent, PlanID: p.id,
		Message: fmt.Sprintf("%s: %.0f kg", name, weightKg)})
	return nil
}

// Place moves an item from the pool onto an empty, compatible position.
// Placement is structural only: a placement that makes the aircraft
// overweight or unbalanced is accepted and flagged by Physics, since
// the loadmaster may be mid-rearrangement.
func (p *Plan) Place(itemID, positionID string, opts wb.CheckOptions) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return p.placeLocked(itemID, positionID, opts)
}

func (p *Plan) placeLocked(itemID, positionID string, opts wb.CheckOptions) error {
	poolIdx := slices.IndexFunc(p.pool, func(it *aviation.CargoItem) bool { return it.ID == itemID })
	if poolIdx == -1 {
		if p.positionOfLocked(itemID) != nil {
			return ErrItemPlaced
		}
		return ErrUnknownItem
	}
	posIdx := wb.PositionIndex(p.positions, positionID)
	if posIdx == -1 {
		return ErrUnknownPosition
	}
	if p.positions[posIdx].Item != nil {
		return ErrPositionOccupied
	}

	item := p.pool[poolIdx]
	if check := wb.CheckPlacement(item, p.positions[posIdx], opts); !check.OK {
		return fmt.Errorf("%w: %s", ErrIncompatiblePlacement, check.Reason)
	}

	p.pool = util.DeleteSliceElement(p.pool, poolIdx)
	p.positions[posIdx].Item = item
	p.events.Post(Event{Type: ItemPlacedEvent, PlanID: p.id, ItemID: itemID, PositionID: positionID})
	p.checkInvariantsLocked()
	return nil
}

// Remove vacates a position, returning its item to the pool.
func (p *Plan) Remove(positionID string) error {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	posIdx := wb.PositionIndex(p.positions, positionID)
	if posIdx == -1 {
		return ErrUnknownPosition
	}
	item := p.positions[posIdx].Item
	if item == nil {
		return ErrPositionEmpty
	}

	p.positions[posIdx].Item = nil
	p.pool = append(p.pool, item)
	p.events.Post(Event{Type: ItemRemovedEvent, PlanID: p.id, ItemID: item.ID, PositionID: positionID})
	p.checkInvariantsLocked()
	return nil
}

// Clear returns every loaded item to the pool, stopping any optimizer
// run first.
func (p *Plan) Clear() {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	p.stopOptimizeLocked()
	for i := range p.positions {
		if item := p.positions[i].Item; item != nil {
			p.pool = append(p.pool, item)
			p.positions[i].Item = nil
		}
	}
	p.events.Post(Event{Type: PlanClearedEvent, PlanID: p.id})
	p.checkInvariantsLocked()
}

// Physics recomputes weight and balance for the current load state.
func (p *Plan) Physics() wb.PhysicsResult {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return wb.Compute(p.positions, p.stations, p.fuel, p.cfg)
}

// Validate reports the per-phase envelope verdicts for the current load
// state.
func (p *Plan) Validate() []wb.PhaseValidation {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return wb.ValidateResult(wb.Compute(p.positions, p.stations, p.fuel, p.cfg), p.cfg)
}

// Preview computes the physics of a hypothetical placement without
// applying it. The item may already be loaded elsewhere; the preview is
// then for the move, not a copy.
func (p *Plan) Preview(itemID, positionID string) (wb.PhysicsResult, error) {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	item := p.findItemLocked(itemID)
	if item == nil {
		return wb.PhysicsResult{}, ErrUnknownItem
	}
	if idx := wb.PositionIndex(p.positions, positionID); idx == -1 {
		return wb.PhysicsResult{}, ErrUnknownPosition
	}

	hypothetical := slices.Clone(p.positions)
	for i := range hypothetical {
		if it := hypothetical[i].Item; it != nil && it.ID == itemID {
			hypothetical[i].Item = nil
		}
	}
	result, ok := wb.ComputeWithPlacement(hypothetical, p.stations, p.fuel, p.cfg, item, positionID)
	if !ok {
		return wb.PhysicsResult{}, ErrPositionOccupied
	}
	return result, nil
}

// Snapshot returns a deep copy of the full plan state with current
// physics and validation attached.
func (p *Plan) Snapshot() Snapshot {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return p.snapshotLocked()
}

func (p *Plan) snapshotLocked() Snapshot {
	physics := wb.Compute(p.positions, p.stations, p.fuel, p.cfg)
	snap := Snapshot{
		ID:             p.id,
		Flight:         p.flight,
		AircraftType:   p.cfg.Name,
		Route:          p.route,
		Positions:      p.positions,
		Pool:           p.pool,
		Stations:       p.stations,
		Fuel:           p.fuel,
		Physics:        physics,
		Validations:    wb.ValidateResult(physics, p.cfg),
		OptimizeActive: p.runCancel != nil,
		OptimizeMode:   p.runMode,
	}
	// The deep copy isolates the caller from changes after the lock is
	// released.
	return deep.MustCopy(snap)
}

func (p *Plan) findItemLocked(id string) *aviation.CargoItem {
	for _, it := range p.pool {
		if it.ID == id {
			return it
		}
	}
	for _, lp := range p.positions {
		if lp.Item != nil && lp.Item.ID == id {
			return lp.Item
		}
	}
	return nil
}

// positionOfLocked returns the position holding the given item, or nil
// if it is unplaced.
func (p *Plan) positionOfLocked(id string) *aviation.PositionDefinition {
	for i := range p.positions {
		if it := p.positions[i].Item; it != nil && it.ID == id {
			return &p.positions[i].Position
		}
	}
	return nil
}

// checkInvariantsLocked verifies that each item is tracked exactly once,
// either in the pool or at one position. A violation is a plan
// bookkeeping bug; it is logged with a full state dump.
func (p *Plan) checkInvariantsLocked() {
	seen := make(map[string]int)
	for _, it := range p.pool {
		seen[it.ID]++
	}
	for _, lp := range p.positions {
		if lp.Item != nil {
			seen[lp.Item.ID]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			p.lg.Errorf("%s: item tracked %d times; pool and positions:\n%s",
				id, n, godump.DumpStr(struct {
					Pool      []*aviation.CargoItem
					Positions []wb.LoadedPosition
				}{p.pool, p.positions}))
		}
	}
}

func badWeight(kg float64) bool {
	return kg <= 0 || gomath.IsNaN(kg) || gomath.IsInf(kg, 0)
}

func badHeight(in float64) bool {
	return in <= 0 || gomath.IsNaN(in) || gomath.IsInf(in, 0)
}
