// wb/optimize.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wb

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/math"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
)

// OptimizeMode selects what the optimizer is trying to achieve.
type OptimizeMode int

const (
	// ModeSafety maximizes the worst-case CG margin at every step.
	ModeSafety OptimizeMode = iota
	// ModeFuelEfficiency chases an aft-biased target CG to cut trim drag.
	ModeFuelEfficiency
	// ModeUnloadEfficiency arranges items so each stop's offload comes
	// off first, burying later stops' cargo deepest.
	ModeUnloadEfficiency
)

func (m OptimizeMode) String() string {
	return []string{"safety", "fuel_efficiency", "unload_efficiency"}[m]
}

func (m OptimizeMode) MarshalJSON() ([]byte, error) {
	switch m {
	case ModeSafety:
		return []byte("\"safety\""), nil
	case ModeFuelEfficiency:
		return []byte("\"fuel_efficiency\""), nil
	case ModeUnloadEfficiency:
		return []byte("\"unload_efficiency\""), nil
	default:
		return nil, fmt.Errorf("%d: unknown optimize mode", m)
	}
}

func (m *OptimizeMode) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"safety\"":
		*m = ModeSafety
	case "\"fuel_efficiency\"":
		*m = ModeFuelEfficiency
	case "\"unload_efficiency\"":
		*m = ModeUnloadEfficiency
	default:
		return fmt.Errorf("%s: unknown optimize mode", string(b))
	}
	return nil
}

// OptimizeRequest is a snapshot of everything one optimizer run needs.
// The optimizer works on its own copy of Positions; the caller's slices
// are never touched.
type OptimizeRequest struct {
	Positions []LoadedPosition
	Pool      []*aviation.CargoItem
	Stations  []StationLoad
	Fuel      FuelState
	Config    *aviation.Config
	Route     []string
	Mode      OptimizeMode
	Tuning    Tuning
}

// Step is one placement decision.
type Step struct {
	Item       *aviation.CargoItem `json:"item"`
	PositionID string              `json:"position_id"`
	Score      float64             `json:"score"`
	// Physics of the load state with this step applied.
	Result PhysicsResult `json:"result"`
}

// Result is the outcome of a full (or cancelled) run.
type Result struct {
	Assignment []Step `json:"assignment"`
	// Items examined and found to have no legal candidate, plus any not
	// yet examined when a run was cancelled.
	StillUnplaced []*aviation.CargoItem `json:"still_unplaced,omitempty"`
	Final         PhysicsResult         `json:"final"`
}

// Optimizer is a greedy single-pass placement iterator: each Next call
// takes the next item from the mode-ordered queue and either places it
// at the best-scoring in-limit position or marks it unplaced. No
// backtracking; a placement is never revisited. Pacing and cancellation
// are the caller's: call Next when ready for another decision and stop
// calling to stop the run.
type Optimizer struct {
	req       OptimizeRequest
	positions []LoadedPosition
	queue     []*aviation.CargoItem
	assigned  []Step
	unplaced  []*aviation.CargoItem
}

func NewOptimizer(req OptimizeRequest) *Optimizer {
	o := &Optimizer{
		req:       req,
		positions: slices.Clone(req.Positions),
		queue:     slices.Clone(req.Pool),
	}
	o.sortQueue()
	return o
}

// sortQueue orders the pool: must-fly items first, then the mode's
// order. The sort is stable, so manifest order breaks remaining ties and
// runs are reproducible.
func (o *Optimizer) sortQueue() {
	stop := func(item *aviation.CargoItem) int {
		return slices.Index(o.req.Route, item.Destination)
	}
	slices.SortStableFunc(o.queue, func(a, b *aviation.CargoItem) int {
		if a.MustFly != b.MustFly {
			return util.Select(a.MustFly, -1, 1)
		}
		if o.req.Mode == ModeUnloadEfficiency {
			// Later stops first, so their cargo ends up buried deepest.
			return cmp.Compare(stop(b), stop(a))
		}
		// Heaviest first: the big moments set the CG baseline and the
		// light items fine-tune it.
		return cmp.Compare(b.WeightKg, a.WeightKg)
	})
}

// Next produces the next placement decision, applying it to the
// optimizer's working state. It returns false when the queue is
// exhausted; items with no legal candidate are recorded as unplaced and
// skipped without a Step.
func (o *Optimizer) Next() (Step, bool) {
	for len(o.queue) > 0 {
		item := o.queue[0]
		o.queue = o.queue[1:]

		if step, ok := o.place(item); ok {
			o.positions[PositionIndex(o.positions, step.PositionID)].Item = item
			o.assigned = append(o.assigned, step)
			return step, true
		}
		o.unplaced = append(o.unplaced, item)
	}
	return Step{}, false
}

// Result reports the run so far. After Next has returned false it is the
// complete assignment; called mid-run (e.g. after cancellation) it
// covers exactly the steps produced, with everything unexamined counted
// as still unplaced.
func (o *Optimizer) Result() Result {
	unplaced := slices.Clone(o.unplaced)
	unplaced = append(unplaced, o.queue...)
	return Result{
		Assignment:    slices.Clone(o.assigned),
		StillUnplaced: unplaced,
		Final:         Compute(o.positions, o.req.Stations, o.req.Fuel, o.req.Config),
	}
}

// place finds the best position for one item, or reports that there is
// none.
func (o *Optimizer) place(item *aviation.CargoItem) (Step, bool) {
	cfg := o.req.Config
	tuning := o.req.Tuning

	// Empty, compatible candidates.
	var candidates []int
	for i, lp := range o.positions {
		if lp.Item != nil {
			continue
		}
		if check := CheckPlacement(item, lp, CheckOptions{}); !check.OK {
			continue
		}
		candidates = append(candidates, i)
	}

	// Honor the preferred deck when it has any empty candidate at all;
	// otherwise fall back to the full set rather than stranding the item.
	if item.PreferredDeck != aviation.DeckUnknown {
		preferred := util.FilterSlice(candidates, func(i int) bool {
			return o.positions[i].Position.Deck == item.PreferredDeck
		})
		if len(preferred) > 0 {
			candidates = preferred
		}
	}

	fwdLimit := cfg.StaticCG.ForwardPercentMAC + tuning.CGMarginPercentMAC
	aftLimit := cfg.StaticCG.AftPercentMAC - tuning.CGMarginPercentMAC

	best := -1
	var bestScore float64
	var bestResult PhysicsResult
	for _, i := range candidates {
		result, ok := ComputeWithPlacement(o.positions, o.req.Stations, o.req.Fuel, cfg,
			item, o.positions[i].Position.ID)
		if !ok || !tuning.Admissible(result, cfg) {
			continue
		}

		// Strict > keeps ties on the earliest candidate, i.e. the
		// configuration's position order.
		score := o.score(item, o.positions[i].Position, result, fwdLimit, aftLimit)
		if best == -1 || score > bestScore {
			best, bestScore, bestResult = i, score, result
		}
	}

	if best == -1 {
		return Step{}, false
	}
	return Step{
		Item:       item,
		PositionID: o.positions[best].Position.ID,
		Score:      bestScore,
		Result:     bestResult,
	}, true
}

// A candidate forward of the fuel efficiency target loses a flat penalty
// so that, between two CGs equally distant from the target, the aft one
// wins.
const forwardOfTargetPenalty = 5.0

func (o *Optimizer) score(item *aviation.CargoItem, pos aviation.PositionDefinition,
	result PhysicsResult, fwdLimit, aftLimit float64) float64 {
	cg := result.Takeoff.CGPercentMAC
	margin := math.Min(cg-fwdLimit, aftLimit-cg)

	switch o.req.Mode {
	case ModeFuelEfficiency:
		target := o.req.Tuning.TargetCG(o.req.Config)
		score := 100 - math.Abs(cg-target)
		if cg < target {
			score -= forwardOfTargetPenalty
		}
		return score

	case ModeUnloadEfficiency:
		// Zone affinity dominates; the CG margin only separates
		// candidates in the same zone at the same affinity.
		stopIdx := slices.Index(o.req.Route, item.Destination)
		zone := 0.0
		if slices.Contains(o.req.Tuning.FirstOffPositions, pos.ID) {
			// Best for cargo coming off at the next stop.
			zone = 100 - 25*float64(stopIdx-1)
		} else if slices.Contains(o.req.Tuning.LastOffPositions, pos.ID) {
			// Best for cargo riding to the end of the route.
			zone = 100 - 25*float64(len(o.req.Route)-1-stopIdx)
		}
		return zone + margin

	default: // ModeSafety
		return margin
	}
}

// Optimize runs a whole pass, checking for cancellation between steps.
// On cancellation it returns the partial result together with the
// context's error; every step already taken remains applied, none are
// rolled back, and no item is ever counted twice.
func Optimize(ctx context.Context, req OptimizeRequest) (Result, error) {
	o := NewOptimizer(req)
	for {
		if err := ctx.Err(); err != nil {
			return o.Result(), err
		}
		if _, ok := o.Next(); !ok {
			return o.Result(), nil
		}
	}
}
