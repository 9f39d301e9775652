// plan/run.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package plan

import (
	"context"
	"fmt"
	"slices"

	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"

	"github.com/brunoga/deep"
)

// StartOptimize kicks off a background optimizer run over the current
// unplaced pool. At most one run is in flight per plan; starting a new
// one supersedes any prior run. The run works on its own deep copy of
// the plan state, so the plan stays editable while it goes; each step
// the optimizer produces is re-verified against the live state before
// it is applied, and a step invalidated by a concurrent edit is dropped
// rather than forced.
func (p *Plan) StartOptimize(mode wb.OptimizeMode) {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	p.stopOptimizeLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p.runCancel = cancel
	p.runMode = mode
	gen := p.runGen

	req := wb.OptimizeRequest{
		Positions: deep.MustCopy(p.positions),
		Pool:      deep.MustCopy(p.pool),
		Stations:  slices.Clone(p.stations),
		Fuel:      p.fuel,
		Config:    p.cfg,
		Route:     slices.Clone(p.route),
		Mode:      mode,
		Tuning:    p.tuning,
	}

	p.events.Post(Event{Type: OptimizeStartedEvent, PlanID: p.id, Message: mode.String()})
	go p.runOptimizer(ctx, cancel, gen, req)
}

// StopOptimize cancels any in-flight run. Steps already applied stay
// applied; there is no rollback.
func (p *Plan) StopOptimize() {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	p.stopOptimizeLocked()
}

func (p *Plan) OptimizeActive() bool {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return p.runCancel != nil
}

func (p *Plan) stopOptimizeLocked() {
	if p.runCancel != nil {
		p.runCancel()
		p.runCancel = nil
		// Bumping the generation makes any in-flight step from the old
		// run stale; applyStep drops it on arrival.
		p.runGen++
		p.events.Post(Event{Type: OptimizeFinishedEvent, PlanID: p.id, Message: "stopped"})
	}
}

func (p *Plan) runOptimizer(ctx context.Context, cancel context.CancelFunc, gen int, req wb.OptimizeRequest) {
	defer p.lg.CatchAndReportCrash()
	defer cancel()

	o := wb.NewOptimizer(req)
	applied, dropped := 0, 0
	for ctx.Err() == nil {
		step, ok := o.Next()
		if !ok {
			break
		}
		if p.applyStep(gen, step) {
			applied++
		} else {
			dropped++
		}
	}

	p.mu.Lock(p.lg)
	finished := gen == p.runGen
	if finished {
		p.runCancel = nil
	}
	p.mu.Unlock(p.lg)

	if !finished {
		// Superseded or stopped; stopOptimizeLocked already reported.
		return
	}

	res := o.Result()
	for _, item := range res.StillUnplaced {
		p.events.Post(Event{Type: OptimizeSkippedItemEvent, PlanID: p.id, ItemID: item.ID})
	}
	p.events.Post(Event{Type: OptimizeFinishedEvent, PlanID: p.id,
		Message: fmt.Sprintf("%d placed, %d dropped, %d unplaced",
			applied, dropped, len(res.StillUnplaced))})
}

// applyStep carries one optimizer decision over to the live plan. The
// optimizer was working on a copy, so the step is re-checked here: the
// position may have been filled or the item edited since the run
// started. Stale and inadmissible steps are dropped.
func (p *Plan) applyStep(gen int, step wb.Step) bool {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	if gen != p.runGen {
		return false
	}

	item := p.findItemLocked(step.Item.ID)
	if item == nil || p.positionOfLocked(step.Item.ID) != nil {
		return false
	}
	result, ok := wb.ComputeWithPlacement(p.positions, p.stations, p.fuel, p.cfg, item, step.PositionID)
	if !ok || !p.tuning.Admissible(result, p.cfg) {
		p.lg.Infof("optimizer step %s -> %s no longer admissible, dropping",
			step.Item.ID, step.PositionID)
		return false
	}
	if err := p.placeLocked(step.Item.ID, step.PositionID, wb.CheckOptions{}); err != nil {
		p.lg.Infof("optimizer step %s -> %s: %v", step.Item.ID, step.PositionID, err)
		return false
	}

	p.events.Post(Event{Type: OptimizeStepEvent, PlanID: p.id, ItemID: step.Item.ID,
		PositionID: step.PositionID, Message: fmt.Sprintf("score %.1f", step.Score)})
	return true
}
