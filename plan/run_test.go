// plan/run_test.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package plan

import (
	"slices"
	"testing"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"
)

// collectUntilFinished polls the subscription until an OptimizeFinished
// event arrives. The optimizer runs in a goroutine, so tests can't just
// call Get once.
func collectUntilFinished(t *testing.T, sub *EventsSubscription) []Event {
	t.Helper()
	var events []Event
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		events = append(events, sub.Get()...)
		if slices.ContainsFunc(events, func(e Event) bool { return e.Type == OptimizeFinishedEvent }) {
			return events
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no OptimizeFinished event within 5 seconds")
	return nil
}

func waitOptimizeIdle(t *testing.T, p *Plan) {
	t.Helper()
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		if !p.OptimizeActive() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("optimizer still active after 5 seconds")
}

// countLoaded tallies items across the pool and the positions so tests
// can check that nothing was lost or double-placed by a background run.
func countLoaded(snap Snapshot) (pool, placed int) {
	pool = len(snap.Pool)
	for _, lp := range snap.Positions {
		if lp.Item != nil {
			placed++
		}
	}
	return
}

func TestPlanOptimizeRun(t *testing.T) {
	p := newTestPlan(t)
	for _, id := range []string{"U1", "U2", "U3"} {
		if err := p.AddItem(testItem(id, 1000)); err != nil {
			t.Fatal(err)
		}
	}

	sub := p.Subscribe()
	p.StartOptimize(wb.ModeSafety)
	events := collectUntilFinished(t, sub)
	waitOptimizeIdle(t, p)

	snap := p.Snapshot()
	pool, placed := countLoaded(snap)
	if pool != 0 || placed != 3 {
		t.Fatalf("after run: %d pooled, %d placed", pool, placed)
	}

	count := make(map[EventType]int)
	for _, ev := range events {
		count[ev.Type]++
	}
	if count[OptimizeStartedEvent] != 1 || count[OptimizeStepEvent] != 3 ||
		count[ItemPlacedEvent] != 3 || count[OptimizeFinishedEvent] != 1 {
		t.Errorf("event counts: %v", count)
	}
	if events[0].Type != OptimizeStartedEvent || events[0].Message != wb.ModeSafety.String() {
		t.Errorf("first event: %v", events[0])
	}
	final := events[len(events)-1]
	if final.Type != OptimizeFinishedEvent || final.Message != "3 placed, 0 dropped, 0 unplaced" {
		t.Errorf("final event: %v", final)
	}
}

func TestPlanOptimizeSkipsUnplaceable(t *testing.T) {
	p := newTestPlan(t)
	if err := p.AddItem(testItem("BIG", 7000)); err != nil { // over every position limit
		t.Fatal(err)
	}
	if err := p.AddItem(testItem("OK", 1200)); err != nil {
		t.Fatal(err)
	}

	sub := p.Subscribe()
	p.StartOptimize(wb.ModeSafety)
	events := collectUntilFinished(t, sub)
	waitOptimizeIdle(t, p)

	snap := p.Snapshot()
	pool, placed := countLoaded(snap)
	if pool != 1 || placed != 1 || snap.Pool[0].ID != "BIG" {
		t.Fatalf("after run: %d pooled, %d placed, pool %+v", pool, placed, snap.Pool)
	}
	idx := slices.IndexFunc(events, func(e Event) bool { return e.Type == OptimizeSkippedItemEvent })
	if idx == -1 || events[idx].ItemID != "BIG" {
		t.Errorf("no skip event for BIG: %v", events)
	}
}

func TestPlanOptimizeStop(t *testing.T) {
	p := newTestPlan(t)
	for _, id := range []string{"U1", "U2", "U3", "U4"} {
		if err := p.AddItem(testItem(id, 500)); err != nil {
			t.Fatal(err)
		}
	}

	sub := p.Subscribe()
	p.StartOptimize(wb.ModeSafety)
	p.StopOptimize()
	waitOptimizeIdle(t, p)

	// Whether the stop won the race or the run completed first, every
	// item must be exactly one of pooled or placed.
	pool, placed := countLoaded(p.Snapshot())
	if pool+placed != 4 {
		t.Errorf("%d pooled + %d placed != 4", pool, placed)
	}
	if !slices.ContainsFunc(sub.Get(), func(e Event) bool { return e.Type == OptimizeFinishedEvent }) {
		t.Error("no OptimizeFinished event")
	}

	// A second stop with nothing running is a no-op.
	p.StopOptimize()
	if p.OptimizeActive() {
		t.Error("active after stop")
	}
}

func TestPlanOptimizeSupersede(t *testing.T) {
	p := newTestPlan(t)
	for _, id := range []string{"U1", "U2", "U3"} {
		if err := p.AddItem(testItem(id, 800)); err != nil {
			t.Fatal(err)
		}
	}

	sub := p.Subscribe()
	p.StartOptimize(wb.ModeSafety)
	p.StartOptimize(wb.ModeFuelEfficiency)
	waitOptimizeIdle(t, p)

	// Both runs report: the first finishes either on its own or with
	// "stopped" when superseded, the second always finishes on its own.
	var events []Event
	finished := func(e Event) bool { return e.Type == OptimizeFinishedEvent }
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		events = append(events, sub.Get()...)
		if len(util.FilterSlice(events, finished)) == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if n := len(util.FilterSlice(events, finished)); n != 2 {
		t.Fatalf("finished events: %d, want 2", n)
	}

	if n := len(util.FilterSlice(events, func(e Event) bool { return e.Type == OptimizeStartedEvent })); n != 2 {
		t.Errorf("started events: %d, want 2", n)
	}
	pool, placed := countLoaded(p.Snapshot())
	if pool+placed != 3 {
		t.Errorf("%d pooled + %d placed != 3", pool, placed)
	}
	if mode := p.Snapshot().OptimizeMode; mode != wb.ModeFuelEfficiency {
		t.Errorf("mode: %v", mode)
	}
}

func TestApplyStep(t *testing.T) {
	p := newTestPlan(t)
	if err := p.AddItem(testItem("U1", 1000)); err != nil {
		t.Fatal(err)
	}
	if err := p.AddItem(testItem("U2", 900)); err != nil {
		t.Fatal(err)
	}

	step := func(id, pos string) wb.Step {
		return wb.Step{Item: &aviation.CargoItem{ID: id}, PositionID: pos}
	}

	if p.applyStep(p.runGen+1, step("U1", "PF")) {
		t.Error("stale generation applied")
	}
	if p.applyStep(p.runGen, step("NOPE", "PF")) {
		t.Error("unknown item applied")
	}

	if !p.applyStep(p.runGen, step("U1", "PF")) {
		t.Fatal("valid step refused")
	}
	if p.applyStep(p.runGen, step("U1", "PA")) {
		t.Error("already-placed item applied again")
	}
	if p.applyStep(p.runGen, step("U2", "PF")) {
		t.Error("occupied position applied")
	}

	// An edit since the run snapshot can make a step inadmissible: at
	// 3000 kg on the aft position the takeoff CG leaves the margin.
	if err := p.UpdateItemWeight("U2", 3000); err != nil {
		t.Fatal(err)
	}
	if p.applyStep(p.runGen, step("U2", "PA")) {
		t.Error("inadmissible step applied")
	}

	pool, placed := countLoaded(p.Snapshot())
	if pool != 1 || placed != 1 {
		t.Errorf("%d pooled, %d placed", pool, placed)
	}
}
