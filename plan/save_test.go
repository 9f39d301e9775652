// plan/save_test.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package plan

import (
	"bytes"
	"errors"
	"reflect"
	"runtime"
	"testing"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

func savedTestPlan(t *testing.T, registry *aviation.Registry) *Plan {
	t.Helper()

	cfg, err := registry.Aircraft("AST-40F")
	if err != nil {
		t.Fatal(err)
	}
	p := New("SAVE1", cfg, wb.DefaultTuning(), nil)
	t.Cleanup(p.Destroy)

	if err := p.ImportManifest(&aviation.Manifest{
		Flight: "AS407", Aircraft: "AST-40F", Route: []string{"UAA", "UBB"},
		Items: []aviation.CargoItem{
			{ID: "CRT1", WeightKg: 2200, Destination: "UBB"},
			{ID: "CRT2", WeightKg: 1400, Destination: "UBB"},
			{ID: "CAN1", WeightKg: 900, Destination: "UBB", ULD: "AKE"},
		},
	}); err != nil {
		t.Fatal(err)
	}
	// The manifest loader normally backfills ULD constraints; a
	// hand-built manifest needs them applied before placement.
	if err := p.DeleteItem("CAN1"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddItem(&aviation.CargoItem{ID: "CAN1", WeightKg: 900, Destination: "UBB", ULD: "AKE"}); err != nil {
		t.Fatal(err)
	}

	if err := p.Place("CRT1", "M3", wb.CheckOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Place("CAN1", "L1", wb.CheckOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetMustFly("CRT2", true); err != nil {
		t.Fatal(err)
	}
	if err := p.SetFuel(wb.FuelState{TotalKg: 30000, TripBurnKg: 20000}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetStationWeight("Ballast", 400); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPlanSaveLoadRoundtrip(t *testing.T) {
	registry := aviation.NewRegistry(nil, nil)
	p := savedTestPlan(t, registry)

	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		t.Fatal(err)
	}

	p2, err := Load(&buf, registry, wb.DefaultTuning(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p2.Destroy()

	if got, want := p2.Snapshot(), p.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("loaded plan differs:\ngot  %+v\nwant %+v", got, want)
	}
}

// encodeSaved packs a savedPlan the way Save does, for tamper tests.
func encodeSaved(t *testing.T, sp savedPlan) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := msgpack.NewEncoder(zw).Encode(sp); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestPlanLoadRejectsBadSaves(t *testing.T) {
	registry := aviation.NewRegistry(nil, nil)

	buf := encodeSaved(t, savedPlan{State: Snapshot{ID: "X", AircraftType: "NOPE"}})
	if _, err := Load(buf, registry, wb.DefaultTuning(), nil); err == nil {
		t.Error("unknown aircraft type accepted")
	}

	// A template that has lost a position since the save must refuse to
	// load rather than drop the item.
	buf = encodeSaved(t, savedPlan{State: Snapshot{
		ID: "X", AircraftType: "AST-40F",
		Positions: []wb.LoadedPosition{{
			Position: aviation.PositionDefinition{ID: "ZZ"},
			Item:     &aviation.CargoItem{ID: "CRT1", WeightKg: 100, Destination: "UBB"},
		}},
	}})
	if _, err := Load(buf, registry, wb.DefaultTuning(), nil); !errors.Is(err, ErrUnknownPosition) {
		t.Errorf("missing position: got %v", err)
	}

	if _, err := Load(bytes.NewReader([]byte("not a plan")), registry, wb.DefaultTuning(), nil); err == nil {
		t.Error("garbage accepted")
	}
}

func TestPlanAutosave(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("redirecting the cache dir requires XDG_CACHE_HOME")
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	registry := aviation.NewRegistry(nil, nil)
	p := savedTestPlan(t, registry)

	if ids, err := ListAutosaves(); err != nil || len(ids) != 0 {
		t.Fatalf("fresh cache dir: ids %v, err %v", ids, err)
	}
	if err := p.Autosave(); err != nil {
		t.Fatal(err)
	}
	ids, err := ListAutosaves()
	if err != nil || len(ids) != 1 || ids[0] != "SAVE1" {
		t.Fatalf("after autosave: ids %v, err %v", ids, err)
	}

	p2, err := LoadAutosave("SAVE1", registry, wb.DefaultTuning(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p2.Destroy()
	if got, want := p2.Snapshot(), p.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("autosaved plan differs:\ngot  %+v\nwant %+v", got, want)
	}

	if err := RemoveAutosave("SAVE1"); err != nil {
		t.Fatal(err)
	}
	if ids, err := ListAutosaves(); err != nil || len(ids) != 0 {
		t.Errorf("after remove: ids %v, err %v", ids, err)
	}
	if err := RemoveAutosave("SAVE1"); err != nil {
		t.Error("second remove should be a no-op:", err)
	}
}
