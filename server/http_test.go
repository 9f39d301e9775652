// server/http_test.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/plan"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"
)

// testPlanManager builds a manager directly, without the HTTP listener
// that NewPlanManager binds, so handler tests can run against
// httptest recorders.
func testPlanManager(t *testing.T) (*PlanManager, *dispatcher) {
	t.Helper()

	lg := log.New(true, "warn", t.TempDir())
	pm := &PlanManager{
		registry:     aviation.NewRegistry(nil, lg),
		tuning:       wb.DefaultTuning(),
		plansByID:    make(map[string]*planSession),
		plansByToken: make(map[string]*planSession),
		startTime:    time.Now(),
		local:        true,
		lg:           lg,
	}
	return pm, &dispatcher{pm: pm}
}

func TestHTTPEndpoints(t *testing.T) {
	pm, pd := testPlanManager(t)
	handler := pm.httpHandler()

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		return w
	}
	decode := func(w *httptest.ResponseRecorder, v any) {
		t.Helper()
		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
			t.Fatalf("%v decoding %q", err, w.Body.String())
		}
	}

	var running map[string]*RunningPlan
	decode(get("/plans"), &running)
	if len(running) != 0 {
		t.Errorf("plans on a fresh server: %v", running)
	}

	var result NewPlanResult
	if err := pm.NewPlan(&NewPlanRequest{Name: "web-1", AircraftType: "AST-40F", Initials: "AA"},
		&result); err != nil {
		t.Fatal(err)
	}
	var update PlanStateUpdate
	if err := pd.AddItem(&AddItemArgs{PlanToken: result.PlanToken,
		Item: aviation.CargoItem{ID: "U1", WeightKg: 1500}}, &update); err != nil {
		t.Fatal(err)
	}
	if err := pd.Place(&PlaceArgs{PlanToken: result.PlanToken, ItemID: "U1", PositionID: "M2"},
		&update); err != nil {
		t.Fatal(err)
	}

	decode(get("/plans"), &running)
	rp := running["web-1"]
	if rp == nil {
		t.Fatalf("web-1 missing from %v", running)
	}
	if rp.AircraftType != "AST-40F" || rp.ItemsPlaced != 1 || rp.ItemsUnplaced != 0 {
		t.Errorf("running plan %+v", rp)
	}

	var snap plan.Snapshot
	decode(get("/plans/web-1"), &snap)
	if snap.AircraftType != "AST-40F" {
		t.Errorf("aircraft type %q", snap.AircraftType)
	}
	if idx := wb.PositionIndex(snap.Positions, "M2"); idx == -1 || snap.Positions[idx].Item == nil {
		t.Error("M2 empty in served snapshot")
	}

	// 86000 kg OEW plus the single 1500 kg item, no fuel.
	var phys physicsResponse
	decode(get("/plans/web-1/physics"), &phys)
	if phys.Takeoff.WeightKg != 87500 {
		t.Errorf("takeoff weight %v, wanted 87500", phys.Takeoff.WeightKg)
	}
	if phys.Display.TakeoffWeight != "87500 kg" {
		t.Errorf("display takeoff weight %q", phys.Display.TakeoffWeight)
	}
	if !strings.HasSuffix(phys.Display.TakeoffCG, "% MAC") {
		t.Errorf("display takeoff CG %q", phys.Display.TakeoffCG)
	}

	var envs []envelopeResponse
	decode(get("/plans/web-1/envelope"), &envs)
	if len(envs) != 3 {
		t.Fatalf("%d envelope phases, wanted 3", len(envs))
	}
	for _, e := range envs {
		if e.WeightKg <= 0 {
			t.Errorf("%s: weight %v", e.Phase, e.WeightKg)
		}
		if e.ForwardLimitPercentMAC >= e.AftLimitPercentMAC {
			t.Errorf("%s: limits %v / %v out of order", e.Phase,
				e.ForwardLimitPercentMAC, e.AftLimitPercentMAC)
		}
	}

	decode(get("/plans/web-1/envelope?phase=landing"), &envs)
	if len(envs) != 1 || envs[0].Phase != aviation.PhaseLanding {
		t.Errorf("filtered envelope response: %+v", envs)
	}
	if w := get("/plans/web-1/envelope?phase=cruise"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown phase: status %d", w.Code)
	}

	w := get("/plans/web-1/loadsheet")
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("loadsheet content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "LOADSHEET") {
		t.Errorf("loadsheet body %q", w.Body.String())
	}

	if w := get("/plans/nonesuch"); w.Code != http.StatusNotFound {
		t.Errorf("missing plan: status %d", w.Code)
	}
	if w := get("/plans/nonesuch/physics"); w.Code != http.StatusNotFound {
		t.Errorf("missing plan physics: status %d", w.Code)
	}

	// The HTTP side is read-only.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/plans/web-1", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status %d", w.Code)
	}
}

func TestHTTPStatusPage(t *testing.T) {
	pm, pd := testPlanManager(t)

	var result NewPlanResult
	if err := pm.NewPlan(&NewPlanRequest{Name: "sup-check", AircraftType: "AST-40F", Initials: "QQ"},
		&result); err != nil {
		t.Fatal(err)
	}
	var update PlanStateUpdate
	if err := pd.AddItem(&AddItemArgs{PlanToken: result.PlanToken,
		Item: aviation.CargoItem{ID: "U1", WeightKg: 800}}, &update); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	pm.httpHandler().ServeHTTP(w, httptest.NewRequest("GET", "/sup", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Server Status", "sup-check", "AST-40F", "QQ"} {
		if !strings.Contains(body, want) {
			t.Errorf("%q missing from status page", want)
		}
	}
}

func TestGetPlanStatus(t *testing.T) {
	pm, pd := testPlanManager(t)

	var result NewPlanResult
	if err := pm.NewPlan(&NewPlanRequest{Name: "status-1", AircraftType: "AST-40F", Initials: "AB"},
		&result); err != nil {
		t.Fatal(err)
	}
	var update PlanStateUpdate
	for _, item := range []aviation.CargoItem{
		{ID: "U1", WeightKg: 700},
		{ID: "U2", WeightKg: 900},
	} {
		if err := pd.AddItem(&AddItemArgs{PlanToken: result.PlanToken, Item: item}, &update); err != nil {
			t.Fatal(err)
		}
	}
	if err := pd.Place(&PlaceArgs{PlanToken: result.PlanToken, ItemID: "U1", PositionID: "M1"},
		&update); err != nil {
		t.Fatal(err)
	}

	status := pm.GetPlanStatus()
	if len(status) != 1 {
		t.Fatalf("%d plans in status, wanted 1", len(status))
	}
	st := status[0]
	if st.Name != "status-1" || st.AircraftType != "AST-40F" {
		t.Errorf("status %+v", st)
	}
	if st.Placed != 1 || st.Pool != 1 {
		t.Errorf("placed %d pool %d, wanted 1 and 1", st.Placed, st.Pool)
	}
	if st.Clients != "AB" {
		t.Errorf("clients %q", st.Clients)
	}
}
