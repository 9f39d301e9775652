// server/server_test.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/plan"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"
)

// testClient launches a server on an ephemeral port and returns an RPC
// client connected to it, speaking the same stacked codec the production
// client uses.
func testClient(t *testing.T) *rpc.Client {
	t.Helper()

	lg := log.New(true, "warn", t.TempDir())

	port, e := LaunchServerAsync(ServerLaunchConfig{Local: true}, lg)
	if e.HaveErrors() {
		t.Fatalf("launch: %s", e.String())
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	cc, err := util.MakeCompressedConn(util.MakeLoggingConn(conn, lg))
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	codec := util.MakeLoggingClientCodec("test", util.MakeMessagepackClientCodec(cc), lg)

	client := rpc.NewClientWithCodec(codec)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnect(t *testing.T) {
	client := testClient(t)

	var result ConnectResult
	err := client.Call(ConnectRPC, LoadmasterRPCVersion+1, &result)
	if !util.IsRPCServerError(err) {
		t.Errorf("handler error should arrive as an rpc.ServerError, got %T", err)
	}
	if TryDecodeError(err) != ErrRPCVersionMismatch {
		t.Errorf("stale client version: got %v, wanted version mismatch", err)
	}

	if err := client.Call(ConnectRPC, LoadmasterRPCVersion, &result); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !slices.Contains(result.AircraftTypes, "AST-40F") {
		t.Errorf("AST-40F missing from aircraft types %v", result.AircraftTypes)
	}
	if len(result.RunningPlans) != 0 {
		t.Errorf("fresh server reports running plans: %v", result.RunningPlans)
	}
	if result.HTTPPort == 0 {
		t.Errorf("no HTTP port reported")
	}
}

func TestPlanRPCs(t *testing.T) {
	client := testClient(t)

	var result NewPlanResult
	req := NewPlanRequest{Name: "ops-check", AircraftType: "AST-40F", Initials: "MB"}
	if err := client.Call(NewPlanRPC, &req, &result); err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if result.PlanToken == "" {
		t.Fatal("NewPlan returned an empty token")
	}
	if result.State == nil || result.State.AircraftType != "AST-40F" {
		t.Fatalf("NewPlan state: %+v", result.State)
	}
	token := result.PlanToken

	err := client.Call(NewPlanRPC, &req, &NewPlanResult{})
	if TryDecodeError(err) != ErrDuplicatePlanName {
		t.Errorf("duplicate plan name: got %v", err)
	}
	err = client.Call(NewPlanRPC, &NewPlanRequest{AircraftType: "DC-4"}, &NewPlanResult{})
	if TryDecodeError(err) != ErrUnknownAircraftType {
		t.Errorf("unknown aircraft type: got %v", err)
	}

	// A request without a name gets one made up for it.
	var unnamed NewPlanResult
	if err := client.Call(NewPlanRPC, &NewPlanRequest{AircraftType: "AST-40F", Initials: "ZZ"},
		&unnamed); err != nil {
		t.Fatalf("NewPlan without a name: %v", err)
	}
	if unnamed.State.ID == "" {
		t.Error("no name was generated for the plan")
	}

	var update PlanStateUpdate
	add := AddItemArgs{PlanToken: token, Item: aviation.CargoItem{ID: "U1", WeightKg: 1200}}
	if err := client.Call(AddItemRPC, &add, &update); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(update.State.Pool) != 1 || update.State.Pool[0].ID != "U1" {
		t.Errorf("pool after AddItem: %+v", update.State.Pool)
	}
	if !slices.ContainsFunc(update.Events, func(e plan.Event) bool { return e.Type == plan.ItemAddedEvent }) {
		t.Errorf("no ItemAdded event in %v", update.Events)
	}

	place := PlaceArgs{PlanToken: token, ItemID: "U1", PositionID: "M3"}
	if err := client.Call(PlaceRPC, &place, &update); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if idx := wb.PositionIndex(update.State.Positions, "M3"); idx == -1 || update.State.Positions[idx].Item == nil {
		t.Error("M3 is empty after Place")
	}
	if !slices.ContainsFunc(update.Events, func(e plan.Event) bool {
		return e.Type == plan.ItemPlacedEvent && e.PositionID == "M3"
	}) {
		t.Errorf("no ItemPlaced event in %v", update.Events)
	}

	// Plan errors survive the trip over the wire as the matching sentinels.
	err = client.Call(PlaceRPC, &PlaceArgs{PlanToken: token, ItemID: "NOPE", PositionID: "M1"}, &update)
	if TryDecodeError(err) != plan.ErrUnknownItem {
		t.Errorf("placing an unknown item: got %v", err)
	}
	err = client.Call(PlaceRPC, &PlaceArgs{PlanToken: "made-up-token", ItemID: "U1", PositionID: "M1"}, &update)
	if TryDecodeError(err) != ErrNoPlanForToken {
		t.Errorf("bogus token: got %v", err)
	}

	var physics wb.PhysicsResult
	if err := client.Call(PreviewRPC, &PreviewArgs{PlanToken: token, ItemID: "U1", PositionID: "M1"},
		&physics); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if physics.Takeoff.WeightKg <= 0 {
		t.Errorf("preview takeoff weight %v", physics.Takeoff.WeightKg)
	}

	if err := client.Call(SetFuelRPC, &SetFuelArgs{PlanToken: token,
		Fuel: wb.FuelState{TotalKg: 30000, TripBurnKg: 20000}}, &update); err != nil {
		t.Fatalf("SetFuel: %v", err)
	}
	if update.State.Fuel.TotalKg != 30000 {
		t.Errorf("fuel after SetFuel: %+v", update.State.Fuel)
	}

	var sheet string
	if err := client.Call(GetLoadsheetRPC, token, &sheet); err != nil {
		t.Fatalf("GetLoadsheet: %v", err)
	}
	if !strings.Contains(sheet, "LOADSHEET") {
		t.Errorf("loadsheet header missing: %q", sheet)
	}

	var saved []byte
	if err := client.Call(GetSerializedPlanRPC, token, &saved); err != nil {
		t.Fatalf("GetSerializedPlan: %v", err)
	}
	if len(saved) == 0 {
		t.Error("empty serialized plan")
	}

	// A second loadmaster joins the same plan.
	var joined NewPlanResult
	if err := client.Call(ConnectToPlanRPC, &JoinPlanRequest{Name: "ops-check", Initials: "KL"},
		&joined); err != nil {
		t.Fatalf("ConnectToPlan: %v", err)
	}
	if joined.PlanToken == "" || joined.PlanToken == token {
		t.Errorf("joining client got token %q", joined.PlanToken)
	}
	err = client.Call(ConnectToPlanRPC, &JoinPlanRequest{Name: "nonesuch"}, &NewPlanResult{})
	if TryDecodeError(err) != ErrNoNamedPlan {
		t.Errorf("joining a missing plan: got %v", err)
	}

	var running map[string]*RunningPlan
	if err := client.Call(GetRunningPlansRPC, 0, &running); err != nil {
		t.Fatalf("GetRunningPlans: %v", err)
	}
	rp := running["ops-check"]
	if rp == nil {
		t.Fatalf("ops-check missing from %v", running)
	}
	if rp.ItemsPlaced != 1 || rp.ItemsUnplaced != 0 {
		t.Errorf("placed %d unplaced %d, expected 1 and 0", rp.ItemsPlaced, rp.ItemsUnplaced)
	}
	if !slices.Equal(rp.Clients, []string{"KL", "MB"}) {
		t.Errorf("clients %v", rp.Clients)
	}

	testOptimizeRPCs(t, client, token, joined.PlanToken)

	// Signing off invalidates the token but leaves the plan running for
	// the other client.
	if err := client.Call(SignOffRPC, token, &struct{}{}); err != nil {
		t.Fatalf("SignOff: %v", err)
	}
	err = client.Call(GetStateUpdateRPC, token, &update)
	if TryDecodeError(err) != ErrNoPlanForToken {
		t.Errorf("signed-off token still works: %v", err)
	}
	err = client.Call(SignOffRPC, token, &struct{}{})
	if TryDecodeError(err) != ErrNoPlanForToken {
		t.Errorf("second sign-off: got %v", err)
	}
	if err := client.Call(GetStateUpdateRPC, joined.PlanToken, &update); err != nil {
		t.Errorf("remaining client: %v", err)
	}
}

// testOptimizeRPCs drives an optimizer run over RPC, watching its progress
// through the second client's event stream.
func testOptimizeRPCs(t *testing.T, client *rpc.Client, token, watcherToken string) {
	var update PlanStateUpdate
	add := AddItemArgs{PlanToken: token, Item: aviation.CargoItem{ID: "U2", WeightKg: 900}}
	if err := client.Call(AddItemRPC, &add, &update); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	err := client.Call(StartOptimizeRPC, &StartOptimizeArgs{PlanToken: token, Mode: wb.OptimizeMode(99)},
		&update)
	if TryDecodeError(err) != ErrInvalidOptimizeMode {
		t.Errorf("bogus optimize mode: got %v", err)
	}

	if err := client.Call(StartOptimizeRPC, &StartOptimizeArgs{PlanToken: token, Mode: wb.ModeSafety},
		&update); err != nil {
		t.Fatalf("StartOptimize: %v", err)
	}

	for deadline := time.Now().Add(10 * time.Second); ; {
		var u PlanStateUpdate
		if err := client.Call(GetStateUpdateRPC, watcherToken, &u); err != nil {
			t.Fatalf("GetStateUpdate: %v", err)
		}
		if slices.ContainsFunc(u.Events, func(e plan.Event) bool { return e.Type == plan.OptimizeFinishedEvent }) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("optimizer never finished")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Stopping after the run has already finished is a no-op.
	if err := client.Call(StopOptimizeRPC, token, &update); err != nil {
		t.Fatalf("StopOptimize: %v", err)
	}
	if update.State.OptimizeActive {
		t.Error("optimize still flagged active after finishing")
	}

	// Every item is either placed or still pooled; none vanish.
	placed := 0
	for _, lp := range update.State.Positions {
		if lp.Item != nil {
			placed++
		}
	}
	if placed+len(update.State.Pool) != 2 {
		t.Errorf("%d placed + %d pooled, expected 2 items total", placed, len(update.State.Pool))
	}
}

func TestImportManifestRPC(t *testing.T) {
	client := testClient(t)

	var result NewPlanResult
	req := NewPlanRequest{Name: "import-check", AircraftType: "AST-40F", Initials: "MB"}
	if err := client.Call(NewPlanRPC, &req, &result); err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	var update PlanStateUpdate
	args := ImportManifestArgs{
		PlanToken: result.PlanToken,
		Manifest: aviation.Manifest{
			Flight:   "LM101",
			Aircraft: "AST-40F",
			Route:    []string{"SEA", "ANC"},
			Items: []aviation.CargoItem{
				{ID: "AKE100", WeightKg: 950, Destination: "ANC", ULD: "AKE"},
				{ID: "CRT1", WeightKg: 2000, Destination: "ANC"},
			},
		},
	}
	if err := client.Call(ImportManifestRPC, &args, &update); err != nil {
		t.Fatalf("ImportManifest: %v", err)
	}
	if update.State.Flight != "LM101" {
		t.Errorf("flight %q after import", update.State.Flight)
	}
	if len(update.State.Pool) != 2 {
		t.Fatalf("pool after import: %+v", update.State.Pool)
	}
	// Validation ran server-side, so the AKE's doors were backfilled from
	// the catalog.
	idx := slices.IndexFunc(update.State.Pool, func(c *aviation.CargoItem) bool { return c.ID == "AKE100" })
	if idx == -1 || len(update.State.Pool[idx].Doors) == 0 {
		t.Errorf("AKE100 doors not backfilled: %+v", update.State.Pool)
	}

	// A one-stop route never validates.
	bad := args
	bad.Manifest.Route = []string{"SEA"}
	err := client.Call(ImportManifestRPC, &bad, &update)
	if TryDecodeError(err) != ErrInvalidManifest {
		t.Errorf("one-stop route: got %v", err)
	}

	// A manifest cut for a different aircraft is rejected by the plan.
	mismatched := args
	mismatched.Manifest.Aircraft = "TST-9"
	err = client.Call(ImportManifestRPC, &mismatched, &update)
	if TryDecodeError(err) != plan.ErrAircraftMismatch {
		t.Errorf("mismatched aircraft: got %v", err)
	}
}

func TestRestorePlanRPC(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("redirecting the autosave directory requires XDG_CACHE_HOME")
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	lg := log.New(true, "warn", t.TempDir())
	registry := aviation.NewRegistry(nil, lg)
	cfg, err := registry.Aircraft("AST-40F")
	if err != nil {
		t.Fatal(err)
	}

	// Stash an autosave the way an expiring session would.
	p := plan.New("stashed", cfg, wb.DefaultTuning(), lg)
	if err := p.AddItem(&aviation.CargoItem{ID: "U1", WeightKg: 2000}); err != nil {
		t.Fatal(err)
	}
	if err := p.Place("U1", "M1", wb.CheckOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Autosave(); err != nil {
		t.Fatal(err)
	}
	p.Destroy()

	client := testClient(t)

	var saves []string
	if err := client.Call(GetAutosavesRPC, 0, &saves); err != nil {
		t.Fatalf("GetAutosaves: %v", err)
	}
	if !slices.Contains(saves, "stashed") {
		t.Fatalf("autosaves %v missing \"stashed\"", saves)
	}

	var result NewPlanResult
	if err := client.Call(RestorePlanRPC, &RestorePlanRequest{Name: "stashed", Initials: "MB"},
		&result); err != nil {
		t.Fatalf("RestorePlan: %v", err)
	}
	if idx := wb.PositionIndex(result.State.Positions, "M1"); idx == -1 ||
		result.State.Positions[idx].Item == nil || result.State.Positions[idx].Item.ID != "U1" {
		t.Errorf("U1 not back on M1 after restore")
	}

	err = client.Call(RestorePlanRPC, &RestorePlanRequest{Name: "nonesuch"}, &result)
	if TryDecodeError(err) != ErrUnknownAutosavedPlan {
		t.Errorf("restoring a missing autosave: got %v", err)
	}
}

func TestPlanTokens(t *testing.T) {
	pm := &PlanManager{lg: log.New(true, "warn", t.TempDir())}

	a, b := pm.makePlanToken(), pm.makePlanToken()
	if a == b {
		t.Errorf("reused token %q", a)
	}
	if len(a) != 24 { // 16 bytes, base64
		t.Errorf("token %q has length %d", a, len(a))
	}
}

func TestSessionSignOff(t *testing.T) {
	lg := log.New(true, "warn", t.TempDir())
	registry := aviation.NewRegistry(nil, lg)
	cfg, err := registry.Aircraft("AST-40F")
	if err != nil {
		t.Fatal(err)
	}
	p := plan.New("session-check", cfg, wb.DefaultTuning(), lg)
	defer p.Destroy()

	ps := makePlanSession("session-check", "AST-40F", p, lg)
	ps.AddClient("tok-a", "AA", p.Subscribe())
	ps.AddClient("tok-b", "BB", p.Subscribe())
	ps.AddClient("tok-c", "BB", p.Subscribe())

	if clients := ps.ActiveClients(); !slices.Equal(clients, []string{"AA", "BB"}) {
		t.Errorf("active clients %v", clients)
	}

	if !ps.SignOff("tok-a") {
		t.Error("sign-off of a known token failed")
	}
	if ps.SignOff("tok-a") {
		t.Error("second sign-off of the same token succeeded")
	}
	if ps.SignOff("never-issued") {
		t.Error("sign-off of an unknown token succeeded")
	}
	if clients := ps.ActiveClients(); !slices.Equal(clients, []string{"BB"}) {
		t.Errorf("active clients after sign-off: %v", clients)
	}

	if ctx := ps.MakePlanContext("never-issued"); ctx != nil {
		t.Errorf("context for an unknown token: %+v", ctx)
	}
	if ctx := ps.MakePlanContext("tok-b"); ctx == nil || ctx.initials != "BB" {
		t.Errorf("context for tok-b: %+v", ctx)
	}
}

func TestTryDecodeError(t *testing.T) {
	if TryDecodeError(nil) != nil {
		t.Error("nil decoded to non-nil")
	}
	if err := errors.New("some novel failure"); TryDecodeError(err) != err {
		t.Error("unknown error rewritten")
	}

	// net/rpc flattens errors to strings in transit; decoding recovers
	// the sentinel.
	wire := errors.New(plan.ErrPositionOccupied.Error())
	if TryDecodeError(wire) != plan.ErrPositionOccupied {
		t.Errorf("got %v, wanted ErrPositionOccupied", TryDecodeError(wire))
	}
	if TryDecodeErrorString(ErrNoPlanForToken.Error()) != ErrNoPlanForToken {
		t.Error("ErrNoPlanForToken string not decoded")
	}
	if TryDecodeErrorString("definitely not a sentinel") != nil {
		t.Error("unknown string decoded to an error")
	}
}
