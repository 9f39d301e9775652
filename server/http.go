// server/http.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
)

///////////////////////////////////////////////////////////////////////////
// Read-only HTTP API and status page
//
// Everything served here is a view: ramp displays and ops dashboards poll
// these endpoints, but mutation only happens over RPC with a plan token.

func (pm *PlanManager) launchHTTPServer() {
	handler := pm.httpHandler()

	var listener net.Listener
	var err error
	var port int
	for i := range 10 {
		port = LoadmasterHTTPServerPort + i
		if listener, err = net.Listen("tcp", ":"+strconv.Itoa(port)); err == nil {
			pm.httpPort = port
			fmt.Printf("Launching HTTP server on port %d\n", port)
			break
		}
	}

	if err != nil {
		pm.lg.Warnf("Unable to start HTTP server")
	} else {
		go func() {
			if err := http.Serve(listener, handler); err != nil {
				pm.lg.Errorf("HTTP server error: %v", err)
			}
		}()
	}
}

func (pm *PlanManager) httpHandler() http.Handler {
	r := chi.NewRouter()

	r.Get("/sup", func(w http.ResponseWriter, r *http.Request) {
		pm.statsHandler(w, r)
		pm.lg.Infof("%s: served stats request", r.URL.String())
	})

	r.Route("/plans", func(r chi.Router) {
		r.Get("/", pm.servePlanList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", pm.servePlan)
			r.Get("/physics", pm.servePhysics)
			r.Get("/envelope", pm.serveEnvelope)
			r.Get("/loadsheet", pm.serveLoadsheet)
		})
	})

	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return r
}

func (pm *PlanManager) lookupSession(w http.ResponseWriter, r *http.Request) *planSession {
	id := chi.URLParam(r, "id")

	pm.mu.Lock(pm.lg)
	defer pm.mu.Unlock(pm.lg)

	session, ok := pm.plansByID[id]
	if !ok {
		http.Error(w, id+": no such plan", http.StatusNotFound)
		return nil
	}
	return session
}

func serveJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (pm *PlanManager) servePlanList(w http.ResponseWriter, r *http.Request) {
	var running map[string]*RunningPlan
	if err := pm.GetRunningPlans(0, &running); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveJSON(w, running)
}

func (pm *PlanManager) servePlan(w http.ResponseWriter, r *http.Request) {
	session := pm.lookupSession(w, r)
	if session == nil {
		return
	}
	serveJSON(w, session.plan.Snapshot())
}

// physicsDisplay carries pre-rounded strings of the headline numbers so
// displays don't redo the formatting. The full precision fields alongside
// are authoritative.
type physicsDisplay struct {
	ZeroFuelWeight string `json:"zero_fuel_weight"`
	TakeoffWeight  string `json:"takeoff_weight"`
	LandingWeight  string `json:"landing_weight"`
	ZeroFuelCG     string `json:"zero_fuel_cg"`
	TakeoffCG      string `json:"takeoff_cg"`
	LandingCG      string `json:"landing_cg"`
	LateralSplit   string `json:"lateral_split"`
}

type physicsResponse struct {
	wb.PhysicsResult
	Display physicsDisplay `json:"display"`
}

func displayKg(v float64) string  { return fmt.Sprintf("%.0f kg", v) }
func displayMAC(v float64) string { return fmt.Sprintf("%.2f%% MAC", v) }

func makePhysicsResponse(res wb.PhysicsResult) physicsResponse {
	return physicsResponse{
		PhysicsResult: res,
		Display: physicsDisplay{
			ZeroFuelWeight: displayKg(res.ZeroFuel.WeightKg),
			TakeoffWeight:  displayKg(res.Takeoff.WeightKg),
			LandingWeight:  displayKg(res.Landing.WeightKg),
			ZeroFuelCG:     displayMAC(res.ZeroFuel.CGPercentMAC),
			TakeoffCG:      displayMAC(res.Takeoff.CGPercentMAC),
			LandingCG:      displayMAC(res.Landing.CGPercentMAC),
			LateralSplit:   displayKg(res.LateralImbalanceKg),
		},
	}
}

func (pm *PlanManager) servePhysics(w http.ResponseWriter, r *http.Request) {
	session := pm.lookupSession(w, r)
	if session == nil {
		return
	}
	serveJSON(w, makePhysicsResponse(session.plan.Physics()))
}

type envelopeResponse struct {
	Phase        aviation.FlightPhase `json:"phase"`
	WeightKg     float64              `json:"weight_kg"`
	CGPercentMAC float64              `json:"cg_percent_mac"`
	wb.EnvelopeResult
	Display struct {
		CG           string `json:"cg"`
		ForwardLimit string `json:"forward_limit"`
		AftLimit     string `json:"aft_limit"`
	} `json:"display"`
}

// serveEnvelope reports each phase's position against its envelope; the
// optional phase query parameter ("zero_fuel", "takeoff", "landing")
// narrows the response to one phase.
func (pm *PlanManager) serveEnvelope(w http.ResponseWriter, r *http.Request) {
	session := pm.lookupSession(w, r)
	if session == nil {
		return
	}

	want := r.URL.Query().Get("phase")
	if want != "" && want != "zero_fuel" && want != "takeoff" && want != "landing" {
		http.Error(w, want+": unknown flight phase", http.StatusBadRequest)
		return
	}

	res := session.plan.Physics()
	phaseResults := map[aviation.FlightPhase]wb.PhaseResult{
		aviation.PhaseZeroFuel: res.ZeroFuel,
		aviation.PhaseTakeoff:  res.Takeoff,
		aviation.PhaseLanding:  res.Landing,
	}

	var out []envelopeResponse
	for _, v := range session.plan.Validate() {
		if want != "" && v.Phase.String() != want {
			continue
		}
		pr := phaseResults[v.Phase]
		er := envelopeResponse{
			Phase:          v.Phase,
			WeightKg:       pr.WeightKg,
			CGPercentMAC:   pr.CGPercentMAC,
			EnvelopeResult: v.EnvelopeResult,
		}
		er.Display.CG = displayMAC(pr.CGPercentMAC)
		er.Display.ForwardLimit = displayMAC(v.ForwardLimitPercentMAC)
		er.Display.AftLimit = displayMAC(v.AftLimitPercentMAC)
		out = append(out, er)
	}
	serveJSON(w, out)
}

func (pm *PlanManager) serveLoadsheet(w http.ResponseWriter, r *http.Request) {
	session := pm.lookupSession(w, r)
	if session == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, session.plan.Loadsheet())
}

///////////////////////////////////////////////////////////////////////////
// Status / statistics

type serverStats struct {
	Uptime           time.Duration
	AllocMemory      uint64
	TotalAllocMemory uint64
	SysMemory        uint64
	RX, TX           int64
	NumGC            uint32
	NumGoRoutines    int
	CPUUsage         int

	PlanStatus []planStatus
}

type planStatus struct {
	Name         string
	AircraftType string
	Flight       string
	Placed, Pool int
	IdleTime     time.Duration
	Clients      string
}

func (ps planStatus) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", ps.Name),
		slog.String("aircraft_type", ps.AircraftType),
		slog.String("flight", ps.Flight),
		slog.Int("placed", ps.Placed),
		slog.Int("pool", ps.Pool),
		slog.Duration("idle", ps.IdleTime),
		slog.String("clients", ps.Clients))
}

func (pm *PlanManager) GetPlanStatus() []planStatus {
	pm.mu.Lock(pm.lg)
	defer pm.mu.Unlock(pm.lg)

	var status []planStatus
	for name, ps := range util.SortedMap(pm.plansByID) {
		snap := ps.plan.Snapshot()
		placed := 0
		for _, lp := range snap.Positions {
			if lp.Item != nil {
				placed++
			}
		}
		status = append(status, planStatus{
			Name:         name,
			AircraftType: snap.AircraftType,
			Flight:       snap.Flight,
			Placed:       placed,
			Pool:         len(snap.Pool),
			IdleTime:     ps.idleTime().Round(time.Second),
			Clients:      strings.Join(ps.ActiveClients(), ", "),
		})
	}

	return status
}

var templateFuncs = template.FuncMap{"bytes": func(v int64) string { return util.ByteCount(v).String() }}

var statsTemplate = template.Must(template.New("").Funcs(templateFuncs).Parse(`
<!DOCTYPE html>
<html>
<head>
<title>loadmaster general</title>
</head>
<style>
table {
  border-collapse: collapse;
  width: 100%;
}

th, td {
  border: 1px solid #dddddd;
  padding: 8px;
  text-align: left;
}

tr:nth-child(even) {
  background-color: #f2f2f2;
}
</style>
<body>
<h1>Server Status</h1>
<ul>
  <li>Uptime: {{.Uptime}}</li>
  <li>CPU usage: {{.CPUUsage}}%</li>
  <li>Bandwidth: {{bytes .RX}} RX, {{bytes .TX}} TX</li>
  <li>Allocated memory: {{.AllocMemory}} MB</li>
  <li>Total allocated memory: {{.TotalAllocMemory}} MB</li>
  <li>System memory: {{.SysMemory}} MB</li>
  <li>Garbage collection passes: {{.NumGC}}</li>
  <li>Running goroutines: {{.NumGoRoutines}}</li>
</ul>

<h1>Plan Status</h1>
<table>
  <tr>
  <th>Name</th>
  <th>Aircraft</th>
  <th>Flight</th>
  <th>Placed</th>
  <th>Pool</th>
  <th>Idle Time</th>
  <th>Clients</th>

{{range .PlanStatus}}
  </tr>
  <td>{{.Name}}</td>
  <td>{{.AircraftType}}</td>
  <td>{{.Flight}}</td>
  <td>{{.Placed}}</td>
  <td>{{.Pool}}</td>
  <td>{{.IdleTime}}</td>
  <td><tt>{{.Clients}}</tt></td>
</tr>
{{end}}
</table>

</body>
</html>
`))

func (pm *PlanManager) statsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage, _ := cpu.Percent(time.Second, false)

	stats := serverStats{
		Uptime:           time.Since(pm.startTime).Round(time.Second),
		AllocMemory:      m.Alloc / (1024 * 1024),
		TotalAllocMemory: m.TotalAlloc / (1024 * 1024),
		SysMemory:        m.Sys / (1024 * 1024),
		NumGC:            m.NumGC,
		NumGoRoutines:    runtime.NumGoroutine(),
		CPUUsage:         int(math.Round(usage[0])),

		PlanStatus: pm.GetPlanStatus(),
	}

	stats.RX, stats.TX = util.GetLoggedRPCBandwidth()

	statsTemplate.Execute(w, stats)
}
