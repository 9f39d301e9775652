// server/manager.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	crand "crypto/rand"
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/plan"
	"github.com/Embraer145/LoadMaster-Ai-sub001/rand"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"
)

// PlanManager owns every running plan: it creates them, hands out the
// tokens that later RPCs present, and expires plans nobody has touched
// in hours. It is registered directly with the RPC server; the
// per-plan operations live on the dispatcher.
type PlanManager struct {
	registry *aviation.Registry
	tuning   wb.Tuning

	// Active sessions
	plansByID    map[string]*planSession
	plansByToken map[string]*planSession

	// Stats and internal details
	mu        util.LoggingMutex
	startTime time.Time
	httpPort  int
	local     bool
	lg        *log.Logger
}

func NewPlanManager(registry *aviation.Registry, tuning wb.Tuning, isLocal bool, lg *log.Logger) *PlanManager {
	pm := &PlanManager{
		registry:     registry,
		tuning:       tuning,
		plansByID:    make(map[string]*planSession),
		plansByToken: make(map[string]*planSession),
		startTime:    time.Now(),
		local:        isLocal,
		lg:           lg,
	}

	pm.launchHTTPServer()

	return pm
}

///////////////////////////////////////////////////////////////////////////
// Session Management - Creating and Connecting to Plans

type NewPlanRequest struct {
	Name         string // if empty, one is made up
	AircraftType string
	Initials     string // loadmaster initials, for the status page (e.g., "XX")
}

type NewPlanResult struct {
	PlanToken string
	State     *plan.Snapshot
	HTTPPort  int // where the read-only HTTP API is served
}

const NewPlanRPC = "PlanManager.NewPlan"

func (pm *PlanManager) NewPlan(req *NewPlanRequest, result *NewPlanResult) error {
	if req.Name == "" {
		req.Name = rand.AdjectiveNoun()
	}
	lg := pm.lg.With(slog.String("plan_name", req.Name))

	cfg, err := pm.registry.Aircraft(req.AircraftType)
	if err != nil {
		lg.Errorf("%s: %v", req.AircraftType, err)
		return ErrUnknownAircraftType
	}

	p := plan.New(req.Name, cfg, pm.tuning, lg)
	session := makePlanSession(req.Name, req.AircraftType, p, pm.lg)
	if err := pm.Add(session, result, req.Initials); err != nil {
		p.Destroy()
		return err
	}
	return nil
}

type RestorePlanRequest struct {
	Name     string
	Initials string
}

const RestorePlanRPC = "PlanManager.RestorePlan"

// RestorePlan brings an autosaved plan back as a running session, picking
// up where it was when it expired or the server went down.
func (pm *PlanManager) RestorePlan(req *RestorePlanRequest, result *NewPlanResult) error {
	p, err := plan.LoadAutosave(req.Name, pm.registry, pm.tuning, pm.lg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrUnknownAutosavedPlan
		}
		pm.lg.Errorf("%s: restoring autosave: %v", req.Name, err)
		return err
	}

	session := makePlanSession(p.ID(), p.AircraftType(), p, pm.lg)
	if err := pm.Add(session, result, req.Initials); err != nil {
		p.Destroy()
		return err
	}
	return nil
}

const GetAutosavesRPC = "PlanManager.GetAutosaves"

func (pm *PlanManager) GetAutosaves(_ int, result *[]string) error {
	saves, err := plan.ListAutosaves()
	if err != nil {
		return err
	}
	*result = saves
	return nil
}

type JoinPlanRequest struct {
	Name     string
	Initials string
}

const ConnectToPlanRPC = "PlanManager.ConnectToPlan"

func (pm *PlanManager) ConnectToPlan(req *JoinPlanRequest, result *NewPlanResult) error {
	pm.mu.Lock(pm.lg)
	defer pm.mu.Unlock(pm.lg)

	session, ok := pm.plansByID[req.Name]
	if !ok {
		return ErrNoNamedPlan
	}

	token := pm.makePlanToken()
	session.AddClient(token, req.Initials, session.plan.Subscribe())
	pm.plansByToken[token] = session

	*result = *pm.buildNewPlanResult(session, token)
	return nil
}

func (pm *PlanManager) makePlanToken() string {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		pm.lg.Errorf("%v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf[:])
}

func (pm *PlanManager) buildNewPlanResult(session *planSession, token string) *NewPlanResult {
	state := session.plan.Snapshot()
	return &NewPlanResult{
		PlanToken: token,
		State:     &state,
		HTTPPort:  pm.httpPort,
	}
}

func (pm *PlanManager) Add(session *planSession, result *NewPlanResult, initials string) error {
	pm.mu.Lock(pm.lg)

	if _, ok := pm.plansByID[session.name]; ok {
		pm.mu.Unlock(pm.lg)
		return ErrDuplicatePlanName
	}

	pm.lg.Infof("%s: adding plan", session.name)
	pm.plansByID[session.name] = session

	token := pm.makePlanToken()
	session.AddClient(token, initials, session.plan.Subscribe())
	pm.plansByToken[token] = session

	pm.mu.Unlock(pm.lg)

	go pm.runPlanSession(session)

	*result = *pm.buildNewPlanResult(session, token)

	return nil
}

// runPlanSession periodically autosaves the session's plan and expires it
// once it has been idle for long enough.
func (pm *PlanManager) runPlanSession(session *planSession) {
	defer pm.lg.CatchAndReportCrash()

	// Expire idle plans after 4 hours, but not when running locally.
	const planIdleLimit = 4 * time.Hour
	for pm.local || session.idleTime() < planIdleLimit {
		session.autosaveIfDue()
		time.Sleep(10 * time.Second)
	}

	pm.lg.Infof("%s: expiring plan after %s idle", session.name, session.idleTime())

	// One last autosave so the plan can be restored later.
	if err := session.plan.Autosave(); err != nil {
		pm.lg.Errorf("%s: autosave at expiry failed: %v", session.name, err)
	}
	session.plan.Destroy()

	pm.mu.Lock(pm.lg)
	for token, ps := range pm.plansByToken {
		if ps == session {
			delete(pm.plansByToken, token)
		}
	}
	delete(pm.plansByID, session.name)
	pm.mu.Unlock(pm.lg)
}

///////////////////////////////////////////////////////////////////////////
// Session Management - Sign Off

func (pm *PlanManager) SignOff(token string) error {
	pm.mu.Lock(pm.lg)
	defer pm.mu.Unlock(pm.lg)

	session, ok := pm.plansByToken[token]
	if !ok {
		return ErrNoPlanForToken
	}

	delete(pm.plansByToken, token)

	// The plan keeps running after its last client signs off; it is
	// autosaved and reaped by runPlanSession once it has sat idle.
	if !session.SignOff(token) {
		return ErrNoPlanForToken
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Plan Lookup and State Updates

type ConnectResult struct {
	AircraftTypes []string
	RunningPlans  map[string]*RunningPlan
	HTTPPort      int
}

const ConnectRPC = "PlanManager.Connect"

func (pm *PlanManager) Connect(version int, result *ConnectResult) error {
	if version != LoadmasterRPCVersion {
		return ErrRPCVersionMismatch
	}

	// Before we acquire the lock...
	if err := pm.GetRunningPlans(0, &result.RunningPlans); err != nil {
		return err
	}

	result.AircraftTypes = pm.registry.List()
	result.HTTPPort = pm.httpPort

	return nil
}

type RunningPlan struct {
	AircraftType   string
	Flight         string
	Clients        []string
	ItemsPlaced    int
	ItemsUnplaced  int
	OptimizeActive bool
}

const GetRunningPlansRPC = "PlanManager.GetRunningPlans"

func (pm *PlanManager) GetRunningPlans(_ int, result *map[string]*RunningPlan) error {
	pm.mu.Lock(pm.lg)
	defer pm.mu.Unlock(pm.lg)

	running := make(map[string]*RunningPlan)
	for name, ps := range pm.plansByID {
		snap := ps.plan.Snapshot()
		placed := 0
		for _, lp := range snap.Positions {
			if lp.Item != nil {
				placed++
			}
		}
		running[name] = &RunningPlan{
			AircraftType:   snap.AircraftType,
			Flight:         snap.Flight,
			Clients:        ps.ActiveClients(),
			ItemsPlaced:    placed,
			ItemsUnplaced:  len(snap.Pool),
			OptimizeActive: snap.OptimizeActive,
		}
	}

	*result = running
	return nil
}

// PlanStateUpdate is the payload polling and mutating RPCs return: the
// full current snapshot plus the events this client hasn't consumed yet.
// Plans are small enough that sending the whole snapshot beats tracking
// per-client deltas.
type PlanStateUpdate struct {
	State  plan.Snapshot
	Events []plan.Event
}

// LookupPlan resolves a token to the plan and event subscription its
// requests should use, or nil if the token isn't signed on anywhere.
func (pm *PlanManager) LookupPlan(token string) *planContext {
	pm.mu.Lock(pm.lg)
	defer pm.mu.Unlock(pm.lg)

	if session, ok := pm.plansByToken[token]; ok {
		return session.MakePlanContext(token)
	}
	return nil
}
