// server/session.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"log/slog"
	"slices"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/plan"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
)

///////////////////////////////////////////////////////////////////////////
// Types and Constructors

// planSession wraps one running plan with the connection bookkeeping the
// manager needs: who is signed on, when the plan was last touched, and
// when it was last autosaved.
type planSession struct {
	name           string
	aircraftType   string
	plan           *plan.Plan
	clientsByToken map[string]*clientState
	lastActivity   time.Time
	lastAutosave   time.Time
	autosaveFailed bool

	lg *log.Logger
	mu util.LoggingMutex
}

func makePlanSession(name, aircraftType string, p *plan.Plan, lg *log.Logger) *planSession {
	if name != "" {
		lg = lg.With(slog.String("plan_name", name))
	}
	return &planSession{
		name:           name,
		aircraftType:   aircraftType,
		plan:           p,
		clientsByToken: make(map[string]*clientState),
		lastActivity:   time.Now(),
		lastAutosave:   time.Now(),
		lg:             lg,
	}
}

// clientState holds state for a single signed-on client of a plan.
type clientState struct {
	token    string
	initials string
	eventSub *plan.EventsSubscription
	signOn   time.Time
}

///////////////////////////////////////////////////////////////////////////
// Client Lifecycle

func (ps *planSession) AddClient(token, initials string, sub *plan.EventsSubscription) {
	ps.mu.Lock(ps.lg)
	defer ps.mu.Unlock(ps.lg)

	ps.clientsByToken[token] = &clientState{
		token:    token,
		initials: initials,
		eventSub: sub,
		signOn:   time.Now(),
	}
	ps.lastActivity = time.Now()
}

func (ps *planSession) SignOff(token string) bool {
	ps.mu.Lock(ps.lg)
	defer ps.mu.Unlock(ps.lg)

	client, ok := ps.clientsByToken[token]
	if !ok {
		return false
	}

	// Unsubscribe from events before deleting so the stream doesn't keep
	// the client's backlog alive.
	if client.eventSub != nil {
		client.eventSub.Unsubscribe()
	}
	delete(ps.clientsByToken, token)

	ps.lastActivity = time.Now()
	return true
}

///////////////////////////////////////////////////////////////////////////
// Activity Tracking and Autosave

func (ps *planSession) idleTime() time.Duration {
	ps.mu.Lock(ps.lg)
	defer ps.mu.Unlock(ps.lg)

	return time.Since(ps.lastActivity)
}

const autosaveInterval = 5 * time.Minute

// autosaveIfDue writes the plan to its autosave slot if it has been
// touched since the last autosave and enough time has passed. A failed
// autosave is logged once rather than every interval.
func (ps *planSession) autosaveIfDue() {
	ps.mu.Lock(ps.lg)
	due := ps.lastActivity.After(ps.lastAutosave) && time.Since(ps.lastAutosave) > autosaveInterval
	if due {
		ps.lastAutosave = time.Now()
	}
	ps.mu.Unlock(ps.lg)

	if !due {
		return
	}

	if err := ps.plan.Autosave(); err != nil {
		if !ps.autosaveFailed {
			ps.autosaveFailed = true
			ps.lg.Errorf("%s: autosave failed: %v", ps.name, err)
		}
	} else {
		ps.autosaveFailed = false
	}
}

///////////////////////////////////////////////////////////////////////////
// Plan Context

// planContext is the resolved view of a token: the client's identity plus
// the plan and event subscription their requests should use. A nil value
// means the token wasn't found.
type planContext struct {
	initials string
	plan     *plan.Plan
	eventSub *plan.EventsSubscription
	session  *planSession
}

// MakePlanContext returns a planContext for the given token, or nil if no
// client with that token is signed on.
func (ps *planSession) MakePlanContext(token string) *planContext {
	ps.mu.Lock(ps.lg)
	defer ps.mu.Unlock(ps.lg)

	client, ok := ps.clientsByToken[token]
	if !ok {
		return nil
	}
	ps.lastActivity = time.Now()

	return &planContext{
		initials: client.initials,
		plan:     ps.plan,
		eventSub: client.eventSub,
		session:  ps,
	}
}

// GetStateUpdate bundles the current snapshot with the events this client
// hasn't consumed yet; it is what every polling and mutating RPC returns.
func (c *planContext) GetStateUpdate() PlanStateUpdate {
	return PlanStateUpdate{
		State:  c.plan.Snapshot(),
		Events: c.eventSub.Get(),
	}
}

///////////////////////////////////////////////////////////////////////////
// Status Queries

// ActiveClients returns the sorted initials of everyone signed on.
func (ps *planSession) ActiveClients() []string {
	ps.mu.Lock(ps.lg)
	defer ps.mu.Unlock(ps.lg)

	var initials []string
	for _, client := range ps.clientsByToken {
		if client.initials != "" {
			initials = append(initials, client.initials)
		}
	}
	slices.Sort(initials)
	return slices.Compact(initials)
}
