// plan/save.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package plan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Saved plans live in the user cache dir as msgpack-encoded savedPlan,
// compressed with zstd. They are a local convenience (crash recovery,
// picking up yesterday's plan); the plan core itself persists nothing.
const saveSuffix = ".plan.msgpack.zst"

type savedPlan struct {
	SavedAt time.Time
	State   Snapshot
}

func savedPlanDir() (string, error) {
	cd, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cd, "LoadMaster", "plans"), nil
}

// Save writes the plan's current state.
func (p *Plan) Save(w io.Writer) error {
	sp := savedPlan{SavedAt: time.Now(), State: p.Snapshot()}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(sp); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

// Autosave writes the plan to its slot in the user cache dir.
func (p *Plan) Autosave() error {
	dir, err := savedPlanDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, p.id+saveSuffix))
	if err != nil {
		return err
	}
	defer f.Close()

	return p.Save(f)
}

// Load reads a saved plan and reconstitutes it against the given
// registry. The aircraft template must still exist and still have every
// position and station the saved plan refers to; a template that has
// changed shape underneath a save is an error, not a silent misload.
func Load(r io.Reader, registry *aviation.Registry, tuning wb.Tuning, lg *log.Logger) (*Plan, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var sp savedPlan
	if err := msgpack.NewDecoder(zr).Decode(&sp); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}

	cfg, err := registry.Aircraft(sp.State.AircraftType)
	if err != nil {
		return nil, err
	}

	p := New(sp.State.ID, cfg, tuning, lg)
	p.flight = sp.State.Flight
	p.route = sp.State.Route
	p.pool = sp.State.Pool
	p.fuel = sp.State.Fuel

	for _, sl := range sp.State.Stations {
		if err := p.SetStationWeight(sl.Station.Name, sl.WeightKg); err != nil {
			p.Destroy()
			return nil, fmt.Errorf("%s: %w", sl.Station.Name, err)
		}
	}
	for _, lp := range sp.State.Positions {
		if lp.Item == nil {
			continue
		}
		idx := wb.PositionIndex(p.positions, lp.Position.ID)
		if idx == -1 {
			p.Destroy()
			return nil, fmt.Errorf("%s: %w", lp.Position.ID, ErrUnknownPosition)
		}
		// Reattach directly: the placement was legal when saved, and the
		// template shape was just verified. Re-running the compatibility
		// check here would refuse to restore placements the loadmaster
		// made with the door override.
		p.positions[idx].Item = lp.Item
	}

	p.mu.Lock(lg)
	p.checkInvariantsLocked()
	p.mu.Unlock(lg)
	return p, nil
}

// LoadAutosave restores a plan from its autosave slot.
func LoadAutosave(id string, registry *aviation.Registry, tuning wb.Tuning, lg *log.Logger) (*Plan, error) {
	dir, err := savedPlanDir()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, id+saveSuffix))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f, registry, tuning, lg)
}

// ListAutosaves returns the plan ids with an autosave present.
func ListAutosaves() ([]string, error) {
	dir, err := savedPlanDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, saveSuffix) {
			ids = append(ids, strings.TrimSuffix(name, saveSuffix))
		}
	}
	return ids, nil
}

// RemoveAutosave deletes a plan's autosave slot, if present.
func RemoveAutosave(id string) error {
	dir, err := savedPlanDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, id+saveSuffix))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
