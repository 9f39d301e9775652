// wb/tuning.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wb

import (
	"fmt"
	"os"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
)

// Tuning holds the optimizer's adjustable thresholds. Operators rarely
// touch these; the defaults are what ships.
type Tuning struct {
	// Candidates within this many %MAC of a static CG limit are rejected
	// even though they would be legal, keeping optimizer output away
	// from the edges of the certificate.
	CGMarginPercentMAC float64 `json:"cg_margin_percent_mac"`

	LateralCheckEnabled bool    `json:"lateral_check_enabled"`
	LateralThresholdKg  float64 `json:"lateral_threshold_kg"`

	// Fuel efficiency target; nil derives an aft-biased target from the
	// aircraft's static CG band.
	TargetCGPercentMAC *float64 `json:"target_cg_percent_mac,omitempty"`

	// Position ids unloaded first/last at a stop, for unload efficiency
	// scoring. Empty lists leave zone scoring neutral.
	FirstOffPositions []string `json:"first_off_positions,omitempty"`
	LastOffPositions  []string `json:"last_off_positions,omitempty"`
}

// DefaultTuning is what applies when no settings file is given. The
// lateral threshold must stay above the heaviest single position limit
// of the fleet; otherwise the first heavy item placed on a left or
// right position is rejected before anything exists to balance it.
func DefaultTuning() Tuning {
	return Tuning{
		CGMarginPercentMAC:  1.0,
		LateralCheckEnabled: true,
		LateralThresholdKg:  8000,
	}
}

// LoadTuning reads tuning overrides from a JSON settings file. An empty
// path means no overrides and yields the defaults; a path that can't be
// read or parsed is a configuration error and fails loudly.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}

	var e util.ErrorLogger
	util.CheckJSON[Tuning](b, &e)
	if e.HaveErrors() {
		return t, fmt.Errorf("%s: invalid settings file:\n%s", path, e.String())
	}
	if err := util.UnmarshalJSONBytes(b, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if t.CGMarginPercentMAC < 0 || t.LateralThresholdKg < 0 {
		return t, fmt.Errorf("%s: margins and thresholds must not be negative", path)
	}
	return t, nil
}

// TargetCG resolves the fuel efficiency target CG for an aircraft: the
// configured value if set, otherwise 75% of the way aft through the
// static band. Aft CGs reduce trim drag; the margin check keeps the
// result inside the certificate.
func (t Tuning) TargetCG(cfg *aviation.Config) float64 {
	if t.TargetCGPercentMAC != nil {
		return *t.TargetCGPercentMAC
	}
	fwd, aft := cfg.StaticCG.ForwardPercentMAC, cfg.StaticCG.AftPercentMAC
	return fwd + 0.75*(aft-fwd)
}

// Admissible reports whether a prospective load state stays inside the
// tuning's operating margins: not overweight, takeoff CG at least the
// margin inside the static band, and lateral imbalance under the
// threshold. The optimizer applies it to every candidate, and the plan
// applies it again when a step from a concurrent run lands on state
// that may have changed.
func (t Tuning) Admissible(result PhysicsResult, cfg *aviation.Config) bool {
	if result.Overweight {
		return false
	}
	cg := result.Takeoff.CGPercentMAC
	if cg < cfg.StaticCG.ForwardPercentMAC+t.CGMarginPercentMAC ||
		cg > cfg.StaticCG.AftPercentMAC-t.CGMarginPercentMAC {
		return false
	}
	if t.LateralCheckEnabled && result.LateralImbalanceKg > t.LateralThresholdKg {
		return false
	}
	return true
}
