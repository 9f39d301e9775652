// wb/compat.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wb

import (
	"fmt"
	"slices"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
)

// RejectionReason says why a placement was refused. The checks run in a
// fixed order and the first failure wins, so a given (item, position)
// pair always reports the same reason.
type RejectionReason int

const (
	ReasonNone RejectionReason = iota
	ReasonOverweight
	ReasonTypeMismatch
	ReasonNoDoorRoute
	ReasonTooTall
)

func (r RejectionReason) String() string {
	return []string{"", "overweight for position", "ULD/position type mismatch",
		"no compatible door route", "too tall for position"}[r]
}

func (r RejectionReason) MarshalJSON() ([]byte, error) {
	switch r {
	case ReasonNone:
		return []byte("\"\""), nil
	case ReasonOverweight:
		return []byte("\"overweight for position\""), nil
	case ReasonTypeMismatch:
		return []byte("\"ULD/position type mismatch\""), nil
	case ReasonNoDoorRoute:
		return []byte("\"no compatible door route\""), nil
	case ReasonTooTall:
		return []byte("\"too tall for position\""), nil
	default:
		return nil, fmt.Errorf("%d: unknown rejection reason", r)
	}
}

func (r *RejectionReason) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"\"", "null":
		*r = ReasonNone
	case "\"overweight for position\"":
		*r = ReasonOverweight
	case "\"ULD/position type mismatch\"":
		*r = ReasonTypeMismatch
	case "\"no compatible door route\"":
		*r = ReasonNoDoorRoute
	case "\"too tall for position\"":
		*r = ReasonTooTall
	default:
		return fmt.Errorf("%s: unknown rejection reason", string(b))
	}
	return nil
}

// CheckOptions adjusts placement checking. OverrideDoorCheck skips the
// door-route check for this call only; it is an explicit operator
// decision, recorded by the caller, never a default.
type CheckOptions struct {
	OverrideDoorCheck bool `json:"override_door_check,omitempty"`
}

// PlacementCheck is the checker's verdict.
type PlacementCheck struct {
	OK     bool            `json:"ok"`
	Reason RejectionReason `json:"reason,omitempty"`
}

// CheckPlacement decides whether an item may go into a position.
// Occupancy is not checked here; swap-versus-reject on an occupied
// position is the plan's call. The checks, in order:
// weight, ULD class against deck/type, door route, height.
func CheckPlacement(item *aviation.CargoItem, pos LoadedPosition, opts CheckOptions) PlacementCheck {
	p := pos.Position

	if item.WeightKg > p.MaxWeightKg {
		return PlacementCheck{Reason: ReasonOverweight}
	}

	// Loose pieces with no ULD code have no class and skip this check.
	switch item.ULDClass() {
	case aviation.ULDBulk:
		if p.Type != aviation.PositionBulk {
			return PlacementCheck{Reason: ReasonTypeMismatch}
		}
	case aviation.ULDPallet:
		if p.Deck != aviation.DeckMain {
			return PlacementCheck{Reason: ReasonTypeMismatch}
		}
	case aviation.ULDContainer:
		if p.Deck != aviation.DeckLower {
			return PlacementCheck{Reason: ReasonTypeMismatch}
		}
	}

	// An item with no door constraints can route through any door.
	if !opts.OverrideDoorCheck && len(item.Doors) > 0 {
		reachable := slices.ContainsFunc(item.Doors, func(d aviation.DoorKind) bool {
			return slices.Contains(p.Doors, d)
		})
		if !reachable {
			return PlacementCheck{Reason: ReasonNoDoorRoute}
		}
	}

	// Unknown item height passes; only a known height can disqualify.
	if p.MaxHeightIn != nil && item.HeightIn != nil && *item.HeightIn > *p.MaxHeightIn {
		return PlacementCheck{Reason: ReasonTooTall}
	}

	return PlacementCheck{OK: true}
}
