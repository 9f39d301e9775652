// aviation/aviation.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package aviation defines the static reference data for the load
// planner: aircraft configuration templates, cargo position and station
// definitions, envelope curves, the ULD catalog, and cargo manifests.
// Everything here is loaded from JSON, validated once at load time, and
// treated as immutable afterwards.
package aviation

import (
	"fmt"
)

///////////////////////////////////////////////////////////////////////////
// Deck

type Deck int

const (
	DeckUnknown Deck = iota
	DeckMain
	DeckLower
)

func (d Deck) String() string {
	return []string{"Unknown", "MAIN", "LOWER"}[d]
}

func (d Deck) MarshalJSON() ([]byte, error) {
	switch d {
	case DeckMain:
		return []byte("\"MAIN\""), nil
	case DeckLower:
		return []byte("\"LOWER\""), nil
	default:
		return []byte("\"\""), nil
	}
}

func (d *Deck) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"MAIN\"":
		*d = DeckMain
		return nil

	case "\"LOWER\"":
		*d = DeckLower
		return nil

	case "\"\"", "null":
		*d = DeckUnknown
		return nil

	default:
		return fmt.Errorf("%s: unknown deck", string(b))
	}
}

///////////////////////////////////////////////////////////////////////////
// PositionType

// PositionType classifies a cargo position structurally; the left/right
// tags drive the lateral balance computation and the rest drive
// compatibility checks and unload zone defaults.
type PositionType int

const (
	PositionUnknown PositionType = iota
	PositionNose
	PositionLeft
	PositionRight
	PositionCenterline
	PositionTail
	PositionLowerForward
	PositionLowerAft
	PositionBulk
)

func (t PositionType) String() string {
	return []string{"Unknown", "nose", "left", "right", "centerline", "tail",
		"lower_forward", "lower_aft", "bulk"}[t]
}

func (t PositionType) MarshalJSON() ([]byte, error) {
	switch t {
	case PositionNose:
		return []byte("\"nose\""), nil
	case PositionLeft:
		return []byte("\"left\""), nil
	case PositionRight:
		return []byte("\"right\""), nil
	case PositionCenterline:
		return []byte("\"centerline\""), nil
	case PositionTail:
		return []byte("\"tail\""), nil
	case PositionLowerForward:
		return []byte("\"lower_forward\""), nil
	case PositionLowerAft:
		return []byte("\"lower_aft\""), nil
	case PositionBulk:
		return []byte("\"bulk\""), nil
	default:
		return nil, fmt.Errorf("unhandled position type in MarshalJSON()")
	}
}

func (t *PositionType) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"nose\"":
		*t = PositionNose
		return nil

	case "\"left\"":
		*t = PositionLeft
		return nil

	case "\"right\"":
		*t = PositionRight
		return nil

	case "\"centerline\"":
		*t = PositionCenterline
		return nil

	case "\"tail\"":
		*t = PositionTail
		return nil

	case "\"lower_forward\"":
		*t = PositionLowerForward
		return nil

	case "\"lower_aft\"":
		*t = PositionLowerAft
		return nil

	case "\"bulk\"":
		*t = PositionBulk
		return nil

	default:
		return fmt.Errorf("%s: unknown position type", string(b))
	}
}

///////////////////////////////////////////////////////////////////////////
// HoldGroup

// HoldGroup tags lower-deck positions by hold for loadsheet grouping.
type HoldGroup int

const (
	HoldNone HoldGroup = iota
	HoldForward
	HoldAft
	HoldBulk
)

func (h HoldGroup) String() string {
	return []string{"", "FWD", "AFT", "BULK"}[h]
}

func (h HoldGroup) MarshalJSON() ([]byte, error) {
	switch h {
	case HoldForward:
		return []byte("\"FWD\""), nil
	case HoldAft:
		return []byte("\"AFT\""), nil
	case HoldBulk:
		return []byte("\"BULK\""), nil
	default:
		return []byte("\"\""), nil
	}
}

func (h *HoldGroup) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"FWD\"":
		*h = HoldForward
		return nil

	case "\"AFT\"":
		*h = HoldAft
		return nil

	case "\"BULK\"":
		*h = HoldBulk
		return nil

	case "\"\"", "null":
		*h = HoldNone
		return nil

	default:
		return fmt.Errorf("%s: unknown hold group", string(b))
	}
}

///////////////////////////////////////////////////////////////////////////
// DoorKind

type DoorKind int

const (
	DoorUnknown DoorKind = iota
	DoorNose
	DoorSide
	DoorLowerForward
	DoorLowerAft
	DoorBulk
)

func (d DoorKind) String() string {
	return []string{"Unknown", "nose", "side", "lower_forward", "lower_aft", "bulk"}[d]
}

func (d DoorKind) MarshalJSON() ([]byte, error) {
	switch d {
	case DoorNose:
		return []byte("\"nose\""), nil
	case DoorSide:
		return []byte("\"side\""), nil
	case DoorLowerForward:
		return []byte("\"lower_forward\""), nil
	case DoorLowerAft:
		return []byte("\"lower_aft\""), nil
	case DoorBulk:
		return []byte("\"bulk\""), nil
	default:
		return nil, fmt.Errorf("unhandled door kind in MarshalJSON()")
	}
}

func (d *DoorKind) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"nose\"":
		*d = DoorNose
		return nil

	case "\"side\"":
		*d = DoorSide
		return nil

	case "\"lower_forward\"":
		*d = DoorLowerForward
		return nil

	case "\"lower_aft\"":
		*d = DoorLowerAft
		return nil

	case "\"bulk\"":
		*d = DoorBulk
		return nil

	default:
		return fmt.Errorf("%s: unknown door kind", string(b))
	}
}

///////////////////////////////////////////////////////////////////////////
// FlightPhase

type FlightPhase int

const (
	PhaseZeroFuel FlightPhase = iota
	PhaseTakeoff
	PhaseLanding
)

func (p FlightPhase) String() string {
	return []string{"zero_fuel", "takeoff", "landing"}[p]
}

func (p FlightPhase) MarshalJSON() ([]byte, error) {
	switch p {
	case PhaseZeroFuel:
		return []byte("\"zero_fuel\""), nil
	case PhaseTakeoff:
		return []byte("\"takeoff\""), nil
	case PhaseLanding:
		return []byte("\"landing\""), nil
	default:
		return nil, fmt.Errorf("unhandled flight phase in MarshalJSON()")
	}
}

func (p *FlightPhase) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"zero_fuel\"":
		*p = PhaseZeroFuel
		return nil

	case "\"takeoff\"":
		*p = PhaseTakeoff
		return nil

	case "\"landing\"":
		*p = PhaseLanding
		return nil

	default:
		return fmt.Errorf("%s: unknown flight phase", string(b))
	}
}

///////////////////////////////////////////////////////////////////////////
// HandlingClass

type HandlingClass int

const (
	HandlingGeneral HandlingClass = iota
	HandlingPerishable
	HandlingHazmat
	HandlingPriority
	HandlingMail
)

func (h HandlingClass) String() string {
	return []string{"general", "perishable", "hazmat", "priority", "mail"}[h]
}

func (h HandlingClass) MarshalJSON() ([]byte, error) {
	switch h {
	case HandlingGeneral:
		return []byte("\"general\""), nil
	case HandlingPerishable:
		return []byte("\"perishable\""), nil
	case HandlingHazmat:
		return []byte("\"hazmat\""), nil
	case HandlingPriority:
		return []byte("\"priority\""), nil
	case HandlingMail:
		return []byte("\"mail\""), nil
	default:
		return nil, fmt.Errorf("unhandled handling class in MarshalJSON()")
	}
}

func (h *HandlingClass) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"general\"", "\"\"", "null":
		*h = HandlingGeneral
		return nil

	case "\"perishable\"":
		*h = HandlingPerishable
		return nil

	case "\"hazmat\"":
		*h = HandlingHazmat
		return nil

	case "\"priority\"":
		*h = HandlingPriority
		return nil

	case "\"mail\"":
		*h = HandlingMail
		return nil

	default:
		return fmt.Errorf("%s: unknown handling class", string(b))
	}
}

///////////////////////////////////////////////////////////////////////////
// HandlingFlag

// HandlingFlag carries per-shipment handling annotations; they don't
// affect placement legality but are passed through to loadsheets.
type HandlingFlag int

const (
	FlagTopLoadOnly HandlingFlag = iota + 1
	FlagDoNotStack
	FlagKeepUpright
	FlagLiveAnimals
)

func (f HandlingFlag) String() string {
	switch f {
	case FlagTopLoadOnly:
		return "top_load_only"
	case FlagDoNotStack:
		return "do_not_stack"
	case FlagKeepUpright:
		return "keep_upright"
	case FlagLiveAnimals:
		return "live_animals"
	default:
		return "unknown"
	}
}

func (f HandlingFlag) MarshalJSON() ([]byte, error) {
	switch f {
	case FlagTopLoadOnly:
		return []byte("\"top_load_only\""), nil
	case FlagDoNotStack:
		return []byte("\"do_not_stack\""), nil
	case FlagKeepUpright:
		return []byte("\"keep_upright\""), nil
	case FlagLiveAnimals:
		return []byte("\"live_animals\""), nil
	default:
		return nil, fmt.Errorf("unhandled handling flag in MarshalJSON()")
	}
}

func (f *HandlingFlag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"top_load_only\"":
		*f = FlagTopLoadOnly
		return nil

	case "\"do_not_stack\"":
		*f = FlagDoNotStack
		return nil

	case "\"keep_upright\"":
		*f = FlagKeepUpright
		return nil

	case "\"live_animals\"":
		*f = FlagLiveAnimals
		return nil

	default:
		return fmt.Errorf("%s: unknown handling flag", string(b))
	}
}
