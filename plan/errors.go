// plan/errors.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package plan

import "errors"

var (
	ErrAircraftMismatch      = errors.New("Manifest is for a different aircraft type")
	ErrDestinationNotOnRoute = errors.New("Destination is not a stop on the route")
	ErrDuplicateItem         = errors.New("An item with that id is already in the plan")
	ErrIncompatiblePlacement = errors.New("Item is incompatible with that position")
	ErrInvalidFuelState      = errors.New("Invalid fuel state")
	ErrInvalidHeight         = errors.New("Invalid height")
	ErrInvalidWeight         = errors.New("Invalid weight")
	ErrItemPlaced            = errors.New("Item is already loaded at a position")
	ErrPositionEmpty         = errors.New("No item is loaded at that position")
	ErrPositionOccupied      = errors.New("Position is already occupied")
	ErrUnknownItem           = errors.New("No item in the plan with that id")
	ErrUnknownPosition       = errors.New("No position with that id")
	ErrUnknownStation        = errors.New("No station with that name")
)
