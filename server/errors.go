// server/errors.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"

	"github.com/Embraer145/LoadMaster-Ai-sub001/plan"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
)

var (
	ErrDuplicatePlanName    = errors.New("A plan with that name already exists")
	ErrInvalidManifest      = errors.New("Invalid manifest")
	ErrInvalidOptimizeMode  = errors.New("Invalid optimize mode")
	ErrNoNamedPlan          = errors.New("No plan with that name")
	ErrNoPlanForToken       = errors.New("No plan for that token")
	ErrRPCVersionMismatch   = errors.New("Client and server RPC versions don't match")
	ErrServerDisconnected   = errors.New("Server disconnected")
	ErrUnknownAircraftType  = errors.New("No aircraft template with that type code")
	ErrUnknownAutosavedPlan = errors.New("No autosaved plan with that name")
)

var errorStringToError = map[string]error{
	plan.ErrAircraftMismatch.Error():      plan.ErrAircraftMismatch,
	plan.ErrDestinationNotOnRoute.Error(): plan.ErrDestinationNotOnRoute,
	plan.ErrDuplicateItem.Error():         plan.ErrDuplicateItem,
	plan.ErrIncompatiblePlacement.Error(): plan.ErrIncompatiblePlacement,
	plan.ErrInvalidFuelState.Error():      plan.ErrInvalidFuelState,
	plan.ErrInvalidHeight.Error():         plan.ErrInvalidHeight,
	plan.ErrInvalidWeight.Error():         plan.ErrInvalidWeight,
	plan.ErrItemPlaced.Error():            plan.ErrItemPlaced,
	plan.ErrPositionEmpty.Error():         plan.ErrPositionEmpty,
	plan.ErrPositionOccupied.Error():      plan.ErrPositionOccupied,
	plan.ErrUnknownItem.Error():           plan.ErrUnknownItem,
	plan.ErrUnknownPosition.Error():       plan.ErrUnknownPosition,
	plan.ErrUnknownStation.Error():        plan.ErrUnknownStation,

	util.ErrRPCTimeout.Error(): util.ErrRPCTimeout,

	ErrDuplicatePlanName.Error():    ErrDuplicatePlanName,
	ErrInvalidManifest.Error():      ErrInvalidManifest,
	ErrInvalidOptimizeMode.Error():  ErrInvalidOptimizeMode,
	ErrNoNamedPlan.Error():          ErrNoNamedPlan,
	ErrNoPlanForToken.Error():       ErrNoPlanForToken,
	ErrRPCVersionMismatch.Error():   ErrRPCVersionMismatch,
	ErrServerDisconnected.Error():   ErrServerDisconnected,
	ErrUnknownAircraftType.Error():  ErrUnknownAircraftType,
	ErrUnknownAutosavedPlan.Error(): ErrUnknownAutosavedPlan,
}

// TryDecodeError rewrites an error that came over an RPC connection, where
// only its string survives, back to the matching sentinel so that callers
// can test against the package error values.
func TryDecodeError(e error) error {
	if e == nil {
		return e
	}
	if err, ok := errorStringToError[e.Error()]; ok {
		return err
	}
	return e
}

func TryDecodeErrorString(s string) error {
	if err, ok := errorStringToError[s]; ok {
		return err
	}
	return nil
}
