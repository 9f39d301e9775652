// server/dispatcher.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"bytes"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"
)

// dispatcher carries the per-plan RPCs, registered under the "Plan"
// service name. Every method takes a plan token that LookupPlan resolves
// to the plan a client is signed on to.
type dispatcher struct {
	pm *PlanManager
}

const GetStateUpdateRPC = "Plan.GetStateUpdate"

func (pd *dispatcher) GetStateUpdate(token string, update *PlanStateUpdate) error {
	// The methods in this file are called from the RPC dispatcher, which
	// spawns up goroutines as needed to handle requests, so if we want to
	// catch and report panics, all of the methods need to start like this...
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(token)
	if c == nil {
		return ErrNoPlanForToken
	}
	*update = c.GetStateUpdate()
	return nil
}

const SignOffRPC = "Plan.SignOff"

func (pd *dispatcher) SignOff(token string, _ *struct{}) error {
	defer pd.pm.lg.CatchAndReportCrash()

	return pd.pm.SignOff(token)
}

type ImportManifestArgs struct {
	PlanToken string
	Manifest  aviation.Manifest
}

const ImportManifestRPC = "Plan.ImportManifest"

func (pd *dispatcher) ImportManifest(args *ImportManifestArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}

	// The manifest arrives as a parsed struct, so the loader's validation
	// and ULD backfill haven't run; do that here before it reaches the plan.
	var e util.ErrorLogger
	args.Manifest.PostDeserialize(&e)
	if e.HaveErrors() {
		pd.pm.lg.Errorf("%s: invalid manifest:\n%s", args.Manifest.Flight, e.String())
		return ErrInvalidManifest
	}

	err := c.plan.ImportManifest(&args.Manifest)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type AddItemArgs struct {
	PlanToken string
	Item      aviation.CargoItem
}

const AddItemRPC = "Plan.AddItem"

func (pd *dispatcher) AddItem(args *AddItemArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.AddItem(&args.Item)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type DeleteItemArgs struct {
	PlanToken string
	ItemID    string
}

const DeleteItemRPC = "Plan.DeleteItem"

func (pd *dispatcher) DeleteItem(args *DeleteItemArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.DeleteItem(args.ItemID)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type UpdateItemWeightArgs struct {
	PlanToken string
	ItemID    string
	WeightKg  float64
}

const UpdateItemWeightRPC = "Plan.UpdateItemWeight"

func (pd *dispatcher) UpdateItemWeight(args *UpdateItemWeightArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.UpdateItemWeight(args.ItemID, args.WeightKg)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type SetItemHeightArgs struct {
	PlanToken string
	ItemID    string
	HeightIn  *float64
}

const SetItemHeightRPC = "Plan.SetItemHeight"

func (pd *dispatcher) SetItemHeight(args *SetItemHeightArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.SetItemHeight(args.ItemID, args.HeightIn)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type SetMustFlyArgs struct {
	PlanToken string
	ItemID    string
	MustFly   bool
}

const SetMustFlyRPC = "Plan.SetMustFly"

func (pd *dispatcher) SetMustFly(args *SetMustFlyArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.SetMustFly(args.ItemID, args.MustFly)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type SetFuelArgs struct {
	PlanToken string
	Fuel      wb.FuelState
}

const SetFuelRPC = "Plan.SetFuel"

func (pd *dispatcher) SetFuel(args *SetFuelArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.SetFuel(args.Fuel)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type SetStationWeightArgs struct {
	PlanToken string
	Station   string
	WeightKg  float64
}

const SetStationWeightRPC = "Plan.SetStationWeight"

func (pd *dispatcher) SetStationWeight(args *SetStationWeightArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.SetStationWeight(args.Station, args.WeightKg)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type PlaceArgs struct {
	PlanToken         string
	ItemID            string
	PositionID        string
	OverrideDoorCheck bool
}

const PlaceRPC = "Plan.Place"

func (pd *dispatcher) Place(args *PlaceArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.Place(args.ItemID, args.PositionID,
		wb.CheckOptions{OverrideDoorCheck: args.OverrideDoorCheck})
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

type RemoveArgs struct {
	PlanToken  string
	PositionID string
}

const RemoveRPC = "Plan.Remove"

func (pd *dispatcher) Remove(args *RemoveArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	err := c.plan.Remove(args.PositionID)
	if err == nil {
		*update = c.GetStateUpdate()
	}
	return err
}

const ClearRPC = "Plan.Clear"

func (pd *dispatcher) Clear(token string, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(token)
	if c == nil {
		return ErrNoPlanForToken
	}
	c.plan.Clear()
	*update = c.GetStateUpdate()
	return nil
}

type PreviewArgs struct {
	PlanToken  string
	ItemID     string
	PositionID string
}

const PreviewRPC = "Plan.Preview"

// Preview reports the physics the plan would have with the given item at
// the given position, without touching the plan.
func (pd *dispatcher) Preview(args *PreviewArgs, result *wb.PhysicsResult) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	res, err := c.plan.Preview(args.ItemID, args.PositionID)
	if err == nil {
		*result = res
	}
	return err
}

const GetLoadsheetRPC = "Plan.GetLoadsheet"

func (pd *dispatcher) GetLoadsheet(token string, result *string) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(token)
	if c == nil {
		return ErrNoPlanForToken
	}
	*result = c.plan.Loadsheet()
	return nil
}

type StartOptimizeArgs struct {
	PlanToken string
	Mode      wb.OptimizeMode
}

const StartOptimizeRPC = "Plan.StartOptimize"

func (pd *dispatcher) StartOptimize(args *StartOptimizeArgs, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(args.PlanToken)
	if c == nil {
		return ErrNoPlanForToken
	}
	if args.Mode < wb.ModeSafety || args.Mode > wb.ModeUnloadEfficiency {
		return ErrInvalidOptimizeMode
	}
	c.plan.StartOptimize(args.Mode)
	*update = c.GetStateUpdate()
	return nil
}

const StopOptimizeRPC = "Plan.StopOptimize"

func (pd *dispatcher) StopOptimize(token string, update *PlanStateUpdate) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(token)
	if c == nil {
		return ErrNoPlanForToken
	}
	c.plan.StopOptimize()
	*update = c.GetStateUpdate()
	return nil
}

const GetSerializedPlanRPC = "Plan.GetSerializedPlan"

// GetSerializedPlan returns the plan in its save format so clients can
// keep their own copies.
func (pd *dispatcher) GetSerializedPlan(token string, result *[]byte) error {
	defer pd.pm.lg.CatchAndReportCrash()

	c := pd.pm.LookupPlan(token)
	if c == nil {
		return ErrNoPlanForToken
	}

	var buf bytes.Buffer
	if err := c.plan.Save(&buf); err != nil {
		return err
	}
	*result = buf.Bytes()
	return nil
}
