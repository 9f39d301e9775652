// plan/loadsheet.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package plan

import (
	"fmt"
	"strings"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"
)

// Loadsheet renders the plan as a plain text load and trim summary: the
// document the loadmaster reads against the aircraft. Positions are
// grouped into the template's hold group sections, in template order.
func (p *Plan) Loadsheet() string {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	physics := wb.Compute(p.positions, p.stations, p.fuel, p.cfg)
	validations := wb.ValidateResult(physics, p.cfg)

	var sb strings.Builder
	fmt.Fprintf(&sb, "LOADSHEET %s\n", p.cfg.FullName)
	fmt.Fprintf(&sb, "Flight %s  Aircraft %s  Route %s\n\n",
		orDash(p.flight), p.cfg.Name, orDash(strings.Join(p.route, "-")))

	p.writePositionSections(&sb)
	p.writeStations(&sb)

	fmt.Fprintf(&sb, "FUEL\n  Block %8.0f kg   Trip burn %8.0f kg\n\n",
		p.fuel.TotalKg, p.fuel.TripBurnKg)

	writeTotals(&sb, physics, p.cfg)
	writeEnvelopes(&sb, validations)
	p.writeUnplaced(&sb)
	p.writeNotes(&sb)

	return sb.String()
}

func (p *Plan) writePositionSections(sb *strings.Builder) {
	covered := make(map[string]bool)
	for _, section := range p.cfg.HoldGroups.Keys() {
		ids, ok := p.cfg.HoldGroups.GetStrings(section)
		if !ok {
			continue
		}
		fmt.Fprintf(sb, "%s\n", strings.ToUpper(section))
		for _, id := range ids {
			covered[id] = true
			if idx := wb.PositionIndex(p.positions, id); idx != -1 {
				writePositionLine(sb, p.positions[idx])
			}
		}
		sb.WriteString("\n")
	}

	var rest []wb.LoadedPosition
	for _, lp := range p.positions {
		if !covered[lp.Position.ID] {
			rest = append(rest, lp)
		}
	}
	if len(rest) > 0 {
		sb.WriteString("POSITIONS\n")
		for _, lp := range rest {
			writePositionLine(sb, lp)
		}
		sb.WriteString("\n")
	}
}

func writePositionLine(sb *strings.Builder, lp wb.LoadedPosition) {
	if lp.Item == nil {
		fmt.Fprintf(sb, "  %-4s  (empty)\n", lp.Position.ID)
		return
	}
	it := lp.Item
	fmt.Fprintf(sb, "  %-4s  %-10s %-13s %-4s %8.0f kg  arm %7.1f%s\n",
		lp.Position.ID, it.ID, orDash(it.AWB), orDash(it.ULD), it.WeightKg,
		lp.Position.ArmIn, util.Select(it.MustFly, "  MUST FLY", ""))
}

func (p *Plan) writeStations(sb *strings.Builder) {
	if len(p.stations) == 0 {
		return
	}
	sb.WriteString("STATIONS\n")
	for _, sl := range p.stations {
		fmt.Fprintf(sb, "  %-20s %8.0f kg  arm %7.1f\n",
			sl.Station.Name, sl.WeightKg, sl.Station.ArmIn)
	}
	sb.WriteString("\n")
}

func writeTotals(sb *strings.Builder, physics wb.PhysicsResult, cfg *aviation.Config) {
	sb.WriteString("TOTALS\n")
	sb.WriteString("              WEIGHT KG   LIMIT KG    CG IN    %MAC\n")
	for _, row := range []struct {
		name    string
		res     wb.PhaseResult
		limitKg float64
	}{
		{"Zero fuel", physics.ZeroFuel, cfg.Limits.MaxZeroFuelKg},
		{"Takeoff", physics.Takeoff, cfg.Limits.MaxTakeoffKg},
		{"Landing", physics.Landing, cfg.Limits.MaxLandingKg},
	} {
		over := ""
		if row.res.WeightKg > row.limitKg {
			over = "  ** OVER LIMIT **"
		}
		fmt.Fprintf(sb, "  %-10s %10.0f %10.0f %8.1f %7.2f%s\n",
			row.name, row.res.WeightKg, row.limitKg, row.res.CGStationIn,
			row.res.CGPercentMAC, over)
	}

	fmt.Fprintf(sb, "\n  Static CG band %.2f - %.2f %%MAC", physics.ForwardLimitPercentMAC,
		physics.AftLimitPercentMAC)
	if physics.Unbalanced {
		sb.WriteString("  ** TAKEOFF CG OUT OF BAND **")
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Total moment %.0f kg-in\n", physics.TotalMomentKgIn)
	fmt.Fprintf(sb, "  Lateral imbalance %.0f kg\n\n", physics.LateralImbalanceKg)
}

func writeEnvelopes(sb *strings.Builder, validations []wb.PhaseValidation) {
	sb.WriteString("ENVELOPE\n")
	for _, v := range validations {
		verdict := util.Select(v.Valid, "within limits", "** OUTSIDE LIMITS **")
		fmt.Fprintf(sb, "  %-10s %-21s (%.2f - %.2f %%MAC)\n",
			v.Phase, verdict, v.ForwardLimitPercentMAC, v.AftLimitPercentMAC)
	}
	sb.WriteString("\n")
}

func (p *Plan) writeUnplaced(sb *strings.Builder) {
	if len(p.pool) == 0 {
		return
	}
	sb.WriteString("UNPLACED\n")
	for _, it := range p.pool {
		fmt.Fprintf(sb, "  %-10s %-13s %8.0f kg  -> %s%s\n",
			it.ID, orDash(it.AWB), it.WeightKg, orDash(it.Destination),
			util.Select(it.MustFly, "  MUST FLY", ""))
	}
	sb.WriteString("\n")
}

// writeNotes lists the special handling of everything aboard; flags
// don't constrain placement but the ramp crew needs them on the sheet.
func (p *Plan) writeNotes(sb *strings.Builder) {
	var notes []string
	for _, lp := range p.positions {
		if lp.Item == nil {
			continue
		}
		if note := itemNote(lp.Item); note != "" {
			notes = append(notes, fmt.Sprintf("%s at %s: %s", lp.Item.ID, lp.Position.ID, note))
		}
	}
	if len(notes) == 0 {
		return
	}
	sb.WriteString("NOTES\n")
	for _, n := range notes {
		wrapped, _ := util.WrapText(n, 70, 4, true, false)
		fmt.Fprintf(sb, "  %s\n", wrapped)
	}
}

func itemNote(it *aviation.CargoItem) string {
	var parts []string
	if it.Handling != aviation.HandlingGeneral {
		parts = append(parts, it.Handling.String())
	}
	for _, f := range it.Flags {
		parts = append(parts, f.String())
	}
	if it.Description != "" && len(parts) > 0 {
		parts = append(parts, it.Description)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
