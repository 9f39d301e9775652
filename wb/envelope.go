// wb/envelope.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wb

import (
	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/math"
)

// EnvelopeResult reports whether a (weight, CG) point sits inside the
// phase envelope, along with the interpolated limits at that weight.
type EnvelopeResult struct {
	Valid                  bool    `json:"valid"`
	ForwardLimitPercentMAC float64 `json:"forward_limit_percent_mac"`
	AftLimitPercentMAC     float64 `json:"aft_limit_percent_mac"`
}

// limitAt interpolates a boundary curve at the given weight. Outside the
// curve's weight domain the nearest endpoint's limit applies, so the
// validator stays total over any weight a caller produces.
func limitAt(curve []aviation.EnvelopePoint, weightKg float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	if weightKg <= curve[0].WeightKg {
		return curve[0].CGPercentMAC
	}
	for i := 1; i < len(curve); i++ {
		if weightKg <= curve[i].WeightKg {
			t := (weightKg - curve[i-1].WeightKg) / (curve[i].WeightKg - curve[i-1].WeightKg)
			return math.Lerp(t, curve[i-1].CGPercentMAC, curve[i].CGPercentMAC)
		}
	}
	return curve[len(curve)-1].CGPercentMAC
}

// ValidateEnvelope checks one phase's (weight, CG) point against that
// phase's envelope. A point exactly on a limit line is valid. Each phase
// is judged only against its own envelope.
func ValidateEnvelope(weightKg, cgPercentMAC float64, env *aviation.Envelope) EnvelopeResult {
	fwd := limitAt(env.Forward, weightKg)
	aft := limitAt(env.Aft, weightKg)
	return EnvelopeResult{
		Valid:                  cgPercentMAC >= fwd && cgPercentMAC <= aft,
		ForwardLimitPercentMAC: fwd,
		AftLimitPercentMAC:     aft,
	}
}

// PhaseValidation is the envelope verdict for one flight phase.
type PhaseValidation struct {
	Phase aviation.FlightPhase `json:"phase"`
	EnvelopeResult
}

// ValidateResult runs each phase of a physics result against the
// aircraft's envelopes. Phases without an envelope fall back to the
// static certificate limits, applied uniformly across weight.
func ValidateResult(res PhysicsResult, cfg *aviation.Config) []PhaseValidation {
	static := aviation.Envelope{
		Forward: []aviation.EnvelopePoint{{WeightKg: 0, CGPercentMAC: cfg.StaticCG.ForwardPercentMAC}},
		Aft:     []aviation.EnvelopePoint{{WeightKg: 0, CGPercentMAC: cfg.StaticCG.AftPercentMAC}},
	}

	var out []PhaseValidation
	for _, pr := range []struct {
		phase aviation.FlightPhase
		res   PhaseResult
	}{
		{aviation.PhaseZeroFuel, res.ZeroFuel},
		{aviation.PhaseTakeoff, res.Takeoff},
		{aviation.PhaseLanding, res.Landing},
	} {
		env := cfg.Envelopes.Phase(pr.phase)
		if env == nil {
			env = &static
		}
		out = append(out, PhaseValidation{
			Phase:          pr.phase,
			EnvelopeResult: ValidateEnvelope(pr.res.WeightKg, pr.res.CGPercentMAC, env),
		})
	}
	return out
}
