package brush

import "math"

// Spacing bounds.
const (
	MinSpacing = 0.01
	MaxSpacing = 1.0
)

// sizeFudge is the spacing multiplier for a brush size in pixels. Larger
// brushes tolerate proportionally wider spacing.
func sizeFudge(size float64) float64 {
	switch {
	case size < 50:
		return 0.15
	case size < 100:
		return 0.3
	default:
		return 0.6
	}
}

// Spacing converts a CSP stamp interval (pixels) at a given brush size into
// Procreate's normalised plotSpacing.
func Spacing(size, interval float64) float64 {
	if size <= 0 {
		return MinSpacing
	}
	raw := interval / math.Max(size, 1e-6)
	return clamp(raw*sizeFudge(size), MinSpacing, MaxSpacing)
}

// RenderMode names one of Procreate's glaze/blend rendering presets.
type RenderMode string

const (
	RenderLightGlaze   RenderMode = "light"
	RenderIntenseGlaze RenderMode = "intense"
	RenderHeavyGlaze   RenderMode = "heavy"
	RenderUniform      RenderMode = "uniform"
)

// Rendering is the rendering-mode flag triple plus the preset it came from.
type Rendering struct {
	Mode              RenderMode `json:"mode"`
	MaxTransfer       bool       `json:"max_transfer"`
	ModulatedTransfer bool       `json:"modulated_transfer"`
	RecursiveMixing   bool       `json:"recursive_mixing"`
}

// Thresholds on the 0-1 scale.
const (
	mixGate      = 0.05
	mixIntense   = 0.75
	flowHeavyMin = 0.8
)

// ClassifyRendering picks a rendering mode from CSP mixing settings given on
// their native 0-100 scale.
func ClassifyRendering(useWaterColor bool, mixColor, mixAlpha, flow float64) Rendering {
	mc, ma, nf := normalize(mixColor), normalize(mixAlpha), normalize(flow)

	if !useWaterColor && mc <= mixGate && ma <= mixGate {
		return Rendering{Mode: RenderLightGlaze, MaxTransfer: true}
	}

	switch {
	case mc >= mixIntense || ma >= mixIntense:
		return Rendering{Mode: RenderIntenseGlaze, MaxTransfer: true, ModulatedTransfer: true, RecursiveMixing: true}
	case nf > flowHeavyMin:
		return Rendering{Mode: RenderHeavyGlaze, MaxTransfer: true, RecursiveMixing: true}
	default:
		return Rendering{Mode: RenderUniform, ModulatedTransfer: true, RecursiveMixing: true}
	}
}

// WetMix holds Procreate's wet-mix dynamics.
type WetMix struct {
	Dilution float64 `json:"dilution"`
	Charge   float64 `json:"charge"`
	Attack   float64 `json:"attack"`
	Pull     float64 `json:"pull"`
}

const (
	wetCap       = 0.7
	wetGamma     = 0.75
	wetAlphaPush = 0.2
	minCharge    = 0.2
	waterPull    = 0.6
	dilutionGate = 0.5
)

// ComputeWetMix maps CSP colour-mixing settings (0-100 scale) onto wet-mix
// dilution, charge, attack and pull.
func ComputeWetMix(useWaterColor bool, mixColor, mixAlpha, flow float64) WetMix {
	nc, na, nf := normalize(mixColor), normalize(mixAlpha), normalize(flow)

	dilution := 0.0
	if useWaterColor || nc >= dilutionGate {
		flowBrake := 0.5 + 0.5*(1.0-nf)
		dilution = math.Min(wetCap, math.Pow(nc, wetGamma)*wetCap*flowBrake+wetAlphaPush*na*wetCap)
	}

	pull := 0.0
	if useWaterColor {
		pull = waterPull
	}

	return WetMix{
		Dilution: dilution,
		Charge:   math.Max(minCharge, 1.0-dilution),
		Attack:   1.0 - 0.5*na,
		Pull:     pull,
	}
}

// normalize maps a 0-100 value onto [0, 1].
func normalize(v float64) float64 {
	return clamp(v/100.0, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
