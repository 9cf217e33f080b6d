package brush

// Destination field names in Brush.archive.
const (
	KeyPlotSpacing                = "plotSpacing"
	KeyMinSize                    = "minSize"
	KeyMaxSize                    = "maxSize"
	KeyMaxOpacity                 = "maxOpacity"
	KeyShapeRotation              = "shapeRotation"
	KeyShapeRandomise             = "shapeRandomise"
	KeyShapeScatter               = "shapeScatter"
	KeyShapeFlipXJitter           = "shapeFlipXJitter"
	KeyPlotJitter                 = "plotJitter"
	KeyTaperPressure              = "taperPressure"
	KeyTaperStartLength           = "pencilTaperStartLength"
	KeyTaperEndLength             = "pencilTaperEndLength"
	KeyRenderingMaxTransfer       = "renderingMaxTransfer"
	KeyRenderingModulatedTransfer = "renderingModulatedTransfer"
	KeyRenderingRecursiveMixing   = "renderingRecursiveMixing"
	KeyDynamicsMix                = "dynamicsMix"
	KeyDynamicsLoad               = "dynamicsLoad"
	KeyDynamicsPressureMix        = "dynamicsPressureMix"
	KeyDynamicsWetAccumulation    = "dynamicsWetAccumulation"
	KeyShapeAzimuth               = "shapeAzimuth"
	KeyShapeRoll                  = "shapeRoll"
	KeyShapeRollMode              = "shapeRollMode"
	KeyShapeOrientation           = "shapeOrientation"
)

// Fixed size and opacity ranges applied to every converted brush.
const (
	DefaultMinSize    = 0.02
	DefaultMaxSize    = 3.0
	DefaultMaxOpacity = 1.0
)

// Source enumerations.
const (
	// PatternOrderRandom is the BrushPatternOrderType value that enables flip and scatter.
	PatternOrderRandom = 3
	// EffectorAzimuthRoll is the BrushRotationEffector value that follows pen direction.
	EffectorAzimuthRoll = 3
)

// Taper holds start/end taper lengths, emitted only when CSP enables in/out taper.
type Taper struct {
	StartLength float64 `json:"start_length"`
	EndLength   float64 `json:"end_length"`
}

// Params is the full set of Procreate behaviour parameters derived from one
// Variant row. All stamps converted from one source share the same Params.
type Params struct {
	Spacing        float64   `json:"plot_spacing"`
	MinSize        float64   `json:"min_size"`
	MaxSize        float64   `json:"max_size"`
	MaxOpacity     float64   `json:"max_opacity"`
	Rotation       float64   `json:"shape_rotation"`
	Randomise      bool      `json:"shape_randomise"`
	Scatter        float64   `json:"shape_scatter"`
	FlipXJitter    bool      `json:"shape_flip_x_jitter"`
	Jitter         float64   `json:"plot_jitter"`
	TaperPressure  float64   `json:"taper_pressure"`
	Taper          *Taper    `json:"taper,omitempty"`
	Rendering      Rendering `json:"rendering"`
	WetMix         WetMix    `json:"wet_mix"`
	AngleSensitive bool      `json:"angle_sensitive"`
}

// Map derives Params from a Variant row.
func Map(v Variant) Params {
	size := v.Float(FieldSize, 1)
	interval := v.Float(FieldInterval, 0)
	useWater := v.Bool(FieldUseWaterColor, false)
	mixColor := v.Float(FieldMixColor, 0)
	mixAlpha := v.Float(FieldMixAlpha, 0)
	flow := v.Float(FieldFlow, 100)
	randomOrder := v.Int(FieldPatternOrderType, 0) == PatternOrderRandom

	p := Params{
		Spacing:     Spacing(size, interval),
		MinSize:     DefaultMinSize,
		MaxSize:     DefaultMaxSize,
		MaxOpacity:  DefaultMaxOpacity,
		Rotation:    v.Float(FieldRotation, 0),
		Randomise:   sprayRotationRandomised(v),
		FlipXJitter: randomOrder,
		Jitter:      v.Float(FieldRevision, 0) / 100 * 2,
		Rendering:   ClassifyRendering(useWater, mixColor, mixAlpha, flow),
		WetMix:      ComputeWetMix(useWater, mixColor, mixAlpha, flow),

		AngleSensitive: v.Int(FieldRotationEffector, 0) == EffectorAzimuthRoll,
	}
	if randomOrder {
		p.Scatter = v.Float(FieldRotationRandomScale, 0) / 100
	}
	if v.Bool(FieldUseIn, false) || v.Bool(FieldUseOut, false) {
		p.Taper = &Taper{
			StartLength: v.Float(FieldInLength, 0) / 100 / 4,
			EndLength:   v.Float(FieldOutLength, 0) / 100 / 2,
		}
	}
	return p
}

// sprayRotationRandomised is true only when spray is on, spray rotation is on
// and its randomness is non-zero.
func sprayRotationRandomised(v Variant) bool {
	return v.Bool(FieldUseSpray, false) &&
		v.Bool(FieldRotationInSpray, false) &&
		v.Float(FieldRotationRandomInSpray, 0) != 0
}

// Values flattens Params into destination field name → value. Gated fields
// (taper lengths, angle sensitivity) are present only when enabled.
func (p Params) Values() map[string]any {
	vals := map[string]any{
		KeyPlotSpacing:                p.Spacing,
		KeyMinSize:                    p.MinSize,
		KeyMaxSize:                    p.MaxSize,
		KeyMaxOpacity:                 p.MaxOpacity,
		KeyShapeRotation:              p.Rotation,
		KeyShapeRandomise:             p.Randomise,
		KeyShapeScatter:               p.Scatter,
		KeyShapeFlipXJitter:           p.FlipXJitter,
		KeyPlotJitter:                 p.Jitter,
		KeyTaperPressure:              p.TaperPressure,
		KeyRenderingMaxTransfer:       p.Rendering.MaxTransfer,
		KeyRenderingModulatedTransfer: p.Rendering.ModulatedTransfer,
		KeyRenderingRecursiveMixing:   p.Rendering.RecursiveMixing,
		KeyDynamicsMix:                p.WetMix.Dilution,
		KeyDynamicsLoad:               p.WetMix.Charge,
		KeyDynamicsPressureMix:        p.WetMix.Attack,
		KeyDynamicsWetAccumulation:    p.WetMix.Pull,
	}
	if p.Taper != nil {
		vals[KeyTaperStartLength] = p.Taper.StartLength
		vals[KeyTaperEndLength] = p.Taper.EndLength
	}
	if p.AngleSensitive {
		vals[KeyShapeAzimuth] = true
		vals[KeyShapeRoll] = true
		vals[KeyShapeRollMode] = int64(1)
		vals[KeyShapeOrientation] = int64(1)
	}
	return vals
}
