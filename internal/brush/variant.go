// Package brush translates Clip Studio sub-tool variant settings into
// Procreate brush parameters.
//
// Every function here is pure. Missing or NULL source fields never fail; they
// fall back to the documented default for that field.
package brush

import (
	"strconv"
	"strings"
)

// Source field names read from the Variant table.
const (
	FieldSize                  = "BrushSize"
	FieldInterval              = "BrushInterval"
	FieldFlow                  = "BrushFlow"
	FieldMixColor              = "BrushMixColor"
	FieldMixAlpha              = "BrushMixAlpha"
	FieldUseWaterColor         = "BrushUseWaterColor"
	FieldRotation              = "BrushRotation"
	FieldUseSpray              = "BrushUseSpray"
	FieldRotationInSpray       = "BrushRotationInSpray"
	FieldRotationRandomInSpray = "BrushRotationRandomInSpray"
	FieldPatternOrderType      = "BrushPatternOrderType"
	FieldRotationRandomScale   = "BrushRotationRandomScale"
	FieldRevision              = "BrushRevision"
	FieldUseIn                 = "BrushUseIn"
	FieldUseOut                = "BrushUseOut"
	FieldInLength              = "BrushInLength"
	FieldOutLength             = "BrushOutLength"
	FieldRotationEffector      = "BrushRotationEffector"
)

// Variant is one row of the source Variant table, keyed by column name.
type Variant map[string]any

// Float returns the named field as a float64, or def when it is absent, NULL
// or not numeric.
func (v Variant) Float(name string, def float64) float64 {
	switch x := v[name].(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	case []byte:
		if f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the named field truncated to an int64, or def.
func (v Variant) Int(name string, def int64) int64 {
	if x, ok := v[name].(int64); ok {
		return x
	}
	return int64(v.Float(name, float64(def)))
}

// Bool returns true when the named field is a non-zero number, or def.
func (v Variant) Bool(name string, def bool) bool {
	d := 0.0
	if def {
		d = 1
	}
	return v.Float(name, d) != 0
}

// Has reports whether the field is present and not NULL.
func (v Variant) Has(name string) bool {
	val, ok := v[name]
	return ok && val != nil
}
