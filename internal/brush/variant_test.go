package brush

import "testing"

func TestVariant_Float(t *testing.T) {
	v := Variant{
		"f64":   float64(2.5),
		"f32":   float32(1.5),
		"i64":   int64(7),
		"int":   3,
		"u64":   uint64(9),
		"true":  true,
		"false": false,
		"str":   " 4.25 ",
		"bytes": []byte("12"),
		"junk":  "abc",
		"null":  nil,
		"zero":  int64(0),
	}

	tests := []struct {
		field string
		want  float64
	}{
		{"f64", 2.5},
		{"f32", 1.5},
		{"i64", 7},
		{"int", 3},
		{"u64", 9},
		{"true", 1},
		{"false", 0},
		{"str", 4.25},
		{"bytes", 12},
		{"junk", -1},
		{"null", -1},
		{"missing", -1},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := v.Float(tt.field, -1); got != tt.want {
				t.Errorf("Float(%q) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestVariant_IntAndBool(t *testing.T) {
	v := Variant{"order": int64(3), "real": 2.9, "on": int64(1), "off": int64(0)}

	if got := v.Int("order", 0); got != 3 {
		t.Errorf("Int(order) = %d, want 3", got)
	}
	if got := v.Int("real", 0); got != 2 {
		t.Errorf("Int(real) = %d, want 2", got)
	}
	if got := v.Int("missing", 5); got != 5 {
		t.Errorf("Int(missing) = %d, want 5", got)
	}
	if !v.Bool("on", false) {
		t.Error("Bool(on) = false, want true")
	}
	if v.Bool("off", true) {
		t.Error("Bool(off) = true, want false (present zero wins over default)")
	}
	if !v.Bool("missing", true) {
		t.Error("Bool(missing) should fall back to default")
	}
}

func TestVariant_Has(t *testing.T) {
	v := Variant{"set": int64(0), "null": nil}
	if !v.Has("set") {
		t.Error("Has(set) = false, want true")
	}
	if v.Has("null") || v.Has("missing") {
		t.Error("Has should be false for NULL and missing fields")
	}
}
