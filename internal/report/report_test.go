package report

import (
	"strings"
	"testing"

	"github.com/hpungsan/brushport/internal/brush"
	"github.com/hpungsan/brushport/internal/ops"
	"github.com/hpungsan/brushport/internal/stamp"
)

func sampleInspect() *ops.InspectOutput {
	params := brush.Map(brush.Variant{brush.FieldSize: int64(40), brush.FieldInterval: int64(4)})
	return &ops.InspectOutput{
		Source:         "/tmp/My|Pencil.sut",
		ContainerBytes: 123456,
		StoreOffset:    24,
		StoreBytes:     123432,
		Rows:           2,
		Images: []ops.ImageInfo{
			{Index: 0, RowID: 7, Name: "stamp_00.png", Bytes: 2048, Width: 64, Height: 32},
		},
		Skipped: []stamp.Skipped{{RowID: 8, Error: "MALFORMED_ASSET_BLOB: row 8: end marker not found"}},
		Variant: map[string]any{brush.FieldSize: int64(40), "BrushNote": nil},
		Params:  params,
		Values:  params.Values(),
		Template: &ops.TemplateInfo{
			Path:      "Seed.brush",
			Name:      "Template Brush",
			Members:   []string{"Brush.archive", "Shape.png"},
			Slots:     7,
			Unmatched: []string{"plotJitter"},
		},
	}
}

func TestInspectMarkdown(t *testing.T) {
	md := InspectMarkdown(sampleInspect())

	for _, want := range []string{
		`# My\|Pencil.sut`,
		"| Container bytes | 123,456 |",
		"| 0 | 7 | `stamp_00.png` | 2,048 | 64×32 |",
		"- row 8: MALFORMED_ASSET_BLOB",
		"Mode **light**",
		"| `plotSpacing` | 0.015 |",
		"| `BrushNote` | NULL |",
		"- `plotJitter`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestInspectMarkdown_Empty(t *testing.T) {
	md := InspectMarkdown(&ops.InspectOutput{Source: "empty.sut", Values: map[string]any{}})
	if !strings.Contains(md, "_No extractable stamps._") {
		t.Error("expected empty stamps note")
	}
	if !strings.Contains(md, "_No variant record; defaults applied._") {
		t.Error("expected empty variant note")
	}
	if strings.Contains(md, "## Template") || strings.Contains(md, "## Skipped rows") {
		t.Error("optional sections should be omitted")
	}
}

func TestConvertMarkdown(t *testing.T) {
	md := ConvertMarkdown(&ops.ConvertOutput{
		RunID:  "01ABC",
		Source: "pencil.sut",
		Built:  1,
		Failed: 1,
		Brushes: []ops.BrushResult{
			{Index: 0, Name: "pencil 1", Path: "/out/pencil_1.brush"},
			{Index: 1, Name: "pencil 2", Error: "BUNDLE_FAILED: bundle 1: bad png"},
		},
	})

	for _, want := range []string{
		"Run `01ABC`: 1 built, 1 failed, 0 rows skipped.",
		"| 0 | pencil 1 | `pencil_1.brush` | built |",
		"failed: BUNDLE_FAILED",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestHTML(t *testing.T) {
	html, err := HTML("pencil <report>", InspectMarkdown(sampleInspect()))
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	out := string(html)

	for _, want := range []string{"<!DOCTYPE html>", "<title>pencil &lt;report&gt;</title>", "<table>", "<h2>Stamps</h2>", "<strong>light</strong>"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		if got := formatCount(tt.n); got != tt.want {
			t.Errorf("formatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
