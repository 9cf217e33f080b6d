// Package report renders inspection and conversion results as Markdown or
// standalone HTML.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/brushport/internal/ops"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: .25rem .6rem; text-align: left; }
code { background: #f4f4f4; padding: 0 .2rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// InspectMarkdown renders an inspection result as GitHub-flavoured Markdown.
func InspectMarkdown(out *ops.InspectOutput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escape(filepath.Base(out.Source)))

	table(&b, []string{"Property", "Value"}, [][]string{
		{"Container bytes", formatCount(out.ContainerBytes)},
		{"Store offset", formatCount(out.StoreOffset)},
		{"Store bytes", formatCount(out.StoreBytes)},
		{"Asset rows", formatCount(out.Rows)},
		{"Stamps", formatCount(len(out.Images))},
		{"Skipped rows", formatCount(len(out.Skipped))},
	})

	b.WriteString("## Stamps\n\n")
	if len(out.Images) == 0 {
		b.WriteString("_No extractable stamps._\n\n")
	} else {
		rows := make([][]string, 0, len(out.Images))
		for _, im := range out.Images {
			size := fmt.Sprintf("%d×%d", im.Width, im.Height)
			if im.Error != "" {
				size = "undecodable: " + im.Error
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", im.Index),
				fmt.Sprintf("%d", im.RowID),
				"`" + im.Name + "`",
				formatCount(im.Bytes),
				size,
			})
		}
		table(&b, []string{"#", "Row", "File", "Bytes", "Size"}, rows)
	}

	if len(out.Skipped) > 0 {
		b.WriteString("## Skipped rows\n\n")
		for _, s := range out.Skipped {
			fmt.Fprintf(&b, "- row %d: %s\n", s.RowID, escape(s.Error))
		}
		b.WriteString("\n")
	}

	r := out.Params.Rendering
	b.WriteString("## Rendering\n\n")
	fmt.Fprintf(&b, "Mode **%s**: max transfer %s, modulated transfer %s, recursive mixing %s.\n\n",
		r.Mode, onOff(r.MaxTransfer), onOff(r.ModulatedTransfer), onOff(r.RecursiveMixing))

	b.WriteString("## Brush parameters\n\n")
	table(&b, []string{"Field", "Value"}, keyValueRows(out.ValueKeys(), out.Values))

	b.WriteString("## Source variant\n\n")
	if len(out.Variant) == 0 {
		b.WriteString("_No variant record; defaults applied._\n\n")
	} else {
		table(&b, []string{"Field", "Value"}, keyValueRows(out.VariantKeys(), out.Variant))
	}

	if t := out.Template; t != nil {
		b.WriteString("## Template\n\n")
		table(&b, []string{"Property", "Value"}, [][]string{
			{"Path", "`" + t.Path + "`"},
			{"Name", escape(t.Name)},
			{"Members", escape(strings.Join(t.Members, ", "))},
			{"Slots", formatCount(t.Slots)},
		})
		if len(t.Unmatched) > 0 {
			b.WriteString("Fields with no destination in the template:\n\n")
			for _, k := range t.Unmatched {
				fmt.Fprintf(&b, "- `%s`\n", k)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// ConvertMarkdown renders a conversion summary.
func ConvertMarkdown(out *ops.ConvertOutput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escape(filepath.Base(out.Source)))
	fmt.Fprintf(&b, "Run `%s`: %d built, %d failed, %d rows skipped.\n\n", out.RunID, out.Built, out.Failed, len(out.Skipped))

	rows := make([][]string, 0, len(out.Brushes))
	for _, br := range out.Brushes {
		status := "built"
		if !br.OK() {
			status = "failed: " + br.Error
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", br.Index),
			escape(br.Name),
			"`" + filepath.Base(br.Path) + "`",
			escape(status),
		})
	}
	table(&b, []string{"#", "Name", "File", "Status"}, rows)

	if out.Brushset != "" {
		fmt.Fprintf(&b, "Brushset: `%s`\n\n", filepath.Base(out.Brushset))
	}
	if out.StampsDir != "" {
		fmt.Fprintf(&b, "Stamps: `%s`\n\n", out.StampsDir)
	}
	return b.String()
}

// HTML renders Markdown into a standalone HTML page.
func HTML(title, md string) ([]byte, error) {
	var body bytes.Buffer
	if err := parser().Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func table(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, r := range rows {
		b.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func keyValueRows(keys []string, values map[string]any) [][]string {
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{"`" + k + "`", escape(formatValue(values[k]))})
	}
	return rows
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return fmt.Sprintf("%.4g", x)
	case float32:
		return fmt.Sprintf("%.4g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// escape keeps table cells intact.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// formatCount formats an integer with comma thousands separators.
func formatCount(n int) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
