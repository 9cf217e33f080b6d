package ops

import (
	"context"
	"log/slog"
	"sort"

	"github.com/hpungsan/brushport/internal/brush"
	"github.com/hpungsan/brushport/internal/bundle"
	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/stamp"
)

// InspectInput contains parameters for the Inspect operation.
type InspectInput struct {
	Source       string // required, .sut path
	TemplatePath string // optional; when set the template is checked against the mapped fields
	TmpDir       string
	Logger       *slog.Logger
}

// ImageInfo describes one extractable stamp.
type ImageInfo struct {
	Index  int    `json:"index"`
	RowID  int64  `json:"row_id"`
	Name   string `json:"name"`
	Bytes  int    `json:"bytes"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Error  string `json:"decode_error,omitempty"`
}

// TemplateInfo summarises the destination template.
type TemplateInfo struct {
	Path      string   `json:"path"`
	Name      string   `json:"name,omitempty"`
	Members   []string `json:"members"`
	Slots     int      `json:"slots"`
	Unmatched []string `json:"unmatched_fields,omitempty"`
}

// InspectOutput is a dry run of Convert: what would be extracted and how it
// would be mapped, without writing anything.
type InspectOutput struct {
	Source         string          `json:"source"`
	ContainerBytes int             `json:"container_bytes"`
	StoreOffset    int             `json:"store_offset"`
	StoreBytes     int             `json:"store_bytes"`
	Rows           int             `json:"rows"`
	Images         []ImageInfo     `json:"images"`
	Skipped        []stamp.Skipped `json:"skipped,omitempty"`
	Variant        map[string]any  `json:"variant"`
	Params         brush.Params    `json:"params"`
	Values         map[string]any  `json:"values"`
	Template       *TemplateInfo   `json:"template,omitempty"`
}

// ValueKeys returns the mapped destination keys, sorted.
func (o *InspectOutput) ValueKeys() []string {
	keys := make([]string, 0, len(o.Values))
	for k := range o.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// VariantKeys returns the source field names, sorted.
func (o *InspectOutput) VariantKeys() []string {
	keys := make([]string, 0, len(o.Variant))
	for k := range o.Variant {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Inspect reads a .sut container and reports its stamps and mapped
// parameters. A store with no asset rows is reported, not rejected.
func Inspect(ctx context.Context, input InspectInput) (*InspectOutput, error) {
	logger := loggerOr(input.Logger)

	src, err := openSource(ctx, input.Source, input.TmpDir, logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	params := brush.Map(src.variant)
	output := &InspectOutput{
		Source:         input.Source,
		ContainerBytes: src.size,
		StoreOffset:    src.store.Offset,
		StoreBytes:     src.store.Size,
		Rows:           len(src.rows),
		Images:         []ImageInfo{},
		Variant:        variantForReport(src.variant),
		Params:         params,
		Values:         params.Values(),
	}

	images, skipped, err := stamp.Demux(src.rows, logger)
	if err != nil && !errors.Is(err, errors.ErrNoAssetRows) {
		return nil, err
	}
	output.Skipped = skipped
	for _, im := range images {
		info := ImageInfo{Index: im.Index, RowID: im.RowID, Name: im.Name(), Bytes: len(im.Payload)}
		if img, err := im.Decode(); err != nil {
			info.Error = err.Error()
		} else {
			info.Width, info.Height = img.Bounds().Dx(), img.Bounds().Dy()
		}
		output.Images = append(output.Images, info)
	}

	if input.TemplatePath != "" {
		info, err := inspectTemplate(input.TemplatePath, output.Values)
		if err != nil {
			return nil, err
		}
		output.Template = info
	}

	return output, nil
}

func inspectTemplate(path string, values map[string]any) (*TemplateInfo, error) {
	tmpl, err := bundle.LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	graph, err := tmpl.Graph()
	if err != nil {
		return nil, err
	}

	info := &TemplateInfo{
		Path:    path,
		Name:    tmpl.Name,
		Members: tmpl.Members(),
		Slots:   graph.Len(),
	}
	for k := range values {
		if _, ok, _ := graph.Lookup(k); !ok {
			info.Unmatched = append(info.Unmatched, k)
		}
	}
	sort.Strings(info.Unmatched)
	return info, nil
}

// variantForReport renders blob columns as their length so the record stays
// printable.
func variantForReport(v brush.Variant) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		if b, ok := val.([]byte); ok {
			out[k] = len(b)
			continue
		}
		out[k] = val
	}
	return out
}
