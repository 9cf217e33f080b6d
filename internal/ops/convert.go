package ops

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/brushport/internal/brush"
	"github.com/hpungsan/brushport/internal/bundle"
	"github.com/hpungsan/brushport/internal/config"
	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/stamp"
)

// ConvertInput contains parameters for the Convert operation.
type ConvertInput struct {
	Source       string // required, .sut path
	OutDir       string // required, created on demand
	TemplatePath string // resolved template path; ignored when Template is set
	Template     *bundle.Template

	TmpDir string           // staging dir for the embedded store, default os.TempDir()
	Now    func() time.Time // default time.Now
	Logger *slog.Logger
	Out    io.Writer // receives one "✓ built" line per brush; nil discards
}

// BrushResult describes one destination bundle.
type BrushResult struct {
	Index     int       `json:"index"`
	RowID     int64     `json:"row_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
	Unmatched []string  `json:"unmatched_fields,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// OK reports whether the bundle was written.
func (r BrushResult) OK() bool { return r.Error == "" }

// ConvertOutput contains the result of the Convert operation.
type ConvertOutput struct {
	RunID     string          `json:"run_id"`
	Source    string          `json:"source"`
	OutDir    string          `json:"out_dir"`
	Template  string          `json:"template,omitempty"`
	Params    brush.Params    `json:"params"`
	Brushes   []BrushResult   `json:"brushes"`
	Skipped   []stamp.Skipped `json:"skipped,omitempty"`
	Built     int             `json:"built"`
	Failed    int             `json:"failed"`
	StampsDir string          `json:"stamps_dir,omitempty"`
	Brushset  string          `json:"brushset,omitempty"`
}

// Convert turns one .sut container into Procreate brushes: one .brush per
// extracted stamp, plus a .brushset when more than one brush was built.
//
// Row failures are skipped with a warning. Bundle failures are recorded in
// the output and never stop sibling bundles. The staged store is removed on
// every exit path. An error is returned only for run-scope failures, or when
// every bundle failed.
func Convert(ctx context.Context, cfg *config.Config, input ConvertInput) (*ConvertOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := loggerOr(input.Logger)
	now := input.Now
	if now == nil {
		now = time.Now
	}
	out := input.Out
	if out == nil {
		out = io.Discard
	}
	if input.OutDir == "" {
		return nil, errors.NewInvalidRequest("output directory is required")
	}

	runID := newRunID(now())
	logger = logger.With("run_id", runID)

	tmpl := input.Template
	if tmpl == nil {
		if input.TemplatePath == "" {
			return nil, errors.NewInvalidTemplate("template path is required", nil)
		}
		var err error
		tmpl, err = bundle.LoadTemplate(input.TemplatePath)
		if err != nil {
			return nil, err
		}
	}

	src, err := openSource(ctx, input.Source, input.TmpDir, logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	images, skipped, err := stamp.Demux(src.rows, logger)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.NewNoConvertibleAssets(len(src.rows))
	}

	params := brush.Map(src.variant)
	values := params.Values()
	stem := SourceStem(input.Source)

	if err := os.MkdirAll(input.OutDir, dirPerm); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create output directory: %w", err))
	}

	output := &ConvertOutput{
		RunID:    runID,
		Source:   input.Source,
		OutDir:   input.OutDir,
		Template: tmpl.Path,
		Params:   params,
		Skipped:  skipped,
	}

	if !cfg.SkipStamps {
		dir, err := dumpStamps(filepath.Join(input.OutDir, stem), images)
		if err != nil {
			return nil, err
		}
		output.StampsDir = dir
	}

	results := make([]BrushResult, len(images))
	bundles := make([]*bundle.Bundle, len(images))

	var g errgroup.Group
	g.SetLimit(max(cfg.Workers, 1))
	for i, im := range images {
		g.Go(func() error {
			file, display := BrushName(stem, i, len(images))
			res := BrushResult{Index: i, RowID: im.RowID, Name: display}
			defer func() { results[i] = res }()

			if err := ctx.Err(); err != nil {
				res.Error = err.Error()
				return nil
			}

			built, err := tmpl.Build(bundle.BuildInput{
				Image:           im,
				Name:            display,
				Values:          values,
				Timestamp:       now(),
				ThumbnailWidth:  cfg.ThumbnailWidth,
				ThumbnailHeight: cfg.ThumbnailHeight,
			})
			if err == nil {
				path := filepath.Join(input.OutDir, file)
				err = built.Bundle.WriteFile(path, cfg.CompressionLevel)
				res.Path = path
			}
			if err != nil {
				res.Path = ""
				res.Error = err.Error()
				logger.Warn("bundle failed", "index", i, "row_id", im.RowID, "error", err)
				return nil
			}

			res.BuiltAt = now()
			res.Unmatched = built.Report.Missing(values)
			bundles[i] = built.Bundle
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	set := bundle.NewSet(stem)
	for _, res := range results {
		if !res.OK() {
			output.Failed++
			if firstErr == nil {
				firstErr = errors.NewBundleFailed(res.Index, fmt.Errorf("%s", res.Error))
			}
			continue
		}
		output.Built++
		set.Add(bundles[res.Index])
		fmt.Fprintf(out, "✓ built %s [%s]\n", filepath.Base(res.Path), res.BuiltAt.Format("15:04:05"))
	}
	output.Brushes = results

	if output.Built == 0 {
		return output, errors.NewNoBundlesBuilt(output.Failed, firstErr)
	}

	if output.Built > 1 {
		path := filepath.Join(input.OutDir, stem+bundle.BrushsetExt)
		if err := set.WriteFile(path, cfg.CompressionLevel); err != nil {
			logger.Warn("brushset not written", "path", path, "error", err)
		} else {
			output.Brushset = path
			fmt.Fprintf(out, "✓ built %s [%s]\n", filepath.Base(path), now().Format("15:04:05"))
		}
	}

	logger.Info("conversion finished",
		"built", output.Built,
		"failed", output.Failed,
		"skipped_rows", len(skipped))
	return output, nil
}

// dumpStamps writes every extracted stamp as a standalone PNG under dir.
func dumpStamps(dir string, images []stamp.Image) (string, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create stamps directory: %w", err))
	}
	for _, im := range images {
		payload := stamp.Complete(im.Payload)
		err := bundle.WriteAtomic(filepath.Join(dir, im.Name()), func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		})
		if err != nil {
			return "", err
		}
	}
	return dir, nil
}

func newRunID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
