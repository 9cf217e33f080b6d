package ops

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/hpungsan/brushport/internal/brush"
	"github.com/hpungsan/brushport/internal/bundle"
	"github.com/hpungsan/brushport/internal/config"
	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/testutil"
)

var fixedNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	dir      string
	source   string
	template string
	outDir   string
	tmpDir   string
}

func newFixture(t *testing.T, rows []testutil.Row, variant map[string]any) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		source:   testutil.WriteFile(t, dir, "pencil.sut", testutil.Container(t, rows, variant)),
		template: testutil.WriteFile(t, dir, "Seed.brush", testutil.TemplateZip(t, testutil.KeyedArchive(t))),
		outDir:   filepath.Join(dir, "out"),
		tmpDir:   filepath.Join(dir, "staging"),
	}
	require.NoError(t, os.MkdirAll(f.tmpDir, 0755))
	return f
}

func (f *fixture) input(out io.Writer) ConvertInput {
	return ConvertInput{
		Source:       f.source,
		OutDir:       f.outDir,
		TemplatePath: f.template,
		TmpDir:       f.tmpDir,
		Now:          func() time.Time { return fixedNow },
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:          out,
	}
}

func (f *fixture) requireStagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tmpDir)
	require.NoError(t, err)
	require.Empty(t, entries, "staged store was not removed")
}

func goodRow(t *testing.T, id int64) testutil.Row {
	return testutil.Row{ID: id, Blob: testutil.Blob(testutil.PNG(t, 32, 16))}
}

func TestConvert_SingleRow(t *testing.T) {
	f := newFixture(t, []testutil.Row{goodRow(t, 1)}, map[string]any{
		brush.FieldSize:     int64(40),
		brush.FieldInterval: int64(4),
		brush.FieldFlow:     int64(900),
		brush.FieldMixColor: int64(0),
	})
	var out bytes.Buffer

	res, err := Convert(context.Background(), config.DefaultConfig(), f.input(&out))
	require.NoError(t, err)
	f.requireStagingEmpty(t)

	require.Equal(t, 1, res.Built)
	require.Zero(t, res.Failed)
	require.Empty(t, res.Brushset)
	require.NotEmpty(t, res.RunID)
	require.Equal(t, "✓ built pencil.brush [12:00:00]\n", out.String())

	brushPath := filepath.Join(f.outDir, "pencil.brush")
	require.Equal(t, brushPath, res.Brushes[0].Path)
	require.Equal(t, "pencil", res.Brushes[0].Name)
	require.Empty(t, res.Brushes[0].Unmatched)

	files := testutil.Unzip(t, brushPath)
	require.Contains(t, files, bundle.ShapeName)
	require.Contains(t, files, bundle.ThumbnailName)
	require.Equal(t, "pencil", string(files[bundle.TitleName]))
	require.Equal(t, "seed", string(files["Reset/Note.txt"]))

	objects := testutil.DecodeArchive(t, files[bundle.ArchiveName])
	require.Equal(t, "pencil", objects[2])
	rec := objects[1].(map[string]any)
	require.InDelta(t, 0.015, rec["plotSpacing"], 1e-9)
	require.Equal(t, 0.0, rec["dynamicsMix"])
	require.Equal(t, true, rec["renderingMaxTransfer"])
	require.Equal(t, false, rec["renderingModulatedTransfer"])
	require.Equal(t, false, rec["renderingRecursiveMixing"])
	require.Equal(t, "keep-me", rec["untouchedField"])

	stampPath := filepath.Join(f.outDir, "pencil", "stamp_00.png")
	require.Equal(t, filepath.Dir(stampPath), res.StampsDir)
	data, err := os.ReadFile(stampPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, err = os.Stat(filepath.Join(f.outDir, "pencil.brushset"))
	require.True(t, os.IsNotExist(err), "single brush must not produce a brushset")
}

func TestConvert_ZeroRows(t *testing.T) {
	f := newFixture(t, nil, map[string]any{brush.FieldSize: int64(10)})

	_, err := Convert(context.Background(), config.DefaultConfig(), f.input(nil))
	require.True(t, errors.Is(err, errors.ErrNoAssetRows), "got %v", err)
	require.Equal(t, errors.ScopeRun, errors.ScopeOf(err))

	_, statErr := os.Stat(f.outDir)
	require.True(t, os.IsNotExist(statErr), "no output should be produced")
	f.requireStagingEmpty(t)
}

func TestConvert_AllRowsMalformed(t *testing.T) {
	f := newFixture(t, []testutil.Row{
		{ID: 1, Blob: []byte("nothing here")},
		{ID: 2, Blob: []byte("PNG at the very start IEND")},
	}, nil)

	_, err := Convert(context.Background(), config.DefaultConfig(), f.input(nil))
	require.True(t, errors.Is(err, errors.ErrNoAssetRows), "got %v", err)

	_, statErr := os.Stat(f.outDir)
	require.True(t, os.IsNotExist(statErr))
	f.requireStagingEmpty(t)
}

func TestConvert_SignatureNotFound(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.source = testutil.WriteFile(t, f.dir, "bogus.sut", []byte("just some bytes with no database"))

	_, err := Convert(context.Background(), config.DefaultConfig(), f.input(nil))
	require.True(t, errors.Is(err, errors.ErrSignatureNotFound), "got %v", err)
	f.requireStagingEmpty(t)
}

func TestConvert_InvalidTemplate(t *testing.T) {
	f := newFixture(t, []testutil.Row{goodRow(t, 1)}, nil)
	f.template = testutil.WriteFile(t, f.dir, "Broken.brush", testutil.Zip(t, map[string][]byte{"Shape.png": {0}}))

	_, err := Convert(context.Background(), config.DefaultConfig(), f.input(nil))
	require.True(t, errors.Is(err, errors.ErrInvalidTemplate), "got %v", err)
	f.requireStagingEmpty(t)

	_, statErr := os.Stat(f.outDir)
	require.True(t, os.IsNotExist(statErr))
}

func TestConvert_MultipleRowsWithSkip(t *testing.T) {
	f := newFixture(t, []testutil.Row{
		goodRow(t, 1),
		{ID: 2, Blob: []byte("corrupt")},
		goodRow(t, 3),
	}, map[string]any{brush.FieldSize: 80.0, brush.FieldInterval: 20.0})
	var out bytes.Buffer

	res, err := Convert(context.Background(), config.DefaultConfig(), f.input(&out))
	require.NoError(t, err)

	require.Equal(t, 2, res.Built)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, int64(2), res.Skipped[0].RowID)
	require.Equal(t, "✓ built pencil_1.brush [12:00:00]\n✓ built pencil_2.brush [12:00:00]\n✓ built pencil.brushset [12:00:00]\n", out.String())

	for i, name := range []string{"pencil 1", "pencil 2"} {
		require.Equal(t, name, res.Brushes[i].Name)
		files := testutil.Unzip(t, res.Brushes[i].Path)
		require.Equal(t, name, string(files[bundle.TitleName]))
		require.Equal(t, name, testutil.DecodeArchive(t, files[bundle.ArchiveName])[2])
	}
	require.Equal(t, int64(3), res.Brushes[1].RowID)

	for _, stampName := range []string{"stamp_00.png", "stamp_01.png"} {
		_, err := os.Stat(filepath.Join(f.outDir, "pencil", stampName))
		require.NoError(t, err)
	}

	require.Equal(t, filepath.Join(f.outDir, "pencil.brushset"), res.Brushset)
	set := testutil.Unzip(t, res.Brushset)
	var m bundle.Manifest
	_, err = plist.Unmarshal(set[bundle.ManifestName], &m)
	require.NoError(t, err)
	require.Equal(t, "pencil", m.Name)
	require.Len(t, m.Brushes, 2)
	for _, id := range m.Brushes {
		require.Contains(t, set, id+"/"+bundle.ArchiveName)
		require.Contains(t, set, id+"/"+bundle.ShapeName)
	}
	f.requireStagingEmpty(t)
}

func TestConvert_BundleFailureIsolated(t *testing.T) {
	f := newFixture(t, []testutil.Row{
		goodRow(t, 1),
		{ID: 2, Blob: []byte("xPNG-not-really-an-image-IEND")},
	}, nil)

	res, err := Convert(context.Background(), config.DefaultConfig(), f.input(nil))
	require.NoError(t, err)
	require.Equal(t, 1, res.Built)
	require.Equal(t, 1, res.Failed)
	require.True(t, res.Brushes[0].OK())
	require.False(t, res.Brushes[1].OK())
	require.Empty(t, res.Brushset)

	_, statErr := os.Stat(filepath.Join(f.outDir, "pencil_2.brush"))
	require.True(t, os.IsNotExist(statErr))
}

func TestConvert_AllBundlesFail(t *testing.T) {
	f := newFixture(t, []testutil.Row{{ID: 1, Blob: []byte("xPNG-junk-IEND")}}, nil)

	res, err := Convert(context.Background(), config.DefaultConfig(), f.input(nil))
	require.True(t, errors.Is(err, errors.ErrBundleFailed), "got %v", err)
	require.Equal(t, errors.ScopeRun, errors.ScopeOf(err))
	require.NotNil(t, res)
	require.Equal(t, 1, res.Failed)
	f.requireStagingEmpty(t)
}

func TestConvert_SkipStampsAndWorkers(t *testing.T) {
	rows := make([]testutil.Row, 6)
	for i := range rows {
		rows[i] = goodRow(t, int64(i+1))
	}
	f := newFixture(t, rows, nil)

	cfg := config.DefaultConfig()
	cfg.SkipStamps = true
	cfg.Workers = 2
	cfg.CompressionLevel = 1

	res, err := Convert(context.Background(), cfg, f.input(nil))
	require.NoError(t, err)
	require.Equal(t, 6, res.Built)
	require.Empty(t, res.StampsDir)

	_, statErr := os.Stat(filepath.Join(f.outDir, "pencil"))
	require.True(t, os.IsNotExist(statErr))
	for i, b := range res.Brushes {
		require.Equal(t, i, b.Index)
		require.Equal(t, int64(i+1), b.RowID)
	}
}

func TestConvert_Cancelled(t *testing.T) {
	f := newFixture(t, []testutil.Row{goodRow(t, 1), goodRow(t, 2)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Convert(ctx, config.DefaultConfig(), f.input(nil))
	require.Error(t, err)
	f.requireStagingEmpty(t)
}

func TestConvert_RequiresOutDir(t *testing.T) {
	f := newFixture(t, []testutil.Row{goodRow(t, 1)}, nil)
	in := f.input(nil)
	in.OutDir = ""

	_, err := Convert(context.Background(), nil, in)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
