// Package testutil builds synthetic .sut containers, stamp images, keyed
// archives and Seed.brush templates for tests.
package testutil

import (
	"bytes"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"howett.net/plist"
	_ "modernc.org/sqlite"
)

// ContainerPrefix stands in for the proprietary header that precedes the
// embedded database in a real .sut file.
var ContainerPrefix = []byte("CSFCHUNK\x00\x00\x00\x00\x00\x00\x00\x28CHNKHead\x00\x00\x00\x00")

// Row describes one MaterialFile row.
type Row struct {
	ID   int64
	Blob []byte
}

// PNG returns an encoded w×h RGBA image with a dark, partly transparent disc.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	cx, cy := w/2, h/2
	r := min(w, h) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// Blob wraps a PNG the way a MaterialFile row does: a metadata prefix
// (which may itself contain marker-like bytes), the PNG, then trailing bytes.
func Blob(pngData []byte) []byte {
	var b bytes.Buffer
	b.WriteString("CSP_LAYER\x00\x01PNGish-header\x00")
	b.Write(pngData)
	b.WriteString("\x00\x00trailer")
	return b.Bytes()
}

// Container builds a .sut-like byte stream: ContainerPrefix followed by a
// complete SQLite database holding the given MaterialFile rows and a single
// Variant row. A nil variant creates the Variant table with no rows.
func Container(t *testing.T, rows []Row, variant map[string]any) []byte {
	t.Helper()
	data := Database(t, rows, variant)
	return append(append([]byte{}, ContainerPrefix...), data...)
}

// Database builds a standalone SQLite file and returns its bytes.
func Database(t *testing.T, rows []Row, variant map[string]any) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.sqlite")
	database, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}

	mustExec(t, database, `CREATE TABLE MaterialFile (_PW_ID INTEGER PRIMARY KEY, FileData BLOB)`)
	for _, r := range rows {
		mustExec(t, database, `INSERT INTO MaterialFile (_PW_ID, FileData) VALUES (?, ?)`, r.ID, r.Blob)
	}

	keys := make([]string, 0, len(variant))
	for k := range variant {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := []string{"_PW_ID INTEGER PRIMARY KEY"}
	for _, k := range keys {
		cols = append(cols, fmt.Sprintf("%s %s", k, sqlType(variant[k])))
	}
	mustExec(t, database, fmt.Sprintf(`CREATE TABLE Variant (%s)`, strings.Join(cols, ", ")))

	if variant != nil {
		names := append([]string{"_PW_ID"}, keys...)
		marks := make([]string, len(names))
		args := []any{int64(1)}
		for i := range names {
			marks[i] = "?"
		}
		for _, k := range keys {
			args = append(args, variant[k])
		}
		mustExec(t, database, fmt.Sprintf(`INSERT INTO Variant (%s) VALUES (%s)`,
			strings.Join(names, ", "), strings.Join(marks, ", ")), args...)
	}

	if err := database.Close(); err != nil {
		t.Fatalf("close fixture db: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture db: %v", err)
	}
	return data
}

func sqlType(v any) string {
	switch v.(type) {
	case float32, float64:
		return "REAL"
	case string:
		return "TEXT"
	case []byte:
		return "BLOB"
	default:
		return "INTEGER"
	}
}

func mustExec(t *testing.T, database *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := database.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// ArchiveOption mutates the keyed-archive root before it is encoded.
type ArchiveOption func(objects []any) []any

// KeyedArchive returns a binary NSKeyedArchiver-style property list shaped
// like a Procreate Brush.archive. Slot layout:
//
//	0 "$null"
//	1 brush record (name → 2, creationDate → 3, behaviour fields)
//	2 "Template Brush"
//	3 NSDate record {NS.time: 0}
//	4 NSDate class record
//	5 second behaviour record (plotSpacing, dynamicsMix duplicated)
//	6 brush class record
func KeyedArchive(t *testing.T, opts ...ArchiveOption) []byte {
	t.Helper()
	objects := KeyedObjects()
	for _, opt := range opts {
		objects = opt(objects)
	}
	root := map[string]any{
		"$archiver": "NSKeyedArchiver",
		"$version":  100000,
		"$top":      map[string]any{"root": plist.UID(1)},
		"$objects":  objects,
	}
	data, err := plist.Marshal(root, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("plist.Marshal: %v", err)
	}
	return data
}

// KeyedObjects returns the default $objects slot table used by KeyedArchive.
func KeyedObjects() []any {
	return []any{
		"$null",
		map[string]any{
			"$class":                     plist.UID(6),
			"name":                       plist.UID(2),
			"creationDate":               plist.UID(3),
			"plotSpacing":                0.5,
			"plotJitter":                 0.0,
			"minSize":                    0.1,
			"maxSize":                    1.0,
			"maxOpacity":                 0.5,
			"shapeRotation":              0.0,
			"shapeRandomise":             true,
			"shapeScatter":               0.3,
			"shapeFlipXJitter":           true,
			"taperPressure":              0.4,
			"pencilTaperStartLength":     0.9,
			"pencilTaperEndLength":       0.9,
			"renderingMaxTransfer":       false,
			"renderingModulatedTransfer": true,
			"renderingRecursiveMixing":   true,
			"dynamicsMix":                0.9,
			"dynamicsLoad":               0.1,
			"dynamicsPressureMix":        0.0,
			"dynamicsWetAccumulation":    0.9,
			"shapeAzimuth":               false,
			"shapeRoll":                  false,
			"shapeRollMode":              0,
			"shapeOrientation":           0,
			"untouchedField":             "keep-me",
		},
		"Template Brush",
		map[string]any{"$class": plist.UID(4), "NS.time": 0.0},
		map[string]any{"$classname": "NSDate", "$classes": []any{"NSDate", "NSObject"}},
		map[string]any{"plotSpacing": 0.25, "dynamicsMix": 0.5},
		map[string]any{"$classname": "SilicaBrush", "$classes": []any{"SilicaBrush", "NSObject"}},
	}
}

// TemplateZip returns a Seed.brush archive holding the given Brush.archive,
// a placeholder Shape.png and an unrelated member that must survive copying.
func TemplateZip(t *testing.T, archive []byte) []byte {
	t.Helper()
	return Zip(t, map[string][]byte{
		"Brush.archive":  archive,
		"Shape.png":      PNG(t, 8, 8),
		"Reset/Note.txt": []byte("seed"),
	})
}

// Zip packs files into an in-memory zip (sorted by name).
func Zip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("zip create %s: %v", n, err)
		}
		if _, err := w.Write(files[n]); err != nil {
			t.Fatalf("zip write %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// Unzip reads every member of a zip file on disk.
func Unzip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return UnzipBytes(t, data)
}

// UnzipBytes reads every member of an in-memory zip.
func UnzipBytes(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		var b bytes.Buffer
		if _, err := b.ReadFrom(rc); err != nil {
			rc.Close()
			t.Fatalf("read %s: %v", f.Name, err)
		}
		rc.Close()
		out[f.Name] = b.Bytes()
	}
	return out
}

// WriteFile writes data under dir and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// DecodeArchive decodes a keyed archive into its $objects slot table.
func DecodeArchive(t *testing.T, data []byte) []any {
	t.Helper()
	var root map[string]any
	if _, err := plist.Unmarshal(data, &root); err != nil {
		t.Fatalf("plist.Unmarshal: %v", err)
	}
	objects, ok := root["$objects"].([]any)
	if !ok {
		t.Fatalf("$objects missing or not an array")
	}
	return objects
}
