// Package bundle loads the Seed.brush template and builds, packs and groups
// Procreate .brush archives.
package bundle

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// Member names inside a .brush archive.
const (
	ArchiveName   = "Brush.archive"
	ShapeName     = "Shape.png"
	ThumbnailName = "QuickLook/Thumbnail.png"
	TitleName     = "Title.txt"
)

// File extensions.
const (
	BrushExt    = ".brush"
	BrushsetExt = ".brushset"
)

// Bundle is an in-memory file tree. Names keep their insertion order so
// packing is deterministic.
type Bundle struct {
	names []string
	files map[string][]byte
}

// New returns an empty Bundle.
func New() *Bundle {
	return &Bundle{files: make(map[string][]byte)}
}

// Set adds or replaces a member.
func (b *Bundle) Set(name string, data []byte) {
	if _, ok := b.files[name]; !ok {
		b.names = append(b.names, name)
	}
	b.files[name] = data
}

// Get returns a member's contents.
func (b *Bundle) Get(name string) ([]byte, bool) {
	data, ok := b.files[name]
	return data, ok
}

// Names returns member names in insertion order.
func (b *Bundle) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of members.
func (b *Bundle) Len() int { return len(b.names) }

// Pack writes the bundle as a zip archive. level is a deflate level; 0
// selects the default.
func (b *Bundle) Pack(w io.Writer, level int) error {
	zw := newZipWriter(w, level)
	if err := b.addTo(zw, ""); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// WriteFile packs the bundle to path atomically.
func (b *Bundle) WriteFile(path string, level int) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return b.Pack(w, level)
	})
}

func (b *Bundle) addTo(zw *zip.Writer, prefix string) error {
	for _, name := range b.names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: prefix + name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("zip %s: %w", prefix+name, err)
		}
		if _, err := w.Write(b.files[name]); err != nil {
			return fmt.Errorf("zip %s: %w", prefix+name, err)
		}
	}
	return nil
}

func newZipWriter(w io.Writer, level int) *zip.Writer {
	if level == 0 {
		level = flate.DefaultCompression
	}
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return zw
}
