package bundle

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"

	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/keyed"
)

// Template is a loaded, validated Seed.brush. It is read-only and safe to
// share between goroutines; every bundle gets its own copy via Instantiate.
type Template struct {
	Path    string
	Name    string // display name stored in the template archive, if any
	members *Bundle
}

// LoadTemplate reads and validates the template archive at path.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInvalidTemplate(fmt.Sprintf("cannot read template %s", path), err)
	}
	t, err := ParseTemplate(data)
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}

// ParseTemplate validates an in-memory template archive. It requires
// Brush.archive and Shape.png and checks that every reference in the
// archive resolves.
func ParseTemplate(data []byte) (*Template, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.NewInvalidTemplate("template is not a zip archive", err)
	}

	members := New()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		content, err := readMember(f)
		if err != nil {
			return nil, errors.NewInvalidTemplate(fmt.Sprintf("cannot read template member %s", f.Name), err)
		}
		members.Set(f.Name, content)
	}

	for _, required := range []string{ArchiveName, ShapeName} {
		if _, ok := members.Get(required); !ok {
			return nil, errors.NewInvalidTemplate(fmt.Sprintf("template is missing %s", required), nil)
		}
	}

	archive, _ := members.Get(ArchiveName)
	graph, err := keyed.Decode(archive)
	if err != nil {
		return nil, err
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	t := &Template{members: members}
	if name, ok, _ := graph.Lookup(keyed.KeyName); ok {
		if s, ok := name.(string); ok {
			t.Name = s
		}
	}
	return t, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Members returns the template's member names.
func (t *Template) Members() []string {
	return t.members.Names()
}

// Graph decodes a fresh copy of the template's keyed archive.
func (t *Template) Graph() (*keyed.Graph, error) {
	archive, _ := t.members.Get(ArchiveName)
	return keyed.Decode(archive)
}

// Instantiate returns a fresh Bundle holding a copy of every template member.
func (t *Template) Instantiate() *Bundle {
	b := New()
	for _, name := range t.members.names {
		src := t.members.files[name]
		dst := make([]byte, len(src))
		copy(dst, src)
		b.Set(name, dst)
	}
	return b
}
