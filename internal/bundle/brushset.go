package bundle

import (
	"io"
	"strings"

	"github.com/google/uuid"
	"howett.net/plist"

	"github.com/hpungsan/brushport/internal/errors"
)

// ManifestName is the brushset's index file.
const ManifestName = "brushset.plist"

// Manifest is the XML property list at the root of a .brushset.
type Manifest struct {
	Name    string   `plist:"name"`
	Brushes []string `plist:"brushes"`
}

// SetEntry is one brush inside a brushset, stored under its ID directory.
type SetEntry struct {
	ID     string
	Bundle *Bundle
}

// Set groups several brushes into one .brushset.
type Set struct {
	Name    string
	Entries []SetEntry
}

// NewSet returns an empty brushset with the given display name.
func NewSet(name string) *Set {
	return &Set{Name: name}
}

// Add appends a brush under a fresh uppercase UUID and returns the ID.
func (s *Set) Add(b *Bundle) string {
	id := strings.ToUpper(uuid.NewString())
	s.Entries = append(s.Entries, SetEntry{ID: id, Bundle: b})
	return id
}

// Manifest encodes brushset.plist.
func (s *Set) Manifest() ([]byte, error) {
	m := Manifest{Name: s.Name, Brushes: make([]string, 0, len(s.Entries))}
	for _, e := range s.Entries {
		m.Brushes = append(m.Brushes, e.ID)
	}
	data, err := plist.MarshalIndent(m, plist.XMLFormat, "\t")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// Pack writes the brushset as a zip: every brush unpacked under its ID
// directory followed by the manifest.
func (s *Set) Pack(w io.Writer, level int) error {
	manifest, err := s.Manifest()
	if err != nil {
		return err
	}

	zw := newZipWriter(w, level)
	for _, e := range s.Entries {
		if err := e.Bundle.addTo(zw, e.ID+"/"); err != nil {
			zw.Close()
			return err
		}
	}
	mw, err := zw.Create(ManifestName)
	if err != nil {
		zw.Close()
		return err
	}
	if _, err := mw.Write(manifest); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// WriteFile packs the brushset to path atomically.
func (s *Set) WriteFile(path string, level int) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return s.Pack(w, level)
	})
}
