package bundle

import (
	"time"

	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/keyed"
	"github.com/hpungsan/brushport/internal/stamp"
)

// Default QuickLook canvas, used when BuildInput leaves the size unset.
const (
	DefaultThumbnailWidth  = 1060
	DefaultThumbnailHeight = 324
)

// BuildInput is everything needed to turn one stamp into a brush.
type BuildInput struct {
	Image     stamp.Image
	Name      string
	Values    map[string]any
	Timestamp time.Time

	ThumbnailWidth  int
	ThumbnailHeight int
}

// Built is one finished brush bundle.
type Built struct {
	Bundle *Bundle
	Report *keyed.PatchReport
}

// Build instantiates the template and writes the stamp shape, thumbnail,
// title and patched archive into it. Errors are bundle scope.
func (t *Template) Build(in BuildInput) (*Built, error) {
	img, err := in.Image.Decode()
	if err != nil {
		return nil, errors.NewBundleFailed(in.Image.Index, err)
	}

	b := t.Instantiate()

	shape, err := stamp.EncodePNG(stamp.Shape(img))
	if err != nil {
		return nil, errors.NewBundleFailed(in.Image.Index, err)
	}
	b.Set(ShapeName, shape)

	w, h := in.ThumbnailWidth, in.ThumbnailHeight
	if w <= 0 || h <= 0 {
		w, h = DefaultThumbnailWidth, DefaultThumbnailHeight
	}
	thumb, err := stamp.EncodePNG(stamp.Thumbnail(img, w, h))
	if err != nil {
		return nil, errors.NewBundleFailed(in.Image.Index, err)
	}
	b.Set(ThumbnailName, thumb)
	b.Set(TitleName, []byte(in.Name))

	archive, _ := b.Get(ArchiveName)
	graph, err := keyed.Decode(archive)
	if err != nil {
		return nil, err
	}
	report, err := graph.Patch(keyed.PatchInput{
		Values:    in.Values,
		Name:      in.Name,
		Timestamp: in.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	encoded, err := graph.Encode()
	if err != nil {
		return nil, errors.NewBundleFailed(in.Image.Index, err)
	}
	b.Set(ArchiveName, encoded)

	return &Built{Bundle: b, Report: report}, nil
}
