package stamp

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// iendCRC is the fixed CRC-32 of an empty IEND chunk. Carved payloads end
// right after the chunk type, so the CRC is missing.
var iendCRC = []byte{0xAE, 0x42, 0x60, 0x82}

// Complete returns payload with the IEND CRC appended when it is missing.
func Complete(payload []byte) []byte {
	if !bytes.HasSuffix(payload, EndMarker) {
		return payload
	}
	out := make([]byte, 0, len(payload)+len(iendCRC))
	out = append(out, payload...)
	return append(out, iendCRC...)
}

// Decode decodes the carved payload as a PNG image.
func (im Image) Decode() (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(Complete(im.Payload)))
	if err != nil {
		return nil, fmt.Errorf("decode %s (row %d): %w", im.Name(), im.RowID, err)
	}
	return img, nil
}

// toNRGBA converts any image to non-premultiplied RGBA anchored at the origin.
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Shape converts a stamp into a single-channel brush tip: the RGB luma is
// inverted and multiplied by alpha, so dark opaque pixels become white.
func Shape(src image.Image) *image.Gray {
	rgba := toNRGBA(src)
	b := rgba.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := rgba.NRGBAAt(x, y)
			inv := 255 - luma(c.R, c.G, c.B)
			out.SetGray(x, y, color.Gray{Y: mul255(inv, c.A)})
		}
	}
	return out
}

// luma uses the ITU-R 601-2 weights with fixed-point rounding.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

// mul255 returns round(a*b/255).
func mul255(a, b uint8) uint8 {
	t := uint32(a)*uint32(b) + 128
	return uint8((t + (t >> 8)) >> 8)
}

// Thumbnail renders the stamp onto a transparent w×h canvas, scaled to the
// canvas height with its aspect ratio kept and centred horizontally.
func Thumbnail(src image.Image, w, h int) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	if sb.Dy() == 0 || sb.Dx() == 0 {
		return canvas
	}

	scale := float64(h) / float64(sb.Dy())
	nw := int(float64(sb.Dx()) * scale)
	nh := int(float64(sb.Dy()) * scale)
	x := (w - nw) / 2
	y := (h - nh) / 2

	draw.CatmullRom.Scale(canvas, image.Rect(x, y, x+nw, y+nh), toNRGBA(src), image.Rect(0, 0, sb.Dx(), sb.Dy()), draw.Over, nil)
	return canvas
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
