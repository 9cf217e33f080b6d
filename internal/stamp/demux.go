package stamp

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/hpungsan/brushport/internal/db"
	"github.com/hpungsan/brushport/internal/errors"
)

var (
	// StartMarker is the PNG signature text; the byte before it is the 0x89 tag.
	StartMarker = []byte("PNG")
	// EndMarker is the PNG trailer chunk type.
	EndMarker = []byte("IEND")
)

// Image is a stamp carved out of one asset row.
type Image struct {
	// Index is the sequential position among successfully carved rows.
	Index int
	// RowID is the MaterialFile identifier the payload came from.
	RowID int64
	// Payload is the exact carved byte range.
	Payload []byte
}

// Name returns the zero-padded file name used for the raw stamp dump.
func (im Image) Name() string {
	return fmt.Sprintf("stamp_%02d.png", im.Index)
}

// Skipped records a row that could not be carved.
type Skipped struct {
	RowID int64  `json:"row_id"`
	Error string `json:"error"`
}

// Carve locates the payload range inside blob.
//
// The payload starts one byte before the last StartMarker and ends four bytes
// after the last EndMarker. Earlier occurrences are ignored: row prefixes may
// contain marker-like bytes, and only the final occurrence is trusted.
func Carve(blob []byte) (start, end int, reason string) {
	pos := bytes.LastIndex(blob, StartMarker)
	if pos <= 0 {
		return 0, 0, "start marker not found"
	}
	start = pos - 1

	iend := bytes.LastIndex(blob, EndMarker)
	if iend < 0 {
		return 0, 0, "end marker not found"
	}
	end = iend + len(EndMarker)

	if iend < pos {
		return 0, 0, "end marker precedes start marker"
	}
	return start, end, ""
}

// Extract returns a copy of the carved payload of one row.
func Extract(row db.AssetRow) ([]byte, error) {
	start, end, reason := Carve(row.Blob)
	if reason != "" {
		return nil, errors.NewMalformedAssetBlob(row.ID, reason)
	}
	out := make([]byte, end-start)
	copy(out, row.Blob[start:end])
	return out, nil
}

// Demux carves every row, in order. Rows that fail are logged and reported in
// skipped; they never abort the batch. Zero input rows is fatal.
func Demux(rows []db.AssetRow, logger *slog.Logger) ([]Image, []Skipped, error) {
	if len(rows) == 0 {
		return nil, nil, errors.NewNoAssetRows()
	}
	if logger == nil {
		logger = slog.Default()
	}

	images := make([]Image, 0, len(rows))
	var skipped []Skipped
	for _, row := range rows {
		payload, err := Extract(row)
		if err != nil {
			logger.Warn("layer skipped", "row_id", row.ID, "error", err)
			skipped = append(skipped, Skipped{RowID: row.ID, Error: err.Error()})
			continue
		}
		images = append(images, Image{
			Index:   len(images),
			RowID:   row.ID,
			Payload: payload,
		})
	}

	return images, skipped, nil
}
