package stamp

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/hpungsan/brushport/internal/db"
	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestCarve(t *testing.T) {
	tests := []struct {
		name      string
		blob      string
		wantStart int
		wantEnd   int
		wantErr   string
	}{
		{
			name:      "simple",
			blob:      "xx\x89PNGdataIENDcrc!",
			wantStart: 2,
			wantEnd:   14,
		},
		{
			name:      "last start marker wins",
			blob:      "\x01PNG junk \x89PNGbodyIEND",
			wantStart: 10,
			wantEnd:   22,
		},
		{
			name:      "last end marker wins",
			blob:      "\x89PNGaIENDbIENDtail",
			wantStart: 0,
			wantEnd:   14,
		},
		{
			name:    "no start marker",
			blob:    "nothing here IEND",
			wantErr: "start marker not found",
		},
		{
			name:    "start marker without tag byte",
			blob:    "PNGdataIEND",
			wantErr: "start marker not found",
		},
		{
			name:    "no end marker",
			blob:    "\x89PNGdata",
			wantErr: "end marker not found",
		},
		{
			name:    "end before start",
			blob:    "IEND..\x89PNGdata",
			wantErr: "end marker precedes start marker",
		},
		{
			name:    "empty",
			blob:    "",
			wantErr: "start marker not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, reason := Carve([]byte(tt.blob))
			if reason != tt.wantErr {
				t.Fatalf("reason = %q, want %q", reason, tt.wantErr)
			}
			if tt.wantErr != "" {
				return
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Carve() = [%d, %d), want [%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestExtract_RangeMatchesMarkers(t *testing.T) {
	pngData := testutil.PNG(t, 16, 16)
	blob := testutil.Blob(pngData)

	payload, err := Extract(db.AssetRow{ID: 1, Blob: blob})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	wantStart := bytes.LastIndex(blob, StartMarker) - 1
	wantEnd := bytes.LastIndex(blob, EndMarker) + 4
	if !bytes.Equal(payload, blob[wantStart:wantEnd]) {
		t.Error("payload does not match [lastStart-1, lastEnd+4)")
	}
	// The carved range is the PNG minus the IEND CRC
	if !bytes.Equal(payload, pngData[:len(pngData)-4]) {
		t.Error("payload should equal the embedded PNG without its trailing CRC")
	}

	again, err := Extract(db.AssetRow{ID: 1, Blob: blob})
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}
	if !bytes.Equal(payload, again) {
		t.Error("Extract() is not idempotent")
	}
}

func TestExtract_DoesNotAliasBlob(t *testing.T) {
	blob := []byte("\x89PNGabcIEND")
	payload, err := Extract(db.AssetRow{ID: 1, Blob: blob})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	blob[0] = 0
	if payload[0] != 0x89 {
		t.Error("payload aliases the source blob")
	}
}

func TestExtract_Malformed(t *testing.T) {
	_, err := Extract(db.AssetRow{ID: 42, Blob: []byte("garbage")})
	if !errors.Is(err, errors.ErrMalformedAssetBlob) {
		t.Fatalf("error = %v, want MALFORMED_ASSET_BLOB", err)
	}
	if errors.ScopeOf(err) != errors.ScopeRow {
		t.Errorf("scope = %v, want row", errors.ScopeOf(err))
	}
}

func TestDemux_SkipsBadRows(t *testing.T) {
	good := testutil.Blob(testutil.PNG(t, 8, 8))
	rows := []db.AssetRow{
		{ID: 10, Blob: good},
		{ID: 11, Blob: []byte("no image here")},
		{ID: 12, Blob: good},
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	images, skipped, err := Demux(rows, logger)
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("len(images) = %d, want 2", len(images))
	}
	if images[0].RowID != 10 || images[1].RowID != 12 {
		t.Errorf("row ids = %d, %d, want 10, 12", images[0].RowID, images[1].RowID)
	}
	if images[0].Index != 0 || images[1].Index != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", images[0].Index, images[1].Index)
	}
	if images[1].Name() != "stamp_01.png" {
		t.Errorf("Name() = %q, want stamp_01.png", images[1].Name())
	}

	if len(skipped) != 1 || skipped[0].RowID != 11 {
		t.Fatalf("skipped = %+v, want row 11", skipped)
	}
	if !bytes.Contains(logs.Bytes(), []byte("row_id=11")) {
		t.Errorf("expected warning with row id, got %q", logs.String())
	}
}

func TestDemux_AllRowsBad(t *testing.T) {
	images, skipped, err := Demux([]db.AssetRow{{ID: 1, Blob: []byte("x")}}, discardLogger())
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if len(images) != 0 || len(skipped) != 1 {
		t.Errorf("images = %d, skipped = %d, want 0, 1", len(images), len(skipped))
	}
}

func TestDemux_NoRows(t *testing.T) {
	_, _, err := Demux(nil, discardLogger())
	if !errors.Is(err, errors.ErrNoAssetRows) {
		t.Fatalf("error = %v, want NO_ASSET_ROWS", err)
	}
}
