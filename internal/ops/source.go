package ops

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hpungsan/brushport/internal/brush"
	"github.com/hpungsan/brushport/internal/db"
	"github.com/hpungsan/brushport/internal/errors"
)

// source is an opened .sut container. Close releases the staged store.
type source struct {
	path    string
	size    int
	store   *db.Store
	rows    []db.AssetRow
	variant brush.Variant
}

// openSource reads the container, stages its embedded store and loads the
// asset rows and variant record. A missing or unreadable Variant table is
// logged and treated as an empty record.
func openSource(ctx context.Context, path, tmpDir string, logger *slog.Logger) (*source, error) {
	if path == "" {
		return nil, errors.NewInvalidRequest("source path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot read source: %v", err))
	}

	store, err := db.OpenEmbedded(ctx, raw, tmpDir)
	if err != nil {
		return nil, err
	}
	src := &source{path: path, size: len(raw), store: store}

	src.rows, err = db.AssetRows(ctx, store.DB)
	if err != nil {
		src.Close()
		return nil, err
	}

	variant, err := db.VariantRow(ctx, store.DB)
	if err != nil {
		logger.Warn("variant record unavailable, using defaults", "error", err)
		variant = map[string]any{}
	}
	src.variant = brush.Variant(variant)

	logger.Debug("source opened",
		"path", path,
		"container_bytes", len(raw),
		"store_offset", store.Offset,
		"rows", len(src.rows),
		"variant_fields", len(variant))
	return src, nil
}

func (s *source) Close() error {
	return s.store.Close()
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
