package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/brushport/internal/errors"
)

// AssetRow is one MaterialFile row: an opaque id and the raw blob that
// carries an embedded stamp image somewhere inside it.
type AssetRow struct {
	ID   int64
	Blob []byte
}

// AssetRows returns every MaterialFile row in query order.
func AssetRows(ctx context.Context, database *sql.DB) ([]AssetRow, error) {
	rows, err := database.QueryContext(ctx, `SELECT _PW_ID, FileData FROM MaterialFile`)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("query MaterialFile: %w", err))
	}
	defer rows.Close()

	var out []AssetRow
	for rows.Next() {
		var r AssetRow
		if err := rows.Scan(&r.ID, &r.Blob); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("scan MaterialFile: %w", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

// VariantRow returns the first Variant row as column name → value.
// Values are whatever the driver yields (int64, float64, string, []byte or nil).
// An empty table yields an empty map.
func VariantRow(ctx context.Context, database *sql.DB) (map[string]any, error) {
	rows, err := database.QueryContext(ctx, `SELECT * FROM Variant LIMIT 1`)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("query Variant: %w", err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	record := make(map[string]any, len(cols))
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.NewInternal(err)
		}
		return record, nil
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("scan Variant: %w", err))
	}
	for i, col := range cols {
		record[col] = values[i]
	}

	return record, nil
}
