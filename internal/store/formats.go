package store

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/docrender/internal/printing/format"
)

// FormatRecord implements format.Source. A format is stored as key/value
// rows; a format without rows does not exist.
func (s *Store) FormatRecord(ctx context.Context, id int64) (format.Layer, error) {
	layer, err := s.layer(ctx, `SELECT option_key, COALESCE(option_value, '') FROM print_format_options WHERE format_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("store: format %d: %w", id, err)
	}
	if len(layer) == 0 {
		return nil, fmt.Errorf("%w: %d", format.ErrFormatNotFound, id)
	}
	return layer, nil
}

// GlobalSettings implements format.Source.
func (s *Store) GlobalSettings(ctx context.Context) (format.Layer, error) {
	layer, err := s.layer(ctx, `SELECT option_key, COALESCE(option_value, '') FROM print_settings`)
	if err != nil {
		return nil, fmt.Errorf("store: print settings: %w", err)
	}
	return layer, nil
}

func (s *Store) layer(ctx context.Context, query string, args ...any) (format.Layer, error) {
	rows, err := s.h.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := format.Layer{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
