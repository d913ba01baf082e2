package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/wardrobe/internal/asset"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// PutWearable upserts a wearable payload. Implements asset.Storer.
func (s *Store) PutWearable(ctx context.Context, w *wearable.Wearable) error {
	if w == nil {
		return fmt.Errorf("put wearable: nil payload")
	}
	params, err := marshalParams(w.Params)
	if err != nil {
		return fmt.Errorf("put wearable %s: %w", w.AssetID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wearable_assets (asset_id, wearable_type, name, description, params)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
			wearable_type = excluded.wearable_type,
			name = excluded.name,
			description = excluded.description,
			params = excluded.params
	`, w.AssetID.String(), w.Type.String(), w.Name, w.Description, params)
	if err != nil {
		return fmt.Errorf("put wearable %s: %w", w.AssetID, err)
	}
	return nil
}

// FetchWearable loads a wearable payload. Implements asset.Fetcher; a missing
// row wraps asset.ErrNotFound.
func (s *Store) FetchWearable(ctx context.Context, assetID ir.ID) (*wearable.Wearable, error) {
	var wt, name, desc, params string
	err := s.db.QueryRowContext(ctx, `
		SELECT wearable_type, name, description, params
		FROM wearable_assets
		WHERE asset_id = ?
	`, assetID.String()).Scan(&wt, &name, &desc, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch wearable %s: %w", assetID, asset.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch wearable %s: %w", assetID, err)
	}

	t, err := wearable.ParseType(wt)
	if err != nil {
		return nil, fmt.Errorf("fetch wearable %s: %w", assetID, err)
	}
	p, err := unmarshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("fetch wearable %s: %w", assetID, err)
	}
	return &wearable.Wearable{AssetID: assetID, Type: t, Name: name, Description: desc, Params: p}, nil
}

// CountWearables returns the number of stored wearable assets.
func (s *Store) CountWearables(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wearable_assets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count wearables: %w", err)
	}
	return n, nil
}

// marshalParams converts visual params to canonical JSON TEXT.
func marshalParams(params map[string]int) (string, error) {
	obj := make(ir.Object, len(params))
	for k, v := range params {
		obj[k] = ir.Int(v)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalParams(data string) (map[string]int, error) {
	out := map[string]int{}
	if data == "" || data == "{}" {
		return out, nil
	}
	obj, err := ir.UnmarshalObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	for k, v := range obj {
		n, ok := v.(ir.Int)
		if !ok {
			return nil, fmt.Errorf("unmarshal params: %q is %T, want integer", k, v)
		}
		out[k] = int(n)
	}
	return out, nil
}
