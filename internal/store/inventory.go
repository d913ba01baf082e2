package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// SaveInventory replaces the stored tree with nodes in one transaction.
// nodes must be in inventory.Model.Nodes order.
func (s *Store) SaveInventory(ctx context.Context, nodes []inventory.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save inventory: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("save inventory: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes
		(id, parent_id, position, kind, name, description, preferred_type, asset_type, asset_id, wearable_type, linked_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save inventory: prepare: %w", err)
	}
	defer stmt.Close()

	for i, n := range nodes {
		var wt sql.NullString
		if n.Kind == inventory.KindItem && n.AssetType.IsWearable() && n.WearableType.Valid() {
			wt = sql.NullString{String: n.WearableType.String(), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			n.ID.String(),
			nullID(n.ParentID),
			i,
			n.Kind.String(),
			n.Name,
			n.Description,
			n.PreferredType.String(),
			n.AssetType.String(),
			nullID(n.AssetID),
			wt,
			nullID(n.LinkedID),
		)
		if err != nil {
			return fmt.Errorf("save inventory: node %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save inventory: commit: %w", err)
	}
	return nil
}

// LoadInventory returns the stored tree in save order. An empty database
// yields an empty slice.
func (s *Store) LoadInventory(ctx context.Context) ([]inventory.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, kind, name, description, preferred_type, asset_type, asset_id, wearable_type, linked_id
		FROM nodes
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []inventory.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func scanNode(rows *sql.Rows) (inventory.Node, error) {
	var (
		id, kind, name, desc, pref, at string
		parent, assetID, wt, linked    sql.NullString
	)
	if err := rows.Scan(&id, &parent, &kind, &name, &desc, &pref, &at, &assetID, &wt, &linked); err != nil {
		return inventory.Node{}, fmt.Errorf("scan node: %w", err)
	}

	n := inventory.Node{Name: name, Description: desc, WearableType: wearable.Invalid}
	var err error
	if n.ID, err = ir.ParseID(id); err != nil {
		return n, fmt.Errorf("scan node: %w", err)
	}
	if n.ParentID, err = parseNullID(parent); err != nil {
		return n, fmt.Errorf("scan node %s: parent: %w", id, err)
	}
	if n.AssetID, err = parseNullID(assetID); err != nil {
		return n, fmt.Errorf("scan node %s: asset: %w", id, err)
	}
	if n.LinkedID, err = parseNullID(linked); err != nil {
		return n, fmt.Errorf("scan node %s: linked: %w", id, err)
	}
	if n.Kind, err = inventory.ParseKind(kind); err != nil {
		return n, fmt.Errorf("scan node %s: %w", id, err)
	}
	if n.PreferredType, err = inventory.ParseFolderType(pref); err != nil {
		return n, fmt.Errorf("scan node %s: %w", id, err)
	}
	if n.AssetType, err = inventory.ParseAssetType(at); err != nil {
		return n, fmt.Errorf("scan node %s: %w", id, err)
	}
	if wt.Valid {
		if n.WearableType, err = wearable.ParseType(wt.String); err != nil {
			return n, fmt.Errorf("scan node %s: %w", id, err)
		}
	}
	return n, nil
}

func nullID(id ir.ID) sql.NullString {
	if id == ir.NilID {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullID(s sql.NullString) (ir.ID, error) {
	if !s.Valid || s.String == "" {
		return ir.NilID, nil
	}
	return ir.ParseID(s.String)
}
