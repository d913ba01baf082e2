package store

import (
	"context"
	"fmt"

	"github.com/roach88/wardrobe/internal/ir"
)

// Event is one entry of the appearance log.
type Event struct {
	Seq  int64
	Kind string
	Data ir.Object
}

// AppendEvent writes an event. A repeated seq is ignored.
func (s *Store) AppendEvent(ctx context.Context, ev Event) error {
	data := ev.Data
	if data == nil {
		data = ir.Object{}
	}
	payload, err := ir.MarshalCanonical(data)
	if err != nil {
		return fmt.Errorf("append event %d: %w", ev.Seq, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appearance_events (seq, kind, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, ev.Seq, ev.Kind, string(payload))
	if err != nil {
		return fmt.Errorf("append event %d: %w", ev.Seq, err)
	}
	return nil
}

// ReadEvents returns events with seq greater than after, ordered by seq.
// An empty kind matches every kind.
func (s *Store) ReadEvents(ctx context.Context, after int64, kind string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, payload
		FROM appearance_events
		WHERE seq > ? AND (? = '' OR kind = ?)
		ORDER BY seq ASC
	`, after, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var payload string
		if err := rows.Scan(&ev.Seq, &ev.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Data, err = ir.UnmarshalObject([]byte(payload)); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest stored seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM appearance_events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
