package clickhouse

import (
	"context"
	"fmt"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// SnapshotStore implements storage.PriceSnapshotStore using ClickHouse.
// Snapshots are monitoring telemetry; MergeTree without dedup is fine here.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds snapshot points.
func (s *SnapshotStore) InsertBulk(ctx context.Context, points []*domain.PriceSnapshot) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_snapshots (
			position_id, agent_id, mint, timestamp_ms, price, source, pnl_pct
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.PositionID, p.AgentID, p.Mint,
			uint64(p.TimestampMs), p.Price, p.Source, p.PnLPct,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}
