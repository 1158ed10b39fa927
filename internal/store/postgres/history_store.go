package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// HistoryStore persists per-step simulation snapshots keyed by step number.
type HistoryStore struct {
	pool *pgxpool.Pool
}

var _ domain.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a HistoryStore backed by the given client.
func NewHistoryStore(client *Client) *HistoryStore {
	return &HistoryStore{pool: client.Pool()}
}

// UpsertSnapshot writes a snapshot, replacing any existing row for the
// same step.
func (s *HistoryStore) UpsertSnapshot(ctx context.Context, snap domain.Snapshot) error {
	telemetry, err := json.Marshal(snap.Telemetry)
	if err != nil {
		return fmt.Errorf("postgres: marshal telemetry: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO history (step, ts, telemetry, grid_stress, total_energy_kwh)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (step) DO UPDATE SET
			ts = EXCLUDED.ts,
			telemetry = EXCLUDED.telemetry,
			grid_stress = EXCLUDED.grid_stress,
			total_energy_kwh = EXCLUDED.total_energy_kwh`,
		snap.Step, snap.Timestamp, telemetry, string(snap.GridStress), snap.TotalEnergyKWH,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert snapshot: %w", err)
	}
	return nil
}

// ListRecent returns the most recent snapshots, newest step first.
func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT step, ts, telemetry, grid_stress, total_energy_kwh
		FROM history
		ORDER BY step DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// ListBefore returns all snapshots with a step strictly below the given
// step, oldest first.
func (s *HistoryStore) ListBefore(ctx context.Context, step int64) ([]domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT step, ts, telemetry, grid_stress, total_energy_kwh
		FROM history
		WHERE step < $1
		ORDER BY step ASC`, step)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots before: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// DeleteBefore removes snapshots with a step strictly below the given step
// and reports how many rows were deleted.
func (s *HistoryStore) DeleteBefore(ctx context.Context, step int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM history WHERE step < $1", step)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete snapshots before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshots(rows pgx.Rows) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	for rows.Next() {
		var (
			snap      domain.Snapshot
			telemetry []byte
			stress    string
		)
		if err := rows.Scan(&snap.Step, &snap.Timestamp, &telemetry, &stress, &snap.TotalEnergyKWH); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		if len(telemetry) > 0 {
			if err := json.Unmarshal(telemetry, &snap.Telemetry); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal telemetry: %w", err)
			}
		}
		snap.GridStress = domain.StressLevel(stress)
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate snapshots: %w", err)
	}
	return snaps, nil
}
