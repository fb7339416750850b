// Package store is the scheduler's persistence layer (spec §6): a plain
// JSON snapshot writer for ad-hoc runs, plus an optional Postgres-backed
// ScenarioArchive that keeps every solve attempt for a (school, term) as
// an immutable, versioned row, using a next-version-query-then-insert
// pattern inside a single transaction.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sek-scheduler/internal/decode"
)

// Snapshot is the stable on-disk representation of one solve outcome.
type Snapshot struct {
	ID          string                  `json:"id"`
	ScenarioKey string                  `json:"scenario_key"`
	Status      string                  `json:"status"`
	Objective   float64                 `json:"objective"`
	Entries     []decode.ScheduleEntry  `json:"entries"`
	CreatedAt   time.Time               `json:"created_at"`
}

// WriteJSON writes snap to dir/<scenario_key>-<id>.json with stable,
// indented field order, creating dir if needed.
func WriteJSON(dir string, snap Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scenario store dir: %w", err)
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	sortEntries(snap.Entries)

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", snap.ScenarioKey, snap.ID))
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot file: %w", err)
	}
	return path, nil
}

// ReadJSON loads a previously written snapshot.
func ReadJSON(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func sortEntries(entries []decode.ScheduleEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day < entries[j].Day
		}
		if entries[i].Period != entries[j].Period {
			return entries[i].Period < entries[j].Period
		}
		if entries[i].Class != entries[j].Class {
			return entries[i].Class < entries[j].Class
		}
		return entries[i].Teacher < entries[j].Teacher
	})
}

// ScenarioRow is the Postgres row shape for one versioned solve outcome.
type ScenarioRow struct {
	ID          string    `db:"id"`
	ScenarioKey string    `db:"scenario_key"`
	Version     int       `db:"version"`
	Status      string    `db:"status"`
	Objective   float64   `db:"objective"`
	Payload     []byte    `db:"payload"` // JSON-encoded []decode.ScheduleEntry
	CreatedAt   time.Time `db:"created_at"`
}

// ScenarioArchive persists versioned solve outcomes to Postgres.
type ScenarioArchive struct {
	db *sqlx.DB
}

// NewScenarioArchive constructs a ScenarioArchive over an open Postgres
// connection (pkg/database.NewPostgres).
func NewScenarioArchive(db *sqlx.DB) *ScenarioArchive {
	return &ScenarioArchive{db: db}
}

// CreateVersioned inserts a new version of scenarioKey's timetable,
// assigning the next version number within a single transaction.
func (a *ScenarioArchive) CreateVersioned(ctx context.Context, scenarioKey string, snap Snapshot) (*ScenarioRow, error) {
	if scenarioKey == "" {
		return nil, fmt.Errorf("scenario key is required")
	}
	sortEntries(snap.Entries)
	payload, err := json.Marshal(snap.Entries)
	if err != nil {
		return nil, fmt.Errorf("marshal scenario payload: %w", err)
	}

	row := &ScenarioRow{
		ID:          uuid.NewString(),
		ScenarioKey: scenarioKey,
		Status:      snap.Status,
		Objective:   snap.Objective,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin scenario archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM scenario_archive WHERE scenario_key = $1`
	if err := sqlx.GetContext(ctx, tx, &row.Version, nextVersionQuery, scenarioKey); err != nil {
		return nil, fmt.Errorf("compute next scenario version: %w", err)
	}

	const insertQuery = `
INSERT INTO scenario_archive (id, scenario_key, version, status, objective, payload, created_at)
VALUES (:id, :scenario_key, :version, :status, :objective, :payload, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, insertQuery, row); err != nil {
		return nil, fmt.Errorf("insert scenario archive row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scenario archive transaction: %w", err)
	}
	return row, nil
}

// ListVersions returns every archived version for scenarioKey, newest first.
func (a *ScenarioArchive) ListVersions(ctx context.Context, scenarioKey string) ([]ScenarioRow, error) {
	const query = `SELECT id, scenario_key, version, status, objective, payload, created_at
FROM scenario_archive WHERE scenario_key = $1 ORDER BY version DESC`
	var rows []ScenarioRow
	if err := a.db.SelectContext(ctx, &rows, query, scenarioKey); err != nil {
		return nil, fmt.Errorf("list scenario archive versions: %w", err)
	}
	return rows, nil
}

// Entries decodes row's JSON payload back into ScheduleEntry values.
func (row *ScenarioRow) Entries() ([]decode.ScheduleEntry, error) {
	var entries []decode.ScheduleEntry
	if err := json.Unmarshal(row.Payload, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal scenario payload: %w", err)
	}
	return entries, nil
}
