package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sek-scheduler/internal/decode"
)

func newScenarioArchiveMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		ScenarioKey: "2026-term1",
		Status:      "optimal",
		Objective:   12.5,
		Entries: []decode.ScheduleEntry{
			{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1},
		},
	}
}

func TestWriteJSONThenReadJSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteJSON(dir, sampleSnapshot())
	require.NoError(t, err)

	got, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-term1", got.ScenarioKey)
	assert.Equal(t, "optimal", got.Status)
	assert.Len(t, got.Entries, 1)
	assert.NotEmpty(t, got.ID)
}

func TestWriteJSONCreatesMissingDir(t *testing.T) {
	dir := t.TempDir() + "/nested/scenarios"
	_, err := WriteJSON(dir, sampleSnapshot())
	require.NoError(t, err)
}

func TestWriteJSONSortsEntriesByDayPeriodThenClass(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot()
	snap.Entries = []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5b", Subject: "math", Day: 0, Period: 2},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1},
		{Teacher: "t1", Class: "5a", Subject: "bio", Day: 1, Period: 1},
	}
	path, err := WriteJSON(dir, snap)
	require.NoError(t, err)

	got, err := ReadJSON(path)
	require.NoError(t, err)
	require.Len(t, got.Entries, 3)
	assert.Equal(t, 0, got.Entries[0].Day)
	assert.Equal(t, 1, got.Entries[0].Period)
	assert.Equal(t, 0, got.Entries[1].Day)
	assert.Equal(t, 2, got.Entries[1].Period)
	assert.Equal(t, 1, got.Entries[2].Day)
}

func TestReadJSONRejectsMissingFile(t *testing.T) {
	_, err := ReadJSON("/nonexistent/path/does-not-exist.json")
	assert.Error(t, err)
}

func TestScenarioArchiveCreateVersioned(t *testing.T) {
	db, mock, cleanup := newScenarioArchiveMock(t)
	defer cleanup()
	archive := NewScenarioArchive(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM scenario_archive WHERE scenario_key = $1")).
		WithArgs("2026-term1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scenario_archive")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	row, err := archive.CreateVersioned(context.Background(), "2026-term1", sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 3, row.Version)
	assert.Equal(t, "2026-term1", row.ScenarioKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarioArchiveCreateVersionedRejectsEmptyKey(t *testing.T) {
	db, _, cleanup := newScenarioArchiveMock(t)
	defer cleanup()
	archive := NewScenarioArchive(db)

	_, err := archive.CreateVersioned(context.Background(), "", sampleSnapshot())
	assert.Error(t, err)
}

func TestScenarioArchiveCreateVersionedRollsBackOnInsertError(t *testing.T) {
	db, mock, cleanup := newScenarioArchiveMock(t)
	defer cleanup()
	archive := NewScenarioArchive(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM scenario_archive WHERE scenario_key = $1")).
		WithArgs("2026-term1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scenario_archive")).
		WillReturnError(assertErr("insert failed"))
	mock.ExpectRollback()

	_, err := archive.CreateVersioned(context.Background(), "2026-term1", sampleSnapshot())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarioArchiveListVersions(t *testing.T) {
	db, mock, cleanup := newScenarioArchiveMock(t)
	defer cleanup()
	archive := NewScenarioArchive(db)

	rows := sqlmock.NewRows([]string{"id", "scenario_key", "version", "status", "objective", "payload", "created_at"}).
		AddRow("row-1", "2026-term1", 2, "optimal", 12.5, []byte(`[]`), time.Now()).
		AddRow("row-2", "2026-term1", 1, "feasible", 20.0, []byte(`[]`), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, scenario_key, version, status, objective, payload, created_at")).
		WithArgs("2026-term1").
		WillReturnRows(rows)

	list, err := archive.ListVersions(context.Background(), "2026-term1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Version)
	assert.Equal(t, 1, list[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarioRowEntriesDecodesPayload(t *testing.T) {
	row := ScenarioRow{Payload: []byte(`[{"Teacher":"t1","Class":"5a","Subject":"math","Day":0,"Period":1}]`)}
	entries, err := row.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].Teacher)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
