package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studyspot-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS spots`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	want := testSpot("Cafe A", 10)

	rows := mock.NewRows([]string{"name", "link", "travel_minutes", "work_types", "outlets", "vibe", "seating", "price", "open_late"}).
		AddRow(want.Name, want.Link, mustJSON(t, want.TravelMinutes), mustJSON(t, want.WorkTypes),
			string(want.Outlets), string(want.Vibe), mustJSON(t, want.Seating), string(want.Price), want.OpenLate)
	mock.ExpectQuery(`SELECT name, link, travel_minutes.* FROM spots ORDER BY pos`).WillReturnRows(rows)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM spots`).WillReturnError(fmt.Errorf("connection refused"))

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: load spots")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceSpots(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM spots`).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectCopyFrom(pgx.Identifier{"spots"}, spotColumns).WillReturnResult(2)
	mock.ExpectCommit()

	err := s.ReplaceSpots(context.Background(), []model.StudySpot{testSpot("A", 5), testSpot("B", 9)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceSpots_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM spots`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"spots"}, spotColumns).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := s.ReplaceSpots(context.Background(), []model.StudySpot{testSpot("A", 5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy spots")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceSpots_InvalidNeverTouchesDB(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	bad := testSpot("A", 5)
	bad.Seating = nil
	err := s.ReplaceSpots(context.Background(), []model.StudySpot{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seating is empty")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertSpots(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(pos\), -1\) \+ 1 FROM spots`).
		WillReturnRows(mock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_spots"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_spots"}, spotColumns).WillReturnResult(1)
	mock.ExpectExec(`ON CONFLICT \("name"\) DO UPDATE SET "link" = EXCLUDED."link"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.UpsertSpots(context.Background(), []model.StudySpot{testSpot("D", 11)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountSpots(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM spots`).WillReturnRows(mock.NewRows([]string{"count"}).AddRow(12))

	n, err := s.CountSpots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordQuery(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO queries`).
		WithArgs(pgxmock.AnyArg(), "weighted", "sinseol", 15, pgxmock.AnyArg(), 3, false, "Cafe A", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := &model.QueryRecord{Mode: model.ModeWeighted, Origin: model.OriginSinseol, MaxMinutes: 15, ResultCount: 3, TopName: "Cafe A"}
	require.NoError(t, s.RecordQuery(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "{}", string(rec.Request))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetQuery_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM queries WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetQuery(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListQueries(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := mock.NewRows([]string{"id", "mode", "origin", "max_minutes", "request", "result_count", "fell_back", "top_name", "created_at"}).
		AddRow("q1", "auto", "dongdaemun", 20, []byte(`{}`), 0, true, "", now)
	mock.ExpectQuery(`FROM queries WHERE true AND mode = \$1 AND origin = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("auto", "dongdaemun", 10, 5).
		WillReturnRows(rows)

	recs, err := s.ListQueries(context.Background(), QueryFilter{
		Mode:   model.ModeAuto,
		Origin: model.OriginDongdaemun,
		Limit:  10,
		Offset: 5,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "q1", recs[0].ID)
	assert.Equal(t, model.ModeAuto, recs[0].Mode)
	assert.True(t, recs[0].FellBack)
	assert.Equal(t, now, recs[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListQueries_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`LIMIT \$1$`).
		WithArgs(100).
		WillReturnRows(mock.NewRows([]string{"id", "mode", "origin", "max_minutes", "request", "result_count", "fell_back", "top_name", "created_at"}))

	recs, err := s.ListQueries(context.Background(), QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FILTER \(WHERE fell_back\)`).
		WithArgs(since).
		WillReturnRows(mock.NewRows([]string{"total", "strict", "weighted", "auto", "fell_back", "empty"}).
			AddRow(10, 4, 3, 3, 2, 1))

	stats, err := s.QueryStats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, &QueryStats{Total: 10, Strict: 4, Weighted: 3, Auto: 3, FellBack: 2, Empty: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
