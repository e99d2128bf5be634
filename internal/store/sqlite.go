package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/studyspot-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, path: dsn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS spots (
	pos            INTEGER NOT NULL,
	name           TEXT PRIMARY KEY,
	link           TEXT NOT NULL DEFAULT '',
	travel_minutes TEXT NOT NULL,
	work_types     TEXT NOT NULL,
	outlets        TEXT NOT NULL,
	vibe           TEXT NOT NULL,
	seating        TEXT NOT NULL,
	price          TEXT NOT NULL,
	open_late      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS queries (
	id           TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	origin       TEXT NOT NULL DEFAULT '',
	max_minutes  INTEGER NOT NULL DEFAULT 0,
	request      TEXT NOT NULL,
	result_count INTEGER NOT NULL DEFAULT 0,
	fell_back    INTEGER NOT NULL DEFAULT 0,
	top_name     TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_spots_pos ON spots(pos);
CREATE INDEX IF NOT EXISTS idx_queries_mode ON queries(mode);
CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Name identifies the store as a catalog source.
func (s *SQLiteStore) Name() string { return "sqlite:" + s.path }

// Load returns every persisted spot in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.StudySpot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, link, travel_minutes, work_types, outlets, vibe, seating, price, open_late
		 FROM spots ORDER BY pos`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load spots")
	}
	defer rows.Close()

	var spots []model.StudySpot
	for rows.Next() {
		var sp model.StudySpot
		var travel, work, seating string
		if err := rows.Scan(&sp.Name, &sp.Link, &travel, &work, &sp.Outlets, &sp.Vibe, &seating, &sp.Price, &sp.OpenLate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan spot")
		}
		if err := decodeSpot(&sp, spotJSON{travel: []byte(travel), work: []byte(work), seating: []byte(seating)}); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, eris.Wrap(rows.Err(), "sqlite: load spots iterate")
}

// ReplaceSpots swaps the whole spot table for spots in one transaction.
func (s *SQLiteStore) ReplaceSpots(ctx context.Context, spots []model.StudySpot) error {
	if err := validateSpots(spots); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM spots`); err != nil {
		return eris.Wrap(err, "sqlite: clear spots")
	}
	for i, sp := range spots {
		if err := insertSpot(ctx, tx, i, sp, false); err != nil {
			return err
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace")
}

// UpsertSpots inserts new spots at the end of the table and updates existing
// ones in place, keyed by name.
func (s *SQLiteStore) UpsertSpots(ctx context.Context, spots []model.StudySpot) (int64, error) {
	if len(spots) == 0 {
		return 0, nil
	}
	if err := validateSpots(spots); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(pos), -1) + 1 FROM spots`).Scan(&next); err != nil {
		return 0, eris.Wrap(err, "sqlite: next spot position")
	}
	for i, sp := range spots {
		if err := insertSpot(ctx, tx, next+i, sp, true); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return int64(len(spots)), nil
}

func insertSpot(ctx context.Context, tx *sql.Tx, pos int, sp model.StudySpot, upsert bool) error {
	enc, err := encodeSpot(sp)
	if err != nil {
		return err
	}
	query := `INSERT INTO spots (pos, name, link, travel_minutes, work_types, outlets, vibe, seating, price, open_late)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if upsert {
		query += ` ON CONFLICT(name) DO UPDATE SET
			link = excluded.link, travel_minutes = excluded.travel_minutes, work_types = excluded.work_types,
			outlets = excluded.outlets, vibe = excluded.vibe, seating = excluded.seating,
			price = excluded.price, open_late = excluded.open_late`
	}
	_, err = tx.ExecContext(ctx, query,
		pos, sp.Name, sp.Link, string(enc.travel), string(enc.work),
		string(sp.Outlets), string(sp.Vibe), string(enc.seating), string(sp.Price), sp.OpenLate,
	)
	return eris.Wrapf(err, "sqlite: write spot %s", sp.Name)
}

func (s *SQLiteStore) CountSpots(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spots`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count spots")
}

func (s *SQLiteStore) RecordQuery(ctx context.Context, rec *model.QueryRecord) error {
	if err := prepareRecord(rec, uuid.NewString); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, mode, origin, max_minutes, request, result_count, fell_back, top_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Mode), string(rec.Origin), rec.MaxMinutes, string(rec.Request),
		rec.ResultCount, rec.FellBack, rec.TopName, rec.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert query")
}

const queryColumns = `id, mode, origin, max_minutes, request, result_count, fell_back, top_name, created_at`

func (s *SQLiteStore) GetQuery(ctx context.Context, id string) (*model.QueryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+queryColumns+` FROM queries WHERE id = ?`, id)
	return scanQuery(row, id)
}

func (s *SQLiteStore) ListQueries(ctx context.Context, filter QueryFilter) ([]model.QueryRecord, error) {
	query := `SELECT ` + queryColumns + ` FROM queries WHERE 1=1`
	var args []any

	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	if filter.Origin != "" {
		query += ` AND origin = ?`
		args = append(args, string(filter.Origin))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queries")
	}
	defer rows.Close()

	var recs []model.QueryRecord
	for rows.Next() {
		r, err := scanQuery(rows, "")
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list queries iterate")
}

func (s *SQLiteStore) QueryStats(ctx context.Context, since time.Time) (*QueryStats, error) {
	var st QueryStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN mode = 'strict' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mode = 'weighted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mode = 'auto' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(fell_back), 0),
			COALESCE(SUM(CASE WHEN result_count = 0 THEN 1 ELSE 0 END), 0)
		 FROM queries WHERE created_at >= ?`,
		since.UTC(),
	).Scan(&st.Total, &st.Strict, &st.Weighted, &st.Auto, &st.FellBack, &st.Empty)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query stats")
	}
	return &st, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanQuery(row scannable, id string) (*model.QueryRecord, error) {
	var r model.QueryRecord
	var request string

	err := row.Scan(&r.ID, &r.Mode, &r.Origin, &r.MaxMinutes, &request, &r.ResultCount, &r.FellBack, &r.TopName, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("query not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan query")
	}
	r.Request = []byte(request)
	return &r, nil
}
