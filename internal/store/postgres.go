package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/studyspot-cli/internal/db"
	"github.com/sells-group/studyspot-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_query": `INSERT INTO queries (id, mode, origin, max_minutes, request, result_count, fell_back, top_name, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"get_query":    `SELECT id, mode, origin, max_minutes, request, result_count, fell_back, top_name, created_at FROM queries WHERE id = $1`,
	"load_spots":   `SELECT name, link, travel_minutes, work_types, outlets, vibe, seating, price, open_late FROM spots ORDER BY pos`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS spots (
	pos            INTEGER NOT NULL,
	name           TEXT PRIMARY KEY,
	link           TEXT NOT NULL DEFAULT '',
	travel_minutes JSONB NOT NULL,
	work_types     JSONB NOT NULL,
	outlets        TEXT NOT NULL,
	vibe           TEXT NOT NULL,
	seating        JSONB NOT NULL,
	price          TEXT NOT NULL,
	open_late      BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS queries (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	mode         TEXT NOT NULL,
	origin       TEXT NOT NULL DEFAULT '',
	max_minutes  INTEGER NOT NULL DEFAULT 0,
	request      JSONB NOT NULL,
	result_count INTEGER NOT NULL DEFAULT 0,
	fell_back    BOOLEAN NOT NULL DEFAULT false,
	top_name     TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_spots_pos ON spots(pos);
CREATE INDEX IF NOT EXISTS idx_queries_mode ON queries(mode);
CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Name identifies the store as a catalog source.
func (s *PostgresStore) Name() string { return "postgres" }

// Load returns every persisted spot in insertion order.
func (s *PostgresStore) Load(ctx context.Context) ([]model.StudySpot, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["load_spots"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load spots")
	}
	defer rows.Close()

	var spots []model.StudySpot
	for rows.Next() {
		var sp model.StudySpot
		var enc spotJSON
		var outlets, vibe, price string
		if err := rows.Scan(&sp.Name, &sp.Link, &enc.travel, &enc.work, &outlets, &vibe, &enc.seating, &price, &sp.OpenLate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan spot")
		}
		sp.Outlets = model.OutletLevel(outlets)
		sp.Vibe = model.Vibe(vibe)
		sp.Price = model.PriceTier(price)
		if err := decodeSpot(&sp, enc); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, eris.Wrap(rows.Err(), "postgres: load spots iterate")
}

func spotRows(spots []model.StudySpot, start int) ([][]any, error) {
	rows := make([][]any, 0, len(spots))
	for i, sp := range spots {
		enc, err := encodeSpot(sp)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{
			start + i, sp.Name, sp.Link, enc.travel, enc.work,
			string(sp.Outlets), string(sp.Vibe), enc.seating, string(sp.Price), sp.OpenLate,
		})
	}
	return rows, nil
}

// ReplaceSpots swaps the whole spot table for spots in one transaction,
// loading the new rows with COPY.
func (s *PostgresStore) ReplaceSpots(ctx context.Context, spots []model.StudySpot) error {
	if err := validateSpots(spots); err != nil {
		return err
	}
	rows, err := spotRows(spots, 0)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM spots`); err != nil {
		return eris.Wrap(err, "postgres: clear spots")
	}
	if _, err := db.CopyFrom(ctx, tx, "spots", spotColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: copy spots")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace")
}

// UpsertSpots merges spots by name. New names are appended after the current
// last position; existing rows keep their position.
func (s *PostgresStore) UpsertSpots(ctx context.Context, spots []model.StudySpot) (int64, error) {
	if len(spots) == 0 {
		return 0, nil
	}
	if err := validateSpots(spots); err != nil {
		return 0, err
	}

	var next int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(pos), -1) + 1 FROM spots`).Scan(&next); err != nil {
		return 0, eris.Wrap(err, "postgres: next spot position")
	}
	rows, err := spotRows(spots, next)
	if err != nil {
		return 0, err
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "spots",
		Columns:      spotColumns,
		ConflictKeys: []string{"name"},
		UpdateCols:   spotColumns[2:],
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert spots")
}

func (s *PostgresStore) CountSpots(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM spots`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count spots")
}

func (s *PostgresStore) RecordQuery(ctx context.Context, rec *model.QueryRecord) error {
	if err := prepareRecord(rec, uuid.NewString); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, preparedStatements["insert_query"],
		rec.ID, string(rec.Mode), string(rec.Origin), rec.MaxMinutes, rec.Request,
		rec.ResultCount, rec.FellBack, rec.TopName, rec.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert query")
}

func (s *PostgresStore) GetQuery(ctx context.Context, id string) (*model.QueryRecord, error) {
	r, err := scanPgQuery(s.pool.QueryRow(ctx, preparedStatements["get_query"], id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("query not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get query %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListQueries(ctx context.Context, filter QueryFilter) ([]model.QueryRecord, error) {
	query := `SELECT ` + queryColumns + ` FROM queries WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, string(filter.Mode))
		argIdx++
	}
	if filter.Origin != "" {
		query += fmt.Sprintf(` AND origin = $%d`, argIdx)
		args = append(args, string(filter.Origin))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list queries")
	}
	defer rows.Close()

	var recs []model.QueryRecord
	for rows.Next() {
		r, err := scanPgQuery(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan query")
		}
		recs = append(recs, *r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list queries iterate")
}

func (s *PostgresStore) QueryStats(ctx context.Context, since time.Time) (*QueryStats, error) {
	var st QueryStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE mode = 'strict'),
			COUNT(*) FILTER (WHERE mode = 'weighted'),
			COUNT(*) FILTER (WHERE mode = 'auto'),
			COUNT(*) FILTER (WHERE fell_back),
			COUNT(*) FILTER (WHERE result_count = 0)
		 FROM queries WHERE created_at >= $1`,
		since.UTC(),
	).Scan(&st.Total, &st.Strict, &st.Weighted, &st.Auto, &st.FellBack, &st.Empty)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query stats")
	}
	return &st, nil
}

func scanPgQuery(row pgx.Row) (*model.QueryRecord, error) {
	var r model.QueryRecord
	var mode, origin string
	err := row.Scan(&r.ID, &mode, &origin, &r.MaxMinutes, &r.Request, &r.ResultCount, &r.FellBack, &r.TopName, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Mode = model.QueryMode(mode)
	r.Origin = model.Origin(origin)
	return &r, nil
}
