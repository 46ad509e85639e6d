// Package store persists simulation jobs, horizon outcomes, trades and
// aggregated results in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/lec/core/cems"
)

const schema = `
CREATE TABLE IF NOT EXISTS job (
	id TEXT PRIMARY KEY,
	scenario TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	init_time INTEGER,
	end_time INTEGER
);
CREATE TABLE IF NOT EXISTS horizon (
	job_id TEXT NOT NULL REFERENCES job(id),
	idx INTEGER NOT NULL,
	start INTEGER NOT NULL,
	scope TEXT NOT NULL,
	subject TEXT NOT NULL,
	status TEXT NOT NULL,
	objective REAL,
	nodes INTEGER,
	duration_ms REAL,
	elec_import REAL,
	elec_export REAL,
	heat REAL,
	elec_peak REAL,
	heat_peak REAL,
	penalty REAL,
	PRIMARY KEY(job_id, idx, subject)
);
CREATE TABLE IF NOT EXISTS trade (
	job_id TEXT NOT NULL REFERENCES job(id),
	period INTEGER NOT NULL,
	source TEXT NOT NULL,
	action TEXT NOT NULL,
	resource TEXT NOT NULL,
	market TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL,
	loss REAL
);
CREATE INDEX IF NOT EXISTS trade_job_period ON trade(job_id, period);
CREATE TABLE IF NOT EXISTS result (
	job_id TEXT NOT NULL REFERENCES job(id),
	key TEXT NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY(job_id, key)
);`

// Job is one simulation run over a scenario.
type Job struct {
	ID        string
	Scenario  string
	CreatedAt time.Time
	InitTime  time.Time
	EndTime   time.Time
}

// Horizon is the stored outcome of one optimization call.
type Horizon struct {
	JobID    string
	Index    int
	Start    time.Time
	Scope    string
	Subject  string
	Solution *cems.Solution
}

// TradeRecord is a stored trade with its absolute period.
type TradeRecord struct {
	Period time.Time
	cems.Trade
}

// SQLiteStore persists simulation output in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateJob inserts a new job and returns its generated id.
func (s *SQLiteStore) CreateJob(ctx context.Context, scenario string, initTime time.Time) (Job, error) {
	j := Job{ID: uuid.NewString(), Scenario: scenario, CreatedAt: time.Now().UTC(), InitTime: initTime}
	_, err := s.db.ExecContext(ctx, `INSERT INTO job (id, scenario, created_at, init_time) VALUES (?, ?, ?, ?)`,
		j.ID, j.Scenario, j.CreatedAt.UnixNano(), unixOrNull(initTime))
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return j, nil
}

// FinishJob stamps the end time of a job.
func (s *SQLiteStore) FinishJob(ctx context.Context, id string, end time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE job SET end_time = ? WHERE id = ?`, end.Unix(), id)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish job %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Job returns the job with the given id.
func (s *SQLiteStore) Job(ctx context.Context, id string) (Job, error) {
	var j Job
	var created int64
	var initT, endT sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT id, scenario, created_at, init_time, end_time FROM job WHERE id = ?`, id).
		Scan(&j.ID, &j.Scenario, &created, &initT, &endT)
	if err != nil {
		return Job{}, fmt.Errorf("job %s: %w", id, err)
	}
	j.CreatedAt = time.Unix(0, created).UTC()
	if initT.Valid {
		j.InitTime = time.Unix(initT.Int64, 0).UTC()
	}
	if endT.Valid {
		j.EndTime = time.Unix(endT.Int64, 0).UTC()
	}
	return j, nil
}

// SaveHorizon stores the horizon outcome and the trades of its solution in one
// transaction. Trade hours are offset from the horizon start.
func (s *SQLiteStore) SaveHorizon(ctx context.Context, h Horizon) error {
	sol := h.Solution
	if sol == nil {
		return fmt.Errorf("save horizon %d: nil solution", h.Index)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO horizon (job_id, idx, start, scope, subject, status, objective, nodes,
		duration_ms, elec_import, elec_export, heat, elec_peak, heat_peak, penalty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, idx, subject) DO UPDATE SET
			status = excluded.status, objective = excluded.objective, nodes = excluded.nodes`,
		h.JobID, h.Index, h.Start.Unix(), h.Scope, h.Subject, sol.Status.String(), sol.Objective, sol.Nodes,
		float64(sol.Duration)/float64(time.Millisecond), sol.Cost.ElecImport, sol.Cost.ElecExport, sol.Cost.Heat,
		sol.Cost.ElecPeak, sol.Cost.HeatPeak, sol.Cost.Penalty)
	if err != nil {
		return fmt.Errorf("save horizon %d: %w", h.Index, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO trade (job_id, period, source, action, resource, market, quantity, price, loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, tr := range sol.Trades() {
		period := h.Start.Add(time.Duration(tr.Hour) * time.Hour)
		if _, err := stmt.ExecContext(ctx, h.JobID, period.Unix(), tr.Source, tr.Action.String(),
			tr.Resource.String(), tr.Market.String(), tr.Quantity, tr.Price, tr.Loss); err != nil {
			return fmt.Errorf("save trade: %w", err)
		}
	}
	return tx.Commit()
}

// HorizonStatuses returns the solver status of every stored horizon of a job
// keyed by index and subject.
func (s *SQLiteStore) HorizonStatuses(ctx context.Context, jobID string) (map[int]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, subject, status FROM horizon WHERE job_id = ? ORDER BY idx`, jobID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := map[int]map[string]string{}
	for rows.Next() {
		var idx int
		var subject, status string
		if err := rows.Scan(&idx, &subject, &status); err != nil {
			return nil, err
		}
		if out[idx] == nil {
			out[idx] = map[string]string{}
		}
		out[idx][subject] = status
	}
	return out, rows.Err()
}

// Trades returns the trades of a job in [start, end), ordered by period.
func (s *SQLiteStore) Trades(ctx context.Context, jobID string, start, end time.Time) ([]TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT period, source, action, resource, market, quantity, price, loss
		FROM trade WHERE job_id = ? AND period >= ? AND period < ? ORDER BY period, rowid`,
		jobID, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []TradeRecord
	for rows.Next() {
		var ts int64
		var action, resource, market string
		var r TradeRecord
		if err := rows.Scan(&ts, &r.Source, &action, &resource, &market, &r.Quantity, &r.Price, &r.Loss); err != nil {
			return nil, err
		}
		r.Period = time.Unix(ts, 0).UTC()
		if r.Action, err = cems.ParseAction(action); err != nil {
			return nil, err
		}
		if r.Resource, err = cems.ParseResource(resource); err != nil {
			return nil, err
		}
		if r.Market, err = cems.ParseMarket(market); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveResults upserts aggregated results of a job.
func (s *SQLiteStore) SaveResults(ctx context.Context, jobID string, results map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for k, v := range results {
		if _, err := tx.ExecContext(ctx, `INSERT INTO result (job_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(job_id, key) DO UPDATE SET value = excluded.value`, jobID, k, v); err != nil {
			return fmt.Errorf("save result %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Results returns the aggregated results of a job.
func (s *SQLiteStore) Results(ctx context.Context, jobID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM result WHERE job_id = ?`, jobID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := map[string]float64{}
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func unixOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
