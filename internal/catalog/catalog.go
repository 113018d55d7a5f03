// Package catalog indexes completed runs in SQLite so sweeps can be listed
// and located after the fact.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver.
)

var ErrNotFound = errors.New("catalog: run not found")

// Record describes one completed run.
type Record struct {
	ID             string        `json:"id"`
	K              float64       `json:"k"`
	Mode           string        `json:"mode"`
	N              int           `json:"n"`
	PullForce      float64       `json:"pull_force"`
	Seed           int64         `json:"seed"`
	Dt             float64       `json:"dt"`
	Steps          int           `json:"steps"`
	ParamPath      string        `json:"param_path"`
	TrajectoryPath string        `json:"trajectory_path"`
	Frames         int           `json:"frames"`
	WallTime       time.Duration `json:"wall_time"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Filter restricts List. Zero fields match everything.
type Filter struct {
	K     float64
	Mode  string
	Limit int
}

type Catalog struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection serialises writers from concurrent sweep workers
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			k REAL NOT NULL,
			mode TEXT NOT NULL,
			n INTEGER NOT NULL,
			pull_force REAL NOT NULL,
			seed INTEGER NOT NULL,
			dt REAL NOT NULL,
			steps INTEGER NOT NULL,
			param_path TEXT NOT NULL,
			trajectory_path TEXT NOT NULL,
			frames INTEGER NOT NULL,
			wall_time_ns INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_k_mode ON runs(k, mode);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores r, assigning ID and CreatedAt when they are unset.
func (c *Catalog) Insert(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, k, mode, n, pull_force, seed, dt, steps, param_path, trajectory_path, frames, wall_time_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.K, r.Mode, r.N, r.PullForce, r.Seed, r.Dt, r.Steps,
		r.ParamPath, r.TrajectoryPath, r.Frames, int64(r.WallTime),
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

const selectRuns = `SELECT id, k, mode, n, pull_force, seed, dt, steps, param_path, trajectory_path, frames, wall_time_ns, created_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var r Record
	var wall int64
	var created string
	err := s.Scan(&r.ID, &r.K, &r.Mode, &r.N, &r.PullForce, &r.Seed, &r.Dt, &r.Steps,
		&r.ParamPath, &r.TrajectoryPath, &r.Frames, &wall, &created)
	if err != nil {
		return r, err
	}
	r.WallTime = time.Duration(wall)
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	return r, err
}

// Get returns the run with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (Record, error) {
	row := c.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// List returns matching runs, oldest first.
func (c *Catalog) List(ctx context.Context, f Filter) ([]Record, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.K != 0 {
		clauses = append(clauses, "k = ?")
		args = append(args, f.K)
	}
	if f.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, f.Mode)
	}
	query := selectRuns + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY created_at, rowid"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
