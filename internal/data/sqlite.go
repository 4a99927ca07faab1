package data

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"eisim-progress/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned when a run ID has no stored results.
var ErrRunNotFound = errors.New("run not found")

// RunInfo is one row of the runs table.
type RunInfo struct {
	ID        string
	SourceDir string
	CreatedAt time.Time
	Episodes  int
	Agents    int
}

// Store persists aggregate tables to SQLite so several runs can be compared
// with plain SQL.
type Store struct {
	db     *sql.DB
	dbPath string
}

// OpenStore opens or creates the database at dbPath. ":memory:" is accepted.
func OpenStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes results under runID in one transaction, replacing any
// earlier run with the same ID.
func (s *Store) SaveRun(ctx context.Context, runID, sourceDir string, r *model.Results) (err error) {
	if err := r.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source_dir, created_at, episodes, agents) VALUES (?, ?, ?, ?, ?)`,
		runID, sourceDir, time.Now().UTC(), len(r.Episodes), len(r.Agents)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, ep := range r.Episodes {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO episodes (run_id, idx, name, start_utc) VALUES (?, ?, ?, ?)`,
			runID, i, ep.Name, ep.Start.UTC()); err != nil {
			return fmt.Errorf("insert episode %s: %w", ep.Name, err)
		}
	}
	for i, a := range r.Agents {
		ord, oerr := model.AgentOrdinal(a)
		if oerr != nil {
			return oerr
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO agents (run_id, idx, name, ordinal) VALUES (?, ?, ?, ?)`,
			runID, i, a, ord); err != nil {
			return fmt.Errorf("insert agent %s: %w", a, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO agent_results
		(run_id, scenario, episode_idx, agent_idx, cumulative_return, avg_price)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare results insert: %w", err)
	}
	defer stmt.Close()

	for si, scenario := range r.Scenarios {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO scenarios (run_id, idx, name) VALUES (?, ?, ?)`,
			runID, si, scenario); err != nil {
			return fmt.Errorf("insert scenario %s: %w", scenario, err)
		}
		t, _ := r.Table(scenario)
		rows, cols := t.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if _, err = stmt.ExecContext(ctx, runID, scenario, i, j,
					t.CumulativeReturn.At(i, j), t.AvgPrice.At(i, j)); err != nil {
					return fmt.Errorf("insert result %s[%d,%d]: %w", scenario, i, j, err)
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadRun reads the results stored under runID.
func (s *Store) LoadRun(ctx context.Context, runID string) (*model.Results, error) {
	var info RunInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT id, episodes, agents FROM runs WHERE id = ?`, runID).
		Scan(&info.ID, &info.Episodes, &info.Agents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	r := &model.Results{
		Episodes:  make([]model.EpisodeFolder, 0, info.Episodes),
		Agents:    make([]string, 0, info.Agents),
		Scenarios: []string{},
		Tables:    map[string]*model.ScenarioTable{},
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, start_utc FROM episodes WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	for rows.Next() {
		var ep model.EpisodeFolder
		if err := rows.Scan(&ep.Name, &ep.Start); err != nil {
			rows.Close()
			return nil, err
		}
		ep.Start = ep.Start.UTC()
		r.Episodes = append(r.Episodes, ep)
	}
	rows.Close()

	if r.Agents, err = s.names(ctx, `SELECT name FROM agents WHERE run_id = ? ORDER BY idx`, runID); err != nil {
		return nil, err
	}
	if r.Scenarios, err = s.names(ctx, `SELECT name FROM scenarios WHERE run_id = ? ORDER BY idx`, runID); err != nil {
		return nil, err
	}
	for _, sc := range r.Scenarios {
		r.Tables[sc] = model.NewScenarioTable(sc, len(r.Episodes), len(r.Agents))
	}

	rows, err = s.db.QueryContext(ctx, `SELECT scenario, episode_idx, agent_idx, cumulative_return, avg_price
		FROM agent_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sc        string
			i, j      int
			cum, avgP float64
		)
		if err := rows.Scan(&sc, &i, &j, &cum, &avgP); err != nil {
			return nil, err
		}
		t, ok := r.Tables[sc]
		if !ok {
			return nil, fmt.Errorf("result row for unknown scenario %q", sc)
		}
		t.CumulativeReturn.Set(i, j, cum)
		t.AvgPrice.Set(i, j, avgP)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) names(ctx context.Context, query, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_dir, created_at, episodes, agents FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunInfo
	for rows.Next() {
		var ri RunInfo
		if err := rows.Scan(&ri.ID, &ri.SourceDir, &ri.CreatedAt, &ri.Episodes, &ri.Agents); err != nil {
			return nil, err
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

// SaveSQLite opens dbPath, stores r under runID and closes the database.
func SaveSQLite(ctx context.Context, dbPath, runID, sourceDir string, r *model.Results) error {
	store, err := OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(ctx, runID, sourceDir, r)
}
