package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
	"mortalitytool/internal/pipeline"
)

//go:embed schema.sql
var Schema string

// ErrNoRuns is returned by readers before any run has been saved.
var ErrNoRuns = errors.New("no report runs stored")

// Store persists run results to Postgres and serves the latest run's
// aggregate tables.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func New(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Migrate creates the report tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Run describes one saved run.
type Run struct {
	RunID       string               `json:"run_id"`
	CreatedAt   time.Time            `json:"created_at"`
	Week        int                  `json:"week,omitempty"`
	JoinedRows  int                  `json:"joined_rows"`
	Diagnostics pipeline.Diagnostics `json:"diagnostics"`
}

var (
	joinedCols = []string{
		"run_id", "ord", "region", "primary_center", "mr_no", "patient_name",
		"death_date", "death_time", "discharge_remarks", "death_reason",
		"death_category", "sponsor", "month", "week", "extras",
	}
	countCols = []string{
		"run_id", "scope", "ord", "region", "primary_center", "month", "count",
	}
	categoryCols = []string{
		"run_id", "scope", "ord", "region", "primary_center", "month",
		"category", "count", "percentage",
	}
	weeklyCols = []string{
		"run_id", "ord", "region", "clinics", "mr_no", "patient_name", "treatment",
		"sponsor", "date_of_death", "cause_of_death", "cause_of_death_grouped", "week",
	}
)

// extra is the stored shape of one passthrough column.
type extra struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveResult stores every table of res under res.RunID in one transaction.
// Nothing is visible to readers unless all tables copy successfully.
func (s *Store) SaveResult(ctx context.Context, res *pipeline.Result) error {
	start := time.Now()
	runID := res.RunID.String()

	diags := res.Diagnostics
	if diags == nil {
		diags = pipeline.Diagnostics{}
	}
	diagJSON, err := json.Marshal(diags)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO report_runs (run_id, week, joined_rows, diagnostics) VALUES ($1, $2, $3, $4)`,
		runID, pgtype.Int4{Int32: int32(res.Week), Valid: res.Week > 0}, len(res.Joined), diagJSON,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}

	joinedRows := make([][]interface{}, 0, len(res.Joined))
	for i, r := range res.Joined {
		ex := make([]extra, len(r.Extras))
		for j, f := range r.Extras {
			ex[j] = extra{Name: f.Name, Value: f.Value}
		}
		exJSON, err := json.Marshal(ex)
		if err != nil {
			return fmt.Errorf("encode extras for %s: %w", r.MRNo, err)
		}
		joinedRows = append(joinedRows, []interface{}{
			runID, int32(i), toText(r.Region), r.PrimaryCenter, r.MRNo, r.PatientName,
			r.DeathDate, r.DeathTime, toText(r.DischargeRemarks), r.DeathReason,
			toText(r.DeathCategory), toText(r.Sponsor), r.Month, int32(r.Week), exJSON,
		})
	}
	if err := copyRows(ctx, tx, "joined_deaths", joinedCols, joinedRows); err != nil {
		return err
	}

	var countRows, categoryRows [][]interface{}
	for _, sc := range model.Scopes {
		for i, c := range res.Aggregates.Counts[sc] {
			countRows = append(countRows, []interface{}{
				runID, sc.String(), int32(i), toText(c.Region), toText(c.Facility), c.Month, int32(c.Count),
			})
		}
		for i, c := range res.Aggregates.Categories[sc] {
			categoryRows = append(categoryRows, []interface{}{
				runID, sc.String(), int32(i), toText(c.Region), toText(c.Facility), c.Month,
				c.Category, int32(c.Count), c.Percentage,
			})
		}
	}
	if err := copyRows(ctx, tx, "death_counts", countCols, countRows); err != nil {
		return err
	}
	if err := copyRows(ctx, tx, "death_categories", categoryCols, categoryRows); err != nil {
		return err
	}

	weeklyRows := make([][]interface{}, 0, len(res.Weekly))
	for i, w := range res.Weekly {
		weeklyRows = append(weeklyRows, []interface{}{
			runID, int32(i), toText(w.Region), w.Clinics, w.MRNo, w.PatientName, w.Treatment,
			toText(w.Sponsor), w.DateOfDeath, toText(w.CauseOfDeath), w.CauseOfDeathGrouped, int32(w.Week),
		})
	}
	if err := copyRows(ctx, tx, "weekly_deaths", weeklyCols, weeklyRows); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", runID, err)
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("joined", len(joinedRows)).
		Int("counts", len(countRows)).
		Int("categories", len(categoryRows)).
		Int("weekly", len(weeklyRows)).
		Dur("elapsed", time.Since(start)).
		Msg("run stored")
	return nil
}

func copyRows(ctx context.Context, tx pgx.Tx, table string, cols []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}
	return nil
}

// LatestRun returns the most recently saved run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var (
		run      Run
		week     pgtype.Int4
		diagJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, created_at, week, joined_rows, diagnostics
		   FROM report_runs ORDER BY seq DESC LIMIT 1`,
	).Scan(&run.RunID, &run.CreatedAt, &week, &run.JoinedRows, &diagJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, fmt.Errorf("query latest run: %w", err)
	}
	if week.Valid {
		run.Week = int(week.Int32)
	}
	if err := json.Unmarshal(diagJSON, &run.Diagnostics); err != nil {
		return Run{}, fmt.Errorf("decode diagnostics: %w", err)
	}
	return run, nil
}

func (s *Store) latestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT run_id FROM report_runs ORDER BY seq DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return id, nil
}

// Counts returns the latest run's monthly count table for scope.
func (s *Store) Counts(ctx context.Context, scope model.Scope) ([]model.CountRow, error) {
	runID, err := s.latestRunID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT region, primary_center, month, count
		   FROM death_counts WHERE run_id = $1 AND scope = $2 ORDER BY ord`,
		runID, scope.String())
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	out := []model.CountRow{}
	for rows.Next() {
		var (
			c                model.CountRow
			region, facility pgtype.Text
		)
		if err := rows.Scan(&region, &facility, &c.Month, &c.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		c.Region, c.Facility = fromText(region), fromText(facility)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Categories returns the latest run's cause-of-death table for scope.
func (s *Store) Categories(ctx context.Context, scope model.Scope) ([]model.CategoryRow, error) {
	runID, err := s.latestRunID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT region, primary_center, month, category, count, percentage
		   FROM death_categories WHERE run_id = $1 AND scope = $2 ORDER BY ord`,
		runID, scope.String())
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := []model.CategoryRow{}
	for rows.Next() {
		var (
			c                model.CategoryRow
			region, facility pgtype.Text
		)
		if err := rows.Scan(&region, &facility, &c.Month, &c.Category, &c.Count, &c.Percentage); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Region, c.Facility = fromText(region), fromText(facility)
		out = append(out, c)
	}
	return out, rows.Err()
}

func toText(v null.String) pgtype.Text {
	return pgtype.Text{String: v.String, Valid: v.Valid}
}

func fromText(t pgtype.Text) null.String {
	return null.NewString(t.String, t.Valid)
}
