package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when no run matches an ID or prefix.
var ErrRunNotFound = errors.New("run not found")

const runColumns = "id, manifest, status, targets, failed, started_at, finished_at"

const resultColumns = "run_id, item, target, path, kind, source, error_message, digest, frames, channels, sample_rate, loop_start, loop_end, created_at"

// BeginRun records the start of a run over manifest and returns it.
func (s *Store) BeginRun(ctx context.Context, manifest string) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Manifest: manifest, Status: RunRunning}
	started := s.timestamp()
	if err := s.exec(ctx,
		"INSERT INTO runs (id, manifest, status, started_at) VALUES (?, ?, ?, ?)",
		run.ID, manifest, string(RunRunning), started,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	run.StartedAt, _ = parseTimeString(started)
	return run, nil
}

// RecordResult appends a result row to runID.
func (s *Store) RecordResult(ctx context.Context, runID string, res Result) error {
	kind := strings.TrimSpace(res.Kind)
	if kind == "" {
		return errors.New("record result: kind required")
	}
	if err := s.exec(ctx,
		`INSERT INTO results (run_id, item, target, path, kind, source, error_message, digest,
			frames, channels, sample_rate, loop_start, loop_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Item, res.Target, res.Path, kind,
		nullableString(res.Source), nullableString(res.Error), nullableString(res.Digest),
		res.Frames, res.Channels, res.SampleRate, res.LoopStart, res.LoopEnd, s.timestamp(),
	); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// FinishRun closes runID, deriving its counters from the recorded results.
func (s *Store) FinishRun(ctx context.Context, runID string) (*Run, error) {
	if err := s.exec(ctx,
		`UPDATE runs SET
			targets = (SELECT COUNT(DISTINCT item || ':' || target) FROM results WHERE run_id = ?),
			failed = (SELECT COUNT(DISTINCT item || ':' || target) FROM results WHERE run_id = ? AND kind != 'ok'),
			finished_at = ?
		WHERE id = ?`,
		runID, runID, s.timestamp(), runID,
	); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	if err := s.exec(ctx,
		"UPDATE runs SET status = CASE WHEN failed > 0 THEN ? ELSE ? END WHERE id = ?",
		string(RunPartial), string(RunCompleted), runID,
	); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	return s.GetRun(ctx, runID)
}

// GetRun returns the run whose ID equals or uniquely starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2",
		id, id+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous", id)
	}
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Results returns the rows of runID in item, target, path order.
func (s *Store) Results(ctx context.Context, runID string) ([]Result, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+resultColumns+" FROM results WHERE run_id = ? ORDER BY item, target, path, id", runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// LastDigest returns the digest most recently written to path by a run
// other than excludeRun. The boolean is false when path was never written.
func (s *Store) LastDigest(ctx context.Context, path, excludeRun string) (string, bool, error) {
	ctx = ensureContext(ctx)
	var digest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT digest FROM results
		WHERE path = ? AND kind = 'ok' AND run_id != ?
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		path, excludeRun,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query digest: %w", err)
	}
	return digest.String, digest.Valid, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Manifest, &status, &run.Targets, &run.Failed, &startedRaw, &finishedRaw); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func scanResult(scanner interface{ Scan(dest ...any) error }) (Result, error) {
	var (
		res        Result
		source     sql.NullString
		errMsg     sql.NullString
		digest     sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&res.RunID,
		&res.Item,
		&res.Target,
		&res.Path,
		&res.Kind,
		&source,
		&errMsg,
		&digest,
		&res.Frames,
		&res.Channels,
		&res.SampleRate,
		&res.LoopStart,
		&res.LoopEnd,
		&createdRaw,
	); err != nil {
		return Result{}, err
	}
	res.Source = source.String
	res.Error = errMsg.String
	res.Digest = digest.String
	if created, err := parseTimeString(createdRaw); err == nil {
		res.CreatedAt = created
	}
	return res, nil
}
