package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type sqliteQueue struct {
	db *sql.DB
}

// NewSQLiteQueue wraps an existing database handle (opened and migrated by
// internal/store) with job queue operations. It does not own the handle's
// lifecycle; the caller that opened it is responsible for closing it.
func NewSQLiteQueue(db *sql.DB) Queue {
	return &sqliteQueue{db: db}
}

func newID() string { return ulid.Make().String() }

func (q *sqliteQueue) Enqueue(ctx context.Context, jobType, payload string, now time.Time) (*Job, error) {
	j := &Job{
		ID:          newID(),
		Type:        jobType,
		Payload:     payload,
		Status:      JobStatusQueued,
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	_, err := q.db.ExecContext(ctx, `
        INSERT INTO job_queue(id, type, payload, status, attempts, max_attempts, error, created_at, updated_at)
        VALUES(?,?,?,?,?,?,NULL,?,?)
    `, j.ID, j.Type, j.Payload, j.Status, j.Attempts, j.MaxAttempts, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return j, nil
}

// Claim atomically claims the oldest queued job of jobType. The UPDATE's
// WHERE clause re-checks status='queued' so that only one concurrent caller
// can flip a given row; SQLite's row lock on the write serializes the race.
func (q *sqliteQueue) Claim(ctx context.Context, jobType string, now time.Time) (*Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `
        SELECT id FROM job_queue WHERE type = ? AND status = 'queued' ORDER BY created_at ASC LIMIT 1
    `, jobType).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select claimable job: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
        UPDATE job_queue SET status = 'in_progress', attempts = attempts + 1, updated_at = ?
        WHERE id = ? AND status = 'queued'
    `, now.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Lost the race to another claimer between SELECT and UPDATE.
		return nil, tx.Commit()
	}

	j := &Job{}
	var errMsg sql.NullString
	err = tx.QueryRowContext(ctx, `
        SELECT id, type, payload, status, attempts, max_attempts, error, created_at, updated_at
        FROM job_queue WHERE id = ?
    `, id).Scan(&j.ID, &j.Type, &j.Payload, &j.Status, &j.Attempts, &j.MaxAttempts, &errMsg, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reread claimed job: %w", err)
	}
	j.Error = errMsg.String

	return j, tx.Commit()
}

func (q *sqliteQueue) Complete(ctx context.Context, id string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
        UPDATE job_queue SET status = 'completed', updated_at = ? WHERE id = ?
    `, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (q *sqliteQueue) Fail(ctx context.Context, id, errMsg string, now time.Time) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRowContext(ctx, `SELECT attempts, max_attempts FROM job_queue WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err != nil {
		return fmt.Errorf("read job for failure: %w", err)
	}

	nextStatus := JobStatusQueued
	if attempts >= maxAttempts {
		nextStatus = JobStatusDeadLetter
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE job_queue SET status = ?, error = ?, updated_at = ? WHERE id = ?
    `, nextStatus, errMsg, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}

	return tx.Commit()
}

func (q *sqliteQueue) Get(ctx context.Context, id string) (*Job, error) {
	j := &Job{}
	var errMsg sql.NullString
	err := q.db.QueryRowContext(ctx, `
        SELECT id, type, payload, status, attempts, max_attempts, error, created_at, updated_at
        FROM job_queue WHERE id = ?
    `, id).Scan(&j.ID, &j.Type, &j.Payload, &j.Status, &j.Attempts, &j.MaxAttempts, &errMsg, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	j.Error = errMsg.String
	return j, nil
}

func (q *sqliteQueue) RequeueDeadLetters(ctx context.Context, jobType string, now time.Time) (int, error) {
	var res sql.Result
	var err error
	if jobType == "" {
		res, err = q.db.ExecContext(ctx, `
            UPDATE job_queue SET status = 'queued', attempts = 0, error = NULL, updated_at = ?
            WHERE status = 'dead_letter'
        `, now.UTC())
	} else {
		res, err = q.db.ExecContext(ctx, `
            UPDATE job_queue SET status = 'queued', attempts = 0, error = NULL, updated_at = ?
            WHERE status = 'dead_letter' AND type = ?
        `, now.UTC(), jobType)
	}
	if err != nil {
		return 0, fmt.Errorf("requeue dead letters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
