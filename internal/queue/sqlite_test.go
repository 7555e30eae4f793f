package queue

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
        CREATE TABLE job_queue (
            id           TEXT PRIMARY KEY,
            type         TEXT NOT NULL,
            payload      TEXT NOT NULL DEFAULT '{}',
            status       TEXT NOT NULL CHECK(status IN ('queued', 'in_progress', 'completed', 'failed', 'dead_letter')),
            attempts     INTEGER NOT NULL DEFAULT 0,
            max_attempts INTEGER NOT NULL DEFAULT 3,
            error        TEXT,
            created_at   DATETIME NOT NULL,
            updated_at   DATETIME NOT NULL
        );
        CREATE INDEX idx_job_queue_claim ON job_queue(type, status, created_at);
    `)
	if err != nil {
		t.Fatalf("create job_queue: %v", err)
	}
	return db
}

func TestJobEnqueueClaimCompleteLifecycle(t *testing.T) {
	db := openTestDB(t)
	q := NewSQLiteQueue(db)
	ctx := context.Background()
	now := time.Now()

	job, err := q.Enqueue(ctx, JobTypeSanitizeAsync, `{"message_id":"m1"}`, now)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != JobStatusQueued {
		t.Fatalf("expected status queued, got %s", job.Status)
	}

	claimed, err := q.Claim(ctx, JobTypeSanitizeAsync, now)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a claimed job")
	}
	if claimed.Status != JobStatusInProgress {
		t.Fatalf("expected status in_progress, got %s", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("expected attempts 1, got %d", claimed.Attempts)
	}

	again, err := q.Claim(ctx, JobTypeSanitizeAsync, now)
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if again != nil {
		t.Fatal("expected no claimable job left")
	}

	if err := q.Complete(ctx, claimed.ID, now); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, err := q.Get(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != JobStatusCompleted {
		t.Fatalf("expected status completed, got %s", got.Status)
	}
}

func TestJobFailRetriesThenDeadLetters(t *testing.T) {
	db := openTestDB(t)
	q := NewSQLiteQueue(db)
	ctx := context.Background()
	now := time.Now()

	job, err := q.Enqueue(ctx, JobTypeExtractLearning, `{}`, now)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	for i := 0; i < DefaultMaxAttempts; i++ {
		claimed, err := q.Claim(ctx, JobTypeExtractLearning, now)
		if err != nil {
			t.Fatalf("Claim attempt %d: %v", i, err)
		}
		if claimed == nil {
			t.Fatalf("expected claimable job on attempt %d", i)
		}
		if err := q.Fail(ctx, claimed.ID, "boom", now); err != nil {
			t.Fatalf("Fail attempt %d: %v", i, err)
		}
	}

	got, err := q.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != JobStatusDeadLetter {
		t.Fatalf("expected dead_letter after %d failures, got %s", DefaultMaxAttempts, got.Status)
	}

	n, err := q.RequeueDeadLetters(ctx, JobTypeExtractLearning, now)
	if err != nil {
		t.Fatalf("RequeueDeadLetters: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 requeued job, got %d", n)
	}
	got, err = q.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get after requeue: %v", err)
	}
	if got.Status != JobStatusQueued || got.Attempts != 0 {
		t.Fatalf("expected requeued job reset to queued/0 attempts, got %s/%d", got.Status, got.Attempts)
	}
}

func TestClaimConcurrentExactlyOneWinner(t *testing.T) {
	db := openTestDB(t)
	q := NewSQLiteQueue(db)
	ctx := context.Background()
	now := time.Now()

	if _, err := q.Enqueue(ctx, JobTypeSanitizeAsync, `{}`, now); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := q.Claim(ctx, JobTypeSanitizeAsync, time.Now())
			if err != nil {
				t.Errorf("Claim: %v", err)
				return
			}
			if job != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", wins)
	}
}
