package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

const (
	defaultTxTimeout = 5 * time.Second
	defaultAttempts  = 3
	lockShards       = 128
)

// Runner runs a unit of work. Calls that share a key never interleave; the
// callee receives the handle its repositories must be bound to.
type Runner interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context, tx DBTX) error) error
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// SQLRunner runs fn in a database transaction. Serialization per key comes
// from the row locks fn takes (SELECT ... FOR UPDATE), so the key itself is
// only used for error context.
type SQLRunner struct {
	db       *sql.DB
	attempts int
	timeout  time.Duration
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db, attempts: defaultAttempts}
}

func (r *SQLRunner) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, tx DBTX) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tx %s aborted: %w", key, err)
	}
	ctx, cancel := withDefaultTimeout(ctx, r.timeout)
	defer cancel()

	return WithTxRetry(ctx, r.db, nil, r.attempts, fn)
}

// LockingRunner serializes work per key with sharded in-process mutexes.
// It is paired with the in-memory repositories, which ignore the DBTX handle,
// so fn receives nil. Nothing is rolled back on error.
type LockingRunner struct {
	shards  [lockShards]sync.Mutex
	timeout time.Duration
}

func NewLockingRunner() *LockingRunner {
	return &LockingRunner{}
}

func (r *LockingRunner) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, tx DBTX) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tx %s aborted: %w", key, err)
	}
	ctx, cancel := withDefaultTimeout(ctx, r.timeout)
	defer cancel()

	shard := &r.shards[shardFor(key)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tx %s aborted: %w", key, err)
	}
	return fn(ctx, nil)
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockShards
}
