package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"collab-service/internal/apperrors"
	"collab-service/internal/observability"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so every repository can run
// standalone or inside a transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Repos bundles the repositories bound to one transaction.
type Repos struct {
	Matches       MatchRepository
	Conversations ConversationRepository
	Messages      MessageRepository
}

// Transactor runs a unit of work atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
	// InPairTx additionally serializes all work on the unordered pair (a, b).
	InPairTx(ctx context.Context, a, b string, fn func(ctx context.Context, repos Repos) error) error
}

// Store is the sqlx-backed Transactor.
type Store struct {
	db          *sqlx.DB
	maxAttempts uint64
}

// NewStore constructs a Store. maxAttempts bounds retries of transient failures.
func NewStore(db *sqlx.DB, maxAttempts uint64) *Store {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	return &Store{db: db, maxAttempts: maxAttempts}
}

// Repos returns repositories bound to the pool, outside any transaction.
func (s *Store) Repos() Repos {
	return bind(s.db)
}

func bind(q DBTX) Repos {
	return Repos{
		Matches:       NewMatchRepo(q),
		Conversations: NewConversationRepo(q),
		Messages:      NewMessageRepo(q),
	}
}

// InTx implements Transactor.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	return s.retry(ctx, func() error {
		return s.once(ctx, "", fn)
	})
}

// InPairTx implements Transactor. The advisory lock is released on commit or rollback.
func (s *Store) InPairTx(ctx context.Context, a, b string, fn func(ctx context.Context, repos Repos) error) error {
	key := PairKey(a, b)
	return s.retry(ctx, func() error {
		return s.once(ctx, key, fn)
	})
}

func (s *Store) retry(ctx context.Context, attempt func() error) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxAttempts-1)
	return backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		if apperrors.IsRetryable(err) {
			observability.IncTxRetry()
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}

func (s *Store) once(ctx context.Context, lockKey string, fn func(ctx context.Context, repos Repos) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbError("store.Begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if lockKey != "" {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return dbError("store.PairLock", err)
		}
	}

	if err = fn(ctx, bind(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return dbError("store.Commit", err)
	}
	return nil
}

// PairKey is the canonical key of an unordered user pair.
func PairKey(a, b string) string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// dbError converts a driver error into a DatastoreError carrying the operation name.
func dbError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
		return apperrors.Validation("invalid identifier")
	}
	return apperrors.Datastore("datastore error", errors.Wrap(err, op), isTransient(err))
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "40001", pqErr.Code == "40P01":
			return true
		case pqErr.Code.Class() == "08":
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514"
}
