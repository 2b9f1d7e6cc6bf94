package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dejobratic/ordersubmit/internal/database"
	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists results in the idempotency_keys table. The primary key on
// key plus ON CONFLICT DO NOTHING makes the insert the conditional write.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, key domain.IdempotencyKey) (*domain.StoredResult, error) {
	query := `
		SELECT status, data
		FROM idempotency_keys
		WHERE key = $1
	`

	var (
		result domain.StoredResult
		data   string
	)
	err := s.pool.QueryRow(ctx, query, key.String()).Scan(&result.Status, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapError("select idempotency key", err)
	}

	if err := json.Unmarshal([]byte(data), &result.Data); err != nil {
		return nil, fmt.Errorf("decode stored order: %w", err)
	}

	return &result, nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (key, status, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`

	data, err := json.Marshal(result.Data)
	if err != nil {
		return false, fmt.Errorf("encode order: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, key.String(), result.Status, string(data))
	if err != nil {
		return false, wrapError("insert idempotency key", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := database.CheckHealth(ctx, s.pool); err != nil {
		return fmt.Errorf("ping: %w: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

// wrapError marks connection-level failures with ports.ErrStoreUnavailable so
// callers can tell an outage from a bad query.
func wrapError(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ports.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	var (
		connectErr *pgconn.ConnectError
		netErr     net.Error
		pgErr      *pgconn.PgError
	)
	switch {
	case errors.As(err, &connectErr), errors.As(err, &netErr), pgconn.Timeout(err):
		return true
	case errors.As(err, &pgErr):
		// Class 08 is connection exception; 57P01-57P03 are server shutdown states.
		return strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	return false
}
