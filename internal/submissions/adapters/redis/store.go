package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "idempotency:"

// Store keeps results as JSON strings. SET NX without expiry is the
// conditional write, so a key is never overwritten and never expires.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

func NewStore(client goredis.Cmdable, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: prefix}
}

func (s *Store) Get(ctx context.Context, key domain.IdempotencyKey) (*domain.StoredResult, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+key.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, wrapError("redis get", err)
	}

	var result domain.StoredResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	return &result, nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) (bool, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("encode result: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.keyPrefix+key.String(), raw, 0).Result()
	if err != nil {
		return false, wrapError("redis setnx", err)
	}
	return ok, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

func wrapError(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ports.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUnavailable reports dial, timeout and dropped-connection failures.
func isUnavailable(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, goredis.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
