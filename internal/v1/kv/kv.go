// Package kv implements the typed key-value store adapter described in
// spec.md §4.1: get/get_many/put/delete over a keyed byte store, with a
// "not found" distinction and a small set of error kinds. It is backed by
// Redis (github.com/redis/go-redis/v9) the same way the teacher's
// internal/v1/bus.Service backs its pub/sub on top of go-redis, wrapped in a
// sony/gobreaker circuit breaker so a flaky store degrades into explicit
// Internal errors instead of hanging every caller.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/metrics"
	"go.uber.org/zap"
)

// ErrKind is the KV-layer error taxonomy from spec.md §4.1.
type ErrKind int

const (
	ErrKindNone ErrKind = iota
	ErrKindNotFound
	ErrKindDuplicateValue
	ErrKindParsingFailure
	ErrKindOther
)

// Error is returned by every Store method on failure.
type Error struct {
	Kind  ErrKind
	Key   string
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrKindNotFound:
		return fmt.Sprintf("kv: key %q not found", e.Key)
	case ErrKindDuplicateValue:
		return fmt.Sprintf("kv: key %q already exists", e.Key)
	case ErrKindParsingFailure:
		return fmt.Sprintf("kv: failed to parse value for key %q: %v", e.Key, e.Cause)
	default:
		return fmt.Sprintf("kv: operation on key %q failed: %v", e.Key, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is a kv.Error of kind NotFound.
func IsNotFound(err error) bool {
	var kvErr *Error
	if errors.As(err, &kvErr) {
		return kvErr.Kind == ErrKindNotFound
	}
	return false
}

func notFound(key string) error {
	return &Error{Kind: ErrKindNotFound, Key: key}
}

func duplicate(key string) error {
	return &Error{Kind: ErrKindDuplicateValue, Key: key}
}

func parsingFailure(key string, cause error) error {
	return &Error{Kind: ErrKindParsingFailure, Key: key, Cause: cause}
}

func other(key string, cause error) error {
	return &Error{Kind: ErrKindOther, Key: key, Cause: cause}
}

// opOutcome labels a completed operation for metrics.StoreOperations,
// derived from the kv.Error kind the operation actually returned.
func opOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var kvErr *Error
	if errors.As(err, &kvErr) {
		switch kvErr.Kind {
		case ErrKindNotFound:
			return "not_found"
		case ErrKindDuplicateValue:
			return "duplicate"
		case ErrKindParsingFailure:
			return "parse_error"
		}
	}
	return "error"
}

// recordOp observes StoreOperationDuration and increments StoreOperations
// for op, based on the error the operation returned.
func recordOp(op string, start time.Time, err error) {
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.StoreOperations.WithLabelValues(op, opOutcome(err)).Inc()
}

// Client is the subset of *redis.Client the store needs, kept as an
// interface so tests can swap in miniredis or a hand-rolled fake.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Store is a typed KV adapter over a Redis client, generic over any value
// type with a JSON encoding. One Store is shared by every repository
// (internal/v1/store); the repositories only add the key prefix.
type Store[T any] struct {
	client Client
	cb     *gobreaker.CircuitBreaker
	prefix string
}

// New creates a Store for values of type T, keying with the given prefix
// (e.g. "user:", "room:", "game:"). A single CircuitBreaker instance should
// be shared by all Stores built over the same underlying client; pass one in
// via NewWithBreaker if you need to share, otherwise New makes a private one.
// The breaker reports its state transitions to metrics.CircuitBreakerState,
// labeled by name, per the teacher's internal/v1/bus.Service wiring of the
// same gobreaker.Settings.OnStateChange hook.
func New[T any](client Client, prefix string) *Store[T] {
	name := "kv-" + prefix
	return NewWithBreaker[T](client, prefix, gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}))
}

// NewWithBreaker is like New but takes an existing circuit breaker, letting
// callers share failure state across repositories backed by the same Redis
// instance. Callers that build cb themselves (e.g. cmd/lobbyserver) should
// set OnStateChange the same way New does if they want CircuitBreakerState
// reported.
func NewWithBreaker[T any](client Client, prefix string, cb *gobreaker.CircuitBreaker) *Store[T] {
	return &Store[T]{client: client, cb: cb, prefix: prefix}
}

func (s *Store[T]) key(id string) string {
	return s.prefix + id
}

// Get fetches and decodes the value stored under id, or a NotFound error.
func (s *Store[T]) Get(ctx context.Context, id string) (value T, err error) {
	start := time.Now()
	defer func() { recordOp("get", start, err) }()

	key := s.key(id)

	raw, cbErr := s.cb.Execute(func() (interface{}, error) {
		return s.client.Get(ctx, key).Result()
	})
	if cbErr != nil {
		if errors.Is(cbErr, redis.Nil) {
			err = notFound(key)
			return
		}
		if cbErr == gobreaker.ErrOpenState {
			logging.Warn(ctx, "kv: circuit breaker open on get", zap.String("key", key))
			err = other(key, cbErr)
			return
		}
		logging.Error(ctx, "kv: get failed", zap.String("key", key), zap.Error(cbErr))
		err = other(key, cbErr)
		return
	}

	if unmarshalErr := json.Unmarshal([]byte(raw.(string)), &value); unmarshalErr != nil {
		var zero T
		value = zero
		err = parsingFailure(key, unmarshalErr)
		return
	}
	return value, nil
}

// GetMany fetches every id in order, preserving order in the returned slice.
// Any missing key aborts the whole call with NotFound, and any decode
// failure aborts it with ParsingFailure per spec.md §4.1 ("fails on any
// parse error").
func (s *Store[T]) GetMany(ctx context.Context, ids []string) (values []T, err error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { recordOp("get_many", start, err) }()

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	res, cbErr := s.cb.Execute(func() (interface{}, error) {
		return s.client.MGet(ctx, keys...).Result()
	})
	if cbErr != nil {
		if cbErr == gobreaker.ErrOpenState {
			logging.Warn(ctx, "kv: circuit breaker open on get_many")
			err = other("mget", cbErr)
			return nil, err
		}
		logging.Error(ctx, "kv: get_many failed", zap.Error(cbErr))
		err = other("mget", cbErr)
		return nil, err
	}

	raws := res.([]interface{})
	values = make([]T, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			err = notFound(keys[i])
			return nil, err
		}
		str, ok := raw.(string)
		if !ok {
			err = parsingFailure(keys[i], fmt.Errorf("unexpected value type %T", raw))
			return nil, err
		}
		var value T
		if unmarshalErr := json.Unmarshal([]byte(str), &value); unmarshalErr != nil {
			err = parsingFailure(keys[i], unmarshalErr)
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// Put upserts value under id and returns it back (mirroring spec.md's
// put(key, value) -> value signature).
func (s *Store[T]) Put(ctx context.Context, id string, value T) (result T, err error) {
	start := time.Now()
	defer func() { recordOp("put", start, err) }()

	key := s.key(id)

	data, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		err = parsingFailure(key, marshalErr)
		return
	}

	_, cbErr := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, key, data, 0).Err()
	})
	if cbErr != nil {
		if cbErr == gobreaker.ErrOpenState {
			logging.Warn(ctx, "kv: circuit breaker open on put", zap.String("key", key))
			err = other(key, cbErr)
			return
		}
		logging.Error(ctx, "kv: put failed", zap.String("key", key), zap.Error(cbErr))
		err = other(key, cbErr)
		return
	}
	return value, nil
}

// PutIfAbsent inserts value under id only if no value currently exists,
// returning DuplicateValue otherwise. Used where the caller needs true
// insert-only semantics (spec.md §4.1 reserves this for such adapters).
func (s *Store[T]) PutIfAbsent(ctx context.Context, id string, value T) (result T, err error) {
	start := time.Now()
	defer func() { recordOp("put_if_absent", start, err) }()

	key := s.key(id)

	data, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		err = parsingFailure(key, marshalErr)
		return
	}

	res, cbErr := s.cb.Execute(func() (interface{}, error) {
		return s.client.SetNX(ctx, key, data, 0).Result()
	})
	if cbErr != nil {
		if cbErr == gobreaker.ErrOpenState {
			logging.Warn(ctx, "kv: circuit breaker open on put_if_absent", zap.String("key", key))
			err = other(key, cbErr)
			return
		}
		logging.Error(ctx, "kv: put_if_absent failed", zap.String("key", key), zap.Error(cbErr))
		err = other(key, cbErr)
		return
	}
	if !res.(bool) {
		err = duplicate(key)
		return
	}
	return value, nil
}

// Delete removes id, succeeding idempotently whether or not it existed.
func (s *Store[T]) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { recordOp("delete", start, err) }()

	key := s.key(id)
	_, cbErr := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, key).Err()
	})
	if cbErr != nil {
		if cbErr == gobreaker.ErrOpenState {
			logging.Warn(ctx, "kv: circuit breaker open on delete", zap.String("key", key))
			err = other(key, cbErr)
			return
		}
		logging.Error(ctx, "kv: delete failed", zap.String("key", key), zap.Error(cbErr))
		err = other(key, cbErr)
		return
	}
	return nil
}

// Ping verifies connectivity to the underlying store, used by health checks.
func (s *Store[T]) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
