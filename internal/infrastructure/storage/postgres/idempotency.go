package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stockflow/internal/core/apperror"
)

// IdempotencyStatus is the state of a keyed request.
type IdempotencyStatus string

const (
	IdempotencyPending IdempotencyStatus = "pending"
	IdempotencySuccess IdempotencyStatus = "success"
	IdempotencyFailed  IdempotencyStatus = "failed"
)

// staleAfter is how long a pending key may sit before another request
// reclaims it; a pending key that old belongs to a crashed request.
const staleAfter = time.Minute

// IdempotencyReplay is a stored response to send again.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore remembers responses of mutating requests by
// X-Idempotency-Key, so a retried create or bulk delete does not move
// stock twice.
type IdempotencyStore struct {
	txm *TxManager
	ttl time.Duration
}

// NewIdempotencyStore creates a store keeping keys for ttl.
func NewIdempotencyStore(txm *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{txm: txm, ttl: ttl}
}

type idempotencyRow struct {
	Inserted    bool
	UserID      string
	Operation   string
	Status      IdempotencyStatus
	RequestHash string
	Response    []byte
	StatusCode  *int
	ContentType *string
	UpdatedAt   time.Time
}

// Acquire claims key for one request. It returns a replay when the key
// already holds a finished response for the same request, nil when the
// caller owns the key and should proceed.
func (s *IdempotencyStore) Acquire(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := time.Now().UTC()

	var row idempotencyRow
	err := s.txm.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET expires_at = sys_idempotency.expires_at
		RETURNING (xmax = 0), user_id, operation, status, request_hash, response,
		          response_status, response_content_type, updated_at
	`, key, userID, operation, IdempotencyPending, requestHash, now, now.Add(s.ttl)).Scan(
		&row.Inserted, &row.UserID, &row.Operation, &row.Status, &row.RequestHash,
		&row.Response, &row.StatusCode, &row.ContentType, &row.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if row.Inserted {
		return nil, nil
	}

	if row.UserID != userID || row.Operation != operation || row.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("operation", operation)
	}

	switch row.Status {
	case IdempotencySuccess, IdempotencyFailed:
		return replayOf(row), nil
	default:
		if now.Sub(row.UpdatedAt) < staleAfter {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		tag, err := s.txm.GetQuerier(ctx).Exec(ctx, `
			UPDATE sys_idempotency SET updated_at = $1
			WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4
		`, now, key, IdempotencyPending, row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("reclaim idempotency key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, nil
	}
}

func replayOf(row idempotencyRow) *IdempotencyReplay {
	r := &IdempotencyReplay{StatusCode: http.StatusOK, ContentType: "application/json", Body: row.Response}
	if row.StatusCode != nil && *row.StatusCode != 0 {
		r.StatusCode = *row.StatusCode
	}
	if row.ContentType != nil && *row.ContentType != "" {
		r.ContentType = *row.ContentType
	}
	return r
}

// Complete stores a successful response under key.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, IdempotencySuccess, statusCode, contentType, body)
}

// Fail stores an error response under key. The body is JSON-encoded.
func (s *IdempotencyStore) Fail(ctx context.Context, key string, statusCode int, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		body, _ = json.Marshal(map[string]string{"message": err.Error()})
	}
	return s.finish(ctx, key, IdempotencyFailed, statusCode, "application/json", body)
}

// Release forgets a pending key so the client may retry with it. Used for
// failures that say nothing about the request itself.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE idempotency_key = $1 AND status = $2`,
		key, IdempotencyPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, body []byte) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response = $2, response_status = $3,
		    response_content_type = $4, updated_at = $5
		WHERE idempotency_key = $6
	`, status, body, statusCode, contentType, time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// CleanupExpired deletes expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, `DELETE FROM sys_idempotency WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
