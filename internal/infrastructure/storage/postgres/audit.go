package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/audit"
)

// Compression of a stored snapshot.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// DefaultCompressThreshold is the snapshot size above which snapshots are
// stored zstd-compressed.
const DefaultCompressThreshold = 8 * 1024

// AuditRecord is one row of sys_audit.
type AuditRecord struct {
	ID                 id.ID           `db:"id" json:"id"`
	EntityType         string          `db:"entity_type" json:"entityType"`
	EntityID           id.ID           `db:"entity_id" json:"entityId"`
	Action             audit.Action    `db:"action" json:"action"`
	UserID             *string         `db:"user_id" json:"userId,omitempty"`
	RequestID          *string         `db:"request_id" json:"requestId,omitempty"`
	Snapshot           json.RawMessage `db:"snapshot" json:"snapshot,omitempty"`
	SnapshotCompressed []byte          `db:"snapshot_compressed" json:"-"`
	Compression        Compression     `db:"compression" json:"-"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
}

// AuditRecorder implements audit.Recorder on sys_audit, inside the
// caller's transaction.
type AuditRecorder struct {
	txm       *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewAuditRecorder creates the recorder. Snapshots larger than threshold
// bytes are compressed; zero selects DefaultCompressThreshold.
func NewAuditRecorder(txm *TxManager, threshold int) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	return &AuditRecorder{txm: txm, encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// Encode builds the row for entry: snapshot marshalled and, above the
// threshold, compressed.
func (a *AuditRecorder) Encode(ctx context.Context, entry audit.Entry) (AuditRecord, error) {
	rec := AuditRecord{
		ID:          id.New(),
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      entry.Action,
		UserID:      appctx.ActorPtr(ctx),
		Compression: CompressionNone,
		CreatedAt:   entry.At.UTC(),
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if reqID := appctx.GetRequestID(ctx); reqID != "" {
		rec.RequestID = &reqID
	}

	if entry.Snapshot != nil {
		raw, err := json.Marshal(entry.Snapshot)
		if err != nil {
			return rec, fmt.Errorf("marshal audit snapshot: %w", err)
		}
		if len(raw) > a.threshold {
			rec.SnapshotCompressed = a.encoder.EncodeAll(raw, nil)
			rec.Compression = CompressionZstd
		} else {
			rec.Snapshot = raw
		}
	}
	return rec, nil
}

// Decode restores Snapshot of a compressed row.
func (a *AuditRecorder) Decode(rec *AuditRecord) error {
	if rec.Compression != CompressionZstd || len(rec.SnapshotCompressed) == 0 {
		return nil
	}
	raw, err := a.decoder.DecodeAll(rec.SnapshotCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress audit snapshot: %w", err)
	}
	rec.Snapshot = raw
	rec.SnapshotCompressed = nil
	return nil
}

// Record implements audit.Recorder.
func (a *AuditRecorder) Record(ctx context.Context, entry audit.Entry) error {
	rec, err := a.Encode(ctx, entry)
	if err != nil {
		return err
	}

	_, err = a.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, request_id,
			snapshot, snapshot_compressed, compression, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID, rec.EntityType, rec.EntityID, rec.Action, rec.UserID, rec.RequestID,
		rec.Snapshot, rec.SnapshotCompressed, rec.Compression, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the newest entries of an entity first.
func (a *AuditRecorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []AuditRecord
	err := pgxscan.Select(ctx, a.txm.GetQuerier(ctx), &out, `
		SELECT id, entity_type, entity_id, action, user_id, request_id,
		       snapshot, snapshot_compressed, compression, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	for i := range out {
		if err := a.Decode(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
