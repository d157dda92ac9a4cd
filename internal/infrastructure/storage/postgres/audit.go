package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

const auditEntriesTable = "audit_entries"

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold: payloads above this size are stored compressed.
const defaultCompressThreshold = 10 * 1024

// AuditService persists audit entries alongside ledger mutations, in the same
// transaction. Large payloads are zstd-compressed.
type AuditService struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	compressThreshold int
}

// Compile-time check against the domain interface.
var _ ledger.AuditRecorder = (*AuditService)(nil)

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &AuditService{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Record implements ledger.AuditRecorder.
func (s *AuditService) Record(ctx context.Context, entry ledger.AuditEntry) error {
	payload := []byte(entry.Payload)
	algo := CompressionNone
	if len(payload) > s.compressThreshold {
		payload = s.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		algo = CompressionZstd
	}

	q := s.builder.Insert(auditEntriesTable).
		Columns("id", "entity_type", "entity_id", "action", "actor", "payload", "compression_algo", "occurred_at").
		Values(id.New(), entry.EntityType, entry.EntityID, string(entry.Action), entry.Actor, payload, string(algo), entry.OccurredAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	querier := s.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Decompress restores a stored payload for readback tooling.
func Decompress(algo CompressionAlgo, payload []byte) ([]byte, error) {
	if algo != CompressionZstd {
		return payload, nil
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()
	return decoder.DecodeAll(payload, nil)
}
