package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"trivia-raffle-service/internal/domain"
)

// AuditLog appends audit records to the audit_log table.
type AuditLog struct {
	db *bun.DB
}

func NewAuditLog(db *bun.DB) *AuditLog {
	return &AuditLog{db: db}
}

func (l *AuditLog) Append(ctx context.Context, record domain.AuditRecord) error {
	details, err := json.Marshal(record.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	row := &auditRow{
		ID:      record.ID,
		ActorID: record.ActorID,
		Action:  record.Action,
		At:      record.At,
		Details: details,
	}
	_, err = l.db.NewInsert().Model(row).Exec(ctx)
	return err
}
