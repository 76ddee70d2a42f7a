package memory

import (
	"context"
	"sync"

	"trivia-raffle-service/internal/domain"
)

// AuditLog collects audit records in memory.
type AuditLog struct {
	mu      sync.RWMutex
	records []domain.AuditRecord
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Append(_ context.Context, record domain.AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// Records returns a copy of everything recorded so far.
func (l *AuditLog) Records() []domain.AuditRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.AuditRecord(nil), l.records...)
}
