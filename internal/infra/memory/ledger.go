package memory

import (
	"context"
	"sync"

	"trivia-raffle-service/internal/domain"
)

// Ledger is an in-memory implementation of app.TicketLedger, used in tests
// and in dev mode when Postgres is not configured.
type Ledger struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) ReplaceAutomatic(_ context.Context, competitionID, userID string, entry *domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[:0]
	for _, existing := range l.entries {
		if existing.CompetitionID == competitionID && existing.UserID == userID && existing.Reason == domain.ReasonSubmissions {
			continue
		}
		kept = append(kept, existing)
	}
	l.entries = kept
	if entry != nil {
		l.entries = append(l.entries, *entry)
	}
	return nil
}

func (l *Ledger) AppendManual(_ context.Context, entry domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *Ledger) EntriesByCompetition(_ context.Context, competitionID string) ([]domain.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var entries []domain.LedgerEntry
	for _, entry := range l.entries {
		if entry.CompetitionID == competitionID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
