package app

import (
	"context"

	"trivia-raffle-service/internal/domain"
)

// CandidateSource derives the current draw candidate list for a competition.
type CandidateSource interface {
	LoadCandidates(ctx context.Context, competitionID string) ([]domain.Candidate, error)
}

// LedgerCandidates aggregates the ticket ledger into draw candidates. Users
// are ordered by their first ledger entry so repeated calls over an unchanged
// ledger produce an identical list.
type LedgerCandidates struct {
	ledger TicketLedger
}

func NewLedgerCandidates(ledger TicketLedger) *LedgerCandidates {
	return &LedgerCandidates{ledger: ledger}
}

func (l *LedgerCandidates) LoadCandidates(ctx context.Context, competitionID string) ([]domain.Candidate, error) {
	entries, err := l.ledger.EntriesByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(entries))
	byUser := make(map[string]*domain.Candidate, len(entries))
	for _, entry := range entries {
		candidate, ok := byUser[entry.UserID]
		if !ok {
			candidate = &domain.Candidate{UserID: entry.UserID}
			byUser[entry.UserID] = candidate
			order = append(order, entry.UserID)
		}
		if entry.DisplayName != "" {
			candidate.DisplayName = entry.DisplayName
		}
		candidate.TotalTickets += entry.Count
		candidate.Sources = append(candidate.Sources, domain.TicketSource{
			Reason: entry.Reason,
			Count:  entry.Count,
		})
	}

	candidates := make([]domain.Candidate, 0, len(order))
	for _, userID := range order {
		candidate := byUser[userID]
		if candidate.TotalTickets <= 0 {
			continue
		}
		candidates = append(candidates, *candidate)
	}
	return candidates, nil
}
