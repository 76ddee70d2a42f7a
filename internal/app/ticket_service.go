package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"trivia-raffle-service/internal/domain"
)

// TicketLedger stores ticket grants. Implementations must make
// ReplaceAutomatic atomic per (competitionID, userID) so concurrent
// recomputes of different users never interfere.
type TicketLedger interface {
	// ReplaceAutomatic deletes every entry tagged domain.ReasonSubmissions for
	// the key and inserts the replacement when entry is non-nil. A nil entry
	// leaves the user with no automatic tickets.
	ReplaceAutomatic(ctx context.Context, competitionID, userID string, entry *domain.LedgerEntry) error
	AppendManual(ctx context.Context, entry domain.LedgerEntry) error
	// EntriesByCompetition returns all entries in insertion order.
	EntriesByCompetition(ctx context.Context, competitionID string) ([]domain.LedgerEntry, error)
}

// RuleSource loads a competition's rule configuration.
type RuleSource interface {
	CompetitionRules(ctx context.Context, competitionID string) (domain.RuleConfig, error)
}

// SubmissionSource loads a user's graded submissions for a competition.
type SubmissionSource interface {
	GradedSubmissions(ctx context.Context, competitionID, userID string) ([]domain.GradedSubmission, error)
}

// AuditLog records every state-changing operation in this subsystem.
type AuditLog interface {
	Append(ctx context.Context, record domain.AuditRecord) error
}

// PreviewCache serves possibly cached candidate lists and supports explicit
// invalidation after ledger writes.
type PreviewCache interface {
	Candidates(ctx context.Context, competitionID string) ([]domain.Candidate, error)
	Invalidate(ctx context.Context, competitionID string) error
}

// TicketService reconciles the ticket ledger with graded submissions.
type TicketService struct {
	ledger      TicketLedger
	rules       RuleSource
	submissions SubmissionSource
	audit       AuditLog
	previews    PreviewCache
	now         func() time.Time
}

func NewTicketService(ledger TicketLedger, rules RuleSource, submissions SubmissionSource, audit AuditLog, previews PreviewCache) *TicketService {
	return NewTicketServiceWithClock(ledger, rules, submissions, audit, previews, time.Now)
}

// NewTicketServiceWithClock is test-only for deterministic timestamps.
func NewTicketServiceWithClock(ledger TicketLedger, rules RuleSource, submissions SubmissionSource, audit AuditLog, previews PreviewCache, now func() time.Time) *TicketService {
	return &TicketService{
		ledger:      ledger,
		rules:       rules,
		submissions: submissions,
		audit:       audit,
		previews:    previews,
		now:         now,
	}
}

// Recompute recalculates a user's automatic tickets and replaces their
// "submissions" ledger entries wholesale. Running it twice with unchanged
// inputs produces identical ledger state.
func (s *TicketService) Recompute(ctx context.Context, actor domain.Actor, competitionID, userID, displayName string) (TicketResult, error) {
	rules, err := s.rules.CompetitionRules(ctx, competitionID)
	if err != nil {
		return TicketResult{}, err
	}
	submissions, err := s.submissions.GradedSubmissions(ctx, competitionID, userID)
	if err != nil {
		return TicketResult{}, err
	}

	result := ComputeTickets(submissions, rules)
	if result.DefaultedBase {
		log.Printf("competition %s has no usable ticketsConfig, defaulting baseTickets to 1", competitionID)
	}

	var entry *domain.LedgerEntry
	if result.TicketCount > 0 {
		entry = &domain.LedgerEntry{
			ID:            uuid.NewString(),
			CompetitionID: competitionID,
			UserID:        userID,
			DisplayName:   displayName,
			Count:         result.TicketCount,
			Reason:        domain.ReasonSubmissions,
			CreatedAt:     s.now(),
		}
	}
	if err := s.ledger.ReplaceAutomatic(ctx, competitionID, userID, entry); err != nil {
		return TicketResult{}, err
	}
	s.invalidatePreview(ctx, competitionID)

	if err := s.emitAudit(ctx, actor, "tickets.recompute", map[string]any{
		"competitionId": competitionID,
		"userId":        userID,
		"ticketCount":   result.TicketCount,
		"appliedBonus":  result.AppliedBonus,
		"correctCount":  result.CorrectCount,
	}); err != nil {
		return TicketResult{}, err
	}
	return result, nil
}

// GrantManual appends an out-of-band ticket grant. Manual entries survive
// recomputes and are only removed by explicit deletion elsewhere.
func (s *TicketService) GrantManual(ctx context.Context, actor domain.Actor, competitionID, userID, displayName string, count int, note string) (domain.LedgerEntry, error) {
	rules, err := s.rules.CompetitionRules(ctx, competitionID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if !rules.AllowManualAdjustments {
		return domain.LedgerEntry{}, domain.ErrManualAdjustmentsDisabled
	}

	entry := domain.LedgerEntry{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		UserID:        userID,
		DisplayName:   displayName,
		Count:         count,
		Reason:        domain.ManualReasonPrefix + note,
		CreatedAt:     s.now(),
	}
	if err := s.ledger.AppendManual(ctx, entry); err != nil {
		return domain.LedgerEntry{}, err
	}
	s.invalidatePreview(ctx, competitionID)

	if err := s.emitAudit(ctx, actor, "tickets.manual_grant", map[string]any{
		"competitionId": competitionID,
		"userId":        userID,
		"count":         count,
		"note":          note,
		"entryId":       entry.ID,
	}); err != nil {
		return domain.LedgerEntry{}, err
	}
	return entry, nil
}

func (s *TicketService) invalidatePreview(ctx context.Context, competitionID string) {
	if s.previews == nil {
		return
	}
	if err := s.previews.Invalidate(ctx, competitionID); err != nil {
		log.Printf("preview invalidation failed for competition %s: %v", competitionID, err)
	}
}

func (s *TicketService) emitAudit(ctx context.Context, actor domain.Actor, action string, details map[string]any) error {
	return s.audit.Append(ctx, domain.AuditRecord{
		ID:      uuid.NewString(),
		ActorID: actor.ID,
		Action:  action,
		At:      s.now(),
		Details: details,
	})
}
