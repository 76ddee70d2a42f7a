package app_test

import (
	"context"
	"testing"
	"time"

	"trivia-raffle-service/internal/app"
	"trivia-raffle-service/internal/domain"
	"trivia-raffle-service/internal/infra/memory"
)

var testActor = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

type ticketFixture struct {
	service *app.TicketService
	ledger  *memory.Ledger
	audit   *memory.AuditLog
}

func newTicketFixture(rules domain.RuleConfig, submissions []domain.GradedSubmission) *ticketFixture {
	ledger := memory.NewLedger()
	audit := memory.NewAuditLog()
	source := memory.NewStaticSubmissionSource(
		map[string]domain.RuleConfig{"comp-1": rules},
		map[string][]domain.GradedSubmission{"comp-1": submissions},
	)
	service := app.NewTicketServiceWithClock(ledger, source, source, audit, nil, func() time.Time { return baseTime })
	return &ticketFixture{service: service, ledger: ledger, audit: audit}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fixture := newTicketFixture(domain.RuleConfig{
		Mode:              domain.ModeMinCorrect,
		MinCorrectAnswers: 2,
		Tickets:           domain.TicketsConfig{BaseTickets: 1},
	}, graded("u1", []domain.Verdict{domain.VerdictCorrect, domain.VerdictCorrect, domain.VerdictIncorrect}, baseTime))

	for i := 0; i < 2; i++ {
		if _, err := fixture.service.Recompute(ctx, testActor, "comp-1", "u1", "Alice"); err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
	}

	entries, err := fixture.ledger.EntriesByCompetition(ctx, "comp-1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one automatic entry after repeated recompute, got %d", len(entries))
	}
	if entries[0].Count != 1 || entries[0].Reason != domain.ReasonSubmissions {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestRecomputeRemovesEntryWhenIneligible(t *testing.T) {
	ctx := context.Background()
	fixture := newTicketFixture(domain.RuleConfig{
		Mode:    domain.ModeAllCorrect,
		Tickets: domain.TicketsConfig{BaseTickets: 1},
	}, graded("u1", []domain.Verdict{domain.VerdictCorrect, domain.VerdictIncorrect}, baseTime))

	// Seed a stale automatic entry, as if the verdict flipped after an
	// earlier recompute.
	stale := &domain.LedgerEntry{
		ID: "stale", CompetitionID: "comp-1", UserID: "u1",
		Count: 4, Reason: domain.ReasonSubmissions, CreatedAt: baseTime,
	}
	if err := fixture.ledger.ReplaceAutomatic(ctx, "comp-1", "u1", stale); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := fixture.service.Recompute(ctx, testActor, "comp-1", "u1", "Alice")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if result.TicketCount != 0 {
		t.Fatalf("expected 0 tickets, got %d", result.TicketCount)
	}

	entries, _ := fixture.ledger.EntriesByCompetition(ctx, "comp-1")
	if len(entries) != 0 {
		t.Fatalf("ineligible user should hold no automatic entries, got %+v", entries)
	}
}

func TestRecomputePreservesManualEntries(t *testing.T) {
	ctx := context.Background()
	fixture := newTicketFixture(domain.RuleConfig{
		Mode:                   domain.ModePerCorrect,
		Tickets:                domain.TicketsConfig{BaseTickets: 1},
		AllowManualAdjustments: true,
	}, graded("u1", []domain.Verdict{domain.VerdictCorrect}, baseTime))

	if _, err := fixture.service.GrantManual(ctx, testActor, "comp-1", "u1", "Alice", 2, "make-up for outage"); err != nil {
		t.Fatalf("manual grant: %v", err)
	}
	if _, err := fixture.service.Recompute(ctx, testActor, "comp-1", "u1", "Alice"); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	entries, _ := fixture.ledger.EntriesByCompetition(ctx, "comp-1")
	if len(entries) != 2 {
		t.Fatalf("expected manual + automatic entries, got %d", len(entries))
	}
	manual := entries[0]
	if manual.Reason != domain.ManualReasonPrefix+"make-up for outage" || manual.Count != 2 {
		t.Fatalf("manual entry must survive recompute untouched, got %+v", manual)
	}
}

func TestManualGrantRespectsCompetitionGate(t *testing.T) {
	ctx := context.Background()
	fixture := newTicketFixture(domain.RuleConfig{
		Mode:    domain.ModePerCorrect,
		Tickets: domain.TicketsConfig{BaseTickets: 1},
	}, nil)

	_, err := fixture.service.GrantManual(ctx, testActor, "comp-1", "u1", "Alice", 1, "because")
	if err != domain.ErrManualAdjustmentsDisabled {
		t.Fatalf("expected manual adjustments disabled, got %v", err)
	}
}

func TestRecomputeUnknownCompetition(t *testing.T) {
	ctx := context.Background()
	fixture := newTicketFixture(domain.RuleConfig{}, nil)

	_, err := fixture.service.Recompute(ctx, testActor, "comp-unknown", "u1", "Alice")
	if err != domain.ErrCompetitionNotFound {
		t.Fatalf("expected competition not found, got %v", err)
	}
}

func TestMutationsEmitAuditRecords(t *testing.T) {
	ctx := context.Background()
	fixture := newTicketFixture(domain.RuleConfig{
		Mode:                   domain.ModePerCorrect,
		Tickets:                domain.TicketsConfig{BaseTickets: 1},
		AllowManualAdjustments: true,
	}, graded("u1", []domain.Verdict{domain.VerdictCorrect}, baseTime))

	if _, err := fixture.service.Recompute(ctx, testActor, "comp-1", "u1", "Alice"); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if _, err := fixture.service.GrantManual(ctx, testActor, "comp-1", "u1", "Alice", 1, "judge award"); err != nil {
		t.Fatalf("manual: %v", err)
	}

	records := fixture.audit.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(records))
	}
	if records[0].Action != "tickets.recompute" || records[1].Action != "tickets.manual_grant" {
		t.Fatalf("unexpected audit actions %q, %q", records[0].Action, records[1].Action)
	}
	if records[0].ActorID != "admin-1" {
		t.Fatalf("audit must capture the actor, got %q", records[0].ActorID)
	}
}
