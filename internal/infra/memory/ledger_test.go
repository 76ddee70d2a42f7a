package memory

import (
	"context"
	"testing"
	"time"

	"trivia-raffle-service/internal/domain"
)

func TestReplaceAutomaticScopedToUser(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	now := time.Now()

	for _, userID := range []string{"u1", "u2"} {
		err := ledger.ReplaceAutomatic(ctx, "comp-1", userID, &domain.LedgerEntry{
			ID: "auto-" + userID, CompetitionID: "comp-1", UserID: userID,
			Count: 2, Reason: domain.ReasonSubmissions, CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
	}

	// Replacing u1 again must leave u2 untouched.
	err := ledger.ReplaceAutomatic(ctx, "comp-1", "u1", &domain.LedgerEntry{
		ID: "auto-u1-v2", CompetitionID: "comp-1", UserID: "u1",
		Count: 7, Reason: domain.ReasonSubmissions, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("replace again: %v", err)
	}

	entries, _ := ledger.EntriesByCompetition(ctx, "comp-1")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		switch entry.UserID {
		case "u1":
			if entry.Count != 7 {
				t.Fatalf("u1 should hold the replacement count 7, got %d", entry.Count)
			}
		case "u2":
			if entry.Count != 2 {
				t.Fatalf("u2 must be untouched, got %d", entry.Count)
			}
		}
	}
}

func TestReplaceAutomaticWithNilClears(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	now := time.Now()

	if err := ledger.AppendManual(ctx, domain.LedgerEntry{
		ID: "m1", CompetitionID: "comp-1", UserID: "u1",
		Count: 1, Reason: domain.ManualReasonPrefix + "judge award", CreatedAt: now,
	}); err != nil {
		t.Fatalf("append manual: %v", err)
	}
	if err := ledger.ReplaceAutomatic(ctx, "comp-1", "u1", &domain.LedgerEntry{
		ID: "a1", CompetitionID: "comp-1", UserID: "u1",
		Count: 3, Reason: domain.ReasonSubmissions, CreatedAt: now,
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if err := ledger.ReplaceAutomatic(ctx, "comp-1", "u1", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}

	entries, _ := ledger.EntriesByCompetition(ctx, "comp-1")
	if len(entries) != 1 || entries[0].Reason != domain.ManualReasonPrefix+"judge award" {
		t.Fatalf("only the manual entry should remain, got %+v", entries)
	}
}
