package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"trivia-raffle-service/internal/domain"
)

// Ledger is the Postgres-backed app.TicketLedger.
type Ledger struct {
	db *bun.DB
}

func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{db: db}
}

// ReplaceAutomatic runs the delete-then-reinsert in a single transaction so a
// crash between the two steps can never leave a user without their entry.
func (l *Ledger) ReplaceAutomatic(ctx context.Context, competitionID, userID string, entry *domain.LedgerEntry) error {
	return l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*ticketEntryRow)(nil)).
			Where("competition_id = ?", competitionID).
			Where("user_id = ?", userID).
			Where("reason = ?", domain.ReasonSubmissions).
			Exec(ctx)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		_, err = tx.NewInsert().Model(entryToRow(entry)).Exec(ctx)
		return err
	})
}

func (l *Ledger) AppendManual(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := l.db.NewInsert().Model(entryToRow(&entry)).Exec(ctx)
	return err
}

func (l *Ledger) EntriesByCompetition(ctx context.Context, competitionID string) ([]domain.LedgerEntry, error) {
	var rows []ticketEntryRow
	err := l.db.NewSelect().
		Model(&rows).
		Where("competition_id = ?", competitionID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.LedgerEntry{
			ID:            row.ID,
			CompetitionID: row.CompetitionID,
			UserID:        row.UserID,
			DisplayName:   row.DisplayName,
			Count:         row.Count,
			Reason:        row.Reason,
			CreatedAt:     row.CreatedAt,
		})
	}
	return entries, nil
}

func entryToRow(entry *domain.LedgerEntry) *ticketEntryRow {
	return &ticketEntryRow{
		ID:            entry.ID,
		CompetitionID: entry.CompetitionID,
		UserID:        entry.UserID,
		DisplayName:   entry.DisplayName,
		Count:         entry.Count,
		Reason:        entry.Reason,
		CreatedAt:     entry.CreatedAt,
	}
}
