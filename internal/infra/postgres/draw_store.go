package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-raffle-service/internal/domain"
)

// DrawStore is the Postgres-backed app.DrawStore. The double-lock guard is
// the primary key on competition_id; the double-draw guard is a conditional
// update on winner_id IS NULL. Neither relies on application-level
// check-then-write.
type DrawStore struct {
	db *bun.DB
}

func NewDrawStore(db *bun.DB) *DrawStore {
	return &DrawStore{db: db}
}

func (s *DrawStore) CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	candidates, err := json.Marshal(snapshot.Candidates)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	row := &drawRow{
		CompetitionID: snapshot.CompetitionID,
		SnapshotID:    snapshot.ID,
		Candidates:    candidates,
		TotalTickets:  snapshot.TotalTickets,
		LockedAt:      snapshot.LockedAt,
		LockedBy:      snapshot.LockedBy,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return domain.ErrAlreadyLocked
		}
		return err
	}
	return nil
}

func (s *DrawStore) Snapshot(ctx context.Context, competitionID string) (*domain.Snapshot, error) {
	row := new(drawRow)
	err := s.db.NewSelect().Model(row).Where("competition_id = ?", competitionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return rowToSnapshot(row)
}

func (s *DrawStore) RecordResult(ctx context.Context, result *domain.DrawResult) error {
	res, err := s.db.NewUpdate().
		Model((*drawRow)(nil)).
		Set("winner_id = ?", result.WinnerID).
		Set("winner_name = ?", result.WinnerName).
		Set("run_at = ?", result.RunAt).
		Set("run_by = ?", result.RunBy).
		Set("random_value = ?", result.RandomValue).
		Set("winner_ticket_index = ?", result.WinnerTicketIndex).
		Set("seed = ?", result.Seed).
		Set("draw_hash = ?", result.DrawHash).
		Where("competition_id = ?", result.CompetitionID).
		Where("winner_id IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := s.db.NewSelect().
			Model((*drawRow)(nil)).
			Where("competition_id = ?", result.CompetitionID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNoSnapshot
		}
		return domain.ErrAlreadyDrawn
	}
	return nil
}

func (s *DrawStore) Result(ctx context.Context, competitionID string) (*domain.DrawResult, error) {
	row := new(drawRow)
	err := s.db.NewSelect().Model(row).Where("competition_id = ?", competitionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoDrawResult
	}
	if err != nil {
		return nil, err
	}
	if row.WinnerID == nil {
		return nil, domain.ErrNoDrawResult
	}
	return rowToResult(row), nil
}

func (s *DrawStore) SetPublication(ctx context.Context, competitionID string, pub domain.Publication) error {
	res, err := s.db.NewUpdate().
		Model((*drawRow)(nil)).
		Set("is_published = ?", pub.IsPublished).
		Set("show_winner_name = ?", pub.ShowWinnerName).
		Set("winner_name_override = ?", pub.WinnerDisplayNameOverride).
		Set("announcement = ?", pub.AnnouncementMessage).
		Where("competition_id = ?", competitionID).
		Where("winner_id IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNoDrawResult
	}
	return nil
}

func (s *DrawStore) DeleteDraw(ctx context.Context, competitionID string) (*domain.Snapshot, *domain.DrawResult, error) {
	var snapshot *domain.Snapshot
	var result *domain.DrawResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(drawRow)
		err := tx.NewSelect().Model(row).Where("competition_id = ?", competitionID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNoSnapshot
		}
		if err != nil {
			return err
		}

		snapshot, err = rowToSnapshot(row)
		if err != nil {
			return err
		}
		if row.WinnerID != nil {
			result = rowToResult(row)
		}

		_, err = tx.NewDelete().Model((*drawRow)(nil)).Where("competition_id = ?", competitionID).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return snapshot, result, nil
}

func rowToSnapshot(row *drawRow) (*domain.Snapshot, error) {
	var candidates []domain.Candidate
	if err := json.Unmarshal(row.Candidates, &candidates); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}
	return &domain.Snapshot{
		ID:            row.SnapshotID,
		CompetitionID: row.CompetitionID,
		Candidates:    candidates,
		TotalTickets:  row.TotalTickets,
		LockedAt:      row.LockedAt,
		LockedBy:      row.LockedBy,
	}, nil
}

func rowToResult(row *drawRow) *domain.DrawResult {
	result := &domain.DrawResult{
		CompetitionID: row.CompetitionID,
		SnapshotID:    row.SnapshotID,
		WinnerID:      *row.WinnerID,
		Publication: domain.Publication{
			IsPublished:               row.IsPublished,
			ShowWinnerName:            row.ShowWinnerName,
			WinnerDisplayNameOverride: row.WinnerNameOverride,
			AnnouncementMessage:       row.Announcement,
		},
	}
	if row.WinnerName != nil {
		result.WinnerName = *row.WinnerName
	}
	if row.RunAt != nil {
		result.RunAt = *row.RunAt
	}
	if row.RunBy != nil {
		result.RunBy = *row.RunBy
	}
	if row.RandomValue != nil {
		result.RandomValue = *row.RandomValue
	}
	if row.WinnerTicketIndex != nil {
		result.WinnerTicketIndex = *row.WinnerTicketIndex
	}
	if row.Seed != nil {
		result.Seed = *row.Seed
	}
	if row.DrawHash != nil {
		result.DrawHash = *row.DrawHash
	}
	return result
}
