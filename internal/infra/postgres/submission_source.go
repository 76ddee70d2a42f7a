package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-raffle-service/internal/domain"
)

// SubmissionSource reads the collaborator tables this subsystem consumes:
// competition rule configuration (JSONB) and graded submission rows.
type SubmissionSource struct {
	pool *pgxpool.Pool
}

func NewSubmissionSource(pool *pgxpool.Pool) *SubmissionSource {
	return &SubmissionSource{pool: pool}
}

func (s *SubmissionSource) CompetitionRules(ctx context.Context, competitionID string) (domain.RuleConfig, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT rules FROM competitions WHERE id=$1`, competitionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RuleConfig{}, domain.ErrCompetitionNotFound
	}
	if err != nil {
		return domain.RuleConfig{}, fmt.Errorf("load rules: %w", err)
	}
	var rules domain.RuleConfig
	if err := json.Unmarshal(raw, &rules); err != nil {
		return domain.RuleConfig{}, fmt.Errorf("unmarshal rules: %w", err)
	}
	return rules, nil
}

func (s *SubmissionSource) GradedSubmissions(ctx context.Context, competitionID, userID string) ([]domain.GradedSubmission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, verdict, submitted_at FROM submissions WHERE competition_id=$1 AND user_id=$2 ORDER BY submitted_at ASC`,
		competitionID, userID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	defer rows.Close()

	var submissions []domain.GradedSubmission
	for rows.Next() {
		sub := domain.GradedSubmission{CompetitionID: competitionID, UserID: userID}
		var verdict string
		if err := rows.Scan(&sub.SubmissionID, &verdict, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Verdict = domain.Verdict(verdict)
		submissions = append(submissions, sub)
	}
	return submissions, rows.Err()
}
