package memory

import (
	"context"

	"trivia-raffle-service/internal/domain"
)

// StaticSubmissionSource serves rule configurations and graded submissions
// from in-memory maps (useful for tests/demos).
type StaticSubmissionSource struct {
	rules       map[string]domain.RuleConfig
	submissions map[string][]domain.GradedSubmission
}

func NewStaticSubmissionSource(rules map[string]domain.RuleConfig, submissions map[string][]domain.GradedSubmission) *StaticSubmissionSource {
	return &StaticSubmissionSource{rules: rules, submissions: submissions}
}

func (s *StaticSubmissionSource) CompetitionRules(_ context.Context, competitionID string) (domain.RuleConfig, error) {
	if rules, ok := s.rules[competitionID]; ok {
		return rules, nil
	}
	return domain.RuleConfig{}, domain.ErrCompetitionNotFound
}

func (s *StaticSubmissionSource) GradedSubmissions(_ context.Context, competitionID, userID string) ([]domain.GradedSubmission, error) {
	var out []domain.GradedSubmission
	for _, sub := range s.submissions[competitionID] {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}
