package app

import (
	"time"

	"trivia-raffle-service/internal/domain"
)

// TicketResult summarizes one eligibility computation for a single user.
type TicketResult struct {
	TicketCount  int  `json:"ticketCount"`
	AppliedBonus int  `json:"appliedBonus"`
	CorrectCount int  `json:"correctCount"`
	Eligible     bool `json:"eligible"`
	// DefaultedBase reports that BaseTickets was missing or invalid and the
	// permissive default of 1 was used. Callers surface this in logs.
	DefaultedBase bool `json:"-"`
}

// ComputeTickets derives the ticket count a user should hold from their graded
// submissions and the competition's rule configuration. Submissions still
// awaiting a verdict are ignored entirely. The function is pure; ledger
// reconciliation is the caller's job.
func ComputeTickets(submissions []domain.GradedSubmission, rules domain.RuleConfig) TicketResult {
	var result TicketResult

	graded := make([]domain.GradedSubmission, 0, len(submissions))
	for _, sub := range submissions {
		if sub.Verdict == domain.VerdictCorrect || sub.Verdict == domain.VerdictIncorrect {
			graded = append(graded, sub)
		}
	}
	for _, sub := range graded {
		if sub.Verdict == domain.VerdictCorrect {
			result.CorrectCount++
		}
	}

	base := rules.Tickets.BaseTickets
	if base < 1 {
		// Legacy configurations may lack ticketsConfig entirely; fall back
		// rather than hard-fail so old competitions keep working.
		base = 1
		result.DefaultedBase = true
	}

	switch rules.Mode {
	case domain.ModeAllCorrect:
		if len(graded) > 0 && result.CorrectCount == len(graded) {
			result.Eligible = true
			result.TicketCount = base
		}
	case domain.ModeMinCorrect:
		if result.CorrectCount >= rules.MinCorrectAnswers {
			result.Eligible = true
			result.TicketCount = base
		}
	case domain.ModePerCorrect:
		if result.CorrectCount > 0 {
			result.Eligible = true
			result.TicketCount = result.CorrectCount * base
		}
	default:
		// Unrecognized mode fails closed.
		return result
	}

	// A zero min_correct threshold makes a user with nothing graded yet
	// eligible; there is no submission time to match a tier against then.
	if result.Eligible && len(graded) > 0 && len(rules.Tickets.EarlyBonusTiers) > 0 {
		earliest := earliestSubmission(graded)
		for _, tier := range rules.Tickets.EarlyBonusTiers {
			// First tier in list order whose cutoff is at or after the
			// earliest graded submission applies; never sum across tiers.
			if !tier.Before.Before(earliest) {
				result.AppliedBonus = tier.BonusTickets
				result.TicketCount += tier.BonusTickets
				break
			}
		}
	}

	return result
}

func earliestSubmission(graded []domain.GradedSubmission) time.Time {
	earliest := graded[0].SubmittedAt
	for _, sub := range graded[1:] {
		if sub.SubmittedAt.Before(earliest) {
			earliest = sub.SubmittedAt
		}
	}
	return earliest
}
