package domain

import "time"

// EligibilityMode determines how graded submissions translate into raffle tickets.
type EligibilityMode string

const (
	// ModeAllCorrect awards BaseTickets only for a perfect score.
	ModeAllCorrect EligibilityMode = "all_correct"
	// ModeMinCorrect awards BaseTickets once a minimum correct count is reached.
	ModeMinCorrect EligibilityMode = "min_correct"
	// ModePerCorrect awards BaseTickets per correct answer.
	ModePerCorrect EligibilityMode = "per_correct"
)

// BonusTier grants extra tickets when the participant's earliest graded
// submission landed at or before the cutoff. Tiers are evaluated in list
// order and the first match wins; callers own the ordering.
type BonusTier struct {
	Before       time.Time `json:"before"`
	BonusTickets int       `json:"bonusTickets"`
}

// TicketsConfig describes how many tickets a qualifying unit is worth.
type TicketsConfig struct {
	BaseTickets     int         `json:"baseTickets"`
	EarlyBonusTiers []BonusTier `json:"earlyBonusTiers,omitempty"`
}

// RuleConfig is the per-competition eligibility and award policy.
type RuleConfig struct {
	Mode                   EligibilityMode `json:"eligibilityMode"`
	MinCorrectAnswers      int             `json:"minCorrectAnswers,omitempty"`
	Tickets                TicketsConfig   `json:"ticketsConfig"`
	AllowManualAdjustments bool            `json:"allowManualAdjustments"`
}

// Verdict is the review outcome of a single submission.
type Verdict string

const (
	VerdictPending   Verdict = "pending"
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// GradedSubmission is the reviewed form of a participant's answer. Pending
// submissions carry no weight until a verdict lands.
type GradedSubmission struct {
	SubmissionID  string    `json:"submissionId"`
	CompetitionID string    `json:"competitionId"`
	UserID        string    `json:"userId"`
	Verdict       Verdict   `json:"verdict"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// ReasonSubmissions tags ledger entries produced by recompute. Entries with
// this reason are fully replaced on every recompute; all other reasons are
// additive and untouched by recompute.
const ReasonSubmissions = "submissions"

// ManualReasonPrefix prefixes the free-text note of a manual grant.
const ManualReasonPrefix = "manual: "

// LedgerEntry is one ticket grant for a user in a competition.
type LedgerEntry struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competitionId"`
	UserID        string    `json:"userId"`
	DisplayName   string    `json:"displayName"`
	Count         int       `json:"count"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TicketSource records one ledger entry's contribution to a candidate total.
type TicketSource struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Candidate is a draw participant derived from the ticket ledger.
// TotalTickets is always > 0; zero-ticket users never become candidates.
type Candidate struct {
	UserID       string         `json:"userId"`
	DisplayName  string         `json:"displayName"`
	TotalTickets int            `json:"totalTickets"`
	Sources      []TicketSource `json:"sources"`
}

// Snapshot is the frozen candidate list a draw runs against. At most one
// exists per competition and it never changes after locking.
type Snapshot struct {
	ID            string      `json:"id"`
	CompetitionID string      `json:"competitionId"`
	Candidates    []Candidate `json:"candidates"`
	TotalTickets  int         `json:"totalTickets"`
	LockedAt      time.Time   `json:"lockedAt"`
	LockedBy      string      `json:"lockedBy"`
}

// Publication controls what external viewers see of a draw result. It never
// alters the winner or the hash.
type Publication struct {
	IsPublished               bool   `json:"isPublished"`
	ShowWinnerName            bool   `json:"showWinnerName"`
	WinnerDisplayNameOverride string `json:"winnerDisplayNameOverride,omitempty"`
	AnnouncementMessage       string `json:"announcementMessage,omitempty"`
}

// DrawResult is the outcome of consuming a snapshot exactly once.
type DrawResult struct {
	CompetitionID     string      `json:"competitionId"`
	SnapshotID        string      `json:"snapshotId"`
	WinnerID          string      `json:"winnerId"`
	WinnerName        string      `json:"winnerName"`
	RunAt             time.Time   `json:"runAt"`
	RunBy             string      `json:"runBy"`
	RandomValue       float64     `json:"randomValue"`
	WinnerTicketIndex int         `json:"winnerTicketIndex"`
	Seed              string      `json:"seed,omitempty"`
	DrawHash          string      `json:"drawHash"`
	Publication       Publication `json:"publication"`
}

// PublicResult is the externally visible projection of a draw after the
// publication gate has been applied.
type PublicResult struct {
	CompetitionID string    `json:"competitionId"`
	WinnerName    string    `json:"winnerName"`
	Announcement  string    `json:"announcement,omitempty"`
	DrawHash      string    `json:"drawHash"`
	RunAt         time.Time `json:"runAt"`
}

// Role is the privilege level of an acting administrator.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// Actor identifies who performed an administrative operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// AuditRecord captures one state-changing operation for forensic review.
// Details holds enough before/after state to reconstruct what happened.
type AuditRecord struct {
	ID      string         `json:"id"`
	ActorID string         `json:"actorId"`
	Action  string         `json:"action"`
	At      time.Time      `json:"at"`
	Details map[string]any `json:"details"`
}
