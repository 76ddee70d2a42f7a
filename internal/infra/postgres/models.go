package postgres

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type ticketEntryRow struct {
	bun.BaseModel `bun:"table:ticket_entries"`

	ID            string    `bun:"id,pk"`
	CompetitionID string    `bun:"competition_id,notnull"`
	UserID        string    `bun:"user_id,notnull"`
	DisplayName   string    `bun:"display_name,notnull"`
	Count         int       `bun:"count,notnull"`
	Reason        string    `bun:"reason,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// drawRow holds the snapshot and, once drawn, the winner and publication
// fields. One row per competition; the primary key is the double-lock guard.
type drawRow struct {
	bun.BaseModel `bun:"table:draw_snapshots"`

	CompetitionID string          `bun:"competition_id,pk"`
	SnapshotID    string          `bun:"snapshot_id,notnull"`
	Candidates    json.RawMessage `bun:"candidates,type:jsonb,notnull"`
	TotalTickets  int             `bun:"total_tickets,notnull"`
	LockedAt      time.Time       `bun:"locked_at,notnull"`
	LockedBy      string          `bun:"locked_by,notnull"`

	WinnerID          *string    `bun:"winner_id"`
	WinnerName        *string    `bun:"winner_name"`
	RunAt             *time.Time `bun:"run_at"`
	RunBy             *string    `bun:"run_by"`
	RandomValue       *float64   `bun:"random_value"`
	WinnerTicketIndex *int       `bun:"winner_ticket_index"`
	Seed              *string    `bun:"seed"`
	DrawHash          *string    `bun:"draw_hash"`

	IsPublished        bool   `bun:"is_published,notnull"`
	ShowWinnerName     bool   `bun:"show_winner_name,notnull"`
	WinnerNameOverride string `bun:"winner_name_override,notnull"`
	Announcement       string `bun:"announcement,notnull"`
}

type auditRow struct {
	bun.BaseModel `bun:"table:audit_log"`

	ID      string          `bun:"id,pk"`
	ActorID string          `bun:"actor_id,notnull"`
	Action  string          `bun:"action,notnull"`
	At      time.Time       `bun:"at,notnull"`
	Details json.RawMessage `bun:"details,type:jsonb,notnull"`
}
