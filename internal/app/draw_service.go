package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-raffle-service/internal/domain"
)

// minResetReasonLen is the shortest acceptable justification for wiping a
// locked draw. Resets are forensic events, not routine ones.
const minResetReasonLen = 10

// winnerPlaceholder is shown when a published result hides the winner's name.
const winnerPlaceholder = "A lucky participant"

// DrawStore persists snapshots and results. Implementations must back the
// one-snapshot-per-competition rule with a real uniqueness constraint and
// record winners with an atomic conditional write, not check-then-set.
type DrawStore interface {
	// CreateSnapshot fails with domain.ErrAlreadyLocked when a snapshot exists.
	CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) error
	// Snapshot returns a copy of the locked snapshot or domain.ErrNoSnapshot.
	Snapshot(ctx context.Context, competitionID string) (*domain.Snapshot, error)
	// RecordResult writes winner fields only if none exist yet; the loser of a
	// race observes domain.ErrAlreadyDrawn.
	RecordResult(ctx context.Context, result *domain.DrawResult) error
	// Result returns the recorded draw or domain.ErrNoDrawResult.
	Result(ctx context.Context, competitionID string) (*domain.DrawResult, error)
	// SetPublication updates visibility fields; domain.ErrNoDrawResult without a winner.
	SetPublication(ctx context.Context, competitionID string, pub domain.Publication) error
	// DeleteDraw removes the snapshot and any result, returning the prior
	// state for the audit trail. domain.ErrNoSnapshot when nothing is locked.
	DeleteDraw(ctx context.Context, competitionID string) (*domain.Snapshot, *domain.DrawResult, error)
}

// DrawEvent notifies subscribers of draw lifecycle transitions.
type DrawEvent struct {
	Type          string    `json:"type"`
	CompetitionID string    `json:"competitionId"`
	At            time.Time `json:"at"`
}

// DrawService owns the snapshot/draw/publication lifecycle.
type DrawService struct {
	source   CandidateSource
	store    DrawStore
	audit    AuditLog
	previews PreviewCache
	now      func() time.Time
	roll     func() (float64, error)

	mu          sync.Mutex
	subscribers map[chan DrawEvent]struct{}
}

func NewDrawService(source CandidateSource, store DrawStore, audit AuditLog, previews PreviewCache) *DrawService {
	return NewDrawServiceWithClock(source, store, audit, previews, time.Now, cryptoRandFloat)
}

// NewDrawServiceWithClock is test-only for deterministic timestamps and rolls.
func NewDrawServiceWithClock(source CandidateSource, store DrawStore, audit AuditLog, previews PreviewCache, now func() time.Time, roll func() (float64, error)) *DrawService {
	return &DrawService{
		source:      source,
		store:       store,
		audit:       audit,
		previews:    previews,
		now:         now,
		roll:        roll,
		subscribers: make(map[chan DrawEvent]struct{}),
	}
}

// Preview returns the current candidate list without locking anything.
func (s *DrawService) Preview(ctx context.Context, competitionID string) ([]domain.Candidate, error) {
	if s.previews != nil {
		return s.previews.Candidates(ctx, competitionID)
	}
	return s.source.LoadCandidates(ctx, competitionID)
}

// Lock freezes the current candidate list as the draw's sole input. The
// candidate list is always derived fresh from the ledger, never from the
// preview cache.
func (s *DrawService) Lock(ctx context.Context, actor domain.Actor, competitionID string) (*domain.Snapshot, error) {
	candidates, err := s.source.LoadCandidates(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoEligibleCandidates
	}

	total := 0
	for _, candidate := range candidates {
		total += candidate.TotalTickets
	}
	snapshot := &domain.Snapshot{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		Candidates:    candidates,
		TotalTickets:  total,
		LockedAt:      s.now(),
		LockedBy:      actor.ID,
	}
	if err := s.store.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	if err := s.emitAudit(ctx, actor, "draw.lock", map[string]any{
		"competitionId":  competitionID,
		"snapshotId":     snapshot.ID,
		"candidateCount": len(candidates),
		"totalTickets":   total,
	}); err != nil {
		return nil, err
	}
	s.broadcast(DrawEvent{Type: "locked", CompetitionID: competitionID, At: snapshot.LockedAt})
	return snapshot, nil
}

// Run consumes the locked snapshot exactly once and records a verifiable
// winner. Concurrent runs race on the store's conditional write; exactly one
// succeeds.
func (s *DrawService) Run(ctx context.Context, actor domain.Actor, competitionID, seed string) (*domain.DrawResult, error) {
	snapshot, err := s.store.Snapshot(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, candidate := range snapshot.Candidates {
		total += candidate.TotalTickets
	}
	if len(snapshot.Candidates) == 0 || total <= 0 {
		return nil, domain.ErrEmptySnapshot
	}

	unit, err := s.roll()
	if err != nil {
		return nil, err
	}
	randomValue := unit * float64(total)
	winnerIdx, ticketIndex := SelectWinner(snapshot.Candidates, randomValue)
	winner := snapshot.Candidates[winnerIdx]

	runAt := s.now()
	result := &domain.DrawResult{
		CompetitionID:     competitionID,
		SnapshotID:        snapshot.ID,
		WinnerID:          winner.UserID,
		WinnerName:        winner.DisplayName,
		RunAt:             runAt,
		RunBy:             actor.ID,
		RandomValue:       randomValue,
		WinnerTicketIndex: ticketIndex,
		Seed:              seed,
		DrawHash:          domain.DrawHash(competitionID, winner.UserID, runAt, seed),
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		return nil, err
	}

	if err := s.emitAudit(ctx, actor, "draw.run", map[string]any{
		"competitionId":     competitionID,
		"snapshotId":        snapshot.ID,
		"winnerId":          winner.UserID,
		"drawHash":          result.DrawHash,
		"randomValue":       randomValue,
		"winnerTicketIndex": ticketIndex,
	}); err != nil {
		return nil, err
	}
	s.broadcast(DrawEvent{Type: "drawn", CompetitionID: competitionID, At: runAt})
	return result, nil
}

// Result returns the recorded draw for administrative review.
func (s *DrawService) Result(ctx context.Context, competitionID string) (*domain.DrawResult, error) {
	return s.store.Result(ctx, competitionID)
}

// Reset wipes the snapshot and result for a competition. Owner role only; the
// prior state survives solely in the audit record's details payload.
func (s *DrawService) Reset(ctx context.Context, actor domain.Actor, competitionID, reason string) error {
	if actor.Role != domain.RoleOwner {
		return domain.ErrUnauthorized
	}
	if len(strings.TrimSpace(reason)) < minResetReasonLen {
		return domain.ErrReasonTooShort
	}

	snapshot, result, err := s.store.DeleteDraw(ctx, competitionID)
	if err != nil {
		return err
	}

	details := map[string]any{
		"competitionId": competitionID,
		"reason":        reason,
		"priorSnapshot": snapshot,
	}
	if result != nil {
		details["priorResult"] = result
	}
	if err := s.emitAudit(ctx, actor, "draw.reset", details); err != nil {
		return err
	}
	s.broadcast(DrawEvent{Type: "reset", CompetitionID: competitionID, At: s.now()})
	return nil
}

// SetPublication adjusts what external viewers see. Winner and hash are
// untouchable through this path.
func (s *DrawService) SetPublication(ctx context.Context, actor domain.Actor, competitionID string, pub domain.Publication) error {
	if err := s.store.SetPublication(ctx, competitionID, pub); err != nil {
		return err
	}
	if err := s.emitAudit(ctx, actor, "draw.publication", map[string]any{
		"competitionId":  competitionID,
		"isPublished":    pub.IsPublished,
		"showWinnerName": pub.ShowWinnerName,
		"hasOverride":    pub.WinnerDisplayNameOverride != "",
	}); err != nil {
		return err
	}
	s.broadcast(DrawEvent{Type: "publication", CompetitionID: competitionID, At: s.now()})
	return nil
}

// PublicResult applies the publication gate. Unpublished draws are
// indistinguishable from draws that never happened.
func (s *DrawService) PublicResult(ctx context.Context, competitionID string) (*domain.PublicResult, error) {
	result, err := s.store.Result(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !result.Publication.IsPublished {
		return nil, domain.ErrNoDrawResult
	}

	name := result.WinnerName
	if !result.Publication.ShowWinnerName {
		name = winnerPlaceholder
	}
	if result.Publication.WinnerDisplayNameOverride != "" {
		name = result.Publication.WinnerDisplayNameOverride
	}
	return &domain.PublicResult{
		CompetitionID: competitionID,
		WinnerName:    name,
		Announcement:  result.Publication.AnnouncementMessage,
		DrawHash:      result.DrawHash,
		RunAt:         result.RunAt,
	}, nil
}

// Subscribe returns a channel that receives draw lifecycle events. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *DrawService) Subscribe() (<-chan DrawEvent, func()) {
	ch := make(chan DrawEvent, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *DrawService) broadcast(event DrawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest pending event rather than block the mutation path.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (s *DrawService) emitAudit(ctx context.Context, actor domain.Actor, action string, details map[string]any) error {
	return s.audit.Append(ctx, domain.AuditRecord{
		ID:      uuid.NewString(),
		ActorID: actor.ID,
		Action:  action,
		At:      s.now(),
		Details: details,
	})
}

// SelectWinner maps a random value in [0, totalTickets) onto concatenated
// ticket ranges in snapshot order and returns the owning candidate's index
// plus the nominal winning ticket index.
func SelectWinner(candidates []domain.Candidate, randomValue float64) (int, int) {
	ticketIndex := int(math.Floor(randomValue))
	cumulative := 0
	for i, candidate := range candidates {
		cumulative += candidate.TotalTickets
		if randomValue < float64(cumulative) {
			return i, ticketIndex
		}
	}
	// Guard against float edge cases at the top of the range.
	return len(candidates) - 1, ticketIndex
}

// cryptoRandFloat draws a uniform float64 in [0, 1) from crypto/rand. Draw
// outcomes carry real prizes, so a predictable PRNG is not acceptable here.
func cryptoRandFloat() (float64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	// 53 random bits give the full precision of a float64 mantissa.
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / float64(1<<53), nil
}
