package memory

import (
	"context"
	"sync"

	"trivia-raffle-service/internal/domain"
)

// DrawStore is an in-memory implementation of app.DrawStore. Snapshots are
// deep-copied on both write and read so callers can never mutate locked state.
type DrawStore struct {
	mu        sync.Mutex
	snapshots map[string]*domain.Snapshot
	results   map[string]*domain.DrawResult
}

func NewDrawStore() *DrawStore {
	return &DrawStore{
		snapshots: make(map[string]*domain.Snapshot),
		results:   make(map[string]*domain.DrawResult),
	}
}

func (s *DrawStore) CreateSnapshot(_ context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshot.CompetitionID]; ok {
		return domain.ErrAlreadyLocked
	}
	s.snapshots[snapshot.CompetitionID] = copySnapshot(snapshot)
	return nil
}

func (s *DrawStore) Snapshot(_ context.Context, competitionID string) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[competitionID]
	if !ok {
		return nil, domain.ErrNoSnapshot
	}
	return copySnapshot(snapshot), nil
}

func (s *DrawStore) RecordResult(_ context.Context, result *domain.DrawResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[result.CompetitionID]; !ok {
		return domain.ErrNoSnapshot
	}
	if _, ok := s.results[result.CompetitionID]; ok {
		return domain.ErrAlreadyDrawn
	}
	stored := *result
	s.results[result.CompetitionID] = &stored
	return nil
}

func (s *DrawStore) Result(_ context.Context, competitionID string) (*domain.DrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[competitionID]
	if !ok {
		return nil, domain.ErrNoDrawResult
	}
	out := *result
	return &out, nil
}

func (s *DrawStore) SetPublication(_ context.Context, competitionID string, pub domain.Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[competitionID]
	if !ok {
		return domain.ErrNoDrawResult
	}
	result.Publication = pub
	return nil
}

func (s *DrawStore) DeleteDraw(_ context.Context, competitionID string) (*domain.Snapshot, *domain.DrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[competitionID]
	if !ok {
		return nil, nil, domain.ErrNoSnapshot
	}
	var priorResult *domain.DrawResult
	if result, ok := s.results[competitionID]; ok {
		out := *result
		priorResult = &out
	}
	prior := copySnapshot(snapshot)
	delete(s.snapshots, competitionID)
	delete(s.results, competitionID)
	return prior, priorResult, nil
}

func copySnapshot(snapshot *domain.Snapshot) *domain.Snapshot {
	out := *snapshot
	out.Candidates = make([]domain.Candidate, len(snapshot.Candidates))
	for i, candidate := range snapshot.Candidates {
		copied := candidate
		copied.Sources = append([]domain.TicketSource(nil), candidate.Sources...)
		out.Candidates[i] = copied
	}
	return &out
}
