package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ DocumentStore = (*MemoryStore)(nil)

// MemoryStore is a DocumentStore kept in process memory, intended for local
// development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	challenges map[string]map[string]ChallengeRecord // userID -> challengeID -> record
	checkIns   map[string][]CheckInRecord            // userID/challengeID -> records
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]map[string]ChallengeRecord),
		checkIns:   make(map[string][]CheckInRecord),
	}
}

// PutChallenge inserts or replaces a challenge owned by record.OwnerID.
func (s *MemoryStore) PutChallenge(record ChallengeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userStore, ok := s.challenges[record.OwnerID]
	if !ok {
		userStore = make(map[string]ChallengeRecord)
		s.challenges[record.OwnerID] = userStore
	}
	userStore[record.ID] = record
}

// AddCheckIn appends a check-in for a user's challenge.
func (s *MemoryStore) AddCheckIn(userID string, record CheckInRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := checkInKey(userID, record.ChallengeID)
	s.checkIns[key] = append(s.checkIns[key], record)
}

// ListChallenges returns the user's challenges ordered by start date.
func (s *MemoryStore) ListChallenges(ctx context.Context, userID string) ([]ChallengeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]ChallengeRecord, 0, len(s.challenges[userID]))
	for _, record := range s.challenges[userID] {
		out = append(out, record)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

// ListCheckIns returns check-ins dated at or after since, oldest first.
func (s *MemoryStore) ListCheckIns(ctx context.Context, userID, challengeID string, since time.Time) ([]CheckInRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snapshot := make([]CheckInRecord, 0)
	for _, record := range s.checkIns[checkInKey(userID, challengeID)] {
		if !record.Date.Before(since) {
			snapshot = append(snapshot, record)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Date.Before(snapshot[j].Date)
	})
	return snapshot, nil
}

func checkInKey(userID, challengeID string) string {
	return userID + "/" + challengeID
}
