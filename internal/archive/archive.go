package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amalg/dci-bomberman/internal/game"
)

// MatchRecord is the archived outcome of one game.
type MatchRecord struct {
	ID        string         `json:"id" bson:"_id"`
	Winner    string         `json:"winner" bson:"winner"`
	Players   []string       `json:"players" bson:"players"`
	Kills     map[string]int `json:"kills" bson:"kills"`
	StartedAt time.Time      `json:"startedAt" bson:"startedAt"`
	EndedAt   time.Time      `json:"endedAt" bson:"endedAt"`
}

// Repo persists match records.
type Repo interface {
	Save(ctx context.Context, m MatchRecord) error
	Recent(ctx context.Context, limit int) ([]MatchRecord, error)
}

// Archiver stores finished games in a Repo.
type Archiver struct {
	repo Repo
	now  func() time.Time
}

// NewArchiver wraps repo.
func NewArchiver(repo Repo) *Archiver {
	return &Archiver{repo: repo, now: time.Now}
}

// RecordGame archives a finished game.
func (a *Archiver) RecordGame(ctx context.Context, r game.Result) error {
	rec := MatchRecord{
		ID:        r.GameID,
		Winner:    r.Winner,
		Players:   append([]string(nil), r.Players...),
		Kills:     r.Kills,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = a.now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.EndedAt
	}
	return a.repo.Save(ctx, rec)
}

// MemoryRepo keeps records in process memory.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]MatchRecord
}

// NewMemoryRepo returns an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]MatchRecord)}
}

func (r *MemoryRepo) Save(_ context.Context, m MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[m.ID] = m
	return nil
}

func (r *MemoryRepo) Recent(_ context.Context, limit int) ([]MatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MatchRecord, 0, len(r.records))
	for _, m := range r.records {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
