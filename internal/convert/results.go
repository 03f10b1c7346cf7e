package convert

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/tblmaker/internal/render"
	"github.com/dgallion1/tblmaker/internal/roster"
)

// Result is one finished conversion.
type Result struct {
	ID          string
	ContentHash string
	Filename    string
	Roster      *roster.Roster
	HTML        string
	JSON        []byte
	Table       render.TableStats
	CreatedAt   time.Time
}

// Summary is a JSON-safe description of a result.
type Summary struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename,omitempty"`
	Players     int             `json:"players"`
	Coach       *roster.Coach   `json:"coach"`
	Dropped     int             `json:"dropped"`
	Rows        int             `json:"rows"`
	Roster      []roster.Player `json:"roster"`
	ContentHash string          `json:"content_hash"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Summary returns the result metadata without the rendered payloads.
func (r *Result) Summary() Summary {
	return Summary{
		ID:          r.ID,
		Filename:    r.Filename,
		Players:     len(r.Roster.Players),
		Coach:       r.Roster.Coach,
		Dropped:     r.Roster.Dropped,
		Rows:        r.Table.Rows,
		Roster:      r.Roster.Players,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt,
	}
}

// ResultStore is a thread-safe in-memory result registry with TTL eviction.
type ResultStore struct {
	mu      sync.Mutex
	results map[string]*Result
	ttl     time.Duration
}

func NewResultStore(ttl time.Duration) *ResultStore {
	return &ResultStore{
		results: make(map[string]*Result),
		ttl:     ttl,
	}
}

func (s *ResultStore) Put(r *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = r
}

func (s *ResultStore) Get(id string) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[id]
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Cleanup removes expired results.
func (s *ResultStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, r := range s.results {
		if now.Sub(r.CreatedAt) > s.ttl {
			delete(s.results, id)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (s *ResultStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
