package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"story-server/internal/models"
	"story-server/internal/store"
)

// ErrInjectedFlush is returned by MemorySession when FailOnFlush triggers.
var ErrInjectedFlush = errors.New("injected flush failure")

// MemorySession is an in-memory store.Session that assigns sequential ids on
// flush. Rows become visible in Stories and Nodes only after Commit.
type MemorySession struct {
	mu sync.Mutex

	nextID  int64
	pending []any

	// FailOnFlush makes the n-th Flush call (1-based) fail. Zero disables it.
	FailOnFlush int
	flushes     int

	Inserts int
	Updates int

	stories []*models.Story
	nodes   []*models.StoryNode

	Stories    []*models.Story
	Nodes      []*models.StoryNode
	Committed  bool
	RolledBack bool
}

// NewMemorySession creates an empty session.
func NewMemorySession() *MemorySession {
	return &MemorySession{}
}

func (s *MemorySession) Add(record any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, record)
}

func (s *MemorySession) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushes++
	if s.FailOnFlush > 0 && s.flushes == s.FailOnFlush {
		s.pending = nil
		return ErrInjectedFlush
	}

	for _, rec := range s.pending {
		switch r := rec.(type) {
		case *models.Story:
			if r.ID == 0 {
				s.nextID++
				r.ID = s.nextID
				r.CreatedAt = time.Now().UTC()
				s.stories = append(s.stories, r)
				s.Inserts++
			} else {
				s.Updates++
			}
		case *models.StoryNode:
			if r.ID == 0 {
				s.nextID++
				r.ID = s.nextID
				s.nodes = append(s.nodes, r)
				s.Inserts++
			} else {
				s.Updates++
			}
		default:
			s.pending = nil
			return fmt.Errorf("unsupported record type %T", rec)
		}
	}
	s.pending = nil
	return nil
}

func (s *MemorySession) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stories = append(s.Stories, s.stories...)
	s.Nodes = append(s.Nodes, s.nodes...)
	s.Committed = true
	return nil
}

func (s *MemorySession) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Committed {
		return nil
	}
	s.pending = nil
	s.stories = nil
	s.nodes = nil
	s.RolledBack = true
	return nil
}

// Staged returns the nodes flushed so far, committed or not.
func (s *MemorySession) Staged() []*models.StoryNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.StoryNode(nil), s.nodes...)
}

var _ store.Session = (*MemorySession)(nil)

// MemoryFactory is a store.Factory handing out MemorySessions.
type MemoryFactory struct {
	mu       sync.Mutex
	Sessions []*MemorySession
	// Err, when set, is returned by Begin.
	Err error
}

func (f *MemoryFactory) Begin(ctx context.Context) (store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s := NewMemorySession()
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

var _ store.Factory = (*MemoryFactory)(nil)
