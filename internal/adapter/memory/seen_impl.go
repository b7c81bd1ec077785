package memory

import (
	"context"
	"sync"

	"github.com/user/nextdoor-crawler/internal/repository"
)

// SeenSetProvider keeps each run's seen links in process memory.
type SeenSetProvider struct{}

func NewSeenSetProvider() *SeenSetProvider {
	return &SeenSetProvider{}
}

func (SeenSetProvider) NewRun(context.Context) (repository.SeenSet, error) {
	return &seenSet{links: make(map[string]struct{})}, nil
}

type seenSet struct {
	mu    sync.Mutex
	links map[string]struct{}
}

func (s *seenSet) MarkSeen(_ context.Context, link string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link]; ok {
		return false, nil
	}
	s.links[link] = struct{}{}
	return true, nil
}

func (s *seenSet) Len(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links), nil
}

func (s *seenSet) Release(context.Context) error {
	s.mu.Lock()
	s.links = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}
