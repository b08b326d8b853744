package memory

import (
	"sync"

	"lms-progress-service/internal/app"
)

// FeedStore is an in-memory implementation of app.FeedRepository.
type FeedStore struct {
	mu    sync.RWMutex
	feeds map[string]*app.Feed
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		feeds: make(map[string]*app.Feed),
	}
}

func (s *FeedStore) GetOrCreate(enrollmentID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[enrollmentID]; ok {
		return feed
	}
	feed := app.NewFeed(enrollmentID)
	s.feeds[enrollmentID] = feed
	return feed
}

func (s *FeedStore) Get(enrollmentID string) (*app.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[enrollmentID]
	return feed, ok
}

func (s *FeedStore) DeleteIfEmpty(enrollmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[enrollmentID]
	if !ok {
		return
	}
	if feed.IsEmpty() {
		delete(s.feeds, enrollmentID)
	}
}
