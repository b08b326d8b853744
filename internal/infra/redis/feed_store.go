package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"lms-progress-service/internal/app"
)

// FeedStore is a Redis-aware implementation of app.FeedRepository.
// Feeds and their subscribers stay in process; Redis only carries a liveness
// marker per watched enrollment so other instances and operators can see
// which progress feeds are open.
type FeedStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	feeds  map[string]*app.Feed
}

func NewFeedStore(client *redis.Client, ttl time.Duration) *FeedStore {
	return &FeedStore{
		client: client,
		ttl:    ttl,
		feeds:  make(map[string]*app.Feed),
	}
}

func (s *FeedStore) GetOrCreate(enrollmentID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[enrollmentID]; ok {
		s.touch(enrollmentID)
		return feed
	}
	feed := app.NewFeed(enrollmentID)
	s.feeds[enrollmentID] = feed
	s.touch(enrollmentID)
	return feed
}

// Get is called before every publish, so it also keeps the marker of a
// watched feed alive for as long as updates flow.
func (s *FeedStore) Get(enrollmentID string) (*app.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[enrollmentID]
	if ok && !feed.IsEmpty() {
		s.touch(enrollmentID)
	}
	return feed, ok
}

// touch (re)sets the marker, recreating it if it already expired.
func (s *FeedStore) touch(enrollmentID string) {
	_ = s.client.Set(context.Background(), FeedKey(enrollmentID), "1", s.ttl).Err()
}

func (s *FeedStore) DeleteIfEmpty(enrollmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[enrollmentID]
	if !ok || !feed.IsEmpty() {
		return
	}
	delete(s.feeds, enrollmentID)
	_ = s.client.Del(context.Background(), FeedKey(enrollmentID)).Err()
}

// FeedKey is the liveness marker of an enrollment's progress feed.
func FeedKey(enrollmentID string) string {
	return "progress:feed:" + enrollmentID
}
