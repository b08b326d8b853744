package app

import (
	"sync"
	"time"

	"lms-progress-service/internal/domain"
)

// FeedRepository abstracts where per-enrollment progress feeds live (in-memory, Redis, etc).
type FeedRepository interface {
	GetOrCreate(enrollmentID string) *Feed
	Get(enrollmentID string) (*Feed, bool)
	DeleteIfEmpty(enrollmentID string)
}

// ProgressUpdate is what feed subscribers receive after a recompute.
type ProgressUpdate struct {
	EnrollmentID string                    `json:"enrollmentId"`
	Progress     domain.EnrollmentProgress `json:"progress"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
}

// Feed fans progress updates of one enrollment out to its subscribers.
type Feed struct {
	id          string
	now         func() time.Time
	mu          sync.RWMutex
	last        *ProgressUpdate
	subscribers map[chan ProgressUpdate]struct{}
}

// NewFeed is exported for infrastructure layers that need to seed feeds.
func NewFeed(id string) *Feed {
	return NewFeedWithClock(id, time.Now)
}

// NewFeedWithClock allows deterministic timestamps in tests.
func NewFeedWithClock(id string, now func() time.Time) *Feed {
	return &Feed{
		id:          id,
		now:         now,
		subscribers: make(map[chan ProgressUpdate]struct{}),
	}
}

// IsEmpty reports whether the feed has no subscribers.
func (f *Feed) IsEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) == 0
}

// Subscribe registers a subscriber that first receives initial, then every
// published update. The caller must invoke the returned cancel function.
func (f *Feed) Subscribe(initial domain.EnrollmentProgress) (<-chan ProgressUpdate, func()) {
	ch := make(chan ProgressUpdate, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	update := ProgressUpdate{EnrollmentID: f.id, Progress: initial, UpdatedAt: f.now()}
	if f.last == nil || f.last.UpdatedAt.Before(update.UpdatedAt) {
		f.last = &update
	}
	// The buffer is empty, so this never blocks.
	ch <- update
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends progress to every subscriber. Slow subscribers lose their
// oldest pending update rather than blocking the publisher.
func (f *Feed) Publish(progress domain.EnrollmentProgress) ProgressUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()

	update := ProgressUpdate{EnrollmentID: f.id, Progress: progress, UpdatedAt: f.now()}
	f.last = &update
	for ch := range f.subscribers {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
	return update
}

// Last returns the most recent update, if any.
func (f *Feed) Last() (ProgressUpdate, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last == nil {
		return ProgressUpdate{}, false
	}
	return *f.last, true
}
