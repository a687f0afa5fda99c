package catalog

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sequencer provides monotonically increasing sequence numbers.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }

// Feed holds the freshest listing shown to one browsing session.
type Feed struct {
	seq Sequencer

	mu       sync.Mutex
	latest   Result
	applied  uint64
	lastUsed time.Time
}

func (f *Feed) Next() uint64 {
	f.mu.Lock()
	f.lastUsed = time.Now()
	f.mu.Unlock()
	return f.seq.Next()
}

// Apply stores r if it is newer than anything applied so far. Otherwise the
// current result is returned flagged stale and r is dropped.
func (f *Feed) Apply(r Result) (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Sequence <= f.applied {
		latest := f.latest
		latest.Stale = true
		return latest, false
	}
	f.applied = r.Sequence
	f.latest = r
	return r, true
}

// Newer reports the applied result when it supersedes seq.
func (f *Feed) Newer(seq uint64) (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applied <= seq {
		return Result{}, false
	}
	latest := f.latest
	latest.Stale = true
	return latest, true
}

// Feeds keys feeds by session id.
type Feeds struct {
	mu    sync.Mutex
	feeds map[string]*Feed
}

func NewFeeds() *Feeds {
	return &Feeds{feeds: make(map[string]*Feed)}
}

func (fs *Feeds) For(sessionID string) *Feed {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.feeds[sessionID]
	if !ok {
		f = &Feed{lastUsed: time.Now()}
		fs.feeds[sessionID] = f
	}
	return f
}

// Prune forgets feeds idle for longer than maxIdle and returns how many were dropped.
func (fs *Feeds) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := 0
	for id, f := range fs.feeds {
		f.mu.Lock()
		idle := f.lastUsed.Before(cutoff)
		f.mu.Unlock()
		if idle {
			delete(fs.feeds, id)
			n++
		}
	}
	return n
}

func (fs *Feeds) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.feeds)
}
