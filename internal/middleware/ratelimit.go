package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// RateLimitConfig tunes per-user throttling of chat submissions.
type RateLimitConfig struct {
	Window       time.Duration
	Capacity     int
	Concurrency  int
	DuplicateTTL time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

type lastMessage struct {
	text string
	ts   time.Time
}

type userSlots struct {
	sem  *semaphore.Weighted
	refs int
}

// RateLimiter combines a token bucket per user, a duplicate message guard and a cap on
// concurrent turns per user.
type RateLimiter struct {
	window       time.Duration
	capacity     int
	concurrency  int64
	duplicateTTL time.Duration
	now          func() time.Time

	rlMu    sync.Mutex
	buckets map[string]*bucket

	dupMu   sync.Mutex
	lastMsg map[string]lastMessage

	// slots are dropped once no caller holds or waits on them
	semMu   sync.Mutex
	userSem map[string]*userSlots
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.DuplicateTTL <= 0 {
		cfg.DuplicateTTL = 45 * time.Second
	}
	return &RateLimiter{
		window:       cfg.Window,
		capacity:     cfg.Capacity,
		concurrency:  int64(cfg.Concurrency),
		duplicateTTL: cfg.DuplicateTTL,
		now:          time.Now,
		buckets:      make(map[string]*bucket),
		lastMsg:      make(map[string]lastMessage),
		userSem:      make(map[string]*userSlots),
	}
}

// RetryAfter is the wait suggested to throttled clients.
func (l *RateLimiter) RetryAfter() time.Duration {
	return l.window
}

// Allow takes one token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()

	l.rlMu.Lock()
	defer l.rlMu.Unlock()

	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		add := int(float64(l.capacity) * (float64(elapsed) / float64(l.window)))
		if add > 0 {
			b.tokens += add
			if b.tokens > l.capacity {
				b.tokens = l.capacity
			}
			b.lastRefill = now
		}
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// AllowMessage rejects the same text from the same user inside the duplicate window.
// An accepted text is recorded until ForgetMessage or the window passes.
func (l *RateLimiter) AllowMessage(username, text string) bool {
	now := l.now()
	text = strings.TrimSpace(text)

	l.dupMu.Lock()
	defer l.dupMu.Unlock()

	if entry, ok := l.lastMsg[username]; ok && entry.text == text && now.Sub(entry.ts) < l.duplicateTTL {
		return false
	}
	l.lastMsg[username] = lastMessage{text: text, ts: now}
	return true
}

// ForgetMessage drops the record of text so a failed turn can be retried at once.
// A newer text recorded in the meantime is left alone.
func (l *RateLimiter) ForgetMessage(username, text string) {
	text = strings.TrimSpace(text)

	l.dupMu.Lock()
	defer l.dupMu.Unlock()

	if entry, ok := l.lastMsg[username]; ok && entry.text == text {
		delete(l.lastMsg, username)
	}
}

// Acquire blocks until username has a free turn slot or ctx is done.
func (l *RateLimiter) Acquire(ctx context.Context, username string) (release func(), err error) {
	l.semMu.Lock()
	slots := l.userSem[username]
	if slots == nil {
		slots = &userSlots{sem: semaphore.NewWeighted(l.concurrency)}
		l.userSem[username] = slots
	}
	slots.refs++
	l.semMu.Unlock()

	if err := slots.sem.Acquire(ctx, 1); err != nil {
		l.unref(username, slots)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			slots.sem.Release(1)
			l.unref(username, slots)
		})
	}, nil
}

func (l *RateLimiter) unref(username string, slots *userSlots) {
	l.semMu.Lock()
	defer l.semMu.Unlock()

	slots.refs--
	if slots.refs == 0 && l.userSem[username] == slots {
		delete(l.userSem, username)
	}
}

// Sweep removes buckets that have refilled completely and expired duplicate records.
func (l *RateLimiter) Sweep() {
	now := l.now()

	l.rlMu.Lock()
	for key, b := range l.buckets {
		// an idle bucket is full again after one window, same as a fresh one
		if now.Sub(b.lastRefill) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.rlMu.Unlock()

	l.dupMu.Lock()
	for username, entry := range l.lastMsg {
		if now.Sub(entry.ts) >= l.duplicateTTL {
			delete(l.lastMsg, username)
		}
	}
	l.dupMu.Unlock()
}

// RunJanitor sweeps every interval until ctx is done.
func (l *RateLimiter) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}

