package guard

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	MaxInputLength = 1000
	MaxInputWords  = 100
)

// RateLimiter is a strict sliding-window counter, not a token bucket:
// each identity keeps the timestamps of its recent requests, expired
// entries are pruned on every check, and a rejected request is never
// recorded. State is process-local and resets on restart; that is a
// documented limitation rather than a bug.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether identity may make a request now, recording the
// request timestamp when it may. Concurrent calls for the same identity
// are serialized so no update is lost.
func (rl *RateLimiter) Allow(identity string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	kept := rl.windows[identity][:0]
	for _, ts := range rl.windows[identity] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rl.limit {
		rl.windows[identity] = kept
		rl.logger.Warn("Rate limit exceeded",
			zap.String("identity", identity),
			zap.Int("limit", rl.limit),
			zap.Duration("window", rl.window),
		)
		return false
	}

	rl.windows[identity] = append(kept, now)
	return true
}

// ValidateInput rejects empty or whitespace-only text, text longer than
// MaxInputLength characters and text with more than MaxInputWords
// whitespace-separated words.
func ValidateInput(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if len(text) > MaxInputLength {
		return false
	}
	if len(strings.Fields(text)) > MaxInputWords {
		return false
	}
	return true
}
