package client

import (
	"sync"
	"time"
)

// ActivityTracker отслеживает последнее действие пользователя, чтобы
// фоновая синхронизация не гоняла удалённую базу при простое клиента.
type ActivityTracker struct {
	mu        sync.RWMutex
	last      time.Time
	threshold time.Duration
}

func NewActivityTracker(threshold time.Duration) *ActivityTracker {
	return &ActivityTracker{
		last:      time.Now(),
		threshold: threshold,
	}
}

// Touch отмечает действие пользователя.
func (t *ActivityTracker) Touch() {
	t.mu.Lock()
	t.last = time.Now()
	t.mu.Unlock()
}

// IsActive сообщает, был ли пользователь активен в пределах порога.
func (t *ActivityTracker) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Since(t.last) < t.threshold
}

// LastActivity возвращает время последнего действия.
func (t *ActivityTracker) LastActivity() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}
