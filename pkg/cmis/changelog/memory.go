// Package changelog stores the change events of a repository.
package changelog

import (
	"context"
	"sync"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// MemoryLog keeps change events in memory. Tokens start at 1.
type MemoryLog struct {
	mu     sync.RWMutex
	events []cmis.ChangeEvent
}

// NewMemoryLog creates an empty in-memory change log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append stores event with the next token.
func (l *MemoryLog) Append(ctx context.Context, event cmis.ChangeEvent) (cmis.ChangeEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	event.Token = int64(len(l.events)) + 1
	l.events = append(l.events, event)
	return event, nil
}

// Changes returns up to maxItems events after the token since.
func (l *MemoryLog) Changes(ctx context.Context, since int64, maxItems int) ([]cmis.ChangeEvent, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if since < 0 {
		since = 0
	}
	if since >= int64(len(l.events)) {
		return nil, false, nil
	}
	rest := l.events[since:]
	if maxItems > 0 && len(rest) > maxItems {
		return append([]cmis.ChangeEvent(nil), rest[:maxItems]...), true, nil
	}
	return append([]cmis.ChangeEvent(nil), rest...), false, nil
}

// LatestToken returns the token of the last event.
func (l *MemoryLog) LatestToken(ctx context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.events)), nil
}

// Close does nothing.
func (l *MemoryLog) Close() error {
	return nil
}
