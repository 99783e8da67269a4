package session

import (
	"container/list"
	"sync"

	"pdfagent/internal/models"
)

// ResponseLog keeps completed exchanges newest first. Only the controller
// writes to it.
type ResponseLog struct {
	mu    sync.RWMutex
	items *list.List
	index map[string]*models.Exchange
}

func NewResponseLog() *ResponseLog {
	return &ResponseLog{items: list.New(), index: make(map[string]*models.Exchange)}
}

func (l *ResponseLog) Prepend(ex *models.Exchange) {
	if ex == nil {
		return
	}
	l.mu.Lock()
	l.items.PushFront(ex)
	l.index[ex.ID()] = ex
	l.mu.Unlock()
}

// All returns the exchanges newest first.
func (l *ResponseLog) All() []*models.Exchange {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Exchange, 0, l.items.Len())
	for e := l.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*models.Exchange))
	}
	return out
}

func (l *ResponseLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items.Len()
}

func (l *ResponseLog) Find(id string) (*models.Exchange, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ex, ok := l.index[id]
	return ex, ok
}
