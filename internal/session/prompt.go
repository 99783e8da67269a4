package session

import "sync"

// PromptField holds the user instruction. Empty means the service default.
type PromptField struct {
	mu    sync.RWMutex
	value string
}

func (p *PromptField) SetValue(text string) {
	p.mu.Lock()
	p.value = text
	p.mu.Unlock()
}

func (p *PromptField) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}
