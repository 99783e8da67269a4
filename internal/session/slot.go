package session

import (
	"sync"

	"pdfagent/internal/models"
	"pdfagent/internal/upload"
)

// UploadSlot holds at most one pending file.
type UploadSlot struct {
	mu   sync.Mutex
	file *upload.File
}

// Select replaces the pending file. The slot takes over the caller's
// reference and releases the one it held before.
func (s *UploadSlot) Select(f *upload.File) {
	s.mu.Lock()
	prev := s.file
	s.file = f
	s.mu.Unlock()
	prev.Release()
}

func (s *UploadSlot) Clear() {
	s.mu.Lock()
	prev := s.file
	s.file = nil
	s.mu.Unlock()
	prev.Release()
}

func (s *UploadSlot) Current() *upload.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// retain returns the current file with an extra reference, or nil.
func (s *UploadSlot) retain() *upload.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Retain()
}

// Pending returns the presentation snapshot, nil when empty.
func (s *UploadSlot) Pending() *models.PendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Pending()
}
