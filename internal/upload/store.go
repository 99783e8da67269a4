package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTTL           = 2 * time.Hour
	DefaultCleanInterval = 10 * time.Minute
)

// Store keeps selected files on disk until their handles are released.
type Store struct {
	baseDir string
	ttl     time.Duration

	mu   sync.Mutex
	live map[string]*File
}

// NewStore prepares baseDir and returns a store whose orphaned files expire
// after ttl.
func NewStore(baseDir string, ttl time.Duration) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("upload dir required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		baseDir: baseDir,
		ttl:     ttl,
		live:    make(map[string]*File),
	}, nil
}

// Save stores a multipart file for the session.
func (s *Store) Save(sessionID string, fh *multipart.FileHeader) (*File, error) {
	if fh == nil {
		return nil, errors.New("file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return s.SaveReader(sessionID, fh.Filename, fh.Header.Get("Content-Type"), src)
}

// SaveReader stores r under a fresh name. The returned handle carries one
// reference owned by the caller.
func (s *Store) SaveReader(sessionID, name, declaredType string, r io.Reader) (*File, error) {
	if sessionID == "" {
		return nil, errors.New("session id required")
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document"
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	path := filepath.Join(dir, id+strings.ToLower(filepath.Ext(name)))
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	size, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), r))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("save file: %w", err)
	}

	mimeType := detectMimeType(head, declaredType)
	category := MimeCategory(name, mimeType)
	f := &File{
		id:       id,
		name:     name,
		path:     path,
		mimeType: mimeType,
		category: category,
		size:     size,
		store:    s,
	}
	if category == "PDF" {
		f.pages = pageCount(path)
	}
	f.refs.Store(1)

	s.mu.Lock()
	s.live[path] = f
	s.mu.Unlock()
	debugLog("[upload] stored %s (%d bytes) for session %s", name, size, sessionID)
	return f, nil
}

func (s *Store) remove(f *File) {
	s.mu.Lock()
	delete(s.live, f.path)
	s.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		log.Printf("remove upload %s failed: %v", f.path, err)
		return
	}
	// prune empty session directory
	_ = os.Remove(filepath.Dir(f.path))
}

// Live reports how many files are currently referenced.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// StartCleaner periodically deletes orphaned files older than the TTL, e.g.
// leftovers from a previous process.
func (s *Store) StartCleaner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanInterval
	}
	go s.cleanupLoop(ctx, interval)
}

func (s *Store) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.cleanupOrphans(time.Now()); err != nil {
				log.Printf("cleanup uploads error: %v", err)
			}
		}
	}
}

func (s *Store) cleanupOrphans(now time.Time) error {
	var stale []string
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) < s.ttl {
			return nil
		}
		s.mu.Lock()
		_, live := s.live[path]
		s.mu.Unlock()
		if !live {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove stale upload %s failed: %v", path, err)
			continue
		}
		if dir := filepath.Dir(path); dir != s.baseDir {
			_ = os.Remove(dir)
		}
	}
	return nil
}

func detectMimeType(head []byte, declared string) string {
	detected := http.DetectContentType(head)
	if detected != "application/octet-stream" {
		return stripParams(detected)
	}
	if declared != "" {
		return stripParams(declared)
	}
	return detected
}

func stripParams(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	return mt
}

// MimeCategory derives the short label shown on the pending-file chip: the
// file extension, or the last three characters of the MIME type.
func MimeCategory(name, mimeType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
		return strings.ToUpper(ext)
	}
	mt := stripParams(mimeType)
	if len(mt) > 3 {
		mt = mt[len(mt)-3:]
	}
	return strings.ToUpper(mt)
}
