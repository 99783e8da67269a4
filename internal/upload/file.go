package upload

import (
	"io"
	"os"
	"sync/atomic"

	"pdfagent/internal/models"
)

// File is a reference-counted handle to one stored upload. The bytes on disk
// are removed when the last reference is released.
type File struct {
	id       string
	name     string
	path     string
	mimeType string
	category string
	size     int64
	pages    int

	refs  atomic.Int32
	store *Store
}

func (f *File) ID() string       { return f.id }
func (f *File) Name() string     { return f.name }
func (f *File) Path() string     { return f.path }
func (f *File) MimeType() string { return f.mimeType }
func (f *File) Size() int64      { return f.size }

// Open returns a reader over the stored bytes.
func (f *File) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Retain adds a reference. A flight retains the file so that the slot can be
// cleared or replaced while the request is still reading it.
func (f *File) Retain() *File {
	f.refs.Add(1)
	return f
}

// Release drops a reference.
func (f *File) Release() {
	if f == nil {
		return
	}
	if f.refs.Add(-1) == 0 && f.store != nil {
		f.store.remove(f)
	}
}

// Pending returns the presentation metadata shown next to the slot.
func (f *File) Pending() *models.PendingUpload {
	return &models.PendingUpload{
		ID:           f.id,
		FileName:     f.name,
		MimeType:     f.mimeType,
		MimeCategory: f.category,
		Size:         f.size,
		Pages:        f.pages,
	}
}
