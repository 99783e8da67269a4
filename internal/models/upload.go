package models

// PendingUpload is the presentation snapshot of the file waiting in the slot.
type PendingUpload struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
	MimeCategory string `json:"mime_category"`
	Size         int64  `json:"size"`
	Pages        int    `json:"pages,omitempty"`
}
