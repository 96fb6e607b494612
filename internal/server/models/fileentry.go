package models

import "time"

// FileType distinguishes file and directory entries in a user repository.
type FileType string

const (
	FileTypeFile FileType = "FILE"
	FileTypeDir  FileType = "DIR"
)

// FileEntry is one versioned entry in a user's script repository.
//
// Content is populated only by single-item fetches; listings carry metadata
// only. Properties hold free-form key/value pairs attached to the entry,
// e.g. "targetHosts" for generated test scripts.
type FileEntry struct {
	Path         string            `json:"path"`
	FileType     FileType          `json:"fileType"`
	Content      []byte            `json:"content,omitempty"`
	Encoding     string            `json:"encoding,omitempty"`
	Description  string            `json:"description,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
	Revision     string            `json:"revision,omitempty"`
	Size         int64             `json:"size"`
	LastModified time.Time         `json:"lastModified,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e *FileEntry) IsDir() bool {
	return e.FileType == FileTypeDir
}
