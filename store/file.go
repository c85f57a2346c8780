package store

import (
	"io"
	"mime"
	"path/filepath"
)

// File is an object to be written under Path.
type File struct {
	Path        string
	ContentSize int64
	io.Reader
}

func (f File) ContentType() string {
	if ct := mime.TypeByExtension(filepath.Ext(f.Path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
