package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownFileType = errors.New("unknown file type")

type FileType string

const (
	FileTypeThumbnail  FileType = "thumbnail"
	FileTypeBackground FileType = "background"
	FileTypeVideo      FileType = "video"
	FileTypeJson       FileType = "json"
	FileTypeSubtitles  FileType = "subtitles"
	FileTypePdf        FileType = "pdf"
)

// FileTypes lists every supported buffer slot in a stable order.
var FileTypes = []FileType{
	FileTypeThumbnail,
	FileTypeBackground,
	FileTypeVideo,
	FileTypeJson,
	FileTypeSubtitles,
	FileTypePdf,
}

var filePrefixes = map[FileType]string{
	FileTypeThumbnail:  "thumbnails",
	FileTypeBackground: "backgrounds",
	FileTypeVideo:      "videos",
	FileTypeJson:       "json",
	FileTypeSubtitles:  "subtitles",
	FileTypePdf:        "pdfs",
}

func ParseFileType(s string) (FileType, error) {
	ft := FileType(strings.ToLower(strings.TrimSpace(s)))
	if !ft.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFileType, s)
	}
	return ft, nil
}

func (ft FileType) Valid() bool {
	_, ok := filePrefixes[ft]
	return ok
}

// Prefix is the storage namespace of the type.
func (ft FileType) Prefix() string {
	return filePrefixes[ft]
}

// BufferEntry is an uploaded asset waiting to replace the value of FieldName.
type BufferEntry struct {
	FieldName string `json:"field_name" bson:"fieldName"`
	Url       string `json:"url" bson:"url"`
}

// UploadBuffer stages uploads per file type until the node is published.
// A buffer has a single writer: the author editing the node or the publish
// run swapping it.
type UploadBuffer map[FileType]BufferEntry

// Put stores the entry and returns the one it replaced.
func (b UploadBuffer) Put(ft FileType, entry BufferEntry) (prev BufferEntry, replaced bool) {
	prev, replaced = b[ft]
	b[ft] = entry
	return
}

// Slots returns occupied file types in FileTypes order.
func (b UploadBuffer) Slots() []FileType {
	slots := make([]FileType, 0, len(b))
	for _, ft := range FileTypes {
		if _, ok := b[ft]; ok {
			slots = append(slots, ft)
		}
	}
	return slots
}
