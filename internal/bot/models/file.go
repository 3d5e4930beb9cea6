// Package models defines the bot's persistent data model: users, their
// categories and the file records filed under them.
package models

// FileKind is the media type of an archived file.
type FileKind string

const (
	KindPhoto     FileKind = "photo"
	KindVideo     FileKind = "video"
	KindDocument  FileKind = "document"
	KindAudio     FileKind = "audio"
	KindVoice     FileKind = "voice"
	KindAnimation FileKind = "animation"
	KindUnknown   FileKind = "unknown"
)

// ParseFileKind maps a stored kind name to FileKind; anything unrecognized
// becomes KindUnknown.
func ParseFileKind(s string) FileKind {
	switch k := FileKind(s); k {
	case KindPhoto, KindVideo, KindDocument, KindAudio, KindVoice, KindAnimation:
		return k
	default:
		return KindUnknown
	}
}

// FileRecord points at a file held in the archive chat. It never carries
// file content and is immutable once stored.
type FileRecord struct {
	// MessageID is the archive message the file was forwarded to. It is the
	// record's identity within a category.
	MessageID int64 `json:"message_id" bson:"message_id"`

	Kind FileKind `json:"file_type" bson:"file_type"`

	// FileName is set for kinds that carry one (documents, videos, audio, animations).
	FileName string `json:"file_name,omitempty" bson:"file_name,omitempty"`
}
