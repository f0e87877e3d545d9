package store

import (
	"time"

	"github.com/maruel/ksid"
)

// ChapterID is a unique chapter identifier. IDs are allocated from a strictly
// monotonic counter persisted in the project metadata, so an ID is never
// reused even after the chapter it named is deleted.
type ChapterID uint64

// VolumeID is a unique volume identifier.
type VolumeID = ksid.ID

// ChapterStatus tracks writing progress for a chapter.
type ChapterStatus string

const (
	// StatusNotStarted means no writing has happened yet.
	StatusNotStarted ChapterStatus = "not_started"
	// StatusInProgress means the chapter is being written.
	StatusInProgress ChapterStatus = "in_progress"
	// StatusDraft means a first draft is complete.
	StatusDraft ChapterStatus = "draft"
	// StatusReview means the chapter is under review.
	StatusReview ChapterStatus = "review"
	// StatusComplete means the chapter is finalized.
	StatusComplete ChapterStatus = "complete"
)

// Volume is a named, ordered group of chapters. ChapterIDs is the
// authoritative ordering; each member Chapter's Order field mirrors its index
// here.
type Volume struct {
	ID          VolumeID    `json:"id"`
	Title       string      `json:"title"`
	Order       int         `json:"order"`
	ChapterIDs  []ChapterID `json:"chapter_ids"`
	Description string      `json:"description,omitempty"`
	Created     time.Time   `json:"created"`
	Modified    time.Time   `json:"modified"`
}

// Chapter is a unit of content with a position within one volume.
// Content lives in the chapter's content file, not in the root metadata.
type Chapter struct {
	ID             ChapterID     `json:"id"`
	Title          string        `json:"title"`
	Order          int           `json:"order"`
	VolumeID       VolumeID      `json:"volume_id"`
	DirPath        string        `json:"dir_path"`
	Content        string        `json:"-"`
	WordCount      int           `json:"word_count"`
	Status         ChapterStatus `json:"status"`
	CurrentVersion int           `json:"current_version"`
	Created        time.Time     `json:"created"`
	Modified       time.Time     `json:"modified"`
}

// ChapterVersion is an immutable snapshot of a chapter's content at a prior
// point. Version N always holds the content as it was just before the change
// that produced version N+1.
type ChapterVersion struct {
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	WordCount int       `json:"word_count"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}
