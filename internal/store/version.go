package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

// UpdateChapterContent replaces a chapter's content, snapshotting the
// previous content first. The snapshot is tagged with the chapter's
// pre-mutation version number, so version N in history is always the content
// as it was just before the change that produced version N+1. The very first
// write to an empty chapter produces no snapshot.
//
// The chapter's content and metadata files are rewritten and the project's
// modification time is bumped, but the root metadata is deliberately not
// re-persisted: content updates are the high-frequency path, and callers that
// need the index durable call Persist themselves. Unknown IDs are a no-op.
func (p *Project) UpdateChapterContent(id ChapterID, newContent, changeSummary string) error {
	ch, ok := p.Chapters[id]
	if !ok {
		return nil
	}

	files := []string{
		p.relPath(filepath.Join(ch.DirPath, contentFileName)),
		p.relPath(filepath.Join(ch.DirPath, metadataFileName)),
	}
	if ch.Content != "" && ch.Content != newContent {
		snapPath, err := p.writeSnapshot(ch, changeSummary)
		if err != nil {
			return err
		}
		files = append(files, p.relPath(snapPath))
	}

	ch.Content = newContent
	ch.WordCount = wordCount(newContent)
	ch.Modified = time.Now()
	ch.CurrentVersion++

	contentPath := filepath.Join(ch.DirPath, contentFileName)
	if err := os.WriteFile(contentPath, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("failed to write chapter content %s: %w", contentPath, err)
	}
	if err := p.writeChapterMetadata(ch); err != nil {
		return err
	}
	p.Modified = ch.Modified
	return p.commit(fmt.Sprintf("update: chapter %d content (v%d)", id, ch.CurrentVersion), files...)
}

// writeSnapshot appends the chapter's current content to its history as an
// immutable version file and returns the file's path.
func (p *Project) writeSnapshot(ch *Chapter, summary string) (string, error) {
	dir := filepath.Join(ch.DirPath, historyDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}
	if summary == "" {
		summary = "autosave"
	}
	v := ChapterVersion{
		Version:   ch.CurrentVersion,
		Content:   ch.Content,
		WordCount: ch.WordCount,
		Summary:   summary,
		Timestamp: time.Now(),
	}
	data, err := json.MarshalIndent(&v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize version %d of chapter %d: %w", v.Version, ch.ID, err)
	}
	path := versionFile(ch.DirPath, v.Version)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write version file %s: %w", path, err)
	}
	return path, nil
}

// GetVersionHistory returns a chapter's prior snapshots, most recent first.
// A chapter with no history directory has an empty history.
func (p *Project) GetVersionHistory(id ChapterID) ([]ChapterVersion, error) {
	ch, ok := p.Chapters[id]
	if !ok {
		return nil, fmt.Errorf("chapter %d: %w", id, ErrChapterNotFound)
	}

	dir := filepath.Join(ch.DirPath, historyDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history directory %s: %w", dir, err)
	}

	var versions []ChapterVersion
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read version file %s: %w", path, err)
		}
		var v ChapterVersion
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		versions = append(versions, v)
	}
	slices.SortFunc(versions, func(a, b ChapterVersion) int {
		return b.Version - a.Version
	})
	return versions, nil
}

// RestoreVersion replaces a chapter's content with a prior snapshot's. The
// restore goes through UpdateChapterContent, so the content being replaced is
// itself snapshotted and the current version keeps increasing; restoring to
// version N never rewinds the counter to N.
func (p *Project) RestoreVersion(id ChapterID, version int) error {
	ch, ok := p.Chapters[id]
	if !ok {
		return fmt.Errorf("chapter %d: %w", id, ErrChapterNotFound)
	}

	path := versionFile(ch.DirPath, version)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("chapter %d version %d: %w", id, version, ErrVersionNotFound)
		}
		return fmt.Errorf("failed to read version file %s: %w", path, err)
	}
	var v ChapterVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return p.UpdateChapterContent(id, v.Content, fmt.Sprintf("restored to version %d", version))
}

func versionFile(chapterDir string, version int) string {
	return filepath.Join(chapterDir, historyDirName, "v"+strconv.Itoa(version)+".json")
}
