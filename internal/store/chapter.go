package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CreateChapter creates an empty chapter in the given volume, or in the first
// volume when volumeID is zero. The chapter's storage directory, content file
// and metadata file are created before the index is updated. Returns the
// allocated chapter ID.
func (p *Project) CreateChapter(title string, volumeID VolumeID) (ChapterID, error) {
	var vol *Volume
	if volumeID.IsZero() {
		if len(p.Volumes) == 0 {
			return 0, ErrVolumeNotFound
		}
		vol = p.Volumes[0]
	} else if vol = p.volumeByID(volumeID); vol == nil {
		return 0, fmt.Errorf("volume %s: %w", volumeID, ErrVolumeNotFound)
	}

	id := p.allocateChapterID()
	dir := p.chapterDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create chapter directory %s: %w", dir, err)
	}

	now := time.Now()
	ch := &Chapter{
		ID:       id,
		Title:    title,
		Order:    len(vol.ChapterIDs),
		VolumeID: vol.ID,
		DirPath:  dir,
		Status:   StatusNotStarted,
		Created:  now,
		Modified: now,
	}
	contentPath := filepath.Join(dir, contentFileName)
	if err := os.WriteFile(contentPath, nil, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write chapter content %s: %w", contentPath, err)
	}
	if err := p.writeChapterMetadata(ch); err != nil {
		return 0, err
	}

	p.Chapters[id] = ch
	vol.ChapterIDs = append(vol.ChapterIDs, id)
	vol.Modified = now
	p.Modified = now

	err := p.persist(fmt.Sprintf("create: chapter %d - %s", id, title),
		p.relPath(filepath.Join(dir, metadataFileName)),
		p.relPath(filepath.Join(dir, contentFileName)),
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// allocateChapterID hands out the next ID from the persisted monotonic
// counter. IDs are never derived from the live chapter count, so deleting a
// chapter can never cause its ID to be reissued.
func (p *Project) allocateChapterID() ChapterID {
	if p.nextChapterID == 0 {
		// Counter missing (fresh project or metadata written before the
		// counter existed): resume above the highest known ID.
		p.nextChapterID = 1
		for id := range p.Chapters {
			if id >= p.nextChapterID {
				p.nextChapterID = id + 1
			}
		}
	}
	id := p.nextChapterID
	p.nextChapterID++
	return id
}

// DeleteChapter removes a chapter from its volume, renumbers the remaining
// chapters to keep their order dense, and deletes the chapter's storage
// directory. Unknown IDs are a no-op.
func (p *Project) DeleteChapter(id ChapterID) error {
	ch, ok := p.Chapters[id]
	if !ok {
		return nil
	}

	for _, vol := range p.Volumes {
		if idx := slices.Index(vol.ChapterIDs, id); idx != -1 {
			vol.ChapterIDs = append(vol.ChapterIDs[:idx], vol.ChapterIDs[idx+1:]...)
			p.renumberVolume(vol)
			vol.Modified = time.Now()
			break
		}
	}

	if err := p.removeChapterDir(ch); err != nil {
		return err
	}
	delete(p.Chapters, id)
	p.Modified = time.Now()
	return p.persist(fmt.Sprintf("delete: chapter %d - %s", id, ch.Title), p.relPath(ch.DirPath))
}

func (p *Project) removeChapterDir(ch *Chapter) error {
	if err := os.RemoveAll(ch.DirPath); err != nil {
		return fmt.Errorf("failed to delete chapter directory %s: %w", ch.DirPath, err)
	}
	return nil
}

// RenameChapter updates a chapter's title and rewrites its metadata file.
// Unknown IDs are a no-op.
func (p *Project) RenameChapter(id ChapterID, newTitle string) error {
	ch, ok := p.Chapters[id]
	if !ok {
		return nil
	}
	ch.Title = newTitle
	ch.Modified = time.Now()
	if err := p.writeChapterMetadata(ch); err != nil {
		return err
	}
	p.Modified = ch.Modified
	return p.persist(fmt.Sprintf("rename: chapter %d - %s", id, newTitle),
		p.relPath(filepath.Join(ch.DirPath, metadataFileName)))
}

// UpdateChapterStatus sets a chapter's progress status and rewrites its
// metadata file. Unknown IDs are a no-op.
func (p *Project) UpdateChapterStatus(id ChapterID, status ChapterStatus) error {
	ch, ok := p.Chapters[id]
	if !ok {
		return nil
	}
	ch.Status = status
	ch.Modified = time.Now()
	if err := p.writeChapterMetadata(ch); err != nil {
		return err
	}
	p.Modified = ch.Modified
	return p.persist(fmt.Sprintf("update: chapter %d status %s", id, status),
		p.relPath(filepath.Join(ch.DirPath, metadataFileName)))
}

// ReorderChaptersInVolume replaces a volume's chapter ordering. The new order
// must be a permutation of the volume's current chapters: every ID must name
// an existing chapter of this volume and no chapter may be omitted. On
// validation failure the volume is left unchanged. Unknown volume IDs are a
// no-op.
func (p *Project) ReorderChaptersInVolume(volumeID VolumeID, newOrder []ChapterID) error {
	vol := p.volumeByID(volumeID)
	if vol == nil {
		return nil
	}

	seen := make(map[ChapterID]bool, len(newOrder))
	for _, id := range newOrder {
		ch, ok := p.Chapters[id]
		if !ok {
			return fmt.Errorf("chapter %d does not exist: %w", id, ErrInvalidOrder)
		}
		if ch.VolumeID != volumeID {
			return fmt.Errorf("chapter %d does not belong to volume %s: %w", id, volumeID, ErrInvalidOrder)
		}
		if seen[id] {
			return fmt.Errorf("chapter %d appears twice: %w", id, ErrInvalidOrder)
		}
		seen[id] = true
	}
	for _, id := range vol.ChapterIDs {
		if !seen[id] {
			return fmt.Errorf("chapter %d missing from new order: %w", id, ErrInvalidOrder)
		}
	}

	vol.ChapterIDs = slices.Clone(newOrder)
	p.renumberVolume(vol)
	now := time.Now()
	vol.Modified = now
	p.Modified = now
	return p.persist(fmt.Sprintf("reorder: volume %s", volumeID))
}

// MoveChapterToVolume moves a chapter into the target volume at the given
// position, clamped to the end of the target's chapter list. The cached
// order fields of both the source and the target volume are renumbered
// immediately.
func (p *Project) MoveChapterToVolume(chapterID ChapterID, targetVolumeID VolumeID, targetPosition int) error {
	ch, ok := p.Chapters[chapterID]
	if !ok {
		return fmt.Errorf("chapter %d: %w", chapterID, ErrChapterNotFound)
	}
	target := p.volumeByID(targetVolumeID)
	if target == nil {
		return fmt.Errorf("volume %s: %w", targetVolumeID, ErrVolumeNotFound)
	}

	now := time.Now()
	if source := p.volumeByID(ch.VolumeID); source != nil {
		if idx := slices.Index(source.ChapterIDs, chapterID); idx != -1 {
			source.ChapterIDs = append(source.ChapterIDs[:idx], source.ChapterIDs[idx+1:]...)
			p.renumberVolume(source)
			source.Modified = now
		}
	}

	pos := min(max(targetPosition, 0), len(target.ChapterIDs))
	target.ChapterIDs = slices.Insert(target.ChapterIDs, pos, chapterID)
	ch.VolumeID = target.ID
	p.renumberVolume(target)
	target.Modified = now
	p.Modified = now
	return p.persist(fmt.Sprintf("move: chapter %d to volume %s", chapterID, targetVolumeID))
}

// AllChaptersInOrder returns every chapter ordered by its owning volume's
// order first, then by its own order within the volume.
func (p *Project) AllChaptersInOrder() []*Chapter {
	volOrder := make(map[VolumeID]int, len(p.Volumes))
	for _, vol := range p.Volumes {
		volOrder[vol.ID] = vol.Order
	}
	chapters := make([]*Chapter, 0, len(p.Chapters))
	for _, ch := range p.Chapters {
		chapters = append(chapters, ch)
	}
	slices.SortFunc(chapters, func(a, b *Chapter) int {
		if c := cmp.Compare(volOrder[a.VolumeID], volOrder[b.VolumeID]); c != 0 {
			return c
		}
		return cmp.Compare(a.Order, b.Order)
	})
	return chapters
}

// ChaptersForVolume returns the volume's chapters in their stored order.
// Unknown volume IDs yield an empty slice.
func (p *Project) ChaptersForVolume(volumeID VolumeID) []*Chapter {
	vol := p.volumeByID(volumeID)
	if vol == nil {
		return nil
	}
	chapters := make([]*Chapter, 0, len(vol.ChapterIDs))
	for _, id := range vol.ChapterIDs {
		if ch, ok := p.Chapters[id]; ok {
			chapters = append(chapters, ch)
		}
	}
	return chapters
}

// ParseChapterDirName maps a chapter storage directory name like
// "chapter-12" back to its chapter ID. Reports false for anything else.
func ParseChapterDirName(name string) (ChapterID, bool) {
	s, ok := strings.CutPrefix(name, chapterDirPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return ChapterID(id), true
}

func (p *Project) writeChapterMetadata(ch *Chapter) error {
	data, err := json.MarshalIndent(ch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize chapter %d: %w", ch.ID, err)
	}
	path := filepath.Join(ch.DirPath, metadataFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write chapter metadata %s: %w", path, err)
	}
	return nil
}
