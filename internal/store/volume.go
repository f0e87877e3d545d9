package store

import (
	"fmt"
	"time"

	"github.com/maruel/ksid"
)

// CreateVolume appends a new empty volume and persists the project.
// It returns the generated volume ID.
func (p *Project) CreateVolume(title string) (VolumeID, error) {
	now := time.Now()
	vol := &Volume{
		ID:       ksid.NewID(),
		Title:    title,
		Order:    len(p.Volumes),
		Created:  now,
		Modified: now,
	}
	p.Volumes = append(p.Volumes, vol)
	p.Modified = now
	if err := p.persist(fmt.Sprintf("create: volume %s - %s", vol.ID, title)); err != nil {
		return vol.ID, err
	}
	return vol.ID, nil
}

// DeleteVolume removes a volume together with every chapter it owns,
// including their storage directories, then renumbers the remaining volumes
// to keep their order dense. Unknown IDs are a no-op.
func (p *Project) DeleteVolume(id VolumeID) error {
	idx := -1
	for i, vol := range p.Volumes {
		if vol.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	vol := p.Volumes[idx]
	var removed []string
	for _, chID := range vol.ChapterIDs {
		ch, ok := p.Chapters[chID]
		if !ok {
			continue
		}
		if err := p.removeChapterDir(ch); err != nil {
			return err
		}
		removed = append(removed, p.relPath(ch.DirPath))
		delete(p.Chapters, chID)
	}

	p.Volumes = append(p.Volumes[:idx], p.Volumes[idx+1:]...)
	for i, v := range p.Volumes {
		v.Order = i
	}
	p.Modified = time.Now()
	return p.persist(fmt.Sprintf("delete: volume %s - %s", id, vol.Title), removed...)
}

// RenameVolume updates a volume's title. Unknown IDs are a no-op.
func (p *Project) RenameVolume(id VolumeID, newTitle string) error {
	vol := p.volumeByID(id)
	if vol == nil {
		return nil
	}
	now := time.Now()
	vol.Title = newTitle
	vol.Modified = now
	p.Modified = now
	return p.persist(fmt.Sprintf("rename: volume %s - %s", id, newTitle))
}
