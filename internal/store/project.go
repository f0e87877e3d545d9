// Package store implements the versioned, hierarchical document store for
// writing projects: ordered volumes of ordered chapters, per-chapter content
// files with append-only snapshot history, and an in-memory index that is
// reconstructed from the on-disk directory layout.
//
// Storage layout:
//
//	<root>/
//	  .inkdb/
//	    project.json        # root metadata, including the chapter ID counter
//	    characters.yaml
//	    world.yaml
//	    plot.yaml
//	  chapters/
//	    chapter-<id>/
//	      metadata.json     # Chapter minus content
//	      content.md
//	      history/
//	        v<version>.json # ChapterVersion snapshots
//	  drafts/               # reserved scratch area
//
// A Project assumes a single writer: callers serialize access, the store does
// no internal locking. All operations that touch disk are blocking.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/ksid"
	"gopkg.in/yaml.v3"

	"github.com/inkdb/inkdb/internal/journal"
)

const (
	metaDirName     = ".inkdb"
	projectFileName = "project.json"
	chaptersDirName = "chapters"
	draftsDirName   = "drafts"

	chapterDirPrefix = "chapter-"
	metadataFileName = "metadata.json"
	contentFileName  = "content.md"
	historyDirName   = "history"

	charactersFileName = "characters.yaml"
	worldFileName      = "world.yaml"
	plotFileName       = "plot.yaml"
)

// Project is the root aggregate of a writing work. It owns all volumes and
// chapters exclusively: volumes hold ordered chapter ID lists, the Chapters
// map is the single index from ID to chapter.
type Project struct {
	Title    string
	Volumes  []*Volume
	Chapters map[ChapterID]*Chapter
	Settings Settings
	Created  time.Time
	Modified time.Time

	rootDir       string
	nextChapterID ChapterID
	journal       *journal.Journal
}

// projectFile is the serialized form of the root metadata. Chapter content is
// excluded; it lives in the per-chapter content files.
type projectFile struct {
	Title         string                 `json:"title"`
	NextChapterID ChapterID              `json:"next_chapter_id"`
	Volumes       []*Volume              `json:"volumes"`
	Chapters      map[ChapterID]*Chapter `json:"chapters"`
	Created       time.Time              `json:"created"`
	Modified      time.Time              `json:"modified"`
}

// New creates a fresh in-memory project with one default empty volume.
// It does not touch disk; call Initialize to create the directory skeleton.
func New(rootDir, title string) *Project {
	now := time.Now()
	return &Project{
		Title: title,
		Volumes: []*Volume{{
			ID:       ksid.NewID(),
			Title:    "Volume 1",
			Order:    0,
			Created:  now,
			Modified: now,
		}},
		Chapters: make(map[ChapterID]*Chapter),
		Created:  now,
		Modified: now,
		rootDir:  rootDir,
	}
}

// RootDir returns the project's root storage location.
func (p *Project) RootDir() string {
	return p.rootDir
}

// EnableJournal opens (initializing if needed) a git journal at the project
// root. Once enabled, every mutation commits the files it touched. The store
// behaves identically without a journal; the snapshot history files remain
// the authoritative version record either way.
func (p *Project) EnableJournal(name, email string) error {
	j, err := journal.Open(p.rootDir, name, email)
	if err != nil {
		return err
	}
	p.journal = j
	return nil
}

// Journal returns the attached change journal, or nil when none is enabled.
func (p *Project) Journal() *journal.Journal {
	return p.journal
}

// Initialize idempotently creates the on-disk directory skeleton and persists
// the current in-memory state.
func (p *Project) Initialize() error {
	for _, dir := range []string{
		filepath.Join(p.rootDir, metaDirName),
		filepath.Join(p.rootDir, chaptersDirName),
		filepath.Join(p.rootDir, draftsDirName),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return p.Persist()
}

// Load reads a project back from disk. Root metadata is read first; the
// chapter index is then rebuilt by scanning the chapter storage area, so the
// on-disk tree, not the serialized index, is the source of truth. Per-chapter
// word counts are recomputed from content and each chapter's current version
// is re-derived from its history files.
func Load(rootDir string) (*Project, error) {
	path := filepath.Join(rootDir, metaDirName, projectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file %s: %w", path, err)
	}
	var pf projectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	p := &Project{
		Title:         pf.Title,
		Volumes:       pf.Volumes,
		Chapters:      make(map[ChapterID]*Chapter),
		Created:       pf.Created,
		Modified:      pf.Modified,
		rootDir:       rootDir,
		nextChapterID: pf.NextChapterID,
	}
	if err := p.loadSettings(); err != nil {
		return nil, err
	}
	if err := p.loadChapters(); err != nil {
		return nil, err
	}
	p.reconcileVolumes()
	return p, nil
}

// Persist writes the root metadata and the three settings documents.
// Writes are sequential, not transactional: a crash part-way can leave the
// files out of lockstep, which Load tolerates.
func (p *Project) Persist() error {
	return p.persist("persist: project metadata")
}

// persist writes the root metadata and settings, then records one journal
// commit covering them plus any extra root-relative files the calling
// mutation touched.
func (p *Project) persist(msg string, extra ...string) error {
	if err := p.writeProjectFile(); err != nil {
		return err
	}
	if err := p.writeSettings(); err != nil {
		return err
	}
	files := append([]string{
		filepath.Join(metaDirName, projectFileName),
		filepath.Join(metaDirName, charactersFileName),
		filepath.Join(metaDirName, worldFileName),
		filepath.Join(metaDirName, plotFileName),
	}, extra...)
	return p.commit(msg, files...)
}

func (p *Project) writeProjectFile() error {
	pf := projectFile{
		Title:         p.Title,
		NextChapterID: p.nextChapterID,
		Volumes:       p.Volumes,
		Chapters:      p.Chapters,
		Created:       p.Created,
		Modified:      p.Modified,
	}
	data, err := json.MarshalIndent(&pf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize project: %w", err)
	}
	path := filepath.Join(p.rootDir, metaDirName, projectFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project file %s: %w", path, err)
	}
	return nil
}

func (p *Project) writeSettings() error {
	docs := []struct {
		name string
		v    any
	}{
		{charactersFileName, p.Settings.Characters},
		{worldFileName, p.Settings.World},
		{plotFileName, p.Settings.PlotPoints},
	}
	for _, doc := range docs {
		data, err := yaml.Marshal(doc.v)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", doc.name, err)
		}
		path := filepath.Join(p.rootDir, metaDirName, doc.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write settings file %s: %w", path, err)
		}
	}
	return nil
}

func (p *Project) loadSettings() error {
	docs := []struct {
		name string
		v    any
	}{
		{charactersFileName, &p.Settings.Characters},
		{worldFileName, &p.Settings.World},
		{plotFileName, &p.Settings.PlotPoints},
	}
	for _, doc := range docs {
		path := filepath.Join(p.rootDir, metaDirName, doc.name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, doc.v); err != nil {
			return &ParseError{Path: path, Err: err}
		}
	}
	return nil
}

// loadChapters rebuilds the chapter index from the chapter storage area.
// A subdirectory without a metadata file is skipped: it is treated as
// scaffolding that was never finalized, not as an error.
func (p *Project) loadChapters() error {
	dir := filepath.Join(p.rootDir, chaptersDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read chapters directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ch, err := loadChapterDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if ch == nil {
			slog.Debug("skipping chapter directory without metadata", "dir", entry.Name())
			continue
		}
		p.Chapters[ch.ID] = ch
	}
	return nil
}

// loadChapterDir reads one chapter from its directory, or nil if the
// directory holds no metadata file. The observed location wins over the
// stored dir path, and the current version is re-derived from the history
// files present rather than trusted from metadata.
func loadChapterDir(dir string) (*Chapter, error) {
	metaPath := filepath.Join(dir, metadataFileName)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read chapter metadata %s: %w", metaPath, err)
	}
	ch := &Chapter{}
	if err := json.Unmarshal(data, ch); err != nil {
		return nil, &ParseError{Path: metaPath, Err: err}
	}

	contentPath := filepath.Join(dir, contentFileName)
	if content, err := os.ReadFile(contentPath); err == nil {
		ch.Content = string(content)
		ch.WordCount = wordCount(ch.Content)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read chapter content %s: %w", contentPath, err)
	}

	ch.DirPath = dir
	latest, found, err := latestVersion(filepath.Join(dir, historyDirName))
	if err != nil {
		return nil, err
	}
	if found {
		ch.CurrentVersion = latest + 1
	} else {
		ch.CurrentVersion = 0
	}
	return ch, nil
}

// latestVersion returns the highest version number among the snapshot files in
// a history directory and whether any snapshot was found at all. Snapshot
// numbering starts at 0, so a bare max of 0 cannot distinguish a lone v0
// snapshot from an empty history.
func latestVersion(dir string) (int, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read history directory %s: %w", dir, err)
	}
	maxVersion := 0
	found := false
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "v") || !strings.HasSuffix(name, ".json") {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "v"), ".json"))
		if err != nil {
			continue
		}
		found = true
		maxVersion = max(maxVersion, v)
	}
	return maxVersion, found, nil
}

// reconcileVolumes makes the volume lists agree with the rebuilt chapter
// index after a load: IDs whose chapter no longer exists on disk are dropped,
// chapters whose membership was lost are re-attached to the end of their
// recorded volume (or the first volume if that is gone too), and the cached
// order fields are recomputed. Recovery is best-effort per the crash model.
func (p *Project) reconcileVolumes() {
	if len(p.Volumes) == 0 {
		return
	}
	member := make(map[ChapterID]bool, len(p.Chapters))
	for _, vol := range p.Volumes {
		kept := vol.ChapterIDs[:0]
		for _, id := range vol.ChapterIDs {
			if _, ok := p.Chapters[id]; ok && !member[id] {
				kept = append(kept, id)
				member[id] = true
			}
		}
		vol.ChapterIDs = kept
	}
	for id, ch := range p.Chapters {
		if member[id] {
			continue
		}
		vol := p.volumeByID(ch.VolumeID)
		if vol == nil {
			vol = p.Volumes[0]
			ch.VolumeID = vol.ID
		}
		slog.Warn("re-attaching chapter missing from volume order", "chapter", id, "volume", vol.ID)
		vol.ChapterIDs = append(vol.ChapterIDs, id)
	}
	for _, vol := range p.Volumes {
		p.renumberVolume(vol)
	}
}

func (p *Project) volumeByID(id VolumeID) *Volume {
	for _, vol := range p.Volumes {
		if vol.ID == id {
			return vol
		}
	}
	return nil
}

// renumberVolume refreshes the order cache of every chapter in the volume
// from its index in the authoritative ID list.
func (p *Project) renumberVolume(vol *Volume) {
	for i, id := range vol.ChapterIDs {
		if ch, ok := p.Chapters[id]; ok {
			ch.Order = i
		}
	}
}

func (p *Project) chapterDir(id ChapterID) string {
	return filepath.Join(p.rootDir, chaptersDirName, chapterDirPrefix+strconv.FormatUint(uint64(id), 10))
}

// relPath converts an absolute path under the project root to the
// root-relative form the journal expects.
func (p *Project) relPath(path string) string {
	rel, err := filepath.Rel(p.rootDir, path)
	if err != nil {
		return path
	}
	return rel
}

// commit records a journal entry for the given root-relative files.
// No-op when the journal is disabled.
func (p *Project) commit(msg string, files ...string) error {
	if p.journal == nil {
		return nil
	}
	return p.journal.Record(msg, files...)
}

func wordCount(content string) int {
	return len(strings.Fields(content))
}
