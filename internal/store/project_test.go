package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// testProject creates an initialized project in a temporary directory.
func testProject(t *testing.T) *Project {
	t.Helper()
	p := New(t.TempDir(), "Test Novel")
	if err := p.Initialize(); err != nil {
		t.Fatalf("failed to initialize project: %v", err)
	}
	return p
}

func TestNewProject(t *testing.T) {
	p := testProject(t)

	for _, dir := range []string{metaDirName, chaptersDirName, draftsDirName} {
		if _, err := os.Stat(filepath.Join(p.RootDir(), dir)); err != nil {
			t.Errorf("expected %s to exist: %v", dir, err)
		}
	}
	if len(p.Volumes) != 1 {
		t.Fatalf("expected 1 default volume, got %d", len(p.Volumes))
	}
	if p.Volumes[0].Title != "Volume 1" || p.Volumes[0].Order != 0 {
		t.Errorf("unexpected default volume: %+v", p.Volumes[0])
	}
	if len(p.Chapters) != 0 {
		t.Errorf("expected no chapters, got %d", len(p.Chapters))
	}

	// Initialize is idempotent.
	if err := p.Initialize(); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	p := testProject(t)
	volID, err := p.CreateVolume("Part Two")
	if err != nil {
		t.Fatalf("CreateVolume: %v", err)
	}
	ch1, err := p.CreateChapter("Opening", 0)
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	ch2, err := p.CreateChapter("Turn", volID)
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	if err := p.UpdateChapterContent(ch1, "It was a dark and stormy night.", ""); err != nil {
		t.Fatalf("UpdateChapterContent: %v", err)
	}
	if err := p.UpdateChapterStatus(ch2, StatusDraft); err != nil {
		t.Fatalf("UpdateChapterStatus: %v", err)
	}
	p.Settings.Characters = []CharacterProfile{{Name: "Ada", Goals: "finish the book"}}
	p.Settings.World = []WorldSetting{{Name: "Geography", Rules: []string{"no oceans"}}}
	p.Settings.PlotPoints = []PlotPoint{{Title: "Midpoint", Order: 0, ChapterIDs: []ChapterID{ch2}}}
	if err := p.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, err := Load(p.RootDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Title != "Test Novel" {
		t.Errorf("title = %q", loaded.Title)
	}
	if len(loaded.Volumes) != 2 {
		t.Fatalf("expected 2 volumes, got %d", len(loaded.Volumes))
	}
	if len(loaded.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(loaded.Chapters))
	}
	got1 := loaded.Chapters[ch1]
	if got1.Content != "It was a dark and stormy night." {
		t.Errorf("chapter 1 content = %q", got1.Content)
	}
	if got1.WordCount != 7 {
		t.Errorf("chapter 1 word count = %d, want 7", got1.WordCount)
	}
	if got1.CurrentVersion != 0 {
		// A single update from empty leaves no history, so the counter
		// re-derives to zero on load.
		t.Errorf("chapter 1 current version = %d, want 0", got1.CurrentVersion)
	}
	if got2 := loaded.Chapters[ch2]; got2.Status != StatusDraft {
		t.Errorf("chapter 2 status = %q", got2.Status)
	}
	if len(loaded.Settings.Characters) != 1 || loaded.Settings.Characters[0].Name != "Ada" {
		t.Errorf("characters did not round-trip: %+v", loaded.Settings.Characters)
	}
	if len(loaded.Settings.World) != 1 || len(loaded.Settings.World[0].Rules) != 1 {
		t.Errorf("world did not round-trip: %+v", loaded.Settings.World)
	}
	if len(loaded.Settings.PlotPoints) != 1 || loaded.Settings.PlotPoints[0].ChapterIDs[0] != ch2 {
		t.Errorf("plot points did not round-trip: %+v", loaded.Settings.PlotPoints)
	}
}

func TestLoadMissingProjectFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing project file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		t.Errorf("missing file must not be a ParseError: %v", err)
	}
}

func TestLoadMalformedProjectFile(t *testing.T) {
	p := testProject(t)
	path := filepath.Join(p.RootDir(), metaDirName, projectFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(p.RootDir())
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Path != path {
		t.Errorf("ParseError path = %q, want %q", perr.Path, path)
	}
}

func TestLoadSkipsDirWithoutMetadata(t *testing.T) {
	p := testProject(t)
	if _, err := p.CreateChapter("Real", 0); err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	// Scaffolding left by an interrupted create: directory, no metadata.
	if err := os.MkdirAll(filepath.Join(p.RootDir(), chaptersDirName, "chapter-999"), 0o755); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(p.RootDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Chapters) != 1 {
		t.Errorf("expected 1 chapter, got %d", len(loaded.Chapters))
	}
}

func TestLoadRederivesVersionAndPath(t *testing.T) {
	p := testProject(t)
	id, err := p.CreateChapter("Versioned", 0)
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	for _, content := range []string{"one", "two", "three"} {
		if err := p.UpdateChapterContent(id, content, ""); err != nil {
			t.Fatalf("UpdateChapterContent: %v", err)
		}
	}
	if err := p.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	// Relocate the whole project; the stored dir_path is now stale.
	newRoot := filepath.Join(t.TempDir(), "moved")
	if err := os.Rename(p.RootDir(), newRoot); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(newRoot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := loaded.Chapters[id]
	if ch == nil {
		t.Fatal("chapter missing after load")
	}
	if ch.CurrentVersion != 3 {
		t.Errorf("current version = %d, want 3 (1 + max history version)", ch.CurrentVersion)
	}
	want := filepath.Join(newRoot, chaptersDirName, "chapter-1")
	if ch.DirPath != want {
		t.Errorf("dir path = %q, want observed location %q", ch.DirPath, want)
	}
	if ch.Content != "three" {
		t.Errorf("content = %q", ch.Content)
	}
}

func TestLoadCountsZeroNumberedSnapshot(t *testing.T) {
	p := testProject(t)
	id, err := p.CreateChapter("Zero", 0)
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	// First update from empty leaves no history, so a reload re-derives
	// version 0. The next update then snapshots the pre-update content as v0.
	if err := p.UpdateChapterContent(id, "a", ""); err != nil {
		t.Fatalf("UpdateChapterContent: %v", err)
	}
	loaded, err := Load(p.RootDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Chapters[id].CurrentVersion; got != 0 {
		t.Fatalf("current version before any snapshot = %d, want 0", got)
	}
	if err := loaded.UpdateChapterContent(id, "b", ""); err != nil {
		t.Fatalf("UpdateChapterContent: %v", err)
	}

	// The lone v0 snapshot must count as history: current version becomes
	// 1 + max, not 0, and a further update must not overwrite v0.
	again, err := Load(p.RootDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := again.Chapters[id].CurrentVersion; got != 1 {
		t.Errorf("current version = %d, want 1 (1 + max history version 0)", got)
	}
	if err := again.UpdateChapterContent(id, "c", ""); err != nil {
		t.Fatalf("UpdateChapterContent: %v", err)
	}
	versions, err := again.GetVersionHistory(id)
	if err != nil {
		t.Fatalf("GetVersionHistory: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(versions))
	}
	if versions[0].Version != 1 || versions[0].Content != "b" {
		t.Errorf("unexpected newest snapshot: %+v", versions[0])
	}
	if versions[1].Version != 0 || versions[1].Content != "a" {
		t.Errorf("v0 snapshot not preserved: %+v", versions[1])
	}
}

func TestJournaledProject(t *testing.T) {
	p := New(t.TempDir(), "Journaled")
	if err := p.EnableJournal("tester", "tester@example.com"); err != nil {
		t.Fatalf("EnableJournal: %v", err)
	}
	if err := p.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	id, err := p.CreateChapter("First", 0)
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	if err := p.UpdateChapterContent(id, "draft text", ""); err != nil {
		t.Fatalf("UpdateChapterContent: %v", err)
	}

	commits, err := p.Journal().History("", 50)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(commits) < 3 {
		t.Fatalf("expected commits for init, create and update, got %d", len(commits))
	}
	if commits[0].Author != "tester" {
		t.Errorf("author = %q", commits[0].Author)
	}
}

func TestParseChapterDirName(t *testing.T) {
	if id, ok := ParseChapterDirName("chapter-42"); !ok || id != 42 {
		t.Errorf("chapter-42 -> %d, %v", id, ok)
	}
	for _, name := range []string{"chapter-", "chapter-x", "drafts", "42"} {
		if _, ok := ParseChapterDirName(name); ok {
			t.Errorf("%q unexpectedly parsed", name)
		}
	}
}
