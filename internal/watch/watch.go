// Package watch observes a project's chapter storage area for modifications
// made outside the store, e.g. a text editor saving a content file directly.
// The watcher is a read-only observer: it never touches project state, it
// only tells callers which chapters changed so they can decide to reload.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/inkdb/inkdb/internal/store"
)

// Event reports an on-disk change to one chapter.
type Event struct {
	ChapterID store.ChapterID
	// Path is the file that changed, relative to the project root.
	Path string
}

// Watcher watches <root>/chapters/ recursively. fsnotify watches are per
// directory, so chapter directories are added individually and new ones are
// picked up as they appear.
type Watcher struct {
	root   string
	fsw    *fsnotify.Watcher
	events chan Event
}

// New starts watching the chapter storage area under root.
func New(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{root: root, fsw: fsw, events: make(chan Event, 16)}
	chaptersDir := filepath.Join(root, "chapters")
	if err := fsw.Add(chaptersDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", chaptersDir, err)
	}
	entries, err := os.ReadDir(chaptersDir)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to read %s: %w", chaptersDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := store.ParseChapterDirName(entry.Name()); !ok {
			continue
		}
		dir := filepath.Join(chaptersDir, entry.Name())
		if err := fsw.Add(dir); err != nil {
			slog.Warn("failed to watch chapter directory", "dir", dir, "error", err)
		}
	}

	go w.run()
	return w, nil
}

// Events returns the channel of chapter change events. It is closed when the
// watcher is closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher and closes the event channel.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	id, ok := w.chapterFor(ev.Name)
	if !ok {
		return
	}

	// A freshly created chapter directory needs its own watch.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if _, ok := store.ParseChapterDirName(filepath.Base(ev.Name)); ok {
				if err := w.fsw.Add(ev.Name); err != nil {
					slog.Warn("failed to watch chapter directory", "dir", ev.Name, "error", err)
				}
			}
			return
		}
	}
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) {
		return
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	select {
	case w.events <- Event{ChapterID: id, Path: rel}:
	default:
		// Slow consumer; drop rather than block the notify loop.
	}
}

// chapterFor extracts the owning chapter ID from a path below chapters/.
func (w *Watcher) chapterFor(path string) (store.ChapterID, bool) {
	rel, err := filepath.Rel(filepath.Join(w.root, "chapters"), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return 0, false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	return store.ParseChapterDirName(parts[0])
}
