// Package main is the inkdb command line tool.
//
// inkdb inspects and bootstraps writing-project directories managed by the
// project store: it can create a new project skeleton, print the volume and
// chapter structure, and list a chapter's version history. It is a thin
// client of internal/store; all semantics live there.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/inkdb/inkdb/internal/journal"
	"github.com/inkdb/inkdb/internal/store"
)

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "inkdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	switch args[0] {
	case "init":
		return cmdInit(args[1:])
	case "info":
		return cmdInfo(args[1:])
	case "chapters":
		return cmdChapters(args[1:])
	case "history":
		return cmdHistory(args[1:])
	case "log":
		return cmdLog(args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: inkdb [flags] <command>

Commands:
  init      Create a new project directory skeleton
  info      Print project title, volumes and totals
  chapters  List all chapters in volume-then-chapter order
  history   List a chapter's version history
  log       Show the change journal (requires a journaled project)

Flags:
`)
	flag.PrintDefaults()
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dir := fs.String("dir", ".", "Project root directory")
	title := fs.String("title", "Untitled", "Project title")
	journaled := fs.Bool("journal", false, "Record mutations in a git change journal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := store.New(*dir, *title)
	if *journaled {
		if err := p.EnableJournal("", ""); err != nil {
			return err
		}
	}
	if err := p.Initialize(); err != nil {
		return err
	}
	slog.Info("project initialized", "dir", *dir, "title", *title)
	return nil
}

func openProject(fs *flag.FlagSet, args []string) (*store.Project, error) {
	dir := fs.String("dir", ".", "Project root directory")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return store.Load(*dir)
}

func cmdInfo(args []string) error {
	p, err := openProject(flag.NewFlagSet("info", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", p.Title)
	words := 0
	for _, ch := range p.Chapters {
		words += ch.WordCount
	}
	fmt.Printf("  %d volumes, %d chapters, %d words\n", len(p.Volumes), len(p.Chapters), words)
	for _, vol := range p.Volumes {
		fmt.Printf("  [%d] %s (%d chapters)\n", vol.Order, vol.Title, len(vol.ChapterIDs))
	}
	return nil
}

func cmdChapters(args []string) error {
	p, err := openProject(flag.NewFlagSet("chapters", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	for _, ch := range p.AllChaptersInOrder() {
		fmt.Printf("%4d  %-40s %-12s v%d  %d words\n", ch.ID, ch.Title, ch.Status, ch.CurrentVersion, ch.WordCount)
	}
	return nil
}

func cmdHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	chapter := fs.Uint64("chapter", 0, "Chapter ID")
	dir := fs.String("dir", ".", "Project root directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := store.Load(*dir)
	if err != nil {
		return err
	}
	versions, err := p.GetVersionHistory(store.ChapterID(*chapter))
	if err != nil {
		return err
	}
	for _, v := range versions {
		fmt.Printf("v%-4d %s  %6d words  %s\n", v.Version, v.Timestamp.Format("2006-01-02 15:04"), v.WordCount, v.Summary)
	}
	return nil
}

func cmdLog(args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dir := fs.String("dir", ".", "Project root directory")
	n := fs.Int("n", 20, "Number of journal entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := store.Load(*dir)
	if err != nil {
		return err
	}
	j, err := journal.OpenExisting(p.RootDir())
	if err != nil {
		return fmt.Errorf("project has no change journal: %w", err)
	}
	commits, err := j.History("", *n)
	if err != nil {
		return err
	}
	for _, c := range commits {
		fmt.Printf("%.10s  %s  %s\n", c.Hash, c.When.Format("2006-01-02 15:04"), c.Message)
	}
	return nil
}
