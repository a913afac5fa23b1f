package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseChecklist(t *testing.T) {
	content := `# Heartbeat

Some prose that is not a task.

- [ ] review the open PR
- [x] already done
* [ ] rotate the API key
  - [ ] indented nested item
- [ ]
- not a checkbox
`
	got := Parse(content)
	want := []struct {
		desc string
		line int
	}{
		{"review the open PR", 5},
		{"rotate the API key", 7},
		{"indented nested item", 8},
	}

	if len(got) != len(want) {
		t.Fatalf("parsed %d tasks, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Description != w.desc {
			t.Errorf("task %d: description = %q, want %q", i, got[i].Description, w.desc)
		}
		if got[i].Line != w.line {
			t.Errorf("task %d: line = %d, want %d", i, got[i].Line, w.line)
		}
	}
}

func TestParseEmptyContent(t *testing.T) {
	if got := Parse(""); len(got) != 0 {
		t.Errorf("Parse(\"\") = %v, want empty", got)
	}
}

func TestFileProviderMissingFile(t *testing.T) {
	p := NewFileProvider(t.TempDir())
	list, err := p.LoadTasks()
	if err != nil {
		t.Fatalf("missing file must not error, got %v", err)
	}
	if len(list) != 0 {
		t.Errorf("missing file tasks = %v, want empty", list)
	}
}

func TestFileProviderReadsChecklist(t *testing.T) {
	dir := t.TempDir()
	content := "- [ ] ship it\n- [x] done\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(dir)
	list, err := p.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(list) != 1 || list[0].Description != "ship it" {
		t.Errorf("tasks = %v, want the single unchecked item", list)
	}
}

func TestWatcherNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte("- [ ] a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	notified := make(chan struct{}, 1)
	w := NewWatcher(path, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("- [ ] a\n- [ ] b\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-notified:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never fired after a write")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte("- [ ] a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	notified := make(chan struct{}, 1)
	w := NewWatcher(path, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-notified:
		t.Fatal("watcher fired for an unrelated file")
	case <-time.After(time.Second):
	}
}
