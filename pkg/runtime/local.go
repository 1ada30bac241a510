package runtime

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	gopath "path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/codeloft/codeloft/pkg/utils"
)

// LocalRuntime executes against a directory on the host file system.
//
// NOTE: the workdir is the sandbox boundary for file operations; commands
// run with the host's privileges.
type LocalRuntime struct {
	workdir string
	logger  *slog.Logger
}

// NewLocalRuntime creates a runtime rooted at workdir, creating the
// directory if needed.
func NewLocalRuntime(workdir string) (*LocalRuntime, error) {
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve workdir %s", workdir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create workdir %s", abs)
	}
	return &LocalRuntime{
		workdir: filepath.ToSlash(abs),
		logger:  utils.GetLogger(),
	}, nil
}

func (r *LocalRuntime) Workdir() string { return r.workdir }

// hostPath maps a workdir-relative path to a host path, rejecting
// escapes.
func (r *LocalRuntime) hostPath(relPath string) (string, error) {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" || relPath == "." {
		return "", errors.Errorf("invalid relative path %q", relPath)
	}
	joined := gopath.Join(r.workdir, filepath.ToSlash(relPath))
	if !utils.IsWithin(r.workdir, joined) || joined == r.workdir {
		return "", errors.Errorf("path %q escapes the workdir", relPath)
	}
	return filepath.FromSlash(joined), nil
}

func (r *LocalRuntime) WriteFile(ctx context.Context, relPath string, content []byte) error {
	_ = ctx
	host, err := r.hostPath(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return errors.Wrapf(err, "create parent dirs for %s", relPath)
	}
	if err := os.WriteFile(host, content, 0o644); err != nil {
		return errors.Wrapf(err, "write file %s", relPath)
	}
	return nil
}

func (r *LocalRuntime) MkdirAll(ctx context.Context, relPath string) error {
	_ = ctx
	host, err := r.hostPath(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(host, 0o755); err != nil {
		return errors.Wrapf(err, "create dir %s", relPath)
	}
	return nil
}

func (r *LocalRuntime) Remove(ctx context.Context, relPath string, recursive bool) error {
	_ = ctx
	host, err := r.hostPath(relPath)
	if err != nil {
		return err
	}
	if recursive {
		err = os.RemoveAll(host)
	} else {
		err = os.Remove(host)
	}
	if err != nil {
		return errors.Wrapf(err, "remove %s", relPath)
	}
	return nil
}

func (r *LocalRuntime) Exec(ctx context.Context, cmd []string) (string, error) {
	if len(cmd) == 0 {
		return "", errors.New("empty command")
	}
	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	c.Dir = filepath.FromSlash(r.workdir)
	var out bytes.Buffer
	var stderr bytes.Buffer
	c.Stdout = &out
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(out.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Errorf("command failed: %s", msg)
	}
	if stderr.Len() > 0 {
		out.WriteString(stderr.String())
	}
	return out.String(), nil
}

// WatchPaths attaches an fsnotify watcher rooted at the workdir. The
// initial directory tree is replayed as add_dir/add_file events before
// live events flow, so a consumer starting from an empty mirror converges
// on the current state.
func (r *LocalRuntime) WatchPaths(ctx context.Context, spec WatchSpec, cb WatchCallback) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fs watcher")
	}

	lw := &localWatcher{
		rt:   r,
		w:    w,
		spec: spec,
		cb:   cb,
		dirs: make(map[string]bool),
	}

	var initial []WatchEvent
	if err := lw.addDirRecursive(r.workdir, &initial); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(err, "scan workdir")
	}
	if len(initial) > 0 {
		cb(initial)
	}

	go lw.loop(ctx)

	return lw.stop, nil
}

// localWatcher owns the fsnotify event loop. All state is touched only by
// the loop goroutine after startup.
type localWatcher struct {
	rt       *LocalRuntime
	w        *fsnotify.Watcher
	spec     WatchSpec
	cb       WatchCallback
	dirs     map[string]bool
	stopOnce sync.Once
}

func (lw *localWatcher) stop() {
	lw.stopOnce.Do(func() {
		_ = lw.w.Close()
	})
}

func (lw *localWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			lw.stop()
			return
		case ev, ok := <-lw.w.Events:
			if !ok {
				return
			}
			if events := lw.translate(ev); len(events) > 0 {
				lw.cb(events)
			}
		case err, ok := <-lw.w.Errors:
			if !ok {
				return
			}
			lw.rt.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (lw *localWatcher) translate(ev fsnotify.Event) []WatchEvent {
	p := utils.NormalizePath(ev.Name)
	if lw.excluded(p) {
		return nil
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		fi, err := os.Stat(filepath.FromSlash(p))
		if err != nil {
			// Raced with a removal; the follow-up event covers it.
			return nil
		}
		if fi.IsDir() {
			var events []WatchEvent
			if err := lw.addDirRecursive(p, &events); err != nil {
				lw.rt.logger.Warn("Failed to watch new directory", "path", p, "error", err)
			}
			return events
		}
		return []WatchEvent{{Type: EventAddFile, Path: p, Buffer: lw.readContent(p)}}

	case ev.Op.Has(fsnotify.Write):
		fi, err := os.Stat(filepath.FromSlash(p))
		if err != nil || fi.IsDir() {
			return nil
		}
		return []WatchEvent{{Type: EventChange, Path: p, Buffer: lw.readContent(p)}}

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if lw.dirs[p] {
			for dir := range lw.dirs {
				if dir == p || strings.HasPrefix(dir, p+"/") {
					delete(lw.dirs, dir)
				}
			}
			return []WatchEvent{{Type: EventRemoveDir, Path: p}}
		}
		return []WatchEvent{{Type: EventRemoveFile, Path: p}}
	}

	return nil
}

// addDirRecursive registers watches for dir and its subtree and appends
// synthetic add events for everything found.
func (lw *localWatcher) addDirRecursive(dir string, events *[]WatchEvent) error {
	return filepath.WalkDir(filepath.FromSlash(dir), func(hostPath string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish mid-walk; skip rather than abort.
			return nil
		}
		p := utils.NormalizePath(hostPath)
		if lw.excluded(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := lw.w.Add(hostPath); err != nil {
				return err
			}
			lw.dirs[p] = true
			if p != lw.rt.workdir {
				*events = append(*events, WatchEvent{Type: EventAddDir, Path: p})
			}
			return nil
		}
		*events = append(*events, WatchEvent{Type: EventAddFile, Path: p, Buffer: lw.readContent(p)})
		return nil
	})
}

func (lw *localWatcher) readContent(p string) []byte {
	if !lw.spec.IncludeContent {
		return nil
	}
	b, err := os.ReadFile(filepath.FromSlash(p))
	if err != nil {
		return nil
	}
	return b
}

// excluded matches a path against the exclude globs. Patterns of the form
// "**/name" match any path containing a segment equal to name; other
// patterns are matched against individual segments.
func (lw *localWatcher) excluded(p string) bool {
	rel := utils.RelativeTo(lw.rt.workdir, p)
	if rel == "" {
		return p != lw.rt.workdir
	}
	segments := strings.Split(rel, "/")
	for _, pattern := range lw.spec.Exclude {
		leaf := gopath.Base(strings.TrimSpace(pattern))
		if leaf == "" || leaf == "." {
			continue
		}
		for _, seg := range segments {
			if ok, _ := gopath.Match(leaf, seg); ok {
				return true
			}
		}
	}
	return false
}

var _ Runtime = (*LocalRuntime)(nil)
