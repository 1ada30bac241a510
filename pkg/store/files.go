package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeloft/codeloft/pkg/event"
	"github.com/codeloft/codeloft/pkg/runtime"
	"github.com/codeloft/codeloft/pkg/utils"
)

// FilesStoreOptions tunes the mirror.
type FilesStoreOptions struct {
	// WatchWindow is the coalescing window for watcher events.
	WatchWindow time.Duration
	// WatchExclude lists glob patterns never mirrored.
	WatchExclude []string
}

// FilesStore is an in-memory mirror of the runtime's file system, keyed
// by absolute project path. It is kept consistent with the runtime via
// buffered watch events and mutated directly by create/delete calls,
// which write through to the runtime first: if the runtime operation
// fails the mirror is left unchanged.
type FilesStore struct {
	rt       runtime.Runtime
	deleted  *DeletionLedger
	modified *ModificationLedger
	logger   *slog.Logger
	opts     FilesStoreOptions

	mu    sync.RWMutex
	files FileMap
	// size tracks file-kind entries only; it always equals the number of
	// file entries in the mirror.
	size int

	buffer    *utils.EventBuffer[runtime.WatchEvent]
	stopWatch func()
	initOnce  sync.Once
}

// NewFilesStore creates a mirror bound to a runtime and a deletion
// ledger. Call Init to reconcile persisted deletions and attach the
// watcher.
func NewFilesStore(rt runtime.Runtime, deleted *DeletionLedger, opts FilesStoreOptions) *FilesStore {
	if opts.WatchWindow <= 0 {
		opts.WatchWindow = 100 * time.Millisecond
	}
	return &FilesStore{
		rt:       rt,
		deleted:  deleted,
		modified: NewModificationLedger(),
		logger:   utils.GetLogger(),
		opts:     opts,
		files:    make(FileMap),
	}
}

// Init purges any mirror entries covered by the persisted deletion ledger
// and then attaches the runtime watcher. The purge runs before the
// watcher so a stale delivery cannot resurrect a path deleted in a prior
// session. Runtimes without watch support leave the mirror write-through
// only.
func (s *FilesStore) Init(ctx context.Context) error {
	var initErr error
	s.initOnce.Do(func() {
		s.cleanupDeletedPaths()

		s.buffer = utils.NewEventBuffer(s.opts.WatchWindow, s.applyWatchBatch)

		spec := runtime.WatchSpec{
			Include:        []string{s.rt.Workdir() + "/**"},
			Exclude:        s.opts.WatchExclude,
			IncludeContent: true,
		}
		stop, err := s.rt.WatchPaths(ctx, spec, func(events []runtime.WatchEvent) {
			s.buffer.Add(events...)
		})
		if err != nil {
			if err == runtime.ErrWatchUnsupported {
				s.logger.Info("Runtime has no watcher; mirror is write-through only")
				return
			}
			initErr = fmt.Errorf("attach watcher: %w", err)
			return
		}
		s.stopWatch = stop
	})
	return initErr
}

// Close detaches the watcher and flushes pending events.
func (s *FilesStore) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if s.buffer != nil {
		s.buffer.Close()
	}
}

// FilesCount returns the number of tracked files (folders excluded).
func (s *FilesStore) FilesCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// GetFile returns the file at path, or nil if the path is untracked or a
// folder.
func (s *FilesStore) GetFile(path string) *Dirent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.files[utils.NormalizePath(path)]
	if !d.IsFile() {
		return nil
	}
	return d
}

// GetFileOrFolder returns any tracked entry at path.
func (s *FilesStore) GetFileOrFolder(path string) *Dirent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[utils.NormalizePath(path)]
}

// Snapshot returns a copy of the mirror.
func (s *FilesStore) Snapshot() FileMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(FileMap, len(s.files))
	for p, d := range s.files {
		copied := *d
		out[p] = &copied
	}
	return out
}

// ModifiedFiles returns files whose content diverged from the recorded
// checkpoint original. No-op edits are excluded.
func (s *FilesStore) ModifiedFiles() map[string]*Dirent {
	return s.modified.Modified(s.Snapshot())
}

// ModifiedFileDiffs renders one patch-format diff per modified text file.
func (s *FilesStore) ModifiedFileDiffs() map[string]string {
	return s.modified.UnifiedDiffs(s.Snapshot())
}

// ResetFileModifications clears the checkpoint ledger.
func (s *FilesStore) ResetFileModifications() {
	s.modified.Reset()
}

// CreateFile writes a file to the runtime and mirrors it. Binary content
// is stored base64-encoded. Empty text content is written as a single
// space so tooling that treats zero-byte files specially stays out of the
// way; the mirror records exactly what was written.
func (s *FilesStore) CreateFile(ctx context.Context, filePath string, content []byte, isBinary bool) error {
	filePath = utils.NormalizePath(filePath)
	relPath := utils.RelativeTo(s.rt.Workdir(), filePath)
	if relPath == "" {
		return fmt.Errorf("%w: create file %q", ErrInvalidPath, filePath)
	}

	if dir := parentPath(relPath); dir != "" {
		if err := s.rt.MkdirAll(ctx, dir); err != nil {
			return fmt.Errorf("create parent dirs: %w", err)
		}
	}

	var stored string
	if isBinary {
		if err := s.rt.WriteFile(ctx, relPath, content); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		stored = base64.StdEncoding.EncodeToString(content)
	} else {
		text := string(content)
		if len(text) == 0 {
			text = " "
		}
		if err := s.rt.WriteFile(ctx, relPath, []byte(text)); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		stored = text
	}

	s.mu.Lock()
	if !s.files[filePath].IsFile() {
		s.size++
	}
	s.files[filePath] = &Dirent{Type: DirentFile, Content: stored, IsBinary: isBinary}
	s.mu.Unlock()

	// Recreating a previously deleted path lifts its suppression, or the
	// new file would never see watcher updates and would be purged at the
	// next startup.
	if s.deleted.Uncover(filePath) {
		s.deleted.Persist()
	}

	s.modified.RecordIfAbsent(filePath, stored)

	s.logger.Info("File created", "path", filePath)
	event.Emit(event.FileCreatedEvent{Path: filePath})
	return nil
}

// CreateFolder creates a folder in the runtime and mirrors it.
func (s *FilesStore) CreateFolder(ctx context.Context, folderPath string) error {
	folderPath = utils.NormalizePath(folderPath)
	relPath := utils.RelativeTo(s.rt.Workdir(), folderPath)
	if relPath == "" {
		return fmt.Errorf("%w: create folder %q", ErrInvalidPath, folderPath)
	}

	if err := s.rt.MkdirAll(ctx, relPath); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	s.mu.Lock()
	if s.files[folderPath] == nil {
		s.files[folderPath] = &Dirent{Type: DirentFolder}
	}
	s.mu.Unlock()

	if s.deleted.Uncover(folderPath) {
		s.deleted.Persist()
	}

	s.logger.Info("Folder created", "path", folderPath)
	event.Emit(event.FolderCreatedEvent{Path: folderPath})
	return nil
}

// DeleteFile removes a file from the runtime and the mirror, records it
// in the deletion ledger and persists the ledger.
func (s *FilesStore) DeleteFile(ctx context.Context, filePath string) error {
	filePath = utils.NormalizePath(filePath)
	relPath := utils.RelativeTo(s.rt.Workdir(), filePath)
	if relPath == "" {
		return fmt.Errorf("%w: delete file %q", ErrInvalidPath, filePath)
	}

	if err := s.rt.Remove(ctx, relPath, false); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	s.deleted.Add(filePath)

	s.mu.Lock()
	if s.files[filePath].IsFile() {
		s.size--
	}
	delete(s.files, filePath)
	s.mu.Unlock()

	s.modified.Forget(filePath)
	s.deleted.Persist()

	s.logger.Info("File deleted", "path", filePath)
	event.Emit(event.FileDeletedEvent{Path: filePath})
	return nil
}

// DeleteFolder removes a folder recursively from the runtime, cascades
// the mirror removal and ledger insertion to every tracked descendant,
// and persists the ledger once after the cascade.
func (s *FilesStore) DeleteFolder(ctx context.Context, folderPath string) error {
	folderPath = utils.NormalizePath(folderPath)
	relPath := utils.RelativeTo(s.rt.Workdir(), folderPath)
	if relPath == "" {
		return fmt.Errorf("%w: delete folder %q", ErrInvalidPath, folderPath)
	}

	if err := s.rt.Remove(ctx, relPath, true); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	s.deleted.Add(folderPath)
	removed := []string{folderPath}

	s.mu.Lock()
	delete(s.files, folderPath)
	prefix := folderPath + "/"
	for p, d := range s.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		delete(s.files, p)
		s.deleted.Add(p)
		removed = append(removed, p)
		if d.IsFile() {
			s.size--
			s.modified.Forget(p)
		}
	}
	s.mu.Unlock()

	s.deleted.Persist()

	s.logger.Info("Folder deleted", "path", folderPath, "descendants", len(removed)-1)
	event.Emit(event.FolderDeletedEvent{Path: folderPath, Paths: removed})
	return nil
}

// applyWatchBatch applies one coalesced batch of watcher events to the
// mirror, in arrival order. Events naming deleted paths (exactly or under
// a deleted folder) are dropped: that is a stale delivery, not an error.
func (s *FilesStore) applyWatchBatch(events []runtime.WatchEvent) {
	var touched []string

	s.mu.Lock()
	for _, ev := range events {
		// Folder and file events must address the same key space.
		path := utils.NormalizePath(strings.TrimRight(ev.Path, "/"))
		if path == "" {
			continue
		}

		switch ev.Type {
		case runtime.EventAddDir:
			if s.deleted.Covers(path) {
				continue
			}
			if s.files[path] == nil {
				s.files[path] = &Dirent{Type: DirentFolder}
			}
			touched = append(touched, path)

		case runtime.EventRemoveDir:
			delete(s.files, path)
			prefix := path + "/"
			for p, d := range s.files {
				if strings.HasPrefix(p, prefix) {
					if d.IsFile() {
						s.size--
					}
					delete(s.files, p)
				}
			}
			touched = append(touched, path)

		case runtime.EventAddFile, runtime.EventChange:
			if s.deleted.Covers(path) {
				continue
			}
			isBinary := IsBinaryContent(ev.Buffer)
			content := ""
			if !isBinary {
				content = decodeFileContent(ev.Buffer)
			}
			if !s.files[path].IsFile() {
				s.size++
			}
			s.files[path] = &Dirent{Type: DirentFile, Content: content, IsBinary: isBinary}
			touched = append(touched, path)

		case runtime.EventRemoveFile:
			if s.files[path].IsFile() {
				s.size--
			}
			delete(s.files, path)
			touched = append(touched, path)

		case runtime.EventUpdateDirectory:
			// we don't care about these events

		default:
			// Unknown event kinds are ignored.
		}
	}
	s.mu.Unlock()

	if len(touched) > 0 {
		event.Emit(event.FileChangedEvent{Paths: touched})
	}
}

// cleanupDeletedPaths removes any entries covered by the deletion ledger
// from the mirror and corrects the file counter.
func (s *FilesStore) cleanupDeletedPaths() {
	if s.deleted.Len() == 0 {
		return
	}

	s.mu.Lock()
	for p, d := range s.files {
		if !s.deleted.Covers(p) {
			continue
		}
		if d.IsFile() {
			s.size--
			s.modified.Forget(p)
		}
		delete(s.files, p)
	}
	s.mu.Unlock()
}

// ApplyWatchBatch applies a pre-batched event slice directly, bypassing
// the coalescing buffer. Used by runtimes that already batch and by tests.
func (s *FilesStore) ApplyWatchBatch(events []runtime.WatchEvent) {
	s.applyWatchBatch(events)
}

func parentPath(relPath string) string {
	idx := strings.LastIndex(relPath, "/")
	if idx <= 0 {
		return ""
	}
	return relPath[:idx]
}
