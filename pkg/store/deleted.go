package store

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeloft/codeloft/pkg/db"
	"github.com/codeloft/codeloft/pkg/utils"
)

// DeletionLedger tracks paths explicitly deleted through this layer so a
// racing watcher delivery cannot resurrect them. The set is durable: it is
// loaded once at startup and the whole JSON array is rewritten after every
// deletion or cascade.
//
// A crash between the in-memory update and the durable write loses at most
// the last deletion; that window is accepted.
type DeletionLedger struct {
	gdb    *gorm.DB // nil means memory-only (tests)
	logger *slog.Logger

	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewDeletionLedger creates a ledger backed by the state database and
// loads the persisted set. gdb may be nil for a memory-only ledger.
func NewDeletionLedger(gdb *gorm.DB) *DeletionLedger {
	l := &DeletionLedger{
		gdb:    gdb,
		logger: utils.GetLogger(),
		paths:  make(map[string]struct{}),
	}
	l.load()
	return l
}

func (l *DeletionLedger) load() {
	if l.gdb == nil {
		return
	}
	var entry db.StateEntry
	err := l.gdb.First(&entry, "key = ?", db.StateKeyDeletedPaths).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			l.logger.Error("Failed to load deleted paths", "error", err)
		}
		return
	}
	var paths []string
	if err := json.Unmarshal([]byte(entry.Value), &paths); err != nil {
		l.logger.Error("Failed to parse deleted paths", "error", err)
		return
	}
	l.mu.Lock()
	for _, p := range paths {
		l.paths[p] = struct{}{}
	}
	l.mu.Unlock()
}

// Add records paths as deleted in memory. Callers persist once per
// logical deletion via Persist.
func (l *DeletionLedger) Add(paths ...string) {
	l.mu.Lock()
	for _, p := range paths {
		if p = utils.NormalizePath(p); p != "" {
			l.paths[p] = struct{}{}
		}
	}
	l.mu.Unlock()
}

// Uncover drops every entry that would suppress path: the exact entry,
// entries nested under it, and ancestor entries covering it. Called when
// a deleted path is explicitly recreated, so the new entry is not blind
// to watcher updates and does not get purged at the next startup.
// Descendants deleted by an earlier cascade keep their own exact entries.
// Reports whether the set changed.
func (l *DeletionLedger) Uncover(path string) bool {
	path = utils.NormalizePath(path)
	if path == "" {
		return false
	}
	changed := false
	l.mu.Lock()
	for p := range l.paths {
		if p == path || utils.IsWithin(path, p) || utils.IsWithin(p, path) {
			delete(l.paths, p)
			changed = true
		}
	}
	l.mu.Unlock()
	return changed
}

// Contains reports an exact match.
func (l *DeletionLedger) Contains(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.paths[utils.NormalizePath(path)]
	return ok
}

// Covers reports whether path is deleted, either exactly or by being
// nested under a deleted folder.
func (l *DeletionLedger) Covers(path string) bool {
	path = utils.NormalizePath(path)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.paths[path]; ok {
		return true
	}
	for p := range l.paths {
		if utils.IsWithin(p, path) {
			return true
		}
	}
	return false
}

// Snapshot returns the deleted paths in sorted order.
func (l *DeletionLedger) Snapshot() []string {
	l.mu.RLock()
	out := make([]string, 0, len(l.paths))
	for p := range l.paths {
		out = append(out, p)
	}
	l.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of recorded paths.
func (l *DeletionLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.paths)
}

// Persist rewrites the durable copy with the current set.
func (l *DeletionLedger) Persist() {
	if l.gdb == nil {
		return
	}
	data, err := json.Marshal(l.Snapshot())
	if err != nil {
		l.logger.Error("Failed to marshal deleted paths", "error", err)
		return
	}
	entry := db.StateEntry{Key: db.StateKeyDeletedPaths, Value: string(data)}
	if err := l.gdb.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error; err != nil {
		l.logger.Error("Failed to persist deleted paths", "error", err)
	}
}
