package store

import (
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ModificationLedger tracks, per path, the content observed when the file
// first appeared or first diverged since the last checkpoint (for
// example, the last user turn). Presence of a path means "the
// pre-checkpoint content is recorded", not "the path is currently
// modified": modified-ness is computed against the current mirror state.
type ModificationLedger struct {
	mu        sync.Mutex
	originals map[string]string
}

func NewModificationLedger() *ModificationLedger {
	return &ModificationLedger{originals: make(map[string]string)}
}

// RecordIfAbsent stores content as the original for path, only the first
// time the path is seen since the last reset.
func (m *ModificationLedger) RecordIfAbsent(path, content string) {
	m.mu.Lock()
	if _, ok := m.originals[path]; !ok {
		m.originals[path] = content
	}
	m.mu.Unlock()
}

// Forget drops the recorded original for path, if any.
func (m *ModificationLedger) Forget(path string) {
	m.mu.Lock()
	delete(m.originals, path)
	m.mu.Unlock()
}

// Reset clears all recorded entries. Called at each checkpoint boundary
// so prior-turn edits stop being reported as modified.
func (m *ModificationLedger) Reset() {
	m.mu.Lock()
	m.originals = make(map[string]string)
	m.mu.Unlock()
}

// Modified returns the current file entries whose content diverges from
// the recorded original. Paths whose content is byte-identical to the
// original are excluded; so are recorded paths that no longer map to a
// file.
func (m *ModificationLedger) Modified(current FileMap) map[string]*Dirent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var modified map[string]*Dirent
	for path, original := range m.originals {
		file := current[path]
		if !file.IsFile() {
			continue
		}
		if file.Content == original {
			continue
		}
		if modified == nil {
			modified = make(map[string]*Dirent)
		}
		modified[path] = file
	}
	return modified
}

// UnifiedDiffs renders a patch-format diff per modified path, original
// against current content. Binary files are skipped.
func (m *ModificationLedger) UnifiedDiffs(current FileMap) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	dmp := diffmatchpatch.New()
	diffs := make(map[string]string)
	for path, original := range m.originals {
		file := current[path]
		if !file.IsFile() || file.IsBinary {
			continue
		}
		if file.Content == original {
			continue
		}
		patches := dmp.PatchMake(original, file.Content)
		diffs[path] = dmp.PatchToText(patches)
	}
	return diffs
}
