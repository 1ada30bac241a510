// Package runtime abstracts the sandboxed execution environment that owns
// the real file system. The workbench mirror only ever talks to a runtime
// through this narrow interface: file writes, removals, command execution
// and a path watcher feeding change events back.
package runtime

import (
	"context"
	"errors"
)

// WatchEventType identifies one kind of watcher delivery.
type WatchEventType string

const (
	EventAddDir          WatchEventType = "add_dir"
	EventRemoveDir       WatchEventType = "remove_dir"
	EventAddFile         WatchEventType = "add_file"
	EventChange          WatchEventType = "change"
	EventRemoveFile      WatchEventType = "remove_file"
	EventUpdateDirectory WatchEventType = "update_directory"
)

// WatchEvent is one raw file system change. Path is absolute inside the
// runtime. Buffer carries file content for add_file/change when the watch
// spec requested content.
type WatchEvent struct {
	Type   WatchEventType
	Path   string
	Buffer []byte
}

// WatchSpec filters which paths a watcher reports.
type WatchSpec struct {
	Include        []string
	Exclude        []string
	IncludeContent bool
}

// WatchCallback receives raw events in arrival order. Callbacks may be
// invoked from a watcher-owned goroutine; consumers buffer and serialize
// on their side.
type WatchCallback func(events []WatchEvent)

// ErrWatchUnsupported is returned by backends that cannot observe file
// system changes (remote exec-only runtimes).
var ErrWatchUnsupported = errors.New("runtime does not support path watching")

// Runtime is the execution environment collaborator.
//
// File paths passed to WriteFile/MkdirAll/Remove are relative to Workdir.
// Watcher events report absolute paths.
type Runtime interface {
	// Workdir is the absolute workspace root inside the runtime.
	Workdir() string

	WriteFile(ctx context.Context, relPath string, content []byte) error
	MkdirAll(ctx context.Context, relPath string) error
	Remove(ctx context.Context, relPath string, recursive bool) error

	// Exec runs a command in the workdir and returns combined output.
	Exec(ctx context.Context, cmd []string) (string, error)

	// WatchPaths attaches a watcher. The returned stop function detaches
	// it; it is safe to call more than once.
	WatchPaths(ctx context.Context, spec WatchSpec, cb WatchCallback) (stop func(), err error)
}
