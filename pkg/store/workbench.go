package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/codeloft/codeloft/pkg/event"
	"github.com/codeloft/codeloft/pkg/models"
	"github.com/codeloft/codeloft/pkg/runtime"
	"github.com/codeloft/codeloft/pkg/utils"
)

// ViewType is the workbench pane a client should show.
type ViewType string

const (
	ViewCode    ViewType = "code"
	ViewDiff    ViewType = "diff"
	ViewPreview ViewType = "preview"
)

// ArtifactState is one logical unit of work, usually one agent turn.
type ArtifactState struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Type   string `json:"type,omitempty"`
	Closed bool   `json:"closed"`

	Runner *ActionRunner `json:"-"`
}

// samplerInterval is the window for the streaming fast path.
const samplerInterval = 100 * time.Millisecond

// WorkbenchStore routes inbound action descriptors to per-artifact
// runners. All mutating work funnels through one ExecutionQueue, so an
// action never runs before the add that registered it and effects land in
// submission order. High-frequency streaming updates bypass the queue
// through a sampler that always applies the latest state of a burst.
type WorkbenchStore struct {
	rt     runtime.Runtime
	files  *FilesStore
	queue  *ExecutionQueue
	logger *slog.Logger

	sampler *utils.Sampler[models.RunActionRequest]

	mu             sync.RWMutex
	artifacts      map[string]*ArtifactState
	artifactIDList []string
	currentView    ViewType
	showWorkbench  bool
}

func NewWorkbenchStore(rt runtime.Runtime, files *FilesStore) *WorkbenchStore {
	s := &WorkbenchStore{
		rt:          rt,
		files:       files,
		queue:       NewExecutionQueue(),
		logger:      utils.GetLogger(),
		artifacts:   make(map[string]*ArtifactState),
		currentView: ViewCode,
	}
	s.sampler = utils.NewSampler(samplerInterval, func(req models.RunActionRequest) {
		if err := s.runAction(req); err != nil {
			s.logger.Error("Streamed action failed", "action_id", req.ActionID, "error", err)
		}
	})
	return s
}

// Files exposes the mirror for read-side handlers.
func (s *WorkbenchStore) Files() *FilesStore { return s.files }

// AddArtifact registers an artifact for a message. Idempotent: the first
// registration wins and later calls are no-ops.
func (s *WorkbenchStore) AddArtifact(data models.ArtifactCallback) {
	s.mu.Lock()
	if _, ok := s.artifacts[data.MessageID]; ok {
		s.mu.Unlock()
		return
	}
	if !slices.Contains(s.artifactIDList, data.MessageID) {
		s.artifactIDList = append(s.artifactIDList, data.MessageID)
	}
	s.artifacts[data.MessageID] = &ArtifactState{
		ID:     data.ID,
		Title:  data.Title,
		Type:   data.Type,
		Runner: NewActionRunner(data.MessageID, s.rt, s.files),
	}
	s.mu.Unlock()

	event.Emit(event.ArtifactRegisteredEvent{MessageID: data.MessageID, Title: data.Title})
}

// UpdateArtifact merges display fields into a stored artifact. Unknown
// artifacts are a silent no-op.
func (s *WorkbenchStore) UpdateArtifact(messageID string, update models.ArtifactUpdate) {
	s.mu.Lock()
	artifact, ok := s.artifacts[messageID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if update.Title != nil {
		artifact.Title = *update.Title
	}
	if update.Closed != nil {
		artifact.Closed = *update.Closed
	}
	s.mu.Unlock()

	event.Emit(event.ArtifactUpdatedEvent{MessageID: messageID})
}

// Artifact returns the artifact registered for messageID, or nil.
func (s *WorkbenchStore) Artifact(messageID string) *ArtifactState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifacts[messageID]
}

// FirstArtifact returns the earliest registered artifact, or nil.
func (s *WorkbenchStore) FirstArtifact() *ArtifactState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.artifactIDList) == 0 {
		return nil
	}
	return s.artifacts[s.artifactIDList[0]]
}

// AddAction enqueues registration of an action with its artifact's
// runner. An unknown artifact is a sequencing fault: it cannot happen for
// well-formed input, so the queued task fails loudly instead of being
// papered over.
func (s *WorkbenchStore) AddAction(data models.ActionCallback) {
	s.submit(func() error {
		s.mu.RLock()
		artifact := s.artifacts[data.MessageID]
		s.mu.RUnlock()
		if artifact == nil {
			return fmt.Errorf("%w: add action %s for message %s", ErrArtifactNotFound, data.ActionID, data.MessageID)
		}
		artifact.Runner.AddAction(data)
		event.Emit(event.ActionSubmittedEvent{MessageID: data.MessageID, ActionID: data.ActionID})
		return nil
	})
}

// RunAction executes an action. Streaming requests take the sampled fast
// path, trading strict ordering for responsiveness during bursts;
// everything else funnels through the execution queue.
func (s *WorkbenchStore) RunAction(req models.RunActionRequest) {
	if req.Streaming {
		s.sampler.Call(req)
		return
	}
	s.submit(func() error {
		return s.runAction(req)
	})
}

func (s *WorkbenchStore) runAction(req models.RunActionRequest) error {
	s.mu.RLock()
	artifact := s.artifacts[req.MessageID]
	s.mu.RUnlock()
	if artifact == nil {
		return fmt.Errorf("%w: run action %s for message %s", ErrArtifactNotFound, req.ActionID, req.MessageID)
	}

	action := artifact.Runner.Action(req.ActionID)
	if action == nil || action.Executed {
		// Replay guard: re-running an executed action is a no-op.
		return nil
	}

	if req.Action.Type == models.ActionTypeFile {
		s.SetCurrentView(ViewCode)
	}

	return artifact.Runner.RunAction(context.Background(), req.ActionCallback, req.Streaming)
}

func (s *WorkbenchStore) submit(task Task) {
	if err := s.queue.Submit(task); err != nil {
		s.logger.Error("Rejected workbench task", "error", err)
	}
}

// ResetCheckpoint clears the modification ledger at a checkpoint boundary
// (start of a new user turn).
func (s *WorkbenchStore) ResetCheckpoint() {
	s.files.ResetFileModifications()
	event.Emit(event.CheckpointResetEvent{})
}

// CurrentView returns the pane clients should show.
func (s *WorkbenchStore) CurrentView() ViewType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentView
}

func (s *WorkbenchStore) SetCurrentView(v ViewType) {
	s.mu.Lock()
	s.currentView = v
	s.mu.Unlock()
}

// ShowWorkbench reports whether a client should reveal the workbench.
func (s *WorkbenchStore) ShowWorkbench() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showWorkbench
}

func (s *WorkbenchStore) SetShowWorkbench(show bool) {
	s.mu.Lock()
	s.showWorkbench = show
	s.mu.Unlock()
}

// WaitIdle blocks until all queued work has drained. Intended for tests
// and shutdown.
func (s *WorkbenchStore) WaitIdle() {
	s.sampler.Flush()
	s.queue.Wait()
}

// Close flushes the streaming fast path and stops the queue.
func (s *WorkbenchStore) Close() {
	s.sampler.Flush()
	s.queue.Close()
	s.mu.Lock()
	for _, a := range s.artifacts {
		a.Runner.Close()
	}
	s.mu.Unlock()
}
