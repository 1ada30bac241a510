package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeloft/codeloft/pkg/event"
	"github.com/codeloft/codeloft/pkg/models"
	"github.com/codeloft/codeloft/pkg/runtime"
	"github.com/codeloft/codeloft/pkg/utils"
)

// ActionState is one action tracked inside a runner.
type ActionState struct {
	models.Action
	Status   models.ActionStatus `json:"status"`
	Executed bool                `json:"executed"`
	Error    string              `json:"error,omitempty"`
}

// ActionRunner applies the actions of a single artifact to the mirror and
// the runtime. Actions are keyed by actionId; re-adding a known id is a
// no-op and an executed action never runs again.
type ActionRunner struct {
	messageID string
	rt        runtime.Runtime
	files     *FilesStore
	logger    *slog.Logger

	mu      sync.Mutex
	actions map[string]*ActionState
	order   []string
	closed  bool
}

func NewActionRunner(messageID string, rt runtime.Runtime, files *FilesStore) *ActionRunner {
	return &ActionRunner{
		messageID: messageID,
		rt:        rt,
		files:     files,
		logger:    utils.GetLogger(),
		actions:   make(map[string]*ActionState),
	}
}

// AddAction registers an action as pending. Registering an already known
// actionId is a no-op.
func (r *ActionRunner) AddAction(data models.ActionCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[data.ActionID]; ok {
		return
	}
	status := models.ActionStatusPending
	if r.closed {
		status = models.ActionStatusAborted
	}
	r.actions[data.ActionID] = &ActionState{Action: data.Action, Status: status}
	r.order = append(r.order, data.ActionID)
}

// Action returns the tracked state for an actionId, or nil.
func (r *ActionRunner) Action(actionID string) *ActionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.actions[actionID]
	if a == nil {
		return nil
	}
	copied := *a
	return &copied
}

// Actions returns tracked actions in registration order.
func (r *ActionRunner) Actions() []ActionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ActionState, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.actions[id])
	}
	return out
}

// RunAction applies one action. Streaming invocations of file actions
// apply the latest partial content without marking the action executed,
// so the burst's final non-streaming run still lands; every other
// invocation marks the action executed exactly once, streaming flag or
// not. Unknown or already executed actions are a silent no-op.
func (r *ActionRunner) RunAction(ctx context.Context, data models.ActionCallback, streaming bool) error {
	r.mu.Lock()
	a := r.actions[data.ActionID]
	if a == nil || a.Executed || a.Status == models.ActionStatusAborted {
		r.mu.Unlock()
		return nil
	}
	// Streaming updates reveal content incrementally; always apply the
	// latest descriptor.
	a.Action = data.Action
	a.Status = models.ActionStatusRunning
	action := a.Action
	r.mu.Unlock()

	var runErr error
	switch action.Type {
	case models.ActionTypeFile:
		runErr = r.files.CreateFile(ctx, action.FilePath, []byte(action.Content), false)
	case models.ActionTypeShell:
		_, runErr = r.rt.Exec(ctx, []string{"/bin/sh", "-c", action.Content})
	default:
		runErr = fmt.Errorf("unknown action type %q", action.Type)
	}

	if streaming && runErr == nil && action.Type == models.ActionTypeFile {
		// Partial file content; keep the action open for the rest of the
		// burst. Other action kinds are not re-runnable, so they mark
		// executed below even when flagged streaming.
		return nil
	}

	r.mu.Lock()
	a.Executed = true
	if runErr != nil {
		a.Status = models.ActionStatusFailed
		a.Error = runErr.Error()
	} else {
		a.Status = models.ActionStatusComplete
	}
	status := a.Status
	errMsg := a.Error
	r.mu.Unlock()

	event.Emit(event.ActionCompletedEvent{
		MessageID: r.messageID,
		ActionID:  data.ActionID,
		Status:    string(status),
		Error:     errMsg,
	})

	if runErr != nil {
		r.logger.Warn("Action failed", "message_id", r.messageID, "action_id", data.ActionID, "error", runErr)
		return fmt.Errorf("run action %s: %w", data.ActionID, runErr)
	}
	return nil
}

// Close marks every non-terminal action aborted. Already queued runs see
// the aborted status and no-op.
func (r *ActionRunner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, a := range r.actions {
		if !a.Executed && a.Status != models.ActionStatusFailed {
			a.Status = models.ActionStatusAborted
		}
	}
}
