package models

// ActionType discriminates the kinds of instructions an artifact carries.
type ActionType string

const (
	ActionTypeFile  ActionType = "file"
	ActionTypeShell ActionType = "shell"
)

// ActionStatus is the lifecycle of one action inside a runner.
type ActionStatus string

const (
	ActionStatusPending  ActionStatus = "pending"
	ActionStatusRunning  ActionStatus = "running"
	ActionStatusComplete ActionStatus = "complete"
	ActionStatusFailed   ActionStatus = "failed"
	ActionStatusAborted  ActionStatus = "aborted"
)

// Action is the opaque instruction produced upstream: either a file write
// or a shell command.
type Action struct {
	Type ActionType `json:"type" binding:"required"`
	// FilePath is the absolute project path for file actions.
	FilePath string `json:"file_path,omitempty"`
	// Content is file content for file actions, the command line for
	// shell actions.
	Content string `json:"content"`
}

// ArtifactCallback registers or addresses one artifact. Artifacts are
// keyed by the message that produced them.
type ArtifactCallback struct {
	MessageID string `json:"message_id" binding:"required"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type,omitempty"`
}

// ArtifactUpdate carries the mergeable display fields of an artifact.
type ArtifactUpdate struct {
	Title  *string `json:"title,omitempty"`
	Closed *bool   `json:"closed,omitempty"`
}

// ActionCallback addresses one action inside an artifact.
type ActionCallback struct {
	MessageID string `json:"message_id" binding:"required"`
	ActionID  string `json:"action_id" binding:"required"`
	Action    Action `json:"action"`
}

// RunActionRequest runs a previously submitted action. Streaming marks
// high-frequency partial updates that take the sampled fast path.
type RunActionRequest struct {
	ActionCallback
	Streaming bool `json:"streaming,omitempty"`
}

// CreateFileRequest creates or overwrites a file in the workspace.
// Binary content is supplied base64-encoded with the flag set.
type CreateFileRequest struct {
	Path          string `json:"path" binding:"required"`
	Content       string `json:"content"`
	ContentBase64 bool   `json:"content_base64,omitempty"`
}

// CreateFolderRequest creates a folder in the workspace.
type CreateFolderRequest struct {
	Path string `json:"path" binding:"required"`
}
