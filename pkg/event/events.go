package event

// ============================================================================
// Event Names (constants)
// ============================================================================

const (
	FileCreated        = "files.created"
	FileChanged        = "files.changed"
	FileDeleted        = "files.deleted"
	FolderCreated      = "files.folderCreated"
	FolderDeleted      = "files.folderDeleted"
	ArtifactRegistered = "artifacts.registered"
	ArtifactUpdated    = "artifacts.updated"
	ActionSubmitted    = "actions.submitted"
	ActionCompleted    = "actions.completed"
	CheckpointReset    = "workbench.checkpointReset"
)

// ============================================================================
// File Events
// ============================================================================

// FileCreatedEvent is emitted when a file enters the mirror through a
// direct create call.
type FileCreatedEvent struct {
	Path string `json:"path"`
}

func (e FileCreatedEvent) EventName() string { return FileCreated }

// FileChangedEvent is emitted when watcher batches touch the mirror.
// Paths may be empty, meaning "refetch everything".
type FileChangedEvent struct {
	Paths []string `json:"paths,omitempty"`
}

func (e FileChangedEvent) EventName() string { return FileChanged }

// FileDeletedEvent is emitted when a file is removed through a direct
// delete call.
type FileDeletedEvent struct {
	Path string `json:"path"`
}

func (e FileDeletedEvent) EventName() string { return FileDeleted }

type FolderCreatedEvent struct {
	Path string `json:"path"`
}

func (e FolderCreatedEvent) EventName() string { return FolderCreated }

// FolderDeletedEvent carries the folder and every cascaded descendant.
type FolderDeletedEvent struct {
	Path  string   `json:"path"`
	Paths []string `json:"paths,omitempty"`
}

func (e FolderDeletedEvent) EventName() string { return FolderDeleted }

// ============================================================================
// Artifact / Action Events
// ============================================================================

type ArtifactRegisteredEvent struct {
	MessageID string `json:"message_id"`
	Title     string `json:"title"`
}

func (e ArtifactRegisteredEvent) EventName() string { return ArtifactRegistered }

type ArtifactUpdatedEvent struct {
	MessageID string `json:"message_id"`
}

func (e ArtifactUpdatedEvent) EventName() string { return ArtifactUpdated }

type ActionSubmittedEvent struct {
	MessageID string `json:"message_id"`
	ActionID  string `json:"action_id"`
}

func (e ActionSubmittedEvent) EventName() string { return ActionSubmitted }

// ActionCompletedEvent reports the terminal status of one action.
type ActionCompletedEvent struct {
	MessageID string `json:"message_id"`
	ActionID  string `json:"action_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func (e ActionCompletedEvent) EventName() string { return ActionCompleted }

type CheckpointResetEvent struct{}

func (e CheckpointResetEvent) EventName() string { return CheckpointReset }
