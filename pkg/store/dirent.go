package store

// DirentType discriminates mirror entries.
type DirentType string

const (
	DirentFile   DirentType = "file"
	DirentFolder DirentType = "folder"
)

// Dirent is one mirror entry: a file or a folder. A path never changes
// kind in place; it transitions only through delete-then-create.
//
// For binary files Content holds base64 text; IsBinary signals display
// and edit restrictions, not storage format.
type Dirent struct {
	Type           DirentType `json:"type"`
	Content        string     `json:"content,omitempty"`
	IsBinary       bool       `json:"is_binary,omitempty"`
	IsLocked       bool       `json:"is_locked,omitempty"`
	LockedByFolder string     `json:"locked_by_folder,omitempty"`
}

// IsFile reports whether the entry is a file.
func (d *Dirent) IsFile() bool { return d != nil && d.Type == DirentFile }

// IsFolder reports whether the entry is a folder.
func (d *Dirent) IsFolder() bool { return d != nil && d.Type == DirentFolder }

// FileMap is a snapshot of the mirror keyed by absolute project path.
type FileMap map[string]*Dirent
