package models

import "strings"

// FolderMimeType marks a Drive item that holds other items
const FolderMimeType = "application/vnd.google-apps.folder"

// Kind distinguishes folders from downloadable files
type Kind int

const (
	KindLeaf Kind = iota
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// KindFromMimeType maps a provider mime type to an entry kind
func KindFromMimeType(mimeType string) Kind {
	if mimeType == FolderMimeType {
		return KindContainer
	}
	return KindLeaf
}

// Entry represents one remote file or folder
type Entry struct {
	Index     int    `json:"-"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      Kind   `json:"kind"`
	MimeType  string `json:"mime_type,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
	Size      int64  `json:"size,omitempty"`
	SizeKnown bool   `json:"-"`

	// Children holds arena indexes and stays nil until resolution visits a container.
	Children []int `json:"-"`
	// LocalPath is the directory holding the entry (leaf) or its parent (container).
	LocalPath string `json:"local_path,omitempty"`
}

// IsContainer reports whether the entry is a folder
func (e *Entry) IsContainer() bool {
	return e.Kind == KindContainer
}

// HasChecksum reports whether the provider declared a content hash
func (e *Entry) HasChecksum() bool {
	return e.Checksum != ""
}

// Resolved reports whether resolution has visited the entry
func (e *Entry) Resolved() bool {
	return e.LocalPath != ""
}

// Destination returns the path the entry is written to (file) or created as (folder)
func (e *Entry) Destination() string {
	return JoinPath(e.LocalPath, e.Title)
}

// JoinPath appends a title to a local path using forward slashes.
// The title is passed through SafeTitle so it stays a single segment below parent.
func JoinPath(parent, title string) string {
	title = SafeTitle(title)
	if parent == "" {
		return title
	}
	return strings.TrimSuffix(parent, "/") + "/" + title
}

// SafeTitle turns a remote title into one path segment: separators become
// underscores and the names "", "." and ".." are replaced.
func SafeTitle(title string) string {
	title = strings.NewReplacer("/", "_", "\\", "_").Replace(title)
	switch title {
	case "":
		return "_"
	case ".", "..":
		return strings.Repeat("_", len(title))
	}
	return title
}

// Collection is an ordered list of entries
type Collection []*Entry

// Titles returns entry titles in order
func (c Collection) Titles() []string {
	titles := make([]string, 0, len(c))
	for _, e := range c {
		titles = append(titles, e.Title)
	}
	return titles
}

// String renders the collection as a bracketed, comma-joined title list
func (c Collection) String() string {
	return "[" + strings.Join(c.Titles(), ", ") + "]"
}
