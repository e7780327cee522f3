// Package contents implements the host-facing content-provider contract on
// top of the figlinq API.
package contents

import (
	"time"

	"github.com/figlinq/contents-gateway/internal/figlinq"
)

// Type is the three-way resource kind the contract exposes, collapsed from
// the richer remote filetype enumeration.
type Type string

const (
	TypeDirectory Type = "directory"
	TypeFile      Type = "file"
	TypeNotebook  Type = "notebook"
)

// Entry is the normalized response model every operation returns or embeds.
// The contract requires all nine of name, path, type, created,
// last_modified, mimetype, format, content and writable on every entry;
// hash, hash_algorithm and size are carried but never populated because the
// remote API has no notion of them.
type Entry struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	Type         Type    `json:"type"`
	Created      string  `json:"created"`
	LastModified string  `json:"last_modified"`
	Mimetype     *string `json:"mimetype"`
	Format       *string `json:"format"`
	Content      any     `json:"content"`
	Writable     bool    `json:"writable"`
	Hash         *string `json:"hash"`
	HashAlgo     *string `json:"hash_algorithm"`
	Size         *int64  `json:"size"`
}

// Checkpoint is the inert placeholder the checkpoint operations hand back.
// The remote system exposes no versioning, so checkpoints only exist to keep
// the host's checkpoint flow from failing.
type Checkpoint struct {
	ID           string `json:"id"`
	LastModified string `json:"last_modified"`
}

// placeholderCheckpointID is the fixed id of the single vacuous checkpoint.
const placeholderCheckpointID = "checkpoint"

// PlaceholderCheckpoint builds the inert checkpoint returned by
// CreateCheckpoint.
func PlaceholderCheckpoint() Checkpoint {
	return Checkpoint{
		ID:           placeholderCheckpointID,
		LastModified: time.Now().UTC().Format(time.RFC3339),
	}
}

// GetOptions controls Get.
type GetOptions struct {
	// Content false returns a lightweight entry without content.
	Content bool
	// Page and PageSize paginate directory listings. Zero values fetch
	// page 1 with the legacy one-shot ceiling (figlinq.DefaultPageSize).
	Page     int
	PageSize int
}

// SaveOptions carries the payload for Save.
type SaveOptions struct {
	// Content is the notebook document to store.
	Content any
}

// NewUntitledOptions controls NewUntitled.
type NewUntitledOptions struct {
	// Path is the parent directory; empty means the root.
	Path string
	// Type is "notebook" or "directory".
	Type Type
}

// Default names for freshly created resources, matching what the remote UI
// shows for untitled items.
const (
	UntitledNotebookName = "Untitled notebook.ipynb"
	UntitledFolderName   = "Unnamed Folder"
)

// typeForFiletype collapses a remote filetype into the contract's three-way
// type. Everything that is neither a folder nor a notebook is an opaque file.
func typeForFiletype(filetype string) Type {
	switch filetype {
	case figlinq.FiletypeFold:
		return TypeDirectory
	case figlinq.FiletypeNotebook:
		return TypeNotebook
	default:
		return TypeFile
	}
}

// mimetypeForFiletype is the fixed filetype→mimetype lookup. Unknown
// filetypes and folders have no mimetype.
func mimetypeForFiletype(filetype string) *string {
	switch filetype {
	case figlinq.FiletypeNotebook:
		return strPtr("application/x-ipynb+json")
	case figlinq.FiletypeHTMLText:
		return strPtr("text/html")
	case figlinq.FiletypeGrid, figlinq.FiletypePlot:
		return strPtr("application/json")
	default:
		return nil
	}
}

// formatForType derives the content format from the collapsed type.
// Plain files stay nil because their content is never fetched.
func formatForType(t Type) *string {
	switch t {
	case TypeDirectory, TypeNotebook:
		return strPtr("json")
	default:
		return nil
	}
}

func strPtr(s string) *string { return &s }
