package contents

import "context"

// Provider is the content-provider contract the gateway exposes to its
// callers. Paths are logical, slash-delimited, with "" denoting the root.
//
// Operations are independent units of work: the interface gives no mutual
// exclusion guarantee, and consistency across concurrently issued calls
// against the same path is the caller's responsibility.
type Provider interface {
	// Get returns the entry at path. The root lists the home folder;
	// folders list one level of children; notebooks return their document.
	// Other filetypes fail with apperr.ErrUnsupportedType.
	Get(ctx context.Context, path string, opts GetOptions) (Entry, error)

	// NewUntitled creates an untitled notebook or folder inside opts.Path.
	NewUntitled(ctx context.Context, opts NewUntitledOptions) (Entry, error)

	// Delete moves the entry at path to the remote trash.
	Delete(ctx context.Context, path string) error

	// Rename renames and, when the parent differs, moves oldPath to newPath.
	Rename(ctx context.Context, oldPath, newPath string) (Entry, error)

	// Save updates the notebook at path, falling back to creation when the
	// path does not resolve remotely.
	Save(ctx context.Context, path string, opts SaveOptions) (Entry, error)

	// Copy server-side copies fromPath into the directory toDir. The remote
	// chooses the resulting name.
	Copy(ctx context.Context, fromPath, toDir string) (Entry, error)

	// DownloadURL returns the direct file-bytes URL for path.
	DownloadURL(path string) string

	// Checkpoint operations are vacuous: the remote exposes no versioning,
	// and these exist only to keep the caller's checkpoint flow alive.
	CreateCheckpoint(ctx context.Context, path string) (Checkpoint, error)
	ListCheckpoints(ctx context.Context, path string) ([]Checkpoint, error)
	RestoreCheckpoint(ctx context.Context, path, checkpointID string) error
	DeleteCheckpoint(ctx context.Context, path, checkpointID string) error

	// Dispose releases the provider. Operations after Dispose fail with
	// apperr.ErrDisposed.
	Dispose()
	IsDisposed() bool
}
