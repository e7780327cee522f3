package contents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/figlinq/contents-gateway/internal/apperr"
	"github.com/figlinq/contents-gateway/internal/figlinq"
)

// Remote implements Provider against the figlinq API.
//
// The adapter is deliberately stateless: every operation re-resolves its
// identifiers through the lookup endpoint, so remote state is always the
// source of truth and a failed operation can never leave stale local state
// behind. An identifier cache would be a pure optimization behind the same
// interface, not a correctness requirement.
type Remote struct {
	client   *figlinq.Client
	notify   Notifier
	disposed atomic.Bool
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithNotifier installs the change-event sink.
func WithNotifier(n Notifier) RemoteOption {
	return func(r *Remote) { r.notify = n }
}

// NewRemote creates the adapter over the given client.
func NewRemote(client *figlinq.Client, opts ...RemoteOption) *Remote {
	r := &Remote{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) emit(ev Event) {
	if r.notify != nil {
		r.notify(ev)
	}
}

// invalidate signals that the listing of parentPath is stale.
func (r *Remote) invalidate(parentPath string) {
	r.emit(Event{Op: OpInvalidate, Path: parentPath})
}

// Lookup resolves a logical path to its remote handle. "" denotes the root,
// which is not a lookup-addressable resource.
func (r *Remote) Lookup(ctx context.Context, path string) (figlinq.File, error) {
	f, err := r.client.Lookup(ctx, path)
	if err != nil {
		return figlinq.File{}, fmt.Errorf("contents: lookup %q: %w", path, err)
	}
	return f, nil
}

// Get implements Provider.
func (r *Remote) Get(ctx context.Context, path string, opts GetOptions) (Entry, error) {
	if r.IsDisposed() {
		return Entry{}, apperr.ErrDisposed
	}

	if path == "" {
		page, pageSize := opts.Page, opts.PageSize
		if !opts.Content {
			// Only the folder metadata is wanted; don't pull the full
			// listing just to throw the children away.
			page, pageSize = 1, 1
		}
		folder, err := r.client.Home(ctx, page, pageSize)
		if err != nil {
			return Entry{}, fmt.Errorf("contents: list home: %w", err)
		}
		return r.finish(entryFromFolder(folder, ""), opts)
	}

	f, err := r.Lookup(ctx, path)
	if err != nil {
		return Entry{}, err
	}

	switch typeForFiletype(f.Filetype) {
	case TypeDirectory:
		if !opts.Content {
			return r.finish(entryFromFile(f, path), opts)
		}
		folder, err := r.client.ListFolder(ctx, f.Fid, opts.Page, opts.PageSize)
		if err != nil {
			return Entry{}, fmt.Errorf("contents: list %q: %w", path, err)
		}
		return r.finish(entryFromFolder(folder, path), opts)

	case TypeNotebook:
		if !opts.Content {
			return r.finish(entryFromFile(f, path), opts)
		}
		raw, err := r.client.NotebookContent(ctx, f.Fid)
		if err != nil {
			return Entry{}, fmt.Errorf("contents: notebook content %q: %w", path, err)
		}
		var document any
		if err := json.Unmarshal(raw, &document); err != nil {
			return Entry{}, fmt.Errorf("contents: parse notebook %q: %w", path, err)
		}
		return r.finish(entryFromNotebook(f, path, document), opts)

	default:
		return Entry{}, apperr.ErrUnsupportedType
	}
}

// finish strips content when not requested and validates the result.
// Validation failures propagate to the caller; a malformed entry must never
// reach the rendering side.
func (r *Remote) finish(e Entry, opts GetOptions) (Entry, error) {
	if !opts.Content {
		e.Content = nil
	}
	if err := ValidateEntry(e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// NewUntitled implements Provider.
func (r *Remote) NewUntitled(ctx context.Context, opts NewUntitledOptions) (Entry, error) {
	if r.IsDisposed() {
		return Entry{}, apperr.ErrDisposed
	}

	parentID, err := r.resolveParent(ctx, opts.Path)
	if err != nil {
		return Entry{}, err
	}

	var f figlinq.File
	switch opts.Type {
	case TypeNotebook:
		f, err = r.client.UploadNotebook(ctx, parentID, UntitledNotebookName, emptyNotebook())
		if err != nil {
			return Entry{}, fmt.Errorf("contents: create notebook: %w", err)
		}
	case TypeDirectory:
		f, err = r.client.CreateFolder(ctx, parentID, UntitledFolderName)
		if err != nil {
			return Entry{}, fmt.Errorf("contents: create folder: %w", err)
		}
	default:
		return Entry{}, fmt.Errorf("contents: cannot create untitled %q", opts.Type)
	}

	// The server may dedupe the filename, so the logical path comes from
	// its confirmed name.
	path := childPath(opts.Path, f.Filename)
	entry := entryFromFile(f, path)
	if err := ValidateEntry(entry); err != nil {
		return Entry{}, err
	}

	r.emit(Event{Op: OpCreated, Path: path})
	r.invalidate(opts.Path)
	return entry, nil
}

// Delete implements Provider. The remote has no hard delete; entries move
// to the trash.
func (r *Remote) Delete(ctx context.Context, path string) error {
	if r.IsDisposed() {
		return apperr.ErrDisposed
	}

	f, err := r.Lookup(ctx, path)
	if err != nil {
		return err
	}
	if err := r.client.Trash(ctx, f.Fid); err != nil {
		return fmt.Errorf("contents: trash %q: %w", path, err)
	}

	parent, _ := splitPath(path)
	r.emit(Event{Op: OpDeleted, Path: path})
	r.invalidate(parent)
	return nil
}

// Rename implements Provider. When the parent segment of newPath differs
// from oldPath's, the rename is a move and requires one extra lookup to
// resolve the destination folder id; a same-parent rename reuses the id
// from the initial lookup.
func (r *Remote) Rename(ctx context.Context, oldPath, newPath string) (Entry, error) {
	if r.IsDisposed() {
		return Entry{}, apperr.ErrDisposed
	}

	f, err := r.Lookup(ctx, oldPath)
	if err != nil {
		return Entry{}, err
	}

	oldParent, _ := splitPath(oldPath)
	newParent, newName := splitPath(newPath)

	var parentID int
	switch {
	case newParent == "":
		parentID = figlinq.RootParent
	case newParent != oldParent:
		dest, err := r.Lookup(ctx, newParent)
		if err != nil {
			return Entry{}, err
		}
		parentID, err = dest.LocalID()
		if err != nil {
			return Entry{}, fmt.Errorf("contents: rename %q: %w", oldPath, err)
		}
	default:
		parentID = f.Parent
	}

	moved, err := r.client.MoveFile(ctx, f.Fid, newName, parentID)
	if err != nil {
		return Entry{}, fmt.Errorf("contents: rename %q to %q: %w", oldPath, newPath, err)
	}

	entry := entryFromFile(moved, newPath)
	if err := ValidateEntry(entry); err != nil {
		return Entry{}, err
	}

	r.emit(Event{Op: OpRenamed, Path: newPath, OldPath: oldPath})
	r.invalidate(oldParent)
	if newParent != oldParent {
		r.invalidate(newParent)
	}
	return entry, nil
}

// Save implements Provider. A lookup failure with not-found is not an
// error: some host runtimes delete-then-recreate on first save, so the
// adapter transparently falls back to the create path.
func (r *Remote) Save(ctx context.Context, path string, opts SaveOptions) (Entry, error) {
	if r.IsDisposed() {
		return Entry{}, apperr.ErrDisposed
	}

	f, err := r.client.Lookup(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return r.saveNotebookAs(ctx, path, opts.Content)
		}
		return Entry{}, fmt.Errorf("contents: lookup %q: %w", path, err)
	}

	// The API wants the document double-encoded: a JSON string inside the
	// request envelope.
	raw, err := json.Marshal(opts.Content)
	if err != nil {
		return Entry{}, fmt.Errorf("contents: encode notebook %q: %w", path, err)
	}
	updated, err := r.client.UpdateNotebook(ctx, f.Fid, string(raw))
	if err != nil {
		return Entry{}, fmt.Errorf("contents: save %q: %w", path, err)
	}

	entry := entryFromNotebook(updated, path, opts.Content)
	if err := ValidateEntry(entry); err != nil {
		return Entry{}, err
	}

	parent, _ := splitPath(path)
	r.emit(Event{Op: OpSaved, Path: path})
	r.invalidate(parent)
	return entry, nil
}

// saveNotebookAs uploads the document as a new notebook at path.
func (r *Remote) saveNotebookAs(ctx context.Context, path string, content any) (Entry, error) {
	parentPath, filename := splitPath(path)
	parentID, err := r.resolveParent(ctx, parentPath)
	if err != nil {
		return Entry{}, err
	}

	f, err := r.client.UploadNotebook(ctx, parentID, filename, content)
	if err != nil {
		return Entry{}, fmt.Errorf("contents: save new %q: %w", path, err)
	}

	confirmed := childPath(parentPath, f.Filename)
	entry := entryFromNotebook(f, confirmed, content)
	if err := ValidateEntry(entry); err != nil {
		return Entry{}, err
	}

	r.emit(Event{Op: OpCreated, Path: confirmed})
	r.invalidate(parentPath)
	return entry, nil
}

// Copy implements Provider.
func (r *Remote) Copy(ctx context.Context, fromPath, toDir string) (Entry, error) {
	if r.IsDisposed() {
		return Entry{}, apperr.ErrDisposed
	}

	src, err := r.Lookup(ctx, fromPath)
	if err != nil {
		return Entry{}, err
	}

	destSegment := "home"
	if toDir != "" {
		dest, err := r.Lookup(ctx, toDir)
		if err != nil {
			return Entry{}, err
		}
		destSegment = dest.Fid
	}

	f, err := r.client.CopyInto(ctx, destSegment, src.Fid)
	if err != nil {
		return Entry{}, fmt.Errorf("contents: copy %q to %q: %w", fromPath, toDir, err)
	}

	path := childPath(toDir, f.Filename)
	entry := entryFromFile(f, path)
	if err := ValidateEntry(entry); err != nil {
		return Entry{}, err
	}

	r.emit(Event{Op: OpCreated, Path: path})
	r.invalidate(toDir)
	return entry, nil
}

// DownloadURL implements Provider.
func (r *Remote) DownloadURL(path string) string {
	return r.client.DownloadURL(path)
}

// resolveParent maps a parent directory path to the numeric folder id the
// creation endpoints expect. The root is the fixed id -1 and needs no
// lookup.
func (r *Remote) resolveParent(ctx context.Context, parentPath string) (int, error) {
	if parentPath == "" {
		return figlinq.RootParent, nil
	}
	f, err := r.Lookup(ctx, parentPath)
	if err != nil {
		return 0, err
	}
	id, err := f.LocalID()
	if err != nil {
		return 0, fmt.Errorf("contents: resolve parent %q: %w", parentPath, err)
	}
	return id, nil
}

// CreateCheckpoint implements Provider with an inert placeholder.
func (r *Remote) CreateCheckpoint(_ context.Context, _ string) (Checkpoint, error) {
	if r.IsDisposed() {
		return Checkpoint{}, apperr.ErrDisposed
	}
	return PlaceholderCheckpoint(), nil
}

// ListCheckpoints implements Provider; the remote has no versioning.
func (r *Remote) ListCheckpoints(_ context.Context, _ string) ([]Checkpoint, error) {
	if r.IsDisposed() {
		return nil, apperr.ErrDisposed
	}
	return []Checkpoint{}, nil
}

// RestoreCheckpoint implements Provider as a no-op.
func (r *Remote) RestoreCheckpoint(_ context.Context, _, _ string) error {
	if r.IsDisposed() {
		return apperr.ErrDisposed
	}
	return nil
}

// DeleteCheckpoint implements Provider as a no-op.
func (r *Remote) DeleteCheckpoint(_ context.Context, _, _ string) error {
	if r.IsDisposed() {
		return apperr.ErrDisposed
	}
	return nil
}

// Dispose implements Provider.
func (r *Remote) Dispose() {
	r.disposed.Store(true)
}

// IsDisposed implements Provider.
func (r *Remote) IsDisposed() bool {
	return r.disposed.Load()
}

// emptyNotebook is the fixed document uploaded for a fresh untitled
// notebook.
func emptyNotebook() map[string]any {
	return map[string]any{
		"cells":          []any{},
		"metadata":       map[string]any{},
		"nbformat":       4,
		"nbformat_minor": 4,
	}
}
