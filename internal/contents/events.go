package contents

// Operation classifies a change event.
type Operation string

const (
	OpCreated Operation = "created"
	OpDeleted Operation = "deleted"
	OpRenamed Operation = "renamed"
	OpSaved   Operation = "saved"
	// OpInvalidate signals that the listing of Path (a parent directory,
	// "" for the root) is stale and should be refetched by whoever renders
	// it. Every mutating operation emits one per affected parent.
	OpInvalidate Operation = "invalidate"
)

// Event is a change notification emitted synchronously after a successful
// mutating call. OldPath is only set for renames.
type Event struct {
	Op      Operation `json:"op"`
	Path    string    `json:"path"`
	OldPath string    `json:"old_path,omitempty"`
}

// Notifier receives change events. Implementations must be fast and
// non-blocking; events are delivered in the calling goroutine with no
// batching or coalescing.
type Notifier func(Event)
