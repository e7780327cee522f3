package api

import "github.com/figlinq/contents-gateway/internal/contents"

// CreateRequest is the POST /contents body. Exactly one of Type or CopyFrom
// is expected: Type creates an untitled notebook or directory inside the
// target path, CopyFrom server-side copies an existing entry into it.
type CreateRequest struct {
	Type     string `json:"type,omitempty"`
	CopyFrom string `json:"copy_from,omitempty"`
}

// SaveRequest is the PUT /contents body.
type SaveRequest struct {
	Content any `json:"content"`
}

// RenameRequest is the PATCH /contents body; Path is the new logical path.
type RenameRequest struct {
	Path string `json:"path"`
}

// Entry is the response model for content operations (aliased from the
// domain layer).
type Entry = contents.Entry

// Checkpoint is the checkpoint response model (aliased from the domain
// layer).
type Checkpoint = contents.Checkpoint
