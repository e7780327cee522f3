package figlinq

import (
	"fmt"
	"strconv"
	"strings"
)

// Filetypes served by the figlinq API. The set is richer than the three-way
// directory/file/notebook model the gateway hands back to its callers.
const (
	FiletypeFold          = "fold"
	FiletypeHTMLText      = "html_text"
	FiletypeGrid          = "grid"
	FiletypePlot          = "plot"
	FiletypeExternalImage = "external_image"
	FiletypeNotebook      = "jupyter_notebook"
)

// RootParent is the parent id of entries that live directly in the user's
// home folder.
const RootParent = -1

// File is the remote handle to a stored object, as returned by the lookup
// endpoint and embedded in folder listings.
type File struct {
	Fid          string `json:"fid"`
	Filetype     string `json:"filetype"`
	Filename     string `json:"filename"`
	Parent       int    `json:"parent"`
	DateModified string `json:"date_modified"`
	CreationTime string `json:"creation_time"`
}

// LocalID extracts the numeric local id from the composite fid
// ("<owner>:<localId>"). Folder ids in request bodies are the local part.
func (f File) LocalID() (int, error) {
	_, local, ok := strings.Cut(f.Fid, ":")
	if !ok {
		return 0, fmt.Errorf("figlinq: malformed fid %q", f.Fid)
	}
	id, err := strconv.Atoi(local)
	if err != nil {
		return 0, fmt.Errorf("figlinq: malformed fid %q: %w", f.Fid, err)
	}
	return id, nil
}

// Folder is a folder resource with one level of children.
type Folder struct {
	File
	Children FolderChildren `json:"children"`
}

// FolderChildren wraps the paginated child listing of a folder.
type FolderChildren struct {
	Results []File `json:"results"`
}

// errorBody is the JSON error envelope the API uses on rejections.
type errorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}
