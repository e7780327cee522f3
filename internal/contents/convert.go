package contents

import (
	gopath "path"
	"strings"

	"github.com/figlinq/contents-gateway/internal/figlinq"
)

// entryFromFile shapes a remote handle into an Entry without content. The
// logical path must be supplied by the caller because the remote handle only
// knows its leaf name.
func entryFromFile(f figlinq.File, path string) Entry {
	t := typeForFiletype(f.Filetype)
	return Entry{
		Name:         f.Filename,
		Path:         path,
		Type:         t,
		Created:      f.CreationTime,
		LastModified: f.DateModified,
		Mimetype:     mimetypeForFiletype(f.Filetype),
		Format:       formatForType(t),
		Content:      nil,
		Writable:     true,
	}
}

// entryFromFolder shapes a folder listing into a directory Entry. Each child
// is individually normalized with its path computed one level below
// parentPath; children carry no content of their own. Recursion stops here.
func entryFromFolder(folder figlinq.Folder, parentPath string) Entry {
	children := make([]Entry, 0, len(folder.Children.Results))
	for _, child := range folder.Children.Results {
		children = append(children, entryFromFile(child, childPath(parentPath, child.Filename)))
	}
	return Entry{
		Name:         folder.Filename,
		Path:         parentPath,
		Type:         TypeDirectory,
		Created:      folder.CreationTime,
		LastModified: folder.DateModified,
		Mimetype:     nil,
		Format:       strPtr("json"),
		Content:      children,
		Writable:     true,
	}
}

// entryFromNotebook shapes a notebook handle plus its raw document into a
// full notebook Entry.
func entryFromNotebook(f figlinq.File, path string, document any) Entry {
	e := entryFromFile(f, path)
	e.Content = document
	return e
}

// childPath joins a parent path and a leaf name without introducing a
// leading slash for root-level children.
func childPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}

// splitPath splits a logical path into its parent path and leaf name.
// Root-level paths yield an empty parent.
func splitPath(p string) (parent, name string) {
	dir, name := gopath.Split(p)
	return strings.TrimSuffix(dir, "/"), name
}
