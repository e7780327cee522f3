// Package testutil provides shared test helpers, chiefly an in-memory
// figlinq API server backing adapter and gateway tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/figlinq/contents-gateway/internal/figlinq"
)

// Fixed timestamps handed out by the mock server.
const (
	CreatedStamp  = "2024-05-01T10:00:00Z"
	ModifiedStamp = "2024-05-02T15:30:00Z"
)

// ownerID is the owner part of every fid the mock mints.
const ownerID = "42"

// Node is a stored resource inside the mock server.
type Node struct {
	Fid      string
	Filetype string
	Filename string
	Path     string
	LocalID  int
	Parent   int
	Content  json.RawMessage
}

func (n *Node) file() figlinq.File {
	return figlinq.File{
		Fid:          n.Fid,
		Filetype:     n.Filetype,
		Filename:     n.Filename,
		Parent:       n.Parent,
		DateModified: ModifiedStamp,
		CreationTime: CreatedStamp,
	}
}

// MockFiglinq simulates the figlinq v2 API over httptest and records every
// request so tests can assert on call sequences (notably lookup counts).
type MockFiglinq struct {
	t      *testing.T
	Server *httptest.Server

	mu       sync.Mutex
	nextID   int
	byFid    map[string]*Node
	requests []string
}

// NewMockFiglinq starts a mock server that is torn down with the test.
func NewMockFiglinq(t *testing.T) *MockFiglinq {
	t.Helper()
	m := &MockFiglinq{
		t:      t,
		nextID: 1,
		byFid:  make(map[string]*Node),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Server.Close)
	return m
}

// Client returns a figlinq client pointed at the mock.
func (m *MockFiglinq) Client() *figlinq.Client {
	return figlinq.NewClient(figlinq.Config{
		BaseURL:   m.Server.URL,
		APIKey:    "test-key",
		CSRFToken: "test-xsrf",
	})
}

// AddFolder creates a folder at path, creating missing ancestors.
func (m *MockFiglinq) AddFolder(path string) *Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureFolder(path)
}

// AddNotebook creates a notebook at path with the given raw document,
// creating missing parent folders.
func (m *MockFiglinq) AddNotebook(path, document string) *Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := figlinq.RootParent
	dir, name := splitLast(path)
	if dir != "" {
		parent = m.ensureFolder(dir).LocalID
	}
	return m.insert(name, path, figlinq.FiletypeNotebook, parent, json.RawMessage(document))
}

// AddFile creates a non-folder, non-notebook resource (e.g. a grid).
func (m *MockFiglinq) AddFile(path, filetype string) *Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := figlinq.RootParent
	dir, name := splitLast(path)
	if dir != "" {
		parent = m.ensureFolder(dir).LocalID
	}
	return m.insert(name, path, filetype, parent, nil)
}

// Node returns the stored node at path, or nil.
func (m *MockFiglinq) Node(path string) *Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByPath(path)
}

// Requests returns the recorded "METHOD path?query" log.
func (m *MockFiglinq) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// LookupCount returns how many lookup calls the server has seen.
func (m *MockFiglinq) LookupCount() int {
	n := 0
	for _, req := range m.Requests() {
		if strings.Contains(req, "/v2/files/lookup") {
			n++
		}
	}
	return n
}

// ResetRequests clears the request log.
func (m *MockFiglinq) ResetRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

func (m *MockFiglinq) ensureFolder(path string) *Node {
	if n := m.findByPath(path); n != nil {
		return n
	}
	parent := figlinq.RootParent
	dir, name := splitLast(path)
	if dir != "" {
		parent = m.ensureFolder(dir).LocalID
	}
	return m.insert(name, path, figlinq.FiletypeFold, parent, nil)
}

func (m *MockFiglinq) insert(name, path, filetype string, parent int, content json.RawMessage) *Node {
	id := m.nextID
	m.nextID++
	n := &Node{
		Fid:      fmt.Sprintf("%s:%d", ownerID, id),
		Filetype: filetype,
		Filename: name,
		Path:     path,
		LocalID:  id,
		Parent:   parent,
		Content:  content,
	}
	m.byFid[n.Fid] = n
	return n
}

func (m *MockFiglinq) findByPath(path string) *Node {
	for _, n := range m.byFid {
		if n.Path == path {
			return n
		}
	}
	return nil
}

func (m *MockFiglinq) findByLocalID(id int) *Node {
	for _, n := range m.byFid {
		if n.LocalID == id {
			return n
		}
	}
	return nil
}

// childrenOf lists children ordered by filename, honoring the order_by the
// client always sends.
func (m *MockFiglinq) childrenOf(parent int) []figlinq.File {
	files := []figlinq.File{}
	for _, n := range m.byFid {
		if n.Parent == parent {
			files = append(files, n.file())
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files
}

// pathFor recomputes a node's logical path from its parent chain.
func (m *MockFiglinq) pathFor(n *Node) string {
	if n.Parent == figlinq.RootParent {
		return n.Filename
	}
	parent := m.findByLocalID(n.Parent)
	if parent == nil {
		return n.Filename
	}
	return m.pathFor(parent) + "/" + n.Filename
}

// nameTaken reports whether filename already exists under the parent id.
func (m *MockFiglinq) nameTaken(parent int, filename string) bool {
	for _, n := range m.byFid {
		if n.Parent == parent && n.Filename == filename {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"message": message}},
	})
}

func writeOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (m *MockFiglinq) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.Method+" "+r.URL.RequestURI())
	m.mu.Unlock()

	p := r.URL.Path
	switch {
	case p == "/v2/files/lookup" && r.Method == http.MethodGet:
		m.handleLookup(w, r)
	case p == "/v2/folders" && r.Method == http.MethodPost:
		m.handleCreateFolder(w, r)
	case strings.HasPrefix(p, "/v2/folders/"):
		m.handleFolder(w, r, strings.TrimPrefix(p, "/v2/folders/"))
	case p == "/v2/jupyter-notebooks/upload" && r.Method == http.MethodPost:
		m.handleUpload(w, r)
	case strings.HasPrefix(p, "/v2/jupyter-notebooks/") && strings.HasSuffix(p, "/content") && r.Method == http.MethodGet:
		fid := strings.TrimSuffix(strings.TrimPrefix(p, "/v2/jupyter-notebooks/"), "/content")
		m.handleNotebookContent(w, fid)
	case strings.HasPrefix(p, "/v2/jupyter-notebooks/") && r.Method == http.MethodPatch:
		m.handleUpdateNotebook(w, r, strings.TrimPrefix(p, "/v2/jupyter-notebooks/"))
	case strings.HasPrefix(p, "/v2/files/") && strings.HasSuffix(p, "/trash") && r.Method == http.MethodPost:
		fid := strings.TrimSuffix(strings.TrimPrefix(p, "/v2/files/"), "/trash")
		m.handleTrash(w, fid)
	case strings.HasPrefix(p, "/v2/files/") && r.Method == http.MethodPatch:
		m.handleMove(w, r, strings.TrimPrefix(p, "/v2/files/"))
	default:
		writeError(w, http.StatusNotFound, "no such endpoint: "+p)
	}
}

func (m *MockFiglinq) handleLookup(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := r.URL.Query().Get("path")
	n := m.findByPath(path)
	if n == nil {
		writeError(w, http.StatusNotFound, "path not found: "+path)
		return
	}
	writeOK(w, n.file())
}

func (m *MockFiglinq) handleFolder(w http.ResponseWriter, r *http.Request, segment string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := figlinq.RootParent
	var folderFile figlinq.File
	if segment == "home" {
		folderFile = figlinq.File{
			Fid:          ownerID + ":-1",
			Filetype:     figlinq.FiletypeFold,
			Parent:       figlinq.RootParent,
			DateModified: ModifiedStamp,
			CreationTime: CreatedStamp,
		}
	} else {
		n, ok := m.byFid[segment]
		if !ok || n.Filetype != figlinq.FiletypeFold {
			writeError(w, http.StatusNotFound, "folder not found: "+segment)
			return
		}
		parent = n.LocalID
		folderFile = n.file()
	}

	switch r.Method {
	case http.MethodGet:
		writeOK(w, figlinq.Folder{
			File:     folderFile,
			Children: figlinq.FolderChildren{Results: m.childrenOf(parent)},
		})

	case http.MethodPost:
		// Server-side copy into this folder.
		var body struct {
			CopyFrom string `json:"copy_from"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CopyFrom == "" {
			writeError(w, http.StatusBadRequest, "copy_from is required")
			return
		}
		src, ok := m.byFid[body.CopyFrom]
		if !ok {
			writeError(w, http.StatusNotFound, "source not found: "+body.CopyFrom)
			return
		}
		// The server owns the resulting name.
		name := src.Filename
		if m.nameTaken(parent, name) {
			name = "Copy of " + name
		}
		clone := m.insert(name, "", src.Filetype, parent, src.Content)
		clone.Path = m.pathFor(clone)
		writeOK(w, clone.file())

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (m *MockFiglinq) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body struct {
		Parent int    `json:"parent"`
		Path   string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	name := body.Path
	if m.nameTaken(body.Parent, name) {
		writeError(w, http.StatusConflict, "name already in use: "+name)
		return
	}
	n := m.insert(name, "", figlinq.FiletypeFold, body.Parent, nil)
	n.Path = m.pathFor(n)
	writeOK(w, n.file())
}

func (m *MockFiglinq) handleUpload(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var parent int
	if _, err := fmt.Sscanf(r.Header.Get("Plotly-Parent"), "%d", &parent); err != nil {
		writeError(w, http.StatusBadRequest, "missing or malformed Plotly-Parent header")
		return
	}
	name := r.Header.Get("X-File-Name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing X-File-Name header")
		return
	}

	var document json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&document); err != nil {
		writeError(w, http.StatusBadRequest, "body is not valid JSON")
		return
	}

	// Dedupe the confirmed filename the way the real server does.
	confirmed := name
	for i := 2; m.nameTaken(parent, confirmed); i++ {
		confirmed = fmt.Sprintf("%s (%d)", name, i)
	}

	n := m.insert(confirmed, "", figlinq.FiletypeNotebook, parent, document)
	n.Path = m.pathFor(n)
	writeOK(w, n.file())
}

func (m *MockFiglinq) handleNotebookContent(w http.ResponseWriter, fid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byFid[fid]
	if !ok || n.Filetype != figlinq.FiletypeNotebook {
		writeError(w, http.StatusNotFound, "notebook not found: "+fid)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(n.Content)
}

func (m *MockFiglinq) handleUpdateNotebook(w http.ResponseWriter, r *http.Request, fid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byFid[fid]
	if !ok || n.Filetype != figlinq.FiletypeNotebook {
		writeError(w, http.StatusNotFound, "notebook not found: "+fid)
		return
	}

	// The document arrives double-encoded: a JSON string in the envelope.
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !json.Valid([]byte(body.Content)) {
		writeError(w, http.StatusBadRequest, "content is not a JSON document")
		return
	}
	n.Content = json.RawMessage(body.Content)
	writeOK(w, n.file())
}

func (m *MockFiglinq) handleTrash(w http.ResponseWriter, fid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byFid[fid]
	if !ok {
		writeError(w, http.StatusNotFound, "file not found: "+fid)
		return
	}
	delete(m.byFid, n.Fid)
	w.WriteHeader(http.StatusOK)
}

func (m *MockFiglinq) handleMove(w http.ResponseWriter, r *http.Request, fid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byFid[fid]
	if !ok {
		writeError(w, http.StatusNotFound, "file not found: "+fid)
		return
	}

	var body struct {
		Filename string `json:"filename"`
		Parent   int    `json:"parent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	n.Filename = body.Filename
	n.Parent = body.Parent
	n.Path = m.pathFor(n)
	writeOK(w, n.file())
}

func splitLast(path string) (dir, name string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}
