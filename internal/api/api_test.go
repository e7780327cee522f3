package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/figlinq/contents-gateway/internal/contents"
	"github.com/figlinq/contents-gateway/internal/testutil"
)

// testEnv builds a router over the adapter and a mock figlinq server.
// authToken="" means auth disabled.
func testEnv(t *testing.T, authToken string) (*testutil.MockFiglinq, http.Handler) {
	t.Helper()
	mock := testutil.NewMockFiglinq(t)
	provider := contents.NewRemote(mock.Client())
	t.Cleanup(provider.Dispose)
	router := NewRouter(provider, authToken != "", authToken, nil)
	return mock, router
}

func doJSON(router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetRootListing(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)
	mock.AddFolder("Data")

	w := doJSON(router, http.MethodGet, "/contents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var entry Entry
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.Type != contents.TypeDirectory || entry.Path != "" {
		t.Errorf("entry = %+v", entry)
	}
	children, ok := entry.Content.([]any)
	if !ok || len(children) != 2 {
		t.Errorf("content = %#v, want 2 children", entry.Content)
	}
}

func TestGetNotebook(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("Data/doc.ipynb", `{"cells":[],"nbformat":4}`)

	w := doJSON(router, http.MethodGet, "/contents/Data/doc.ipynb", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var entry Entry
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.Type != contents.TypeNotebook || entry.Content == nil {
		t.Errorf("entry = %+v", entry)
	}
}

func TestGetWithoutContent(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)

	w := doJSON(router, http.MethodGet, "/contents/doc.ipynb?content=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var entry Entry
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.Content != nil {
		t.Errorf("content = %#v, want null", entry.Content)
	}
}

func TestGetEncodedSlashes(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("reports/q3.ipynb", `{"cells":[]}`)

	w := doJSON(router, http.MethodGet, "/contents/reports%2Fq3.ipynb", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestGetMissing(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodGet, "/contents/nope.ipynb", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetGridRejected(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddFile("scores.csv", "grid")

	w := doJSON(router, http.MethodGet, "/contents/scores.csv", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateUntitledNotebook(t *testing.T) {
	mock, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/contents", map[string]string{"type": "notebook"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var entry Entry
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.Path != contents.UntitledNotebookName {
		t.Errorf("path = %q", entry.Path)
	}
	if mock.Node(contents.UntitledNotebookName) == nil {
		t.Error("notebook not created on the remote")
	}
}

func TestCreateUntitledFolderInDirectory(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddFolder("Projects")

	w := doJSON(router, http.MethodPost, "/contents/Projects", map[string]string{"type": "directory"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if mock.Node("Projects/"+contents.UntitledFolderName) == nil {
		t.Error("folder not created on the remote")
	}
}

func TestCreateCopy(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)
	mock.AddFolder("Archive")

	w := doJSON(router, http.MethodPost, "/contents/Archive", map[string]string{"copy_from": "doc.ipynb"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var entry Entry
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if !strings.HasPrefix(entry.Path, "Archive/") {
		t.Errorf("path = %q", entry.Path)
	}
}

func TestCreateWithoutTypeOrSource(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/contents", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSaveExisting(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)

	body := map[string]any{"content": map[string]any{"cells": []any{}, "nbformat": 4}}
	w := doJSON(router, http.MethodPut, "/contents/doc.ipynb", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSaveCreatesWhenMissing(t *testing.T) {
	mock, router := testEnv(t, "")

	body := map[string]any{"content": map[string]any{"cells": []any{}, "nbformat": 4}}
	w := doJSON(router, http.MethodPut, "/contents/fresh.ipynb", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if mock.Node("fresh.ipynb") == nil {
		t.Error("notebook not created on the remote")
	}
}

func TestSaveRequiresContent(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodPut, "/contents/doc.ipynb", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRename(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("Data/old.ipynb", `{"cells":[]}`)

	w := doJSON(router, http.MethodPatch, "/contents/Data/old.ipynb", map[string]string{"path": "Data/new.ipynb"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if mock.Node("Data/new.ipynb") == nil {
		t.Error("rename not applied on the remote")
	}
}

func TestDelete(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)

	w := doJSON(router, http.MethodDelete, "/contents/doc.ipynb", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if mock.Node("doc.ipynb") != nil {
		t.Error("entry still present on the remote")
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)

	w := doJSON(router, http.MethodPost, "/contents/doc.ipynb/checkpoints", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create checkpoint = %d, body = %s", w.Code, w.Body.String())
	}
	var ckpt Checkpoint
	_ = json.Unmarshal(w.Body.Bytes(), &ckpt)
	if ckpt.ID == "" {
		t.Error("checkpoint id is empty")
	}

	w = doJSON(router, http.MethodGet, "/contents/doc.ipynb/checkpoints", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list checkpoints = %d", w.Code)
	}
	var list []Checkpoint
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 0 {
		t.Errorf("checkpoints = %+v, want empty", list)
	}

	w = doJSON(router, http.MethodPost, "/contents/doc.ipynb/checkpoints/"+ckpt.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("restore checkpoint = %d", w.Code)
	}

	w = doJSON(router, http.MethodDelete, "/contents/doc.ipynb/checkpoints/"+ckpt.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete checkpoint = %d", w.Code)
	}
}

func TestGetSingleCheckpointNotAddressable(t *testing.T) {
	mock, router := testEnv(t, "")
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)

	w := doJSON(router, http.MethodGet, "/contents/doc.ipynb/checkpoints/checkpoint", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDownloadRedirect(t *testing.T) {
	mock, router := testEnv(t, "")

	w := doJSON(router, http.MethodGet, "/download?path=doc.ipynb", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, mock.Server.URL+"/v2/files/") {
		t.Errorf("location = %q", loc)
	}
	if !strings.Contains(loc, "_xsrf=") {
		t.Errorf("location %q lacks the anti-forgery token", loc)
	}
}

func TestDownloadRequiresPath(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodGet, "/download", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthTokenMode(t *testing.T) {
	_, router := testEnv(t, "secret-token")

	// No token: rejected.
	w := doJSON(router, http.MethodGet, "/contents", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	// Wrong token: rejected.
	req := httptest.NewRequest(http.MethodGet, "/contents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	// Correct token: accepted.
	req = httptest.NewRequest(http.MethodGet, "/contents", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestProviderGoneAfterDispose(t *testing.T) {
	mock, _ := testEnv(t, "")
	provider := contents.NewRemote(mock.Client())
	router := NewRouter(provider, false, "", nil)
	provider.Dispose()

	w := doJSON(router, http.MethodGet, "/contents", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
