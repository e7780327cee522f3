package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/figlinq/contents-gateway/internal/contents"
	"github.com/figlinq/contents-gateway/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.MockFiglinq) {
	t.Helper()
	mock := testutil.NewMockFiglinq(t)
	provider := contents.NewRemote(mock.Client())
	t.Cleanup(provider.Dispose)
	return New(provider), mock
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we invoke the handler
	// functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_directory":
		result, err = srv.listDirectory(ctx, req)
	case "read_notebook":
		result, err = srv.readNotebook(ctx, req)
	case "save_notebook":
		result, err = srv.saveNotebook(ctx, req)
	case "create_untitled":
		result, err = srv.createUntitled(ctx, req)
	case "rename_entry":
		result, err = srv.renameEntry(ctx, req)
	case "trash_entry":
		result, err = srv.trashEntry(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListDirectory(t *testing.T) {
	srv, mock := testServer(t)
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)
	mock.AddFolder("Data")

	r := callTool(t, srv, "list_directory", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("list failed: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "doc.ipynb") || !strings.Contains(text, "Data") {
		t.Errorf("listing = %q", text)
	}
}

func TestReadNotebook(t *testing.T) {
	srv, mock := testServer(t)
	mock.AddNotebook("doc.ipynb", `{"cells":[],"nbformat":4}`)

	r := callTool(t, srv, "read_notebook", map[string]interface{}{"path": "doc.ipynb"})
	if r.IsError {
		t.Fatalf("read failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "nbformat") {
		t.Errorf("document = %q", resultText(r))
	}
}

func TestReadNotebookMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_notebook", map[string]interface{}{"path": "nope.ipynb"})
	if !r.IsError {
		t.Error("expected error for missing notebook")
	}
}

func TestReadNotebookRejectsDirectory(t *testing.T) {
	srv, mock := testServer(t)
	mock.AddFolder("Data")

	r := callTool(t, srv, "read_notebook", map[string]interface{}{"path": "Data"})
	if !r.IsError {
		t.Error("expected error reading a directory as a notebook")
	}
}

func TestSaveNotebookCreatesAndUpdates(t *testing.T) {
	srv, mock := testServer(t)

	r := callTool(t, srv, "save_notebook", map[string]interface{}{
		"path":    "fresh.ipynb",
		"content": `{"cells":[],"nbformat":4}`,
	})
	if r.IsError {
		t.Fatalf("save failed: %s", resultText(r))
	}
	if resultText(r) != "saved fresh.ipynb" {
		t.Errorf("save result = %q", resultText(r))
	}
	if mock.Node("fresh.ipynb") == nil {
		t.Fatal("notebook not created on the remote")
	}

	r = callTool(t, srv, "save_notebook", map[string]interface{}{
		"path":    "fresh.ipynb",
		"content": `{"cells":[{"cell_type":"code"}],"nbformat":4}`,
	})
	if r.IsError {
		t.Fatalf("second save failed: %s", resultText(r))
	}
}

func TestSaveNotebookRejectsBadJSON(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_notebook", map[string]interface{}{
		"path":    "doc.ipynb",
		"content": "{not json",
	})
	if !r.IsError {
		t.Error("expected error for malformed content")
	}
}

func TestCreateUntitled(t *testing.T) {
	srv, mock := testServer(t)

	r := callTool(t, srv, "create_untitled", map[string]interface{}{"type": "notebook"})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	if mock.Node(contents.UntitledNotebookName) == nil {
		t.Error("notebook not created on the remote")
	}
}

func TestRenameEntry(t *testing.T) {
	srv, mock := testServer(t)
	mock.AddNotebook("old.ipynb", `{"cells":[]}`)

	r := callTool(t, srv, "rename_entry", map[string]interface{}{
		"path":     "old.ipynb",
		"new_path": "new.ipynb",
	})
	if r.IsError {
		t.Fatalf("rename failed: %s", resultText(r))
	}
	if mock.Node("new.ipynb") == nil {
		t.Error("rename not applied on the remote")
	}
}

func TestTrashEntry(t *testing.T) {
	srv, mock := testServer(t)
	mock.AddNotebook("doc.ipynb", `{"cells":[]}`)

	r := callTool(t, srv, "trash_entry", map[string]interface{}{"path": "doc.ipynb"})
	if r.IsError {
		t.Fatalf("trash failed: %s", resultText(r))
	}
	if mock.Node("doc.ipynb") != nil {
		t.Error("entry still present after trash")
	}
}
