// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the content-provider operations for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/figlinq/contents-gateway/internal/contents"
)

// Server wraps the MCP server with the gateway tools.
type Server struct {
	mcp      *server.MCPServer
	provider contents.Provider
}

// New creates a new MCP server with all gateway tools registered.
func New(provider contents.Provider) *Server {
	s := &Server{provider: provider}

	s.mcp = server.NewMCPServer(
		"figlinq-contents-gateway",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List one level of a remote directory. An empty path lists the home folder."),
		mcp.WithString("path", mcp.Description("Slash-delimited directory path (empty for home)")),
	), s.listDirectory)

	s.mcp.AddTool(mcp.NewTool("read_notebook",
		mcp.WithDescription("Read the full JSON document of a remote notebook."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the notebook (e.g. reports/q3.ipynb)")),
	), s.readNotebook)

	s.mcp.AddTool(mcp.NewTool("save_notebook",
		mcp.WithDescription("Write a notebook document to the given path. Creates the notebook when the path does not exist yet."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Destination path for the notebook")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Notebook document as a JSON string (nbformat 4)")),
	), s.saveNotebook)

	s.mcp.AddTool(mcp.NewTool("create_untitled",
		mcp.WithDescription("Create an untitled notebook or folder inside a directory."),
		mcp.WithString("path", mcp.Description("Parent directory (empty for home)")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Either \"notebook\" or \"directory\"")),
	), s.createUntitled)

	s.mcp.AddTool(mcp.NewTool("rename_entry",
		mcp.WithDescription("Rename an entry; moving it to another directory when the parent of the new path differs."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Current path")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("New path")),
	), s.renameEntry)

	s.mcp.AddTool(mcp.NewTool("trash_entry",
		mcp.WithDescription("Move an entry to the remote trash (there is no hard delete)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the entry to trash")),
	), s.trashEntry)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	entry, err := s.provider.Get(ctx, path, contents.GetOptions{Content: true})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(entry, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.provider.Get(ctx, path, contents.GetOptions{Content: true})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entry.Type != contents.TypeNotebook {
		return mcp.NewToolResultError(fmt.Sprintf("not a notebook: %s", path)), nil
	}
	out, _ := json.MarshalIndent(entry.Content, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var document any
	if err := json.Unmarshal([]byte(raw), &document); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("content is not valid JSON: %v", err)), nil
	}

	entry, err := s.provider.Save(ctx, path, contents.SaveOptions{Content: document})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved %s", entry.Path)), nil
}

func (s *Server) createUntitled(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := req.GetString("path", "")

	entry, err := s.provider.NewUntitled(ctx, contents.NewUntitledOptions{
		Path: path,
		Type: contents.Type(kind),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(entry, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) renameEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := s.provider.Rename(ctx, path, newPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed %s to %s", path, entry.Path)), nil
}

func (s *Server) trashEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.provider.Delete(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("trashed %s", path)), nil
}
