package figlinq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/figlinq/contents-gateway/internal/apperr"
)

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(File{Fid: "42:1", Filetype: FiletypeFold})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123", CSRFToken: "tok-456"})
	if _, err := c.Lookup(context.Background(), "some/path"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if v := got.Get("Authorization"); v != "Bearer key-123" {
		t.Errorf("Authorization = %q", v)
	}
	if v := got.Get("X-CSRFToken"); v != "tok-456" {
		t.Errorf("X-CSRFToken = %q", v)
	}
	if v := got.Get("Plotly-Client-Platform"); v == "" {
		t.Error("Plotly-Client-Platform header missing")
	}
}

func TestUploadNotebookHeaders(t *testing.T) {
	var parent, name string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent = r.Header.Get("Plotly-Parent")
		name = r.Header.Get("X-File-Name")
		_ = json.NewEncoder(w).Encode(File{Fid: "42:9", Filetype: FiletypeNotebook, Filename: name})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	f, err := c.UploadNotebook(context.Background(), -1, "doc.ipynb", map[string]any{"cells": []any{}})
	if err != nil {
		t.Fatalf("UploadNotebook: %v", err)
	}
	if parent != "-1" {
		t.Errorf("Plotly-Parent = %q, want -1", parent)
	}
	if name != "doc.ipynb" {
		t.Errorf("X-File-Name = %q", name)
	}
	if f.Filename != "doc.ipynb" {
		t.Errorf("confirmed filename = %q", f.Filename)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"message":"path not found: nope"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Lookup(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}

	var remote *apperr.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %T, want RemoteError", err)
	}
	if remote.Status != http.StatusNotFound || remote.Message != "path not found: nope" {
		t.Errorf("remote = %+v", remote)
	}
	// 404 responses satisfy the not-found sentinel.
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
}

func TestErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream blew up"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Lookup(context.Background(), "x")

	var remote *apperr.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %T, want RemoteError", err)
	}
	if remote.Status != http.StatusBadGateway || remote.Message != "" {
		t.Errorf("remote = %+v", remote)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		t.Error("502 must not match ErrNotFound")
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Lookup(context.Background(), "x")

	var transport *apperr.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("err = %T, want TransportError", err)
	}
}

func TestSetCredentials(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(File{Fid: "42:1"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "old"})
	c.SetCredentials("new", "csrf")
	if _, err := c.Lookup(context.Background(), "x"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if auth != "Bearer new" {
		t.Errorf("Authorization = %q, want rotated key", auth)
	}
}

func TestDownloadURL(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.test/", CSRFToken: "tok"})

	u := c.DownloadURL("Data/report one.ipynb")
	if u != "https://example.test/v2/files/Data/report%20one.ipynb?_xsrf=tok" {
		t.Errorf("url = %q", u)
	}
}

func TestDownloadURLKeepsPathDelimiters(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.test"})

	// Segments are escaped individually; the slashes between them are
	// path structure and must survive.
	u := c.DownloadURL("A/B/doc.ipynb")
	if u != "https://example.test/v2/files/A/B/doc.ipynb" {
		t.Errorf("url = %q", u)
	}
	if strings.Contains(u, "%2F") {
		t.Errorf("url %q escapes the path delimiters", u)
	}
}

func TestDownloadURLWithoutToken(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.test"})
	if u := c.DownloadURL("doc.ipynb"); strings.Contains(u, "_xsrf") {
		t.Errorf("url %q carries a token with none configured", u)
	}
}

func TestListFolderQuery(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(Folder{})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Home(context.Background(), 0, 0); err != nil {
		t.Fatalf("Home: %v", err)
	}
	if !strings.Contains(query, "order_by=filename") {
		t.Errorf("query %q lacks ordering", query)
	}
	if !strings.Contains(query, "page=1") {
		t.Errorf("query %q lacks default page", query)
	}

	if _, err := c.Home(context.Background(), 3, 25); err != nil {
		t.Fatalf("Home: %v", err)
	}
	if !strings.Contains(query, "page=3") || !strings.Contains(query, "page_size=25") {
		t.Errorf("query %q ignores explicit pagination", query)
	}
}
