// Package figlinq is a typed HTTP client for the figlinq v2 content API.
//
// The API is id-addressed: every resource is keyed by a composite fid and a
// filetype, and path-based access goes through the lookup endpoint. The
// client carries no state beyond connection settings and credentials.
package figlinq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/figlinq/contents-gateway/internal/apperr"
)

// DefaultPageSize is the folder-listing page size used when the caller does
// not ask for pagination. Listings are fetched in one call up to this
// ceiling; a scalability limit, not a correctness one, at the expected scale.
const DefaultPageSize = 100000

// Header names the API expects.
const (
	headerParent   = "Plotly-Parent"
	headerFileName = "X-File-Name"
	headerPlatform = "Plotly-Client-Platform"
	headerCSRF     = "X-CSRFToken"
)

// platformName identifies this client on every request.
const platformName = "figlinq-contents-gateway"

// Config holds client settings.
type Config struct {
	BaseURL   string
	APIKey    string
	CSRFToken string
	Timeout   time.Duration
}

// Client issues requests against the figlinq v2 API.
//
// Credentials are guarded by a mutex because the credentials watcher may
// swap them while requests are in flight.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	apiKey    string
	csrfToken string
}

// NewClient creates a client for the API at cfg.BaseURL.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		csrfToken:  cfg.CSRFToken,
	}
}

// SetCredentials replaces the API key and CSRF token used on subsequent
// requests. Called by the credentials watcher on file change.
func (c *Client) SetCredentials(apiKey, csrfToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
	c.csrfToken = csrfToken
}

func (c *Client) credentials() (apiKey, csrfToken string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.csrfToken
}

// Lookup resolves a logical slash-delimited path to its remote handle.
func (c *Client) Lookup(ctx context.Context, path string) (File, error) {
	var f File
	q := url.Values{"path": {path}}
	err := c.do(ctx, http.MethodGet, "/v2/files/lookup?"+q.Encode(), nil, nil, &f)
	return f, err
}

// Home lists the user's home folder.
func (c *Client) Home(ctx context.Context, page, pageSize int) (Folder, error) {
	return c.listFolder(ctx, "home", page, pageSize)
}

// ListFolder lists the children of the folder with the given fid.
func (c *Client) ListFolder(ctx context.Context, fid string, page, pageSize int) (Folder, error) {
	return c.listFolder(ctx, fid, page, pageSize)
}

func (c *Client) listFolder(ctx context.Context, segment string, page, pageSize int) (Folder, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	q := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
		"order_by":  {"filename"},
	}
	var folder Folder
	err := c.do(ctx, http.MethodGet, "/v2/folders/"+segment+"?"+q.Encode(), nil, nil, &folder)
	return folder, err
}

// NotebookContent fetches the raw notebook document of a jupyter_notebook
// resource.
func (c *Client) NotebookContent(ctx context.Context, fid string) (json.RawMessage, error) {
	var content json.RawMessage
	err := c.do(ctx, http.MethodGet, "/v2/jupyter-notebooks/"+fid+"/content", nil, nil, &content)
	return content, err
}

// UploadNotebook creates a notebook in the given parent folder. The parent
// id and filename travel in request headers, the notebook document is the
// body. Returns the server-confirmed handle.
func (c *Client) UploadNotebook(ctx context.Context, parent int, filename string, notebook any) (File, error) {
	headers := map[string]string{
		headerParent:   strconv.Itoa(parent),
		headerFileName: filename,
	}
	var f File
	err := c.do(ctx, http.MethodPost, "/v2/jupyter-notebooks/upload", headers, notebook, &f)
	return f, err
}

// CreateFolder creates a folder named name under the given parent id.
func (c *Client) CreateFolder(ctx context.Context, parent int, name string) (File, error) {
	body := map[string]any{"parent": parent, "path": name}
	var f File
	err := c.do(ctx, http.MethodPost, "/v2/folders", nil, body, &f)
	return f, err
}

// UpdateNotebook replaces the content of an existing notebook. The API
// expects the document double-encoded: a JSON string inside the envelope.
func (c *Client) UpdateNotebook(ctx context.Context, fid string, content string) (File, error) {
	body := map[string]any{"content": content}
	var f File
	err := c.do(ctx, http.MethodPatch, "/v2/jupyter-notebooks/"+fid, nil, body, &f)
	return f, err
}

// MoveFile renames a file and/or moves it to another parent folder.
func (c *Client) MoveFile(ctx context.Context, fid, filename string, parent int) (File, error) {
	body := map[string]any{"filename": filename, "parent": parent, "fid": fid}
	var f File
	err := c.do(ctx, http.MethodPatch, "/v2/files/"+fid, nil, body, &f)
	return f, err
}

// Trash soft-deletes a file. The API has no hard delete.
func (c *Client) Trash(ctx context.Context, fid string) error {
	return c.do(ctx, http.MethodPost, "/v2/files/"+fid+"/trash", nil, nil, nil)
}

// CopyInto server-side copies the resource fromFid into the destination
// folder segment ("home" or a folder fid). The server chooses the name.
func (c *Client) CopyInto(ctx context.Context, destSegment, fromFid string) (File, error) {
	body := map[string]any{"copy_from": fromFid}
	var f File
	err := c.do(ctx, http.MethodPost, "/v2/folders/"+destSegment, nil, body, &f)
	return f, err
}

// DownloadURL builds the direct file-bytes URL for a logical path,
// appending the anti-forgery token when one is configured. Pure.
// The path stays slash-delimited; only the individual segments are escaped.
func (c *Client) DownloadURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u := c.baseURL + "/v2/files/" + strings.Join(segments, "/")
	_, csrf := c.credentials()
	if csrf != "" {
		u += "?_xsrf=" + url.QueryEscape(csrf)
	}
	return u
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do issues one request and decodes the response into out (when non-nil).
// Network failures become TransportError, non-2xx statuses RemoteError.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("figlinq: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("figlinq: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerPlatform, platformName)

	apiKey, csrf := c.credentials()
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if csrf != "" {
		req.Header.Set(headerCSRF, csrf)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("figlinq: decode response: %w", err)
	}
	return nil
}

// remoteError shapes a non-2xx response into a RemoteError, pulling
// errors[0].message out of the body when it parses as the API's envelope.
func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env errorBody
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Errors) > 0 && env.Errors[0].Message != "" {
		return &apperr.RemoteError{Status: resp.StatusCode, Message: env.Errors[0].Message}
	}
	return &apperr.RemoteError{Status: resp.StatusCode}
}
