package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// Collection is the typed CRUD surface of one resource kind. T is the
// record returned by the backend, S the writable spec sent to it.
type Collection[T resource.Record, S any] struct {
	client *Client
	kind   resource.Kind
}

func newCollection[T resource.Record, S any](c *Client, kind resource.Kind) *Collection[T, S] {
	return &Collection[T, S]{client: c, kind: kind}
}

func (c *Client) Agents() *Collection[resource.Agent, resource.AgentSpec] {
	return newCollection[resource.Agent, resource.AgentSpec](c, resource.KindAgent)
}

func (c *Client) Tools() *Collection[resource.Tool, resource.ToolSpec] {
	return newCollection[resource.Tool, resource.ToolSpec](c, resource.KindTool)
}

func (c *Client) Workflows() *Collection[resource.Workflow, resource.WorkflowSpec] {
	return newCollection[resource.Workflow, resource.WorkflowSpec](c, resource.KindWorkflow)
}

func (c *Client) MAS() *Collection[resource.MAS, resource.MASSpec] {
	return newCollection[resource.MAS, resource.MASSpec](c, resource.KindMAS)
}

func (col *Collection[T, S]) Kind() resource.Kind { return col.kind }

func (col *Collection[T, S]) itemPath(id string) string {
	return col.kind.ItemPath(url.PathEscape(id))
}

func (col *Collection[T, S]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := col.client.Do(ctx, http.MethodGet, col.kind.Path(), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (col *Collection[T, S]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := col.client.Do(ctx, http.MethodGet, col.itemPath(id), nil, &out)
	return out, err
}

func (col *Collection[T, S]) Create(ctx context.Context, spec S) (T, error) {
	var out T
	err := col.client.Do(ctx, http.MethodPost, col.kind.Path(), spec, &out)
	return out, err
}

func (col *Collection[T, S]) Update(ctx context.Context, id string, spec S) (T, error) {
	var out T
	err := col.client.Do(ctx, http.MethodPut, col.itemPath(id), spec, &out)
	return out, err
}

func (col *Collection[T, S]) Delete(ctx context.Context, id string) Result {
	return col.client.Delete(ctx, col.itemPath(id))
}

// Action POSTs to a per-record verb endpoint such as /agents/{id}/test.
func (col *Collection[T, S]) Action(ctx context.Context, id, verb string, body any) (json.RawMessage, error) {
	if body == nil {
		body = map[string]any{}
	}
	return col.client.Request(ctx, http.MethodPost, col.itemPath(id)+"/"+verb, body)
}

// ValidateWorkflow asks the backend to check a workflow definition.
func (c *Client) ValidateWorkflow(ctx context.Context, id string) (resource.Validation, error) {
	var out resource.Validation
	raw, err := c.Workflows().Action(ctx, id, "validate", nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, c.fail(http.MethodPost, c.Workflows().itemPath(id)+"/validate", http.StatusOK, "decoding response: "+err.Error())
	}
	return out, nil
}

// StartMAS activates an instance so it accepts queries.
func (c *Client) StartMAS(ctx context.Context, id string) (resource.MAS, error) {
	return c.masLifecycle(ctx, id, "start")
}

// StopMAS deactivates an instance.
func (c *Client) StopMAS(ctx context.Context, id string) (resource.MAS, error) {
	return c.masLifecycle(ctx, id, "stop")
}

func (c *Client) masLifecycle(ctx context.Context, id, op string) (resource.MAS, error) {
	var out resource.MAS
	err := c.Do(ctx, http.MethodPost, c.MAS().itemPath(id)+"/"+op, map[string]any{}, &out)
	return out, err
}

// QueryMAS sends one query to a running instance.
func (c *Client) QueryMAS(ctx context.Context, id, query string) (resource.MASQueryResult, error) {
	var out resource.MASQueryResult
	err := c.Do(ctx, http.MethodPost, c.MAS().itemPath(id)+"/query", map[string]string{"query": query}, &out)
	return out, err
}

func (c *Client) GetSystemConfig(ctx context.Context) (resource.SystemConfig, error) {
	var out resource.SystemConfig
	err := c.Do(ctx, http.MethodGet, "/system/config", nil, &out)
	return out, err
}

// UpdateSystemConfig pushes the whole configuration object.
func (c *Client) UpdateSystemConfig(ctx context.Context, cfg resource.SystemConfig) (resource.SystemConfig, error) {
	var out resource.SystemConfig
	err := c.Do(ctx, http.MethodPut, "/system/config", cfg, &out)
	return out, err
}

func (c *Client) SystemStatus(ctx context.Context) (resource.SystemStatus, error) {
	var out resource.SystemStatus
	err := c.Do(ctx, http.MethodGet, "/system/status", nil, &out)
	return out, err
}

func (c *Client) ExportConfig(ctx context.Context) (resource.ExportInfo, error) {
	var out resource.ExportInfo
	err := c.Do(ctx, http.MethodGet, "/system/export", nil, &out)
	return out, err
}

func (c *Client) Restart(ctx context.Context) (resource.RestartInfo, error) {
	var out resource.RestartInfo
	err := c.Do(ctx, http.MethodPost, "/system/restart", map[string]any{}, &out)
	return out, err
}

// ImportConfig uploads a configuration file as multipart form data. The
// backend picks the format from the file name extension.
func (c *Client) ImportConfig(ctx context.Context, filename string, data []byte) (resource.ImportInfo, error) {
	var out resource.ImportInfo
	const path = "/system/import"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return out, c.fail(http.MethodPost, path, 0, fmt.Sprintf("encoding upload: %v", err))
	}

	raw, err := c.send(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf)
	if err != nil {
		return out, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, c.fail(http.MethodPost, path, http.StatusOK, "decoding response: "+err.Error())
		}
	}
	return out, nil
}
