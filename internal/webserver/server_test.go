package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func call(t *testing.T, ts *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func detailOf(t *testing.T, data []byte) string {
	t.Helper()
	var out struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode detail from %s: %v", data, err)
	}
	var s string
	if err := json.Unmarshal(out.Detail, &s); err == nil {
		return s
	}
	return string(out.Detail)
}

func TestListSeededCollections(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/agents", 4},
		{"/api/v1/agents/", 4},
		{"/api/v1/tools", 3},
		{"/api/v1/workflows", 2},
		{"/api/v1/mas", 2},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, data := call(t, ts, http.MethodGet, tt.path, "")
			if status != http.StatusOK {
				t.Fatalf("status = %d, body %s", status, data)
			}
			var items []map[string]any
			if err := json.Unmarshal(data, &items); err != nil {
				t.Fatal(err)
			}
			if len(items) != tt.want {
				t.Fatalf("len = %d, want %d", len(items), tt.want)
			}
		})
	}
}

func TestEmptyServerHasNoRecords(t *testing.T) {
	_, ts := newTestServer(t, Options{Empty: true})
	status, data := call(t, ts, http.MethodGet, "/api/v1/agents", "")
	if status != http.StatusOK || strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("status = %d body = %s", status, data)
	}
	status, data = call(t, ts, http.MethodGet, "/api/v1/system/config", "")
	if status != http.StatusOK || !strings.Contains(string(data), `"log_level":"INFO"`) {
		t.Fatalf("system config = %d %s", status, data)
	}
}

func TestCreateAgent(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodPost, "/api/v1/agents", `{"name":"writer","agent_type":"chat","status":"inactive","id":"99"}`)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body %s", status, data)
	}
	var a resource.Agent
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatal(err)
	}
	if a.ID != "5" || a.Status != resource.StatusActive {
		t.Fatalf("created = %+v, want id 5 active", a)
	}
	if a.Tools == nil || a.SubAgents == nil {
		t.Fatalf("list fields not normalized: %+v", a)
	}

	status, _ = call(t, ts, http.MethodGet, "/api/v1/agents/5", "")
	if status != http.StatusOK {
		t.Fatalf("get created status = %d", status)
	}
}

func TestCreateRejections(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"duplicate agent", "/api/v1/agents", `{"name":"time_agent","agent_type":"react"}`, http.StatusBadRequest, "Agent with name 'time_agent' already exists"},
		{"bad agent type", "/api/v1/agents", `{"name":"x","agent_type":"robot"}`, http.StatusBadRequest, "Invalid agent type. Must be one of: react, chat, workflow, local, parallel, remote, sse"},
		{"bad tool type", "/api/v1/tools", `{"name":"x","tool_type":"shell"}`, http.StatusBadRequest, "Invalid tool type. Must be one of: function, mcp, api"},
		{"duplicate workflow", "/api/v1/workflows", `{"name":"research","agents":[]}`, http.StatusBadRequest, "Workflow with name 'research' already exists"},
		{"missing name", "/api/v1/tools", `{"tool_type":"api"}`, http.StatusUnprocessableEntity, `"loc":["body","name"]`},
		{"invalid json", "/api/v1/workflows", `{"name":`, http.StatusUnprocessableEntity, "json_invalid"},
		{"empty name", "/api/v1/workflows", `{"name":""}`, http.StatusBadRequest, "Workflow name cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := call(t, ts, http.MethodPost, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", status, tt.wantStatus, data)
			}
			if got := detailOf(t, data); !strings.Contains(got, tt.wantDetail) {
				t.Fatalf("detail = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestUpdateIsPartial(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodPut, "/api/v1/agents/3", `{"description":"Edits files","timeout":null,"status":"inactive"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, data)
	}
	var a resource.Agent
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatal(err)
	}
	if a.Description != "Edits files" || a.Name != "file_agent" || !a.TrustMode {
		t.Fatalf("updated = %+v", a)
	}
	if a.Status != resource.StatusActive {
		t.Fatalf("status changed by client: %q", a.Status)
	}

	status, data = call(t, ts, http.MethodPut, "/api/v1/agents/3", `{"name":"time_agent"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("rename onto existing name: status = %d body %s", status, data)
	}
	status, _ = call(t, ts, http.MethodPut, "/api/v1/agents/3", `{"name":"file_agent"}`)
	if status != http.StatusOK {
		t.Fatalf("keeping own name: status = %d", status)
	}

	status, data = call(t, ts, http.MethodPut, "/api/v1/agents/3", `{"description":""}`)
	if status != http.StatusOK {
		t.Fatalf("clearing description: status = %d body %s", status, data)
	}
	a = resource.Agent{}
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatal(err)
	}
	if a.Description != "" {
		t.Fatalf("description after clear = %q", a.Description)
	}

	status, data = call(t, ts, http.MethodPut, "/api/v1/workflows/1", `{"name":" "}`)
	if status != http.StatusBadRequest || detailOf(t, data) != "Workflow name cannot be empty" {
		t.Fatalf("blank name: status = %d body %s", status, data)
	}
}

func TestUnknownIDs(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	tests := []struct {
		method, path, body, want string
	}{
		{http.MethodGet, "/api/v1/agents/42", "", "Agent with ID '42' not found"},
		{http.MethodPut, "/api/v1/tools/42", `{"name":"x"}`, "Tool with ID '42' not found"},
		{http.MethodDelete, "/api/v1/workflows/42", "", "Workflow with ID '42' not found"},
		{http.MethodPost, "/api/v1/workflows/42/run", `{"input_data":{}}`, "Workflow with ID '42' not found"},
		{http.MethodPost, "/api/v1/agents/42/test", `{}`, "Agent with ID '42' not found"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, data := call(t, ts, tt.method, tt.path, tt.body)
			if status != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", status)
			}
			if got := detailOf(t, data); got != tt.want {
				t.Fatalf("detail = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeleteReturnsNoContent(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodDelete, "/api/v1/tools/2", "")
	if status != http.StatusNoContent || len(data) != 0 {
		t.Fatalf("delete = %d %q", status, data)
	}
	status, _ = call(t, ts, http.MethodGet, "/api/v1/tools/2", "")
	if status != http.StatusNotFound {
		t.Fatalf("get after delete = %d", status)
	}
}

func TestActions(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodPost, "/api/v1/agents/1/test", `{"query":"hello"}`)
	if status != http.StatusOK || !strings.Contains(string(data), `"agent_id":"1"`) || !strings.Contains(string(data), `"query":"hello"`) {
		t.Fatalf("agent test = %d %s", status, data)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/tools/1/test", `{"input_data":{"timezone":"UTC"}}`)
	if status != http.StatusOK || !strings.Contains(string(data), `"execution_time":0.123`) {
		t.Fatalf("tool test = %d %s", status, data)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/tools/1/test", `{}`)
	if status != http.StatusUnprocessableEntity || !strings.Contains(detailOf(t, data), "input_data") {
		t.Fatalf("tool test without input_data = %d %s", status, data)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/workflows/1/run", `{"input_data":{}}`)
	if status != http.StatusOK || !strings.Contains(string(data), `"execution_time":0.456`) {
		t.Fatalf("workflow run = %d %s", status, data)
	}
}

func TestValidateWorkflow(t *testing.T) {
	agents := resource.Demo().Agents

	tests := []struct {
		name      string
		workflow  resource.Workflow
		wantValid bool
		wantMsg   string
	}{
		{
			name:      "valid",
			workflow:  resource.Demo().Workflows[0],
			wantValid: true,
		},
		{
			name:     "no agents",
			workflow: resource.Workflow{ID: "9"},
			wantMsg:  "Workflow has no agents",
		},
		{
			name:     "unknown agent",
			workflow: resource.Workflow{ID: "9", WorkflowSpec: resource.WorkflowSpec{Agents: []string{"1", "77"}}},
			wantMsg:  "Agent '77' does not exist",
		},
		{
			name: "connection outside workflow",
			workflow: resource.Workflow{ID: "9", WorkflowSpec: resource.WorkflowSpec{
				Agents:      []string{"1"},
				Connections: []map[string]any{{"from": "1", "to": "2"}},
			}},
			wantMsg: "references agent '2' outside the workflow",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateWorkflow(tt.workflow, agents)
			if got.IsValid != tt.wantValid {
				t.Fatalf("IsValid = %v, messages %v", got.IsValid, got.Messages)
			}
			if tt.wantValid {
				if len(got.Messages) != 0 {
					t.Fatalf("messages = %v", got.Messages)
				}
				return
			}
			if !strings.Contains(strings.Join(got.Messages, "\n"), tt.wantMsg) {
				t.Fatalf("messages = %v, want %q", got.Messages, tt.wantMsg)
			}
		})
	}
}

func TestSystemConfigPartialUpdate(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodPut, "/api/v1/system/config", `{"log_level":"debug","cache_dir":null}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d body %s", status, data)
	}
	var cfg resource.SystemConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "DEBUG" || cfg.CacheDir != "/tmp/oxygent_cache" || len(cfg.LLMConfigs) != 1 {
		t.Fatalf("config = %+v", cfg)
	}

	status, data = call(t, ts, http.MethodPut, "/api/v1/system/config", `{"log_level":"LOUD"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("bad log level status = %d body %s", status, data)
	}
}

func TestSystemStatusCounts(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodGet, "/api/v1/system/status", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var st resource.SystemStatus
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatal(err)
	}
	if st.Status != "running" || st.RegisteredAgentsCount != 4 || st.RegisteredToolsCount != 3 || st.RegisteredWorkflowsCount != 2 || st.ActiveMASCount != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestExportAndDownload(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodGet, "/api/v1/system/export", "")
	var info resource.ExportInfo
	if err := json.Unmarshal(data, &info); err != nil || status != http.StatusOK {
		t.Fatalf("export = %d %s (%v)", status, data, err)
	}
	if info.DownloadURL != "/api/v1/system/download-config" {
		t.Fatalf("download url = %q", info.DownloadURL)
	}

	status, data = call(t, ts, http.MethodGet, info.DownloadURL+"?format=yaml", "")
	if status != http.StatusOK || !strings.Contains(string(data), "log_level: INFO") {
		t.Fatalf("download yaml = %d %s", status, data)
	}
	status, _ = call(t, ts, http.MethodGet, info.DownloadURL+"?format=xml", "")
	if status != http.StatusBadRequest {
		t.Fatalf("download xml = %d", status)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/system/restart", "")
	if status != http.StatusOK || !strings.Contains(string(data), "restart initiated") {
		t.Fatalf("restart = %d %s", status, data)
	}
}

func TestCustomPrefixAndUnknownRoute(t *testing.T) {
	_, ts := newTestServer(t, Options{Prefix: "admin/"})

	if status, _ := call(t, ts, http.MethodGet, "/admin/tools", ""); status != http.StatusOK {
		t.Fatalf("custom prefix status = %d", status)
	}
	status, data := call(t, ts, http.MethodGet, "/admin/nothing", "")
	if status != http.StatusNotFound || detailOf(t, data) != "Not Found" {
		t.Fatalf("unknown route = %d %s", status, data)
	}
}

func TestAuthTokenGuardsAPI(t *testing.T) {
	_, ts := newTestServer(t, Options{AuthToken: "s3cret"})

	if status, _ := call(t, ts, http.MethodGet, "/api/v1/agents", ""); status != http.StatusUnauthorized {
		t.Fatalf("without token = %d", status)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("with token = %d", resp.StatusCode)
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	srv, ts := newTestServer(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := livefeed.Subscribe(ctx, ts.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	for srv.Hub().Subscribers() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("subscriber never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	call(t, ts, http.MethodDelete, "/api/v1/agents/4", "")
	select {
	case ev := <-events:
		if ev.Type != livefeed.TypeDeleted || ev.Kind != resource.KindAgent || ev.ID != "4" {
			t.Fatalf("event = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestStartListensOnFreePort(t *testing.T) {
	srv := New(Options{Port: 0})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown(context.Background())

	if srv.Port() == 0 {
		t.Fatal("port not captured")
	}
	resp, err := http.Post(srv.URL()+"/api/v1/workflows/2/validate", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var v resource.Validation
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if !v.IsValid || v.WorkflowID != "2" {
		t.Fatalf("validation = %+v", v)
	}
}

func TestMASLifecycleAndQuery(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	status, data := call(t, ts, http.MethodPost, "/api/v1/mas", `{"name":"helpdesk"}`)
	if status != http.StatusUnprocessableEntity || !strings.Contains(string(data), "oxy_space") {
		t.Fatalf("create without oxy_space = %d %s", status, data)
	}
	status, data = call(t, ts, http.MethodPost, "/api/v1/mas", `{"name":"assistant","oxy_space":[]}`)
	if status != http.StatusBadRequest || detailOf(t, data) != "MAS instance with name 'assistant' already exists" {
		t.Fatalf("duplicate = %d %s", status, data)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/mas", `{"name":"helpdesk","oxy_space":[{"ref":"agent","id":"1"}],"welcome_message":"hello"}`)
	var created resource.MAS
	if err := json.Unmarshal(data, &created); err != nil || status != http.StatusCreated {
		t.Fatalf("create = %d %s (%v)", status, data, err)
	}
	if created.ID != "3" || created.Status != resource.StatusInactive || len(created.OxySpace) != 1 {
		t.Fatalf("created = %+v", created)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/mas/3/query", `{"query":"hi"}`)
	if status != http.StatusBadRequest || detailOf(t, data) != "MAS instance with ID '3' is not active" {
		t.Fatalf("query while inactive = %d %s", status, data)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/mas/3/start", "")
	if status != http.StatusOK || !strings.Contains(string(data), `"status":"active"`) {
		t.Fatalf("start = %d %s", status, data)
	}
	status, data = call(t, ts, http.MethodPost, "/api/v1/mas/3/query", `{"query":"hi"}`)
	var res resource.MASQueryResult
	if err := json.Unmarshal(data, &res); err != nil || status != http.StatusOK {
		t.Fatalf("query = %d %s (%v)", status, data, err)
	}
	if res.MASID != "3" || res.Query != "hi" || res.ExecutionTime != 0.789 || res.Response == "" {
		t.Fatalf("query result = %+v", res)
	}
	status, data = call(t, ts, http.MethodPost, "/api/v1/mas/3/query", `{}`)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("query without text = %d %s", status, data)
	}

	status, data = call(t, ts, http.MethodGet, "/api/v1/system/status", "")
	var st resource.SystemStatus
	if err := json.Unmarshal(data, &st); err != nil || st.ActiveMASCount != 2 {
		t.Fatalf("status after start = %d %s", status, data)
	}

	status, data = call(t, ts, http.MethodPost, "/api/v1/mas/3/stop", "")
	if status != http.StatusOK || !strings.Contains(string(data), `"status":"inactive"`) {
		t.Fatalf("stop = %d %s", status, data)
	}
	status, data = call(t, ts, http.MethodPost, "/api/v1/mas/99/start", "")
	if status != http.StatusNotFound || detailOf(t, data) != "MAS instance with ID '99' not found" {
		t.Fatalf("start unknown = %d %s", status, data)
	}
}

func upload(t *testing.T, ts *httptest.Server, field, filename, content string) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Post(ts.URL+"/api/v1/system/import", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func TestSystemImport(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	yamlConfig := "log_level: warning\ncache_dir: /var/cache/oxy\nllm_configs:\n  - name: local\n    model_name: tiny\n"
	status, data := upload(t, ts, "file", "backup.yaml", yamlConfig)
	if status != http.StatusOK || !strings.Contains(string(data), "imported successfully") {
		t.Fatalf("import yaml = %d %s", status, data)
	}
	_, data = call(t, ts, http.MethodGet, "/api/v1/system/config", "")
	var cfg resource.SystemConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "WARNING" || cfg.CacheDir != "/var/cache/oxy" || len(cfg.LLMConfigs) != 1 || cfg.LLMConfigs[0].ModelName != "tiny" {
		t.Fatalf("config after import = %+v", cfg)
	}

	status, _ = upload(t, ts, "file", "backup.toml", `cache_dir = "/srv"`)
	if status != http.StatusOK {
		t.Fatalf("import toml = %d", status)
	}
	_, data = call(t, ts, http.MethodGet, "/api/v1/system/config", "")
	if !strings.Contains(string(data), `"log_level":"WARNING"`) {
		t.Fatalf("log level not kept: %s", data)
	}

	if status, data := upload(t, ts, "file", "backup.json", `{"log_level":"LOUD"}`); status != http.StatusBadRequest {
		t.Fatalf("bad log level = %d %s", status, data)
	}
	if status, data := upload(t, ts, "file", "backup.ini", "x=1"); status != http.StatusBadRequest {
		t.Fatalf("unknown format = %d %s", status, data)
	}
	if status, data := upload(t, ts, "config", "backup.json", "{}"); status != http.StatusUnprocessableEntity {
		t.Fatalf("missing file field = %d %s", status, data)
	}
}
