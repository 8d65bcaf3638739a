package webserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

const maxBodyBytes = 1 << 20

const (
	mockAgentOutput    = "This is a mock test response. In a real implementation, this would be the agent's response to the test input."
	mockToolOutput     = "This is a mock test response. In a real implementation, this would be the tool's response to the test input."
	mockWorkflowOutput = "This is a mock run response. In a real implementation, this would be the workflow's response to the input."
	mockMASOutput      = "This is a mock query response. In a real implementation, this would be the MAS instance's response to the query."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.LogKV("webserver", "encode response failed", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeAPIError(w http.ResponseWriter, err *apiError) {
	writeDetail(w, err.status, err.detail)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeDetail(w, http.StatusBadRequest, "reading request body: "+err.Error())
		}
		return nil, false
	}
	return body, true
}

// registerCollection mounts list, create, get, update and delete for one
// table. Both "/agents" and "/agents/" reach the collection handlers.
func registerCollection[T resource.Record](mux *http.ServeMux, srv *Server, prefix string, t *table[T]) {
	base := prefix + "/" + t.kind.Plural()

	list := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.list())
	}
	create := func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		rec, apiErr := t.create(body)
		if apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		srv.publish(livefeed.Event{Type: livefeed.TypeChanged, Kind: t.kind, ID: rec.RecordID()})
		writeJSON(w, http.StatusCreated, rec)
	}

	mux.HandleFunc("GET "+base, list)
	mux.HandleFunc("GET "+base+"/{$}", list)
	mux.HandleFunc("POST "+base, create)
	mux.HandleFunc("POST "+base+"/{$}", create)

	mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, apiErr := t.get(r.PathValue("id"))
		if apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
	mux.HandleFunc("PUT "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		rec, apiErr := t.update(r.PathValue("id"), body)
		if apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		srv.publish(livefeed.Event{Type: livefeed.TypeChanged, Kind: t.kind, ID: rec.RecordID()})
		writeJSON(w, http.StatusOK, rec)
	})
	mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if apiErr := t.remove(id); apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		srv.publish(livefeed.Event{Type: livefeed.TypeDeleted, Kind: t.kind, ID: id})
		w.WriteHeader(http.StatusNoContent)
	})
}

// decodeInputData reads a {"input_data": {...}} body.
func decodeInputData(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	fields, apiErr := decodeObject(body)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return nil, false
	}
	if isNull(fields["input_data"]) {
		writeAPIError(w, missingFields("input_data"))
		return nil, false
	}
	var input map[string]any
	if err := json.Unmarshal(fields["input_data"], &input); err != nil {
		writeAPIError(w, &apiError{status: http.StatusUnprocessableEntity, detail: []fieldIssue{{
			Loc: []string{"body", "input_data"}, Msg: "Input should be a valid dictionary", Type: "dict_type",
		}}})
		return nil, false
	}
	return input, true
}

func (srv *Server) handleAgentTest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, apiErr := srv.agents.get(id); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, apiErr := decodeObject(body)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": id,
		"status":   "success",
		"input":    input,
		"output":   mockAgentOutput,
	})
}

func (srv *Server) handleToolTest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, apiErr := srv.tools.get(id); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	input, ok := decodeInputData(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tool_id":        id,
		"status":         "success",
		"input":          input,
		"output":         mockToolOutput,
		"execution_time": 0.123,
	})
}

func (srv *Server) handleWorkflowRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, apiErr := srv.workflows.get(id); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	input, ok := decodeInputData(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workflow_id":    id,
		"status":         "success",
		"input":          input,
		"output":         mockWorkflowOutput,
		"execution_time": 0.456,
	})
}

func (srv *Server) handleWorkflowValidate(w http.ResponseWriter, r *http.Request) {
	wf, apiErr := srv.workflows.get(r.PathValue("id"))
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, validateWorkflow(wf, srv.agents.list()))
}

// handleMASLifecycle returns a handler that moves an instance to status.
func (srv *Server) handleMASLifecycle(status resource.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, apiErr := srv.mas.setStatus(r.PathValue("id"), status)
		if apiErr != nil {
			writeAPIError(w, apiErr)
			return
		}
		debug.LogKV("webserver", "mas status changed", "id", m.ID, "status", status)
		srv.publish(livefeed.Event{Type: livefeed.TypeChanged, Kind: resource.KindMAS, ID: m.ID})
		writeJSON(w, http.StatusOK, m)
	}
}

func (srv *Server) handleMASQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, apiErr := srv.mas.get(id)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	fields, apiErr := decodeObject(body)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if isNull(fields["query"]) {
		writeAPIError(w, missingFields("query"))
		return
	}
	var query string
	if err := json.Unmarshal(fields["query"], &query); err != nil {
		writeAPIError(w, &apiError{status: http.StatusUnprocessableEntity, detail: []fieldIssue{{
			Loc: []string{"body", "query"}, Msg: "Input should be a valid string", Type: "string_type",
		}}})
		return
	}
	if !m.Active() {
		writeAPIError(w, badRequest("MAS instance with ID '%s' is not active", id))
		return
	}
	writeJSON(w, http.StatusOK, resource.MASQueryResult{
		MASID:         id,
		Query:         query,
		Response:      mockMASOutput,
		ExecutionTime: 0.789,
	})
}
