package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/oxyadmin/oxyadmin/internal/buildinfo"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

func normalizeSystem(cfg resource.SystemConfig) resource.SystemConfig {
	cfg.LLMConfigs = emptyIfNil(cfg.LLMConfigs)
	cfg.DatabaseConfigs = emptyIfNil(cfg.DatabaseConfigs)
	if cfg.AdditionalConfig == nil {
		cfg.AdditionalConfig = map[string]any{}
	}
	return cfg
}

func (srv *Server) systemConfig() resource.SystemConfig {
	srv.sysMu.RLock()
	defer srv.sysMu.RUnlock()
	return srv.system.Clone()
}

func (srv *Server) handleGetSystemConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.systemConfig())
}

// handleUpdateSystemConfig replaces every top-level field present and
// non-null in the body.
func (srv *Server) handleUpdateSystemConfig(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	patch, apiErr := decodeObject(body)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	srv.sysMu.Lock()
	next := srv.system.Clone()
	fields := map[string]any{
		"llm_configs":       &next.LLMConfigs,
		"database_configs":  &next.DatabaseConfigs,
		"log_level":         &next.LogLevel,
		"cache_dir":         &next.CacheDir,
		"additional_config": &next.AdditionalConfig,
	}
	for key, raw := range patch {
		target, known := fields[key]
		if !known || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			srv.sysMu.Unlock()
			writeAPIError(w, &apiError{status: http.StatusUnprocessableEntity, detail: []fieldIssue{{
				Loc: []string{"body", key}, Msg: err.Error(), Type: "type_error",
			}}})
			return
		}
	}
	if apiErr := srv.replaceSystem(next); apiErr != nil {
		srv.sysMu.Unlock()
		writeAPIError(w, apiErr)
		return
	}
	out := srv.system.Clone()
	srv.sysMu.Unlock()

	srv.publish(livefeed.Event{Type: livefeed.TypeChanged, Kind: resource.KindSystem})
	writeJSON(w, http.StatusOK, out)
}

// replaceSystem installs next after checking its log level. The caller
// holds sysMu.
func (srv *Server) replaceSystem(next resource.SystemConfig) *apiError {
	next.LogLevel = strings.ToUpper(strings.TrimSpace(next.LogLevel))
	if !slices.Contains(resource.LogLevels, next.LogLevel) {
		return badRequest("Invalid log level. Must be one of: %s", strings.Join(resource.LogLevels, ", "))
	}
	srv.system = normalizeSystem(next)
	return nil
}

// handleSystemImport replaces the configuration with an uploaded file. The
// format follows the file extension; a file without a log level keeps the
// current one.
func (srv *Server) handleSystemImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeAPIError(w, missingFields("file"))
			return
		}
		writeDetail(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}
	cfg, err := resource.DecodeConfig(data, resource.FormatOf(header.Filename))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	srv.sysMu.Lock()
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = srv.system.LogLevel
	}
	apiErr := srv.replaceSystem(cfg)
	srv.sysMu.Unlock()
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	debug.LogKV("webserver", "config imported", "file", header.Filename, "bytes", len(data))
	srv.publish(livefeed.Event{Type: livefeed.TypeChanged, Kind: resource.KindSystem})
	writeJSON(w, http.StatusOK, resource.ImportInfo{
		Status:  "success",
		Message: "Configuration imported successfully.",
	})
}

func (srv *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	srv.sysMu.RLock()
	uptime := time.Since(srv.started).Seconds()
	srv.sysMu.RUnlock()

	active := 0
	for _, m := range srv.mas.list() {
		if m.Active() {
			active++
		}
	}
	writeJSON(w, http.StatusOK, resource.SystemStatus{
		Version:                  buildinfo.Current().Version,
		Status:                   "running",
		Uptime:                   uptime,
		ActiveMASCount:           active,
		RegisteredAgentsCount:    srv.agents.len(),
		RegisteredToolsCount:     srv.tools.len(),
		RegisteredWorkflowsCount: srv.workflows.len(),
	})
}

func (srv *Server) handleSystemExport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, resource.ExportInfo{
		Status:      "success",
		DownloadURL: srv.prefix + "/system/download-config",
		Message:     "Configuration exported successfully. Use the download URL to get the configuration file.",
	})
}

// handleDownloadConfig serves the configuration as a file; ?format= picks
// json (default), yaml or toml.
func (srv *Server) handleDownloadConfig(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	data, err := resource.EncodeConfig(srv.systemConfig(), format)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	contentType := map[string]string{
		"json": "application/json",
		"yaml": "application/yaml",
		"yml":  "application/yaml",
		"toml": "application/toml",
	}[format]
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=oxygent_config.%s", format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (srv *Server) handleSystemRestart(w http.ResponseWriter, r *http.Request) {
	srv.sysMu.Lock()
	srv.started = time.Now()
	srv.sysMu.Unlock()
	writeJSON(w, http.StatusOK, resource.RestartInfo{
		Status:  "success",
		Message: "System restart initiated. The system will be available again shortly.",
	})
}
