package console

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

func TestSystemSavePushesWholeConfig(t *testing.T) {
	h := newHarness(t, config.FallbackOff)
	h.backend.seedDemo()
	h.backend.routes["PUT /system/config"] = func(w http.ResponseWriter, r *http.Request) {
		var cfg resource.SystemConfig
		json.NewDecoder(r.Body).Decode(&cfg)
		writeJSON(w, http.StatusOK, cfg)
	}
	sys := h.console.System
	h.run(t, sys.LoadCmd())

	if err := sys.SetLogLevel("debug"); err != nil {
		t.Fatalf("SetLogLevel: %v", err)
	}
	if err := sys.SetLogLevel("loud"); err == nil {
		t.Fatal("SetLogLevel(loud) accepted")
	}
	if err := sys.AddLLM(resource.LLMConfig{Name: "backup", ModelName: "m2"}); err != nil {
		t.Fatalf("AddLLM: %v", err)
	}
	if err := sys.AddLLM(resource.LLMConfig{Name: "backup"}); err == nil {
		t.Fatal("duplicate LLM accepted")
	}
	if err := sys.SetAdditional("enable_monitoring", "false"); err != nil {
		t.Fatal(err)
	}
	if !sys.Dirty() {
		t.Fatal("Dirty() = false after edits")
	}
	if sys.Saved().LogLevel != "INFO" {
		t.Fatal("draft edits leaked into the saved copy")
	}

	h.run(t, sys.Save())

	var sent resource.SystemConfig
	if err := json.Unmarshal([]byte(h.backend.body("PUT /system/config")), &sent); err != nil {
		t.Fatal(err)
	}
	if sent.LogLevel != "DEBUG" || len(sent.LLMConfigs) != 2 || len(sent.DatabaseConfigs) != 1 || sent.CacheDir != "/tmp/oxygent_cache" {
		t.Fatalf("PUT body = %+v", sent)
	}
	if sent.AdditionalConfig["enable_monitoring"] != false {
		t.Fatalf("additional_config = %v", sent.AdditionalConfig)
	}
	if sys.Dirty() {
		t.Fatal("Dirty() = true after save")
	}
	if last := h.lastNotice(t); last.Message != "System configuration saved" {
		t.Fatalf("notice = %+v", last)
	}
}

func TestSystemDiscardRestoresSaved(t *testing.T) {
	h := newHarness(t, config.FallbackOff)
	h.backend.seedDemo()
	sys := h.console.System
	h.run(t, sys.LoadCmd())

	sys.RemoveLLM(0)
	sys.SetCacheDir("/var/cache")
	sys.Discard()
	if sys.Dirty() || len(sys.Draft().LLMConfigs) != 1 {
		t.Fatalf("draft after discard = %+v", sys.Draft())
	}
}

func TestSystemFallbackAndExport(t *testing.T) {
	h := newHarness(t, config.FallbackInitial)
	sys := h.console.System
	h.run(t, sys.LoadCmd())
	if !sys.ShowingDemo() || sys.Saved().LogLevel != "INFO" {
		t.Fatalf("fallback config = %+v", sys.Saved())
	}

	if _, err := sys.Export("xml"); !IsInputError(err) {
		t.Fatalf("Export(xml) = %v", err)
	}

	h.backend.handle("GET /system/export", http.StatusOK, resource.ExportInfo{Status: "success", DownloadURL: "/api/v1/system/download-config", Message: "Configuration exported successfully"})
	cmd, err := sys.Export("yaml")
	if err != nil {
		t.Fatal(err)
	}
	h.run(t, cmd)

	var exported ExportedMsg
	for _, m := range h.messages {
		if e, ok := m.(ExportedMsg); ok {
			exported = e
		}
	}
	if !strings.Contains(string(exported.Data), "log_level: INFO") || exported.Info.DownloadURL == "" {
		t.Fatalf("exported = %+v\n%s", exported, exported.Data)
	}
}

func TestSystemRestartNeedsConfirmation(t *testing.T) {
	h := newHarness(t, config.FallbackOff)
	h.backend.handle("POST /system/restart", http.StatusOK, resource.RestartInfo{Status: "success", Message: "System restart initiated"})
	sys := h.console.System

	if cmd := sys.ConfirmRestart(); cmd != nil {
		t.Fatal("restart without request produced a command")
	}
	sys.RequestRestart()
	h.run(t, sys.ConfirmRestart())
	if h.backend.called("POST /system/restart") != 1 {
		t.Fatal("restart not sent")
	}
	if sys.RestartPending() {
		t.Fatal("restart still pending")
	}
}
