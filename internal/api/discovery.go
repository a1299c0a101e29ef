package api

import (
	"errors"
	"net/http"

	"github.com/triage-ai/toolgate/internal/registry"
	"github.com/triage-ai/toolgate/internal/schema"
	"go.uber.org/zap"
)

// handleListTools implements GET /v1/tools with optional category and
// classification query filters.
func (d *Dependencies) handleListTools(w http.ResponseWriter, r *http.Request) {
	filter := &registry.Filter{
		Category:       r.URL.Query().Get("category"),
		Classification: registry.Classification(r.URL.Query().Get("classification")),
	}

	resp := ToolListResp{Tools: []ToolSummary{}}
	for desc := range d.Registry.List(filter) {
		resp.Tools = append(resp.Tools, ToolSummary{
			Name:           desc.Name,
			Description:    desc.Description,
			Category:       desc.Category,
			Classification: string(desc.Classification),
			SideEffect:     desc.SideEffect,
			ParameterCount: len(desc.Parameters),
		})
	}
	resp.Total = len(resp.Tools)
	writeJSON(w, http.StatusOK, resp)
}

// handleGetTool implements GET /v1/tools/{tool_name}.
func (d *Dependencies) handleGetTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("tool_name")
	desc, err := d.Registry.Lookup(name)
	if err != nil {
		var unknown *registry.UnknownToolError
		if errors.As(err, &unknown) {
			writeJSON(w, http.StatusNotFound, ErrorResp{Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "lookup failed"})
		return
	}

	entry := schema.OperationEntry{
		Name:           desc.Name,
		Description:    desc.Description,
		Category:       desc.Category,
		Classification: string(desc.Classification),
		SideEffect:     desc.SideEffect,
		Parameters:     make([]schema.ParameterEntry, 0, len(desc.Parameters)),
	}
	for _, p := range desc.Parameters {
		entry.Parameters = append(entry.Parameters, schema.ParameterEntry{
			Name:        p.Name,
			Type:        p.Type,
			Description: p.Description,
			Required:    p.Required,
			Default:     p.Default,
		})
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleCapabilities implements GET /v1/capabilities. The base_url query
// parameter affects only embedded absolute references; format selects the
// encoding ("json" default, "yaml").
func (d *Dependencies) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	doc := d.Synthesizer.Generate(r.URL.Query().Get("base_url"))

	switch r.URL.Query().Get("format") {
	case "", "json":
		raw, err := doc.EncodeJSON()
		if err != nil {
			d.Logger.Error("capability document encode failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "encoding failed"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw) //nolint:errcheck
	case "yaml":
		raw, err := doc.EncodeYAML()
		if err != nil {
			d.Logger.Error("capability document encode failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "encoding failed"})
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(raw) //nolint:errcheck
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "unsupported format; use json or yaml"})
	}
}

// handleCategories implements GET /v1/categories.
func (d *Dependencies) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResp{Categories: d.Registry.ByCategory()})
}

// handleStats implements GET /v1/stats.
func (d *Dependencies) handleStats(w http.ResponseWriter, _ *http.Request) {
	byCategory, byClass, unknown := d.Dispatcher.Stats().Snapshot()
	writeJSON(w, http.StatusOK, StatsResp{
		ByCategory:       byCategory,
		ByClassification: byClass,
		UnknownLookups:   unknown,
		RegisteredTools:  d.Registry.ByCategory(),
	})
}

// handleHealth implements GET /healthz. Overall status degrades when any
// component does; a degraded audit sink never fails requests, it only
// surfaces here.
func (d *Dependencies) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResp{
		Status:   "ok",
		Registry: ComponentHealth{Status: "ok"},
		Audit:    ComponentHealth{Status: "ok"},
	}

	if d.Registry.Len() == 0 {
		resp.Registry = ComponentHealth{Status: "degraded", Detail: "no tools registered"}
		resp.Status = "degraded"
	}
	if !d.Writer.Healthy() {
		resp.Audit = ComponentHealth{Status: "degraded", Detail: "audit sink unavailable or dropping records"}
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}
