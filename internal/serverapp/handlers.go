package serverapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pgcomposer/internal/compiler"
	"pgcomposer/internal/inference"
	"pgcomposer/internal/logging"
	"pgcomposer/internal/middleware"
	"pgcomposer/internal/querystate"
	"pgcomposer/internal/schema"
)

func middlewareChain(logger *logging.Logger) func(http.Handler) http.Handler {
	return middleware.LoggingMiddleware(logger)
}

func (a *App) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/compile", a.handleCompile)
	mux.HandleFunc("POST /v1/preview", a.handlePreview)
	mux.HandleFunc("POST /v1/joins/suggest", a.handleSuggestJoin)
	mux.HandleFunc("GET /v1/schema", a.handleSchema)
	mux.HandleFunc("GET /healthz", a.handleHealth)
}

type compileRequest struct {
	State querystate.State `json:"state"`
}

type compileResponse struct {
	SQL      string   `json:"sql"`
	Warnings []string `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// handleCompile is the strict "generate" path: compilation errors are
// surfaced to the caller with the specific unsatisfied invariant.
func (a *App) handleCompile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pgcomposer/serverapp").Start(r.Context(), "composer.compile")
	defer span.End()

	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Kind: "bad_request", Message: err.Error()})
		return
	}

	start := time.Now()
	result, err := compiler.Compile(a.currentSchema(), req.State)
	a.metrics.RecordCompile(ctx, "generate", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		span.SetAttributes(attribute.String("composer.error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, classify(err))
		return
	}

	resp := compileResponse{SQL: result.SQL}
	for _, warning := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warning.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePreview is the permissive live-preview path: it always returns
// renderable text, converting errors into a SQL comment.
func (a *App) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pgcomposer/serverapp").Start(r.Context(), "composer.preview")
	defer span.End()

	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Kind: "bad_request", Message: err.Error()})
		return
	}

	start := time.Now()
	sqlText := compiler.Preview(a.currentSchema(), req.State)
	a.metrics.RecordCompile(ctx, "preview", float64(time.Since(start).Milliseconds()), nil)

	writeJSON(w, http.StatusOK, compileResponse{SQL: sqlText})
}

type suggestRequest struct {
	State querystate.State `json:"state"`
	Table schema.TableID   `json:"table"`
}

type suggestResponse struct {
	// Join is set for a direct relationship. Path is set instead when
	// the tables only connect through a junction table.
	Join *querystate.Join  `json:"join"`
	Path []querystate.Join `json:"path,omitempty"`
}

// handleSuggestJoin consults the inference engine for the new table
// against every already-selected table in order and returns the first
// proposal, preferring direct relationships over junction paths. The
// suggestion is advisory; acceptance re-enters the composer as ordinary
// add-join mutations.
func (a *App) handleSuggestJoin(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Kind: "bad_request", Message: err.Error()})
		return
	}

	s := a.currentSchema()
	var resp suggestResponse
	for _, selected := range req.State.SelectedTables {
		if join := inference.Infer(s, selected, req.Table); join != nil {
			resp.Join = join
			break
		}
	}
	if resp.Join == nil {
		for _, selected := range req.State.SelectedTables {
			if path := inference.InferPath(s, selected, req.Table); len(path) > 1 {
				resp.Path = path
				break
			}
		}
	}
	a.metrics.RecordSuggestion(r.Context(), resp.Join != nil || len(resp.Path) > 0)

	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.currentSchema())
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// classify maps compiler error types onto stable API error kinds.
func classify(err error) apiError {
	var empty *compiler.EmptySelectionError
	var structural *compiler.StructuralError
	var consistency *compiler.ConsistencyError
	switch {
	case errors.As(err, &empty):
		return apiError{Kind: "empty_selection", Message: err.Error()}
	case errors.As(err, &structural):
		return apiError{Kind: "structural", Message: err.Error()}
	case errors.As(err, &consistency):
		return apiError{Kind: "consistency", Message: err.Error()}
	default:
		return apiError{Kind: "internal", Message: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, apiErr apiError) {
	writeJSON(w, status, errorResponse{Error: apiErr})
}
