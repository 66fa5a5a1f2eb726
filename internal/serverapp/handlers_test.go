package serverapp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgcomposer/internal/querystate"
	"pgcomposer/internal/schema"
)

func testApp(t *testing.T) *App {
	t.Helper()
	return &App{
		schema: &schema.Schema{Tables: []schema.Table{
			{
				ID: schema.NewTableID("", "users"),
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", IsPrimaryKey: true},
					{Name: "email", DataType: "varchar"},
				},
			},
			{
				ID: schema.NewTableID("", "orders"),
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", IsPrimaryKey: true},
					{Name: "user_id", DataType: "integer", IsForeignKey: true, References: "public.users.id"},
					{Name: "amount", DataType: "numeric"},
				},
			},
		}},
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleCompile(t *testing.T) {
	app := testApp(t)
	state := querystate.New().ToggleTable(schema.NewTableID("", "orders"))

	rec := postJSON(t, app.handleCompile, "/v1/compile", compileRequest{State: state})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp compileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SELECT public.orders.* FROM public.orders LIMIT 100", resp.SQL)
	assert.Empty(t, resp.Warnings)
}

func TestHandleCompileReportsWarnings(t *testing.T) {
	app := testApp(t)
	state := querystate.New().
		ToggleTable(schema.NewTableID("", "orders")).
		ToggleTable(schema.NewTableID("", "users"))

	rec := postJSON(t, app.handleCompile, "/v1/compile", compileRequest{State: state})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp compileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "public.users")
}

func TestHandleCompileErrorKinds(t *testing.T) {
	app := testApp(t)
	orders := schema.NewTableID("", "orders")
	amount := schema.NewColumnRef(orders, "amount")

	tests := []struct {
		name  string
		state querystate.State
		kind  string
	}{
		{"empty selection", querystate.New(), "empty_selection"},
		{"unknown table", querystate.New().ToggleTable(schema.NewTableID("", "ghosts")), "structural"},
		{
			"ungrouped column",
			querystate.New().
				ToggleColumn(schema.NewColumnRef(orders, "id")).
				SetAggregation(amount, querystate.AggSum),
			"consistency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, app.handleCompile, "/v1/compile", compileRequest{State: tt.state})
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.kind, resp.Error.Kind)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestHandleCompileRejectsMalformedBody(t *testing.T) {
	app := testApp(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/compile", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	app.handleCompile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePreviewNeverFails(t *testing.T) {
	app := testApp(t)

	rec := postJSON(t, app.handlePreview, "/v1/preview", compileRequest{State: querystate.New()})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp compileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "-- unable to compile query: no tables selected", resp.SQL)
}

func TestHandleSuggestJoin(t *testing.T) {
	app := testApp(t)
	state := querystate.New().ToggleTable(schema.NewTableID("", "users"))

	rec := postJSON(t, app.handleSuggestJoin, "/v1/joins/suggest", suggestRequest{
		State: state,
		Table: schema.NewTableID("", "orders"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp suggestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Join)
	assert.Equal(t, "user_id", resp.Join.FromColumn)
	assert.Equal(t, querystate.JoinLeft, resp.Join.Type)
}

func TestHandleSuggestJoinReturnsJunctionPath(t *testing.T) {
	app := &App{
		schema: &schema.Schema{Tables: []schema.Table{
			{
				ID: schema.NewTableID("", "students"),
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", IsPrimaryKey: true},
				},
			},
			{
				ID: schema.NewTableID("", "courses"),
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", IsPrimaryKey: true},
				},
			},
			{
				ID: schema.NewTableID("", "enrollments"),
				Columns: []schema.Column{
					{Name: "student_id", DataType: "integer", IsPrimaryKey: true, IsForeignKey: true, References: "public.students.id"},
					{Name: "course_id", DataType: "integer", IsPrimaryKey: true, IsForeignKey: true, References: "public.courses.id"},
				},
			},
		}},
	}
	state := querystate.New().ToggleTable(schema.NewTableID("", "students"))

	rec := postJSON(t, app.handleSuggestJoin, "/v1/joins/suggest", suggestRequest{
		State: state,
		Table: schema.NewTableID("", "courses"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp suggestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Nil(t, resp.Join)
	require.Len(t, resp.Path, 2)
	assert.Equal(t, "public.enrollments", resp.Path[0].ToTable.String())
	assert.Equal(t, "public.courses", resp.Path[1].ToTable.String())
}

func TestHandleSuggestJoinNoMatch(t *testing.T) {
	app := testApp(t)
	state := querystate.New().ToggleTable(schema.NewTableID("", "users"))

	rec := postJSON(t, app.handleSuggestJoin, "/v1/joins/suggest", suggestRequest{
		State: state,
		Table: schema.NewTableID("", "users"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp suggestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Nil(t, resp.Join)
}

func TestHandleSchema(t *testing.T) {
	app := testApp(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	rec := httptest.NewRecorder()
	app.handleSchema(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp schema.Schema
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Tables, 2)
}

func TestHandleHealth(t *testing.T) {
	app := testApp(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	app.handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
