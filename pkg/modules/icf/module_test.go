package icf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

func newModule(t *testing.T, config *Config) *Module {
	t.Helper()
	m, err := New(config, zap.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return m
}

func newStubTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

type schemaView struct {
	Type       string                    `json:"type"`
	Properties map[string]map[string]any `json:"properties"`
	Required   []string                  `json:"required"`
}

func toolSchema(t *testing.T, tool mcp.Tool) schemaView {
	t.Helper()
	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		t.Fatalf("marshal input schema: %v", err)
	}
	var view schemaView
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatalf("unmarshal input schema: %v", err)
	}
	return view
}

func TestGetToolsDefaults(t *testing.T) {
	m := newModule(t, &Config{})
	tools := m.GetTools()
	if len(tools) != 6 {
		t.Fatalf("len(tools) = %d, want 6", len(tools))
	}

	want := map[string]bool{
		"icf_lookup":            false,
		"icf_search":            false,
		"icf_browse_category":   false,
		"icf_get_children":      false,
		"icf_explain_qualifier": false,
		"icf_overview":          false,
	}
	for _, st := range tools {
		seen, ok := want[st.Tool.Name]
		if !ok {
			t.Errorf("unexpected tool %q", st.Tool.Name)
			continue
		}
		if seen {
			t.Errorf("duplicate tool %q", st.Tool.Name)
		}
		want[st.Tool.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("missing tool %q", name)
		}
	}
}

func TestBuildToolNameAffixes(t *testing.T) {
	m := newModule(t, &Config{Tools: ToolsConfig{Prefix: "who_", Suffix: "_v1"}})
	if got := m.BuildToolName("icf_lookup"); got != "who_icf_lookup_v1" {
		t.Errorf("BuildToolName = %q, want who_icf_lookup_v1", got)
	}
	for _, st := range m.GetTools() {
		if !strings.HasPrefix(st.Tool.Name, "who_") || !strings.HasSuffix(st.Tool.Name, "_v1") {
			t.Errorf("tool %q does not carry the configured affixes", st.Tool.Name)
		}
	}
}

func TestRequiredParameters(t *testing.T) {
	m := newModule(t, &Config{})
	required := map[string]string{
		"icf_lookup":            "code",
		"icf_search":            "query",
		"icf_browse_category":   "category",
		"icf_get_children":      "code",
		"icf_explain_qualifier": "qualifier",
	}
	for _, st := range m.GetTools() {
		view := toolSchema(t, st.Tool)
		param, ok := required[st.Tool.Name]
		if !ok {
			if len(view.Required) != 0 {
				t.Errorf("%s: required = %v, want none", st.Tool.Name, view.Required)
			}
			continue
		}
		if _, ok := view.Properties[param]; !ok {
			t.Errorf("%s: schema is missing property %q", st.Tool.Name, param)
		}
		found := false
		for _, r := range view.Required {
			if r == param {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: %q not in required list %v", st.Tool.Name, param, view.Required)
		}
	}
}

func TestMissingArgumentErrors(t *testing.T) {
	m := newModule(t, &Config{})
	cases := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		wantMsg string
	}{
		{"lookup", m.handleLookup, "code parameter is required"},
		{"search", m.handleSearch, "query parameter is required"},
		{"browse_category", m.handleBrowseCategory, "category parameter is required"},
		{"get_children", m.handleGetChildren, "code parameter is required"},
		{"explain_qualifier", m.handleExplainQualifier, "qualifier parameter is required"},
	}
	for _, tc := range cases {
		_, err := tc.handler(context.Background(), callRequest("test", nil))
		if err == nil {
			t.Errorf("%s: want error %q, got nil", tc.name, tc.wantMsg)
			continue
		}
		if err.Error() != tc.wantMsg {
			t.Errorf("%s: error = %q, want %q", tc.name, err.Error(), tc.wantMsg)
		}
	}
}

func TestExplainQualifierStatic(t *testing.T) {
	// No backend servers exist here; the qualifier table answers locally.
	m := newModule(t, &Config{})
	cases := []struct {
		qualifier string
		level     string
		percent   string
	}{
		{"0", "No problem", "0-4%"},
		{"3", "Severe problem", "50-95%"},
		{"4", "Complete problem", "96-100%"},
		{"8", "Not specified", "N/A"},
		{"9", "Not applicable", "N/A"},
	}
	for _, tc := range cases {
		result, err := m.handleExplainQualifier(context.Background(), callRequest("icf_explain_qualifier", map[string]any{"qualifier": tc.qualifier}))
		if err != nil {
			t.Fatalf("qualifier %s: handler error: %v", tc.qualifier, err)
		}
		if result.IsError {
			t.Fatalf("qualifier %s: unexpected error result: %s", tc.qualifier, resultText(t, result))
		}
		var info QualifierInfo
		if err := json.Unmarshal([]byte(resultText(t, result)), &info); err != nil {
			t.Fatalf("qualifier %s: decode result: %v", tc.qualifier, err)
		}
		if info.Level != tc.level {
			t.Errorf("qualifier %s: Level = %q, want %q", tc.qualifier, info.Level, tc.level)
		}
		if info.PercentRange != tc.percent {
			t.Errorf("qualifier %s: PercentRange = %q, want %q", tc.qualifier, info.PercentRange, tc.percent)
		}
		if info.Example == "" {
			t.Errorf("qualifier %s: Example is empty", tc.qualifier)
		}
	}
}

func TestExplainQualifierInvalid(t *testing.T) {
	m := newModule(t, &Config{})
	for _, bad := range []string{"7", "5", "-1", "abc"} {
		result, err := m.handleExplainQualifier(context.Background(), callRequest("icf_explain_qualifier", map[string]any{"qualifier": bad}))
		if err != nil {
			t.Fatalf("qualifier %q: handler error: %v", bad, err)
		}
		if !result.IsError {
			t.Errorf("qualifier %q: want error result", bad)
			continue
		}
		if !strings.Contains(resultText(t, result), "valid values are") {
			t.Errorf("qualifier %q: message %q does not list valid values", bad, resultText(t, result))
		}
	}
}

func TestOverviewContent(t *testing.T) {
	m := newModule(t, &Config{})
	result, err := m.handleOverview(context.Background(), callRequest("icf_overview", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{
		"Body Functions",
		"Body Structures",
		"Activities and Participation",
		"Environmental Factors",
		"icf_lookup",
		"Qualifiers",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("overview is missing %q", want)
		}
	}
}

func TestSearchHandlerEmptyQuery(t *testing.T) {
	// Blank queries return an empty result set without touching the
	// network; no servers and no credentials exist here.
	m := newModule(t, &Config{})
	result, err := m.handleSearch(context.Background(), callRequest("icf_search", map[string]any{"query": "   "}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	var payload struct {
		Count   int               `json:"count"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Count != 0 || len(payload.Results) != 0 {
		t.Errorf("count = %d, results = %d, want 0 and 0", payload.Count, len(payload.Results))
	}
}

func TestBrowseCategoryHandlerInvalid(t *testing.T) {
	m := newModule(t, &Config{})
	result, err := m.handleBrowseCategory(context.Background(), callRequest("icf_browse_category", map[string]any{"category": "q"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("want error result for invalid category")
	}
	if !strings.Contains(resultText(t, result), "invalid category") {
		t.Errorf("message = %q", resultText(t, result))
	}
}

func TestLookupHandlerFetchesEntity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/icd/release/11/2025-01/icf/codeinfo/b280", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"stemId":"http://id.who.int/icd/release/11/2025-01/icf/1234"}`)
	})
	mux.HandleFunc("/icd/release/11/2025-01/icf/1234", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":"b280","title":{"@value":"Sensation of pain"},"definition":{"@value":"Sensation of unpleasant feeling indicating potential or actual damage to some body structure."},"@id":"http://id.who.int/icd/release/11/2025-01/icf/1234"}`)
	})
	apiSrv := httptest.NewServer(mux)
	t.Cleanup(apiSrv.Close)
	tokenSrv := newStubTokenServer(t)

	m := newModule(t, &Config{ClientID: "test-id", ClientSecret: "test-secret"})
	m.client.SetBaseURL(apiSrv.URL)
	m.client.SetTokenURL(tokenSrv.URL)

	result, err := m.handleLookup(context.Background(), callRequest("icf_lookup", map[string]any{"code": "b280"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	var entity map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &entity); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if entity["code"] != "b280" {
		t.Errorf("code = %v, want b280", entity["code"])
	}
	definition, _ := entity["definition"].(string)
	if !strings.Contains(strings.ToLower(definition), "pain") {
		t.Errorf("definition = %q, want mention of pain", definition)
	}
}

func TestLookupHandlerUnknownCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	apiSrv := httptest.NewServer(mux)
	t.Cleanup(apiSrv.Close)
	tokenSrv := newStubTokenServer(t)

	m := newModule(t, &Config{ClientID: "test-id", ClientSecret: "test-secret"})
	m.client.SetBaseURL(apiSrv.URL)
	m.client.SetTokenURL(tokenSrv.URL)

	result, err := m.handleLookup(context.Background(), callRequest("icf_lookup", map[string]any{"code": "x999"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("want error result for unknown code")
	}
	if !strings.Contains(resultText(t, result), "x999") {
		t.Errorf("message %q does not name the code", resultText(t, result))
	}
}

func TestSearchHandlerMaxResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/icd/release/11/2025-01/icf/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"destinationEntities":[
			{"theCode":"d450","title":"Walking","score":1.0,"id":"http://id.who.int/icd/release/11/2025-01/icf/450"},
			{"theCode":"d455","title":"Moving around","score":0.8,"id":"http://id.who.int/icd/release/11/2025-01/icf/455"},
			{"theCode":"d460","title":"Moving around in different locations","score":0.6,"id":"http://id.who.int/icd/release/11/2025-01/icf/460"}
		]}`)
	})
	apiSrv := httptest.NewServer(mux)
	t.Cleanup(apiSrv.Close)
	tokenSrv := newStubTokenServer(t)

	m := newModule(t, &Config{ClientID: "test-id", ClientSecret: "test-secret"})
	m.client.SetBaseURL(apiSrv.URL)
	m.client.SetTokenURL(tokenSrv.URL)

	result, err := m.handleSearch(context.Background(), callRequest("icf_search", map[string]any{"query": "walking", "max_results": "2"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var payload struct {
		Query   string `json:"query"`
		Count   int    `json:"count"`
		Results []struct {
			Code string `json:"code"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Count != 2 || len(payload.Results) != 2 {
		t.Fatalf("count = %d, len(results) = %d, want 2 and 2", payload.Count, len(payload.Results))
	}
	if payload.Results[0].Code != "d450" {
		t.Errorf("first result = %q, want d450", payload.Results[0].Code)
	}
}

func TestGetChildrenHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/icd/release/11/2025-01/icf/codeinfo/d450", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"stemId":"http://id.who.int/icd/release/11/2025-01/icf/450"}`)
	})
	mux.HandleFunc("/icd/release/11/2025-01/icf/450", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":"d450","title":{"@value":"Walking"},"child":["http://id.who.int/icd/release/11/2025-01/icf/4500","http://id.who.int/icd/release/11/2025-01/icf/4501"]}`)
	})
	mux.HandleFunc("/icd/release/11/2025-01/icf/4500", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":"d4500","title":{"@value":"Walking short distances"}}`)
	})
	mux.HandleFunc("/icd/release/11/2025-01/icf/4501", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":"d4501","title":{"@value":"Walking long distances"}}`)
	})
	apiSrv := httptest.NewServer(mux)
	t.Cleanup(apiSrv.Close)
	tokenSrv := newStubTokenServer(t)

	m := newModule(t, &Config{ClientID: "test-id", ClientSecret: "test-secret"})
	m.client.SetBaseURL(apiSrv.URL)
	m.client.SetTokenURL(tokenSrv.URL)

	result, err := m.handleGetChildren(context.Background(), callRequest("icf_get_children", map[string]any{"code": "d450"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var payload struct {
		Code     string `json:"code"`
		Count    int    `json:"count"`
		Children []struct {
			Code  string `json:"code"`
			Title string `json:"title"`
		} `json:"children"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Code != "d450" || payload.Count != 2 {
		t.Fatalf("code = %q, count = %d, want d450 and 2", payload.Code, payload.Count)
	}
	if payload.Children[0].Code != "d4500" || payload.Children[1].Code != "d4501" {
		t.Errorf("children = %q, %q", payload.Children[0].Code, payload.Children[1].Code)
	}
}
